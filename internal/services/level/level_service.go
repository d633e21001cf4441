package level

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/store"
)

// MaxLevels is the deepest sponsor-chain level that can ever earn override
// commission.
const MaxLevels = 30

var oneHundred = decimal.NewFromInt(100)

// Service pays commissions up the sponsor chain on each package purchase:
// the per-level override table (rank-gated by depth), the direct sponsor
// bonus, and the time-limited booster bonus.
type Service struct {
	store  store.Store
	ledger *ledger.Service

	// DefaultUnlockedLevels applies to accounts whose rank has no tier row
	// (fresh members before their first advancement).
	DefaultUnlockedLevels int

	// BoosterWindowDays is how long after enrollment a sponsor stays in the
	// booster window; BoosterMinDirects is the referral count required to
	// collect inside it.
	BoosterWindowDays int
	BoosterMinDirects int
}

// NewService creates a new level override service
func NewService(s store.Store, l *ledger.Service) *Service {
	return &Service{
		store:                 s,
		ledger:                l,
		DefaultUnlockedLevels: 5,
		BoosterWindowDays:     30,
		BoosterMinDirects:     2,
	}
}

// LevelPayment records one paid (or skipped) level of the walk.
type LevelPayment struct {
	Level     int             `json:"level"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid"`
	Skip      string          `json:"skip_reason,omitempty"`
}

// Report aggregates one distribution walk. Failed levels are isolated:
// earlier levels stay paid and the failures surface here for retry/audit.
type Report struct {
	PurchaserID uuid.UUID       `json:"purchaser_id"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Levels      []LevelPayment  `json:"levels"`
	Failures    *apperrors.PartialFailure
}

// DistributeLevelIncome walks up to 30 sponsor levels from the purchaser and
// pays each ancestor the package type's percentage for that level, gated by
// the ancestor's rank-unlocked depth. Ineligible or missing levels are
// skipped outright, never redirected or pooled. Each level is paid in its
// own transaction so one failing ancestor cannot roll back the others.
func (s *Service) DistributeLevelIncome(ctx context.Context, purchaserID uuid.UUID, amount decimal.Decimal, packageTypeID uuid.UUID) (*Report, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("investment amount must be positive: %w", apperrors.ErrValidation)
	}
	pt, err := s.store.GetPackageType(ctx, packageTypeID)
	if err != nil {
		return nil, err
	}
	chain, err := s.store.SponsorChain(ctx, purchaserID, MaxLevels)
	if err != nil {
		return nil, err
	}
	unlockedByRank, err := s.unlockedDepths(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PurchaserID: purchaserID,
		TotalPaid:   decimal.Zero,
		Failures:    &apperrors.PartialFailure{Op: "level income distribution"},
	}

	for i, ancestor := range chain {
		lvl := i + 1
		payment := LevelPayment{Level: lvl, AccountID: ancestor.ID}

		percent := pt.PercentForLevel(lvl)
		if !percent.IsPositive() {
			payment.Skip = "no percentage configured"
			report.Levels = append(report.Levels, payment)
			continue
		}
		if unlocked := s.unlockedFor(ancestor.Rank, unlockedByRank); lvl > unlocked {
			payment.Skip = fmt.Sprintf("rank %s unlocks %d levels", ancestor.Rank, unlocked)
			report.Levels = append(report.Levels, payment)
			continue
		}

		commission := amount.Mul(percent).Div(oneHundred)
		payment.Amount = commission
		lvlCopy := lvl
		_, err := s.ledger.Credit(ctx, ledger.Entry{
			AccountID:      ancestor.ID,
			Category:       models.CategoryLevelIncome,
			Amount:         commission,
			CounterpartyID: &purchaserID,
			Level:          &lvlCopy,
			Description:    fmt.Sprintf("Level %d override on %s purchase", lvl, amount),
			MetaData:       models.JSON{"package_type_id": packageTypeID.String()},
		})
		if err != nil {
			log.Printf("Level %d payment to %s failed: %v", lvl, ancestor.ID, err)
			report.Failures.Add(fmt.Sprintf("level %d (%s)", lvl, ancestor.ID), err)
			report.Levels = append(report.Levels, payment)
			continue
		}
		payment.Paid = true
		report.TotalPaid = report.TotalPaid.Add(commission)
		report.Levels = append(report.Levels, payment)
	}

	return report, nil
}

// DistributeDirectIncome pays the direct sponsor the package type's direct
// percentage, plus the booster percentage while the sponsor is inside the
// booster window with enough referrals.
func (s *Service) DistributeDirectIncome(ctx context.Context, purchaserID uuid.UUID, amount decimal.Decimal, packageTypeID uuid.UUID) (*Report, error) {
	pt, err := s.store.GetPackageType(ctx, packageTypeID)
	if err != nil {
		return nil, err
	}
	purchaser, err := s.store.GetAccount(ctx, purchaserID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PurchaserID: purchaserID,
		TotalPaid:   decimal.Zero,
		Failures:    &apperrors.PartialFailure{Op: "direct income distribution"},
	}
	if purchaser.SponsorID == nil {
		return report, nil
	}
	sponsor, err := s.store.GetAccount(ctx, *purchaser.SponsorID)
	if err != nil {
		return nil, err
	}

	if pt.DirectPercent.IsPositive() {
		direct := amount.Mul(pt.DirectPercent).Div(oneHundred)
		_, err := s.ledger.Credit(ctx, ledger.Entry{
			AccountID:      sponsor.ID,
			Category:       models.CategoryDirectIncome,
			Amount:         direct,
			CounterpartyID: &purchaserID,
			Description:    fmt.Sprintf("Direct income on %s purchase", amount),
		})
		if err != nil {
			report.Failures.Add("direct income", err)
		} else {
			report.TotalPaid = report.TotalPaid.Add(direct)
		}
	}

	if pt.BoosterPercent.IsPositive() {
		eligible, err := s.boosterEligible(ctx, sponsor)
		if err != nil {
			report.Failures.Add("booster eligibility", err)
		} else if eligible {
			booster := amount.Mul(pt.BoosterPercent).Div(oneHundred)
			_, err := s.ledger.Credit(ctx, ledger.Entry{
				AccountID:      sponsor.ID,
				Category:       models.CategoryBoosterIncome,
				Amount:         booster,
				CounterpartyID: &purchaserID,
				Description:    fmt.Sprintf("Booster income on %s purchase", amount),
			})
			if err != nil {
				report.Failures.Add("booster income", err)
			} else {
				report.TotalPaid = report.TotalPaid.Add(booster)
			}
		}
	}

	return report, nil
}

func (s *Service) boosterEligible(ctx context.Context, sponsor *models.Account) (bool, error) {
	window := time.Duration(s.BoosterWindowDays) * 24 * time.Hour
	if time.Since(sponsor.EnrolledAt) > window {
		return false, nil
	}
	total, _, err := s.store.CountDirectReferrals(ctx, sponsor.ID)
	if err != nil {
		return false, err
	}
	return total >= s.BoosterMinDirects, nil
}

// unlockedDepths maps rank names to the deepest level they may earn from.
func (s *Service) unlockedDepths(ctx context.Context) (map[string]int, error) {
	tiers, err := s.store.RankTiers(ctx)
	if err != nil {
		return nil, err
	}
	depths := make(map[string]int, len(tiers))
	for _, tier := range tiers {
		depths[tier.Name] = tier.UnlockedLevels
	}
	return depths, nil
}

func (s *Service) unlockedFor(rank string, depths map[string]int) int {
	if depth, ok := depths[rank]; ok {
		return depth
	}
	return s.DefaultUnlockedLevels
}

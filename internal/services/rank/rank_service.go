package rank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/notify"
	"github.com/nexarise/backend/internal/store"
)

var oneHundred = decimal.NewFromFloat(100)

// Service evaluates accounts against the ordered rank tier table and pays
// one-time advancement rewards.
type Service struct {
	store    store.Store
	ledger   *ledger.Service
	notifier notify.Notifier
}

// NewService creates a new rank service
func NewService(s store.Store, l *ledger.Service, n notify.Notifier) *Service {
	return &Service{store: s, ledger: l, notifier: n}
}

// Metrics are the four qualification measurements.
type Metrics struct {
	DirectReferrals int             `json:"direct_referrals"`
	ActiveDirects   int             `json:"active_directs"`
	TeamVolume      decimal.Decimal `json:"team_volume"`
	PersonalVolume  decimal.Decimal `json:"personal_volume"`
}

// Evaluation is the outcome of a qualification check.
type Evaluation struct {
	AccountID   uuid.UUID        `json:"account_id"`
	CurrentRank string           `json:"current_rank"`
	Metrics     Metrics          `json:"metrics"`
	Qualified   *models.RankTier `json:"qualified_tier,omitempty"`
	Next        *models.RankTier `json:"next_tier,omitempty"`

	// Progress toward the next tier: the average of the four completion
	// ratios, each capped at 100.
	ProgressPercent decimal.Decimal `json:"progress_percent"`
	Missing         []string        `json:"missing_requirements,omitempty"`
}

// Evaluate computes the account's metrics and walks the tier table in
// ascending order, returning the highest tier whose four thresholds are all
// met, plus progress toward the first tier that is not.
func (s *Service) Evaluate(ctx context.Context, accountID uuid.UUID) (*Evaluation, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.collectMetrics(ctx, accountID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.store.RankTiers(ctx)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		AccountID:       accountID,
		CurrentRank:     account.Rank,
		Metrics:         metrics,
		ProgressPercent: oneHundred,
	}
	for i := range tiers {
		tier := tiers[i]
		if qualifies(metrics, tier) {
			eval.Qualified = &tier
			continue
		}
		eval.Next = &tier
		eval.ProgressPercent = progress(metrics, tier)
		eval.Missing = missing(metrics, tier)
		break
	}
	return eval, nil
}

// DistributeRankReward pays the one-time reward for a tier. Idempotent per
// (account, tier): a second call fails with apperrors.ErrDuplicate and pays
// nothing. The achievement record, the ledger entry, and the rank update
// commit together.
func (s *Service) DistributeRankReward(ctx context.Context, accountID, tierID uuid.UUID, distributedBy string) (*models.RankAchievement, error) {
	tier, err := s.store.GetRankTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if distributedBy == "" {
		distributedBy = "system"
	}

	achievement := &models.RankAchievement{
		AccountID:     accountID,
		RankTierID:    tierID,
		RankName:      tier.Name,
		RewardAmount:  tier.RewardAmount,
		DistributedBy: distributedBy,
		AchievedAt:    time.Now().UTC(),
	}
	err = s.store.Atomic(ctx, func(st store.Store) error {
		// The unique (account, tier) insert is the idempotency guard.
		if err := st.CreateAchievement(ctx, achievement); err != nil {
			return err
		}
		if tier.RewardAmount.IsPositive() {
			if _, err := s.ledger.CreditIn(ctx, st, ledger.Entry{
				AccountID:   accountID,
				Category:    models.CategoryRankReward,
				Amount:      tier.RewardAmount,
				Description: fmt.Sprintf("Rank reward for %s", tier.Name),
			}); err != nil {
				return err
			}
		}
		if outranks(ctx, st, tier, account.Rank) {
			return st.SetRank(ctx, accountID, tier.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify.Dispatch(s.notifier, notify.Event{
		Kind:      notify.KindRankAchieved,
		AccountID: accountID,
		Amount:    tier.RewardAmount,
		Detail:    fmt.Sprintf("advanced to %s", tier.Name),
	})
	return achievement, nil
}

// AutoAdvance evaluates the account and distributes rewards for every
// qualifying tier not yet achieved, in ascending order. Safe to call after
// any volume or earnings mutation.
func (s *Service) AutoAdvance(ctx context.Context, accountID uuid.UUID) ([]*models.RankAchievement, error) {
	metrics, err := s.collectMetrics(ctx, accountID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.store.RankTiers(ctx)
	if err != nil {
		return nil, err
	}

	var achieved []*models.RankAchievement
	for i := range tiers {
		tier := tiers[i]
		if !qualifies(metrics, tier) {
			break
		}
		done, err := s.store.HasAchievement(ctx, accountID, tier.ID)
		if err != nil {
			return achieved, err
		}
		if done {
			continue
		}
		achievement, err := s.DistributeRankReward(ctx, accountID, tier.ID, "system")
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				continue
			}
			return achieved, err
		}
		log.Printf("Account %s advanced to rank %s", accountID, tier.Name)
		achieved = append(achieved, achievement)
	}
	return achieved, nil
}

func (s *Service) collectMetrics(ctx context.Context, accountID uuid.UUID) (Metrics, error) {
	total, active, err := s.store.CountDirectReferrals(ctx, accountID)
	if err != nil {
		return Metrics{}, err
	}
	metrics := Metrics{
		DirectReferrals: total,
		ActiveDirects:   active,
		TeamVolume:      decimal.Zero,
		PersonalVolume:  decimal.Zero,
	}
	node, err := s.store.GetNodeByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return metrics, nil
		}
		return Metrics{}, err
	}
	metrics.TeamVolume = node.LeftVolume.Add(node.RightVolume)
	metrics.PersonalVolume = node.OwnVolume
	return metrics, nil
}

func qualifies(m Metrics, tier models.RankTier) bool {
	return m.DirectReferrals >= tier.MinDirectReferrals &&
		m.ActiveDirects >= tier.MinActiveDirects &&
		m.TeamVolume.GreaterThanOrEqual(tier.MinTeamVolume) &&
		m.PersonalVolume.GreaterThanOrEqual(tier.MinPersonalVolume)
}

// ratio returns have/want capped at 1; a zero threshold counts as complete.
func ratio(have, want decimal.Decimal) decimal.Decimal {
	if !want.IsPositive() {
		return decimal.NewFromInt(1)
	}
	r := have.Div(want)
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return r
}

func progress(m Metrics, tier models.RankTier) decimal.Decimal {
	sum := ratio(decimal.NewFromInt(int64(m.DirectReferrals)), decimal.NewFromInt(int64(tier.MinDirectReferrals))).
		Add(ratio(decimal.NewFromInt(int64(m.ActiveDirects)), decimal.NewFromInt(int64(tier.MinActiveDirects)))).
		Add(ratio(m.TeamVolume, tier.MinTeamVolume)).
		Add(ratio(m.PersonalVolume, tier.MinPersonalVolume))
	return sum.Div(decimal.NewFromInt(4)).Mul(oneHundred).Round(2)
}

func missing(m Metrics, tier models.RankTier) []string {
	var out []string
	if m.DirectReferrals < tier.MinDirectReferrals {
		out = append(out, fmt.Sprintf("%d more direct referrals", tier.MinDirectReferrals-m.DirectReferrals))
	}
	if m.ActiveDirects < tier.MinActiveDirects {
		out = append(out, fmt.Sprintf("%d more active directs", tier.MinActiveDirects-m.ActiveDirects))
	}
	if m.TeamVolume.LessThan(tier.MinTeamVolume) {
		out = append(out, fmt.Sprintf("%s more team volume", tier.MinTeamVolume.Sub(m.TeamVolume)))
	}
	if m.PersonalVolume.LessThan(tier.MinPersonalVolume) {
		out = append(out, fmt.Sprintf("%s more personal volume", tier.MinPersonalVolume.Sub(m.PersonalVolume)))
	}
	return out
}

// outranks reports whether the achieved tier sits above the account's
// current rank in the tier order, so a backfilled lower-tier reward never
// demotes the display rank.
func outranks(ctx context.Context, st store.Store, achieved *models.RankTier, currentRank string) bool {
	tiers, err := st.RankTiers(ctx)
	if err != nil {
		return true
	}
	for _, tier := range tiers {
		if tier.Name == currentRank {
			return achieved.OrderIndex > tier.OrderIndex
		}
	}
	// Current rank not in the table (fresh member): any tier outranks it.
	return true
}

package purchase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/binary"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/level"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/store"
)

var oneHundred = decimal.NewFromInt(100)

// Service orchestrates a package purchase: the funded part (debit + contract
// creation) commits atomically, then an explicit ordered list of
// post-purchase handlers runs. Each handler's failure is isolated and
// reported; none of them can undo the purchase or each other.
type Service struct {
	store  store.Store
	ledger *ledger.Service

	handlers []Handler
}

// Handler is one post-purchase distribution step. Handlers must be
// idempotent-safe against retries driven from the outcome report.
type Handler struct {
	Name string
	Run  func(ctx context.Context, event Event) (interface{}, error)
}

// Event describes a completed purchase to the handlers.
type Event struct {
	AccountID     uuid.UUID
	PackageID     uuid.UUID
	PackageTypeID uuid.UUID
	Amount        decimal.Decimal
}

// HandlerResult is one handler's outcome inside the aggregate report.
type HandlerResult struct {
	Name   string      `json:"name"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Outcome is the aggregate purchase report returned to the caller.
type Outcome struct {
	Package  *models.Package `json:"package"`
	Handlers []HandlerResult `json:"handlers"`
}

// NewService wires the standard handler chain: direct/booster income, the
// 30-level override walk, binary volume + matching, then rank advancement
// for the purchaser and their direct sponsor.
func NewService(s store.Store, l *ledger.Service, levels *level.Service, matching *binary.Service, ranks *rank.Service) *Service {
	svc := &Service{store: s, ledger: l}
	svc.handlers = []Handler{
		{Name: "direct_income", Run: func(ctx context.Context, e Event) (interface{}, error) {
			return levels.DistributeDirectIncome(ctx, e.AccountID, e.Amount, e.PackageTypeID)
		}},
		{Name: "level_income", Run: func(ctx context.Context, e Event) (interface{}, error) {
			return levels.DistributeLevelIncome(ctx, e.AccountID, e.Amount, e.PackageTypeID)
		}},
		{Name: "binary_matching", Run: func(ctx context.Context, e Event) (interface{}, error) {
			return matching.UpdateBinaryVolume(ctx, e.AccountID, e.Amount)
		}},
		{Name: "rank_advancement", Run: func(ctx context.Context, e Event) (interface{}, error) {
			return svc.advanceRanks(ctx, ranks, e.AccountID)
		}},
	}
	return svc
}

// PurchasePackage validates and funds a purchase, then runs the handler
// chain. The returned outcome reports every handler individually; the
// purchase itself succeeds as soon as the funded part commits.
func (s *Service) PurchasePackage(ctx context.Context, accountID, packageTypeID uuid.UUID, amount decimal.Decimal) (*Outcome, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("account %s is deactivated: %w", accountID, apperrors.ErrValidation)
	}
	pt, err := s.store.GetPackageType(ctx, packageTypeID)
	if err != nil {
		return nil, err
	}
	if !pt.IsActive {
		return nil, fmt.Errorf("package type %s is retired: %w", pt.Name, apperrors.ErrValidation)
	}
	if amount.LessThan(pt.MinAmount) || amount.GreaterThan(pt.MaxAmount) {
		return nil, fmt.Errorf("amount %s outside package bounds [%s, %s]: %w",
			amount, pt.MinAmount, pt.MaxAmount, apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	pkg := &models.Package{
		AccountID:     accountID,
		PackageTypeID: packageTypeID,
		Principal:     amount,
		DailyAmount:   amount.Mul(pt.DailyRatePercent).Div(oneHundred),
		Cap:           amount.Mul(pt.CapMultiplier),
		ActivatedAt:   now,
		ExpiresAt:     now.AddDate(0, 0, pt.DurationDays),
		Status:        models.PackageStatusActive,
	}
	err = s.store.Atomic(ctx, func(st store.Store) error {
		if err := st.CreatePackage(ctx, pkg); err != nil {
			return err
		}
		_, err := s.ledger.DebitIn(ctx, st, ledger.Entry{
			AccountID:   accountID,
			Category:    models.CategoryPackagePurchase,
			Amount:      amount,
			PackageID:   &pkg.ID,
			Description: fmt.Sprintf("Purchase of %s package", pt.Name),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	event := Event{
		AccountID:     accountID,
		PackageID:     pkg.ID,
		PackageTypeID: packageTypeID,
		Amount:        amount,
	}
	outcome := &Outcome{Package: pkg}
	for _, handler := range s.handlers {
		result, err := runHandler(ctx, handler, event)
		hr := HandlerResult{Name: handler.Name, Result: result}
		if err != nil {
			hr.Error = err.Error()
			log.Printf("Post-purchase handler %s failed for package %s: %v", handler.Name, pkg.ID, err)
		}
		outcome.Handlers = append(outcome.Handlers, hr)
	}
	return outcome, nil
}

// runHandler contains a handler panic so a distribution bug cannot take the
// purchase acknowledgement down with it.
func runHandler(ctx context.Context, handler Handler, event Event) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", handler.Name, r)
		}
	}()
	return handler.Run(ctx, event)
}

// advanceRanks re-evaluates the purchaser and their sponsor, whose team
// volume both changed with this purchase.
func (s *Service) advanceRanks(ctx context.Context, ranks *rank.Service, accountID uuid.UUID) (interface{}, error) {
	achieved, err := ranks.AutoAdvance(ctx, accountID)
	if err != nil {
		return achieved, err
	}
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return achieved, err
	}
	if account.SponsorID != nil {
		sponsorAchieved, err := ranks.AutoAdvance(ctx, *account.SponsorID)
		if err != nil {
			return append(achieved, sponsorAchieved...), err
		}
		achieved = append(achieved, sponsorAchieved...)
	}
	return achieved, nil
}

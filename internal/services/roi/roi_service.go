package roi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/notify"
	"github.com/nexarise/backend/internal/store"
)

// Service runs the daily ROI distribution batch: each active package earns
// its daily amount, capped by the lifetime payout ceiling, with a per-day
// dedupe so a double-fired scheduler cannot double-pay.
type Service struct {
	store  store.Store
	ledger *ledger.Service

	// notifier receives large-payout events; nil disables the hook.
	notifier notify.Notifier

	// LargePayoutThreshold triggers the notification hook when a single
	// payout meets or exceeds it.
	LargePayoutThreshold decimal.Decimal
}

// NewService creates a new ROI distribution service
func NewService(s store.Store, l *ledger.Service, n notify.Notifier) *Service {
	return &Service{
		store:                s,
		ledger:               l,
		notifier:             n,
		LargePayoutThreshold: decimal.NewFromInt(1000),
	}
}

// Summary aggregates one batch run.
type Summary struct {
	Date      string          `json:"date"`
	Processed int             `json:"processed"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Completed int             `json:"completed"`
	Expired   int             `json:"expired"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
}

// RunDailyDistribution processes every active package once for the UTC day
// of asOf. The active set is snapshotted up front, so packages the batch
// itself completes or expires cannot shift the iteration and starve later
// ones. A failure on one package is logged and counted, never aborting the
// batch. Re-running the same day is a no-op per package: each package
// carries a last-payout-date marker and the payout table has a unique
// (package, date) key.
func (s *Service) RunDailyDistribution(ctx context.Context, asOf time.Time) (*Summary, error) {
	date := asOf.UTC().Format("2006-01-02")
	summary := &Summary{Date: date, TotalPaid: decimal.Zero}

	ids, err := s.store.ActivePackageIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("error loading active packages: %w", err)
	}
	log.Printf("Starting ROI distribution for %s: %d active packages", date, len(ids))

	for _, id := range ids {
		pkg, err := s.store.GetPackage(ctx, id)
		if err != nil {
			summary.Failed++
			log.Printf("ROI distribution failed for package %s: %v", id, err)
			continue
		}
		if pkg.Status != models.PackageStatusActive {
			continue
		}
		summary.Processed++
		paid, final, err := s.distributeOne(ctx, pkg, asOf, date)
		switch {
		case errors.Is(err, apperrors.ErrDuplicate):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			log.Printf("ROI distribution failed for package %s: %v", pkg.ID, err)
		default:
			summary.TotalPaid = summary.TotalPaid.Add(paid)
			switch final {
			case models.PackageStatusCompleted:
				summary.Completed++
			case models.PackageStatusExpired:
				summary.Expired++
			}
		}
	}

	log.Printf("ROI distribution for %s done: %d processed, %s paid, %d completed, %d expired, %d skipped, %d failed",
		date, summary.Processed, summary.TotalPaid, summary.Completed, summary.Expired, summary.Skipped, summary.Failed)
	return summary, nil
}

// distributeOne advances a single package inside its own transaction, so one
// bad package cannot roll back the rest of the batch. The returned status is
// the package's final status when this run retired it, empty otherwise.
func (s *Service) distributeOne(ctx context.Context, pkg *models.Package, asOf time.Time, date string) (decimal.Decimal, models.PackageStatus, error) {
	if pkg.LastPayoutDate == date {
		return decimal.Zero, "", fmt.Errorf("package %s on %s: %w", pkg.ID, date, apperrors.ErrDuplicate)
	}

	// Expiry forfeits any undistributed daily amount. Explicit policy.
	if !asOf.Before(pkg.ExpiresAt) {
		pkg.Status = models.PackageStatusExpired
		if err := s.store.SavePackage(ctx, pkg); err != nil {
			return decimal.Zero, "", err
		}
		return decimal.Zero, models.PackageStatusExpired, nil
	}

	payout := pkg.DailyAmount
	if remaining := pkg.RemainingCap(); payout.GreaterThan(remaining) {
		payout = remaining
	}
	if !payout.IsPositive() {
		pkg.Status = models.PackageStatusCompleted
		if err := s.store.SavePackage(ctx, pkg); err != nil {
			return decimal.Zero, "", err
		}
		return decimal.Zero, models.PackageStatusCompleted, nil
	}

	var final models.PackageStatus
	err := s.store.Atomic(ctx, func(st store.Store) error {
		// The unique (package, date) insert is the cross-process dedupe:
		// a concurrent run of the same day loses this insert and backs off.
		if err := st.CreateRoiPayout(ctx, &models.RoiPayout{
			PackageID:  pkg.ID,
			PayoutDate: date,
			Amount:     payout,
		}); err != nil {
			return err
		}

		pkg.Earned = pkg.Earned.Add(payout)
		pkg.LastPayoutDate = date
		if pkg.Earned.GreaterThanOrEqual(pkg.Cap) {
			pkg.Status = models.PackageStatusCompleted
			final = models.PackageStatusCompleted
		}
		if err := st.SavePackage(ctx, pkg); err != nil {
			return err
		}

		_, err := s.ledger.CreditIn(ctx, st, ledger.Entry{
			AccountID:   pkg.AccountID,
			Category:    models.CategoryRoiDistribution,
			Amount:      payout,
			PackageID:   &pkg.ID,
			Description: fmt.Sprintf("Daily ROI for %s", date),
		})
		return err
	})
	if err != nil {
		return decimal.Zero, "", err
	}

	if s.notifier != nil && payout.GreaterThanOrEqual(s.LargePayoutThreshold) {
		notify.Dispatch(s.notifier, notify.Event{
			Kind:      notify.KindLargePayout,
			AccountID: pkg.AccountID,
			Amount:    payout,
			Detail:    fmt.Sprintf("ROI payout on package %s", pkg.ID),
		})
	}
	return payout, final, nil
}

package roi

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/store"
)

func newFixture(t *testing.T) (*store.Memory, *Service, *models.Account) {
	t.Helper()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	account := &models.Account{
		Username:     "investor",
		Email:        "investor@example.com",
		ReferralCode: "ref-investor",
		IsActive:     true,
	}
	require.NoError(t, st.CreateAccount(context.Background(), account))
	return st, svc, account
}

func newPackage(t *testing.T, st *store.Memory, account *models.Account, daily, cap, earned decimal.Decimal, expiresAt time.Time) *models.Package {
	t.Helper()
	pkg := &models.Package{
		AccountID:   account.ID,
		Principal:   decimal.NewFromInt(1000),
		DailyAmount: daily,
		Cap:         cap,
		Earned:      earned,
		ActivatedAt: time.Now().UTC().AddDate(0, 0, -10),
		ExpiresAt:   expiresAt,
		Status:      models.PackageStatusActive,
	}
	require.NoError(t, st.CreatePackage(context.Background(), pkg))
	return pkg
}

func TestDailyDistributionPaysAndRecords(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	pkg := newPackage(t, st, account, decimal.NewFromInt(25), decimal.NewFromInt(2000), decimal.Zero, future)

	summary, err := svc.RunDailyDistribution(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 0, summary.Failed)

	got, err := st.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.True(t, got.Earned.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, summary.Date, got.LastPayoutDate)
	assert.Equal(t, models.PackageStatusActive, got.Status)

	owner, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, owner.WalletBalance.Equal(decimal.NewFromInt(25)))
	assert.True(t, owner.RoiEarned.Equal(decimal.NewFromInt(25)))
}

func TestRerunSameDaySkips(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	newPackage(t, st, account, decimal.NewFromInt(25), decimal.NewFromInt(2000), decimal.Zero, future)

	now := time.Now().UTC()
	_, err := svc.RunDailyDistribution(ctx, now)
	require.NoError(t, err)

	second, err := svc.RunDailyDistribution(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.True(t, second.TotalPaid.IsZero())

	owner, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, owner.WalletBalance.Equal(decimal.NewFromInt(25)))
}

func TestCapClampsFinalPayout(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	pkg := newPackage(t, st, account,
		decimal.NewFromInt(25), decimal.NewFromInt(2000), decimal.NewFromInt(1990), future)

	summary, err := svc.RunDailyDistribution(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, summary.Completed)

	got, err := st.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.True(t, got.Earned.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, models.PackageStatusCompleted, got.Status)

	// Completed packages drop out of the next run entirely.
	next, err := svc.RunDailyDistribution(ctx, time.Now().UTC().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, next.Processed)
}

func TestExpiredPackageForfeitsRemainder(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	past := time.Now().UTC().AddDate(0, 0, -1)
	pkg := newPackage(t, st, account, decimal.NewFromInt(25), decimal.NewFromInt(2000), decimal.NewFromInt(100), past)

	summary, err := svc.RunDailyDistribution(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, summary.TotalPaid.IsZero())
	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 0, summary.Completed)

	got, err := st.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PackageStatusExpired, got.Status)
	assert.True(t, got.Earned.Equal(decimal.NewFromInt(100)))

	owner, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, owner.WalletBalance.IsZero())
}

func TestBatchCoversEveryPackageWhenStatusesChangeMidRun(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)

	// Every package sits one payout from its cap, so each one completes
	// during the run. More packages than any reasonable page size: offset
	// pagination over the shrinking active set would skip a chunk of them.
	const count = 600
	for i := 0; i < count; i++ {
		newPackage(t, st, account,
			decimal.NewFromInt(10), decimal.NewFromInt(1000), decimal.NewFromInt(990), future)
	}

	summary, err := svc.RunDailyDistribution(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, count, summary.Processed)
	assert.Equal(t, count, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(count*10)))

	owner, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, owner.WalletBalance.Equal(decimal.NewFromInt(count*10)))
}

func TestOneBadPackageDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	st, svc, account := newFixture(t)
	future := time.Now().UTC().AddDate(0, 0, 30)
	newPackage(t, st, account, decimal.NewFromInt(25), decimal.NewFromInt(2000), decimal.Zero, future)

	// A package owned by a missing account fails its ledger credit.
	orphan := &models.Package{
		AccountID:   account.ID,
		Principal:   decimal.NewFromInt(500),
		DailyAmount: decimal.NewFromInt(10),
		Cap:         decimal.NewFromInt(1000),
		ActivatedAt: time.Now().UTC(),
		ExpiresAt:   future,
		Status:      models.PackageStatusActive,
	}
	require.NoError(t, st.CreatePackage(ctx, orphan))
	orphan.AccountID = uuid.New()
	require.NoError(t, st.SavePackage(ctx, orphan))

	summary, err := svc.RunDailyDistribution(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(25)))
}

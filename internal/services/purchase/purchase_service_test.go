package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/binary"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/level"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/services/tree"
	"github.com/nexarise/backend/internal/store"
)

// fixture is a funded buyer placed under a sponsor, with the full service
// graph wired over the in-memory store.
type fixture struct {
	st      *store.Memory
	svc     *Service
	ledger  *ledger.Service
	sponsor *models.Account
	buyer   *models.Account
	pt      *models.PackageType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.SaveBinarySettings(ctx, &models.BinarySettings{
		MatchPercent:       decimal.NewFromInt(10),
		MaxDailyMatches:    10,
		CarryoverEnabled:   true,
		VolumeSplitPercent: decimal.NewFromInt(100),
	}))

	ledgerSvc := ledger.NewService(st)
	treeSvc := tree.NewService(st, nil)
	svc := NewService(st, ledgerSvc,
		level.NewService(st, ledgerSvc),
		binary.NewService(st, ledgerSvc),
		rank.NewService(st, ledgerSvc, nil))

	f := &fixture{st: st, svc: svc, ledger: ledgerSvc}

	f.sponsor = &models.Account{
		Username:     "sponsor",
		Email:        "sponsor@example.com",
		ReferralCode: "ref-sponsor",
		Rank:         "member",
		IsActive:     true,
		EnrolledAt:   time.Now().UTC().AddDate(0, 0, -90),
	}
	require.NoError(t, st.CreateAccount(ctx, f.sponsor))
	f.buyer = &models.Account{
		Username:     "buyer",
		Email:        "buyer@example.com",
		ReferralCode: "ref-buyer",
		SponsorID:    &f.sponsor.ID,
		Rank:         "member",
		IsActive:     true,
		EnrolledAt:   time.Now().UTC(),
	}
	require.NoError(t, st.CreateAccount(ctx, f.buyer))

	_, err := treeSvc.PlaceRoot(ctx, f.sponsor.ID)
	require.NoError(t, err)
	_, err = treeSvc.Place(ctx, f.buyer.ID, f.sponsor.ID, models.PositionLeft)
	require.NoError(t, err)

	f.pt = &models.PackageType{
		Name:             "growth",
		MinAmount:        decimal.NewFromInt(100),
		MaxAmount:        decimal.NewFromInt(10000),
		DailyRatePercent: decimal.NewFromFloat(2.5),
		CapMultiplier:    decimal.NewFromInt(2),
		DurationDays:     100,
		DirectPercent:    decimal.NewFromInt(5),
		LevelPercents: []models.LevelPercent{
			{Level: 1, Percent: decimal.NewFromInt(5)},
		},
		IsActive: true,
	}
	require.NoError(t, st.CreatePackageType(ctx, f.pt))
	return f
}

func (f *fixture) fund(t *testing.T, account *models.Account, amount decimal.Decimal) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), ledger.Entry{
		AccountID:   account.ID,
		Category:    models.CategoryAdjustment,
		Amount:      amount,
		Description: "test funding",
	})
	require.NoError(t, err)
}

func TestPurchaseRunsDistributionChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.buyer, decimal.NewFromInt(1000))

	outcome, err := f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, outcome.Package)
	assert.True(t, outcome.Package.DailyAmount.Equal(decimal.NewFromInt(25)))
	assert.True(t, outcome.Package.Cap.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, models.PackageStatusActive, outcome.Package.Status)

	require.Len(t, outcome.Handlers, 4)
	names := make([]string, 0, len(outcome.Handlers))
	for _, h := range outcome.Handlers {
		names = append(names, h.Name)
		assert.Empty(t, h.Error)
	}
	assert.Equal(t, []string{"direct_income", "level_income", "binary_matching", "rank_advancement"}, names)

	buyer, err := f.st.GetAccount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.True(t, buyer.WalletBalance.IsZero())

	// Sponsor collects the direct bonus and the level-1 override.
	sponsor, err := f.st.GetAccount(ctx, f.sponsor.ID)
	require.NoError(t, err)
	assert.True(t, sponsor.WalletBalance.Equal(decimal.NewFromInt(100)))

	// Volume reached the sponsor's left leg.
	node, err := f.st.GetNodeByAccount(ctx, f.sponsor.ID)
	require.NoError(t, err)
	assert.True(t, node.LeftVolume.Equal(decimal.NewFromInt(1000)))
	assert.True(t, node.RightVolume.IsZero())

	// Both wallets still reconcile against their ledgers.
	require.NoError(t, f.ledger.Reconcile(ctx, f.buyer.ID))
	require.NoError(t, f.ledger.Reconcile(ctx, f.sponsor.ID))
}

func TestPurchaseRejectsAmountOutsideBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.buyer, decimal.NewFromInt(1000))

	_, err := f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(50))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(20000))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPurchaseInsufficientFundsRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.buyer, decimal.NewFromInt(100))

	_, err := f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(500))
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	// The contract creation rolled back with the failed debit.
	packages, err := f.st.ActivePackages(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, packages)

	buyer, err := f.st.GetAccount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.True(t, buyer.WalletBalance.Equal(decimal.NewFromInt(100)))

	sponsor, err := f.st.GetAccount(ctx, f.sponsor.ID)
	require.NoError(t, err)
	assert.True(t, sponsor.WalletBalance.IsZero())
}

func TestPurchaseRejectsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.buyer, decimal.NewFromInt(1000))

	f.buyer.IsActive = false
	require.NoError(t, f.st.SaveAccount(ctx, f.buyer))

	_, err := f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPurchaseRejectsRetiredPackageType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, f.buyer, decimal.NewFromInt(1000))

	f.pt.IsActive = false
	require.NoError(t, f.st.CreatePackageType(ctx, f.pt))

	_, err := f.svc.PurchasePackage(ctx, f.buyer.ID, f.pt.ID, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

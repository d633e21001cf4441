package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/store"
)

func newAccount(t *testing.T, st *store.Memory, username string) *models.Account {
	t.Helper()
	account := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		ReferralCode: "ref-" + username,
		IsActive:     true,
	}
	require.NoError(t, st.CreateAccount(context.Background(), account))
	return account
}

func TestCreditUpdatesBalanceAndLedger(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	account := newAccount(t, st, "alice")

	txn, err := svc.Credit(ctx, Entry{
		AccountID:   account.ID,
		Category:    models.CategoryRoiDistribution,
		Amount:      decimal.NewFromInt(25),
		Description: "Daily ROI",
	})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, models.TransactionCompleted, txn.Status)
	assert.NotEmpty(t, txn.Reference)

	got, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.WalletBalance.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.RoiEarned.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.TotalEarned.Equal(decimal.NewFromInt(25)))

	history, total, err := svc.History(ctx, account.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, history, 1)
	assert.Equal(t, models.CategoryRoiDistribution, history[0].Category)
}

func TestDebitRecordsNegativeAmount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	account := newAccount(t, st, "bob")

	_, err := svc.Credit(ctx, Entry{
		AccountID: account.ID,
		Category:  models.CategoryAdjustment,
		Amount:    decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	txn, err := svc.Debit(ctx, Entry{
		AccountID: account.ID,
		Category:  models.CategoryPackagePurchase,
		Amount:    decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-40)))
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(60)))
}

func TestDebitInsufficientFundsLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	account := newAccount(t, st, "carol")

	_, err := svc.Credit(ctx, Entry{
		AccountID: account.ID,
		Category:  models.CategoryAdjustment,
		Amount:    decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, Entry{
		AccountID: account.ID,
		Category:  models.CategoryPackagePurchase,
		Amount:    decimal.NewFromInt(50),
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	got, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.WalletBalance.Equal(decimal.NewFromInt(30)))

	_, total, err := svc.History(ctx, account.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st)
	account := newAccount(t, st, "dave")

	_, err := svc.Credit(context.Background(), Entry{
		AccountID: account.ID,
		Category:  models.CategoryAdjustment,
		Amount:    decimal.Zero,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReconcileDetectsDrift(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	account := newAccount(t, st, "erin")

	_, err := svc.Credit(ctx, Entry{
		AccountID: account.ID,
		Category:  models.CategoryDirectIncome,
		Amount:    decimal.NewFromInt(75),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Reconcile(ctx, account.ID))

	// Corrupt the balance out of band.
	got, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	got.WalletBalance = got.WalletBalance.Add(decimal.NewFromInt(1))
	require.NoError(t, st.SaveAccount(ctx, got))

	assert.ErrorIs(t, svc.Reconcile(ctx, account.ID), apperrors.ErrReconciliation)
}

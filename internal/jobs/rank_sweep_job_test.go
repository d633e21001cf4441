package jobs

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/store"
)

func TestRankSweepAdvancesRecentlyActiveAccounts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ledgerSvc := ledger.NewService(st)
	rankSvc := rank.NewService(st, ledgerSvc, nil)

	st.AddRankTier(models.RankTier{
		Name:         "starter",
		OrderIndex:   1,
		RewardAmount: decimal.NewFromInt(50),
	})

	account := &models.Account{
		Username:     "member",
		Email:        "member@example.com",
		ReferralCode: "ref-member",
		Rank:         "member",
		IsActive:     true,
	}
	require.NoError(t, st.CreateAccount(ctx, account))

	// Ledger activity puts the account inside the sweep window.
	_, err := ledgerSvc.Credit(ctx, ledger.Entry{
		AccountID: account.ID,
		Category:  models.CategoryAdjustment,
		Amount:    decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	job := NewRankSweepJob(st, rankSvc)
	job.Run(ctx)

	got, err := st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "starter", got.Rank)
	assert.True(t, got.RankEarned.Equal(decimal.NewFromInt(50)))

	// A second sweep pays nothing new.
	job.Run(ctx)
	got, err = st.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.RankEarned.Equal(decimal.NewFromInt(50)))
}

package rank

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/store"
)

func newAccount(t *testing.T, st *store.Memory, username string, sponsorID *uuid.UUID) *models.Account {
	t.Helper()
	account := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		ReferralCode: "ref-" + username,
		SponsorID:    sponsorID,
		Rank:         "member",
		IsActive:     true,
	}
	require.NoError(t, st.CreateAccount(context.Background(), account))
	return account
}

func setNodeVolumes(t *testing.T, st *store.Memory, accountID uuid.UUID, own, left, right decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	node := &models.BinaryNode{
		AccountID:   accountID,
		OwnVolume:   own,
		LeftVolume:  left,
		RightVolume: right,
	}
	require.NoError(t, st.CreateNode(ctx, node))
}

func seedTiers(st *store.Memory) (starter, builder models.RankTier) {
	starter = models.RankTier{
		Name:               "starter",
		OrderIndex:         1,
		RewardAmount:       decimal.NewFromInt(50),
		MinDirectReferrals: 2,
		MinActiveDirects:   1,
		MinTeamVolume:      decimal.NewFromInt(1000),
		MinPersonalVolume:  decimal.NewFromInt(100),
		UnlockedLevels:     10,
	}
	builder = models.RankTier{
		Name:               "builder",
		OrderIndex:         2,
		RewardAmount:       decimal.NewFromInt(200),
		MinDirectReferrals: 5,
		MinActiveDirects:   3,
		MinTeamVolume:      decimal.NewFromInt(10000),
		MinPersonalVolume:  decimal.NewFromInt(500),
		UnlockedLevels:     15,
	}
	st.AddRankTier(starter)
	st.AddRankTier(builder)
	return starter, builder
}

func tierID(t *testing.T, st *store.Memory, name string) uuid.UUID {
	t.Helper()
	tiers, err := st.RankTiers(context.Background())
	require.NoError(t, err)
	for _, tier := range tiers {
		if tier.Name == name {
			return tier.ID
		}
	}
	t.Fatalf("tier %s not seeded", name)
	return uuid.Nil
}

func TestEvaluateReportsQualificationAndProgress(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)
	newAccount(t, st, "d1", &member.ID)
	newAccount(t, st, "d2", &member.ID)
	setNodeVolumes(t, st, member.ID, decimal.NewFromInt(200), decimal.NewFromInt(700), decimal.NewFromInt(500))

	eval, err := svc.Evaluate(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, eval.Qualified)
	assert.Equal(t, "starter", eval.Qualified.Name)
	require.NotNil(t, eval.Next)
	assert.Equal(t, "builder", eval.Next.Name)
	assert.Equal(t, 2, eval.Metrics.DirectReferrals)
	assert.True(t, eval.Metrics.TeamVolume.Equal(decimal.NewFromInt(1200)))
	assert.True(t, eval.ProgressPercent.LessThan(decimal.NewFromInt(100)))
	assert.NotEmpty(t, eval.Missing)
}

func TestEvaluateUnqualifiedReportsMissing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)

	eval, err := svc.Evaluate(ctx, member.ID)
	require.NoError(t, err)
	assert.Nil(t, eval.Qualified)
	require.NotNil(t, eval.Next)
	assert.Equal(t, "starter", eval.Next.Name)
	assert.Len(t, eval.Missing, 4)
}

func TestRewardPaidExactlyOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)
	starterID := tierID(t, st, "starter")

	achievement, err := svc.DistributeRankReward(ctx, member.ID, starterID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "starter", achievement.RankName)
	assert.Equal(t, "admin", achievement.DistributedBy)

	got, err := st.GetAccount(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, got.WalletBalance.Equal(decimal.NewFromInt(50)))
	assert.True(t, got.RankEarned.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "starter", got.Rank)

	_, err = svc.DistributeRankReward(ctx, member.ID, starterID, "admin")
	require.ErrorIs(t, err, apperrors.ErrDuplicate)

	got, err = st.GetAccount(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, got.WalletBalance.Equal(decimal.NewFromInt(50)))
}

func TestLowerTierRewardNeverDemotes(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)
	builderID := tierID(t, st, "builder")
	starterID := tierID(t, st, "starter")

	_, err := svc.DistributeRankReward(ctx, member.ID, builderID, "admin")
	require.NoError(t, err)
	_, err = svc.DistributeRankReward(ctx, member.ID, starterID, "admin")
	require.NoError(t, err)

	got, err := st.GetAccount(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "builder", got.Rank)
	// Both rewards still paid.
	assert.True(t, got.RankEarned.Equal(decimal.NewFromInt(250)))
}

func TestAutoAdvanceStopsAtFirstUnqualifiedTier(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)
	newAccount(t, st, "d1", &member.ID)
	newAccount(t, st, "d2", &member.ID)
	setNodeVolumes(t, st, member.ID, decimal.NewFromInt(200), decimal.NewFromInt(700), decimal.NewFromInt(500))

	achieved, err := svc.AutoAdvance(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, achieved, 1)
	assert.Equal(t, "starter", achieved[0].RankName)

	// Re-running with unchanged metrics grants nothing new.
	achieved, err = svc.AutoAdvance(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, achieved)
}

func TestAutoAdvanceWithoutNodeUsesZeroVolumes(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, ledger.NewService(st), nil)
	seedTiers(st)

	member := newAccount(t, st, "member", nil)

	achieved, err := svc.AutoAdvance(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, achieved)
}

package tree

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
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

func TestPlaceUnderExplicitParent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	root := newAccount(t, st, "root")
	child := newAccount(t, st, "child")

	rootNode, err := svc.PlaceRoot(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rootNode.Depth)

	childNode, err := svc.Place(ctx, child.ID, root.ID, models.PositionLeft)
	require.NoError(t, err)
	assert.Equal(t, 1, childNode.Depth)
	require.NotNil(t, childNode.ParentID)
	assert.Equal(t, rootNode.ID, *childNode.ParentID)

	got, err := st.GetNodeByAccount(ctx, root.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LeftChildID)
	assert.Equal(t, childNode.ID, *got.LeftChildID)
}

func TestPlaceRootRejectsSecondRoot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	first := newAccount(t, st, "first")
	second := newAccount(t, st, "second")

	_, err := svc.PlaceRoot(ctx, first.ID)
	require.NoError(t, err)

	_, err = svc.PlaceRoot(ctx, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	// The rejected root left no node behind.
	_, err = st.GetNodeByAccount(ctx, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	root, err := st.RootNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, root.AccountID)
}

func TestPlaceRejectsOccupiedSlot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	root := newAccount(t, st, "root")
	first := newAccount(t, st, "first")
	second := newAccount(t, st, "second")

	_, err := svc.PlaceRoot(ctx, root.ID)
	require.NoError(t, err)
	_, err = svc.Place(ctx, first.ID, root.ID, models.PositionLeft)
	require.NoError(t, err)

	_, err = svc.Place(ctx, second.ID, root.ID, models.PositionLeft)
	assert.ErrorIs(t, err, apperrors.ErrPositionOccupied)

	// The failed placement must not leave a node behind.
	_, err = st.GetNodeByAccount(ctx, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPlaceRejectsSecondNodeForAccount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	root := newAccount(t, st, "root")
	member := newAccount(t, st, "member")

	_, err := svc.PlaceRoot(ctx, root.ID)
	require.NoError(t, err)
	_, err = svc.Place(ctx, member.ID, root.ID, models.PositionLeft)
	require.NoError(t, err)

	_, err = svc.Place(ctx, member.ID, root.ID, models.PositionRight)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestAutoPlaceFillsBreadthFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	sponsor := newAccount(t, st, "sponsor")
	_, err := svc.PlaceRoot(ctx, sponsor.ID)
	require.NoError(t, err)

	var nodes []*models.BinaryNode
	for _, name := range []string{"m1", "m2", "m3", "m4"} {
		member := newAccount(t, st, name)
		node, err := svc.AutoPlace(ctx, member.ID, sponsor.ID)
		require.NoError(t, err)
		nodes = append(nodes, node)
	}

	// Both sponsor slots fill before anything lands on the next level,
	// left before right.
	assert.Equal(t, models.PositionLeft, nodes[0].Position)
	assert.Equal(t, models.PositionRight, nodes[1].Position)
	assert.Equal(t, 1, nodes[0].Depth)
	assert.Equal(t, 1, nodes[1].Depth)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, 2, nodes[3].Depth)
}

func TestPropagateVolumeUpdatesAncestors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	root := newAccount(t, st, "root")
	mid := newAccount(t, st, "mid")
	leaf := newAccount(t, st, "leaf")

	_, err := svc.PlaceRoot(ctx, root.ID)
	require.NoError(t, err)
	_, err = svc.Place(ctx, mid.ID, root.ID, models.PositionRight)
	require.NoError(t, err)
	_, err = svc.Place(ctx, leaf.ID, mid.ID, models.PositionLeft)
	require.NoError(t, err)

	require.NoError(t, svc.PropagateVolume(ctx, leaf.ID, decimal.NewFromInt(500)))

	leafNode, err := st.GetNodeByAccount(ctx, leaf.ID)
	require.NoError(t, err)
	assert.True(t, leafNode.OwnVolume.Equal(decimal.NewFromInt(500)))
	assert.True(t, leafNode.LeftVolume.IsZero())

	midNode, err := st.GetNodeByAccount(ctx, mid.ID)
	require.NoError(t, err)
	assert.True(t, midNode.LeftVolume.Equal(decimal.NewFromInt(500)))
	assert.True(t, midNode.LeftCarry.Equal(decimal.NewFromInt(500)))
	assert.True(t, midNode.RightVolume.IsZero())

	rootNode, err := st.GetNodeByAccount(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, rootNode.RightVolume.Equal(decimal.NewFromInt(500)))
	assert.True(t, rootNode.RightCarry.Equal(decimal.NewFromInt(500)))
	assert.True(t, rootNode.LeftVolume.IsZero())
}

func TestPropagateVolumeRejectsNonPositive(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)

	err := svc.PropagateVolume(context.Background(), uuid.Nil, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecomputeAllVolumesMatchesIncremental(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	root := newAccount(t, st, "root")
	left := newAccount(t, st, "left")
	right := newAccount(t, st, "right")
	grand := newAccount(t, st, "grand")

	_, err := svc.PlaceRoot(ctx, root.ID)
	require.NoError(t, err)
	_, err = svc.Place(ctx, left.ID, root.ID, models.PositionLeft)
	require.NoError(t, err)
	_, err = svc.Place(ctx, right.ID, root.ID, models.PositionRight)
	require.NoError(t, err)
	_, err = svc.Place(ctx, grand.ID, left.ID, models.PositionLeft)
	require.NoError(t, err)

	require.NoError(t, svc.PropagateVolume(ctx, grand.ID, decimal.NewFromInt(100)))
	require.NoError(t, svc.PropagateVolume(ctx, left.ID, decimal.NewFromInt(40)))
	require.NoError(t, svc.PropagateVolume(ctx, right.ID, decimal.NewFromInt(60)))

	before, err := st.GetNodeByAccount(ctx, root.ID)
	require.NoError(t, err)

	updated, err := svc.RecomputeAllVolumes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, updated)

	after, err := st.GetNodeByAccount(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, after.LeftVolume.Equal(before.LeftVolume))
	assert.True(t, after.RightVolume.Equal(before.RightVolume))
	assert.True(t, after.LeftVolume.Equal(decimal.NewFromInt(140)))
	assert.True(t, after.RightVolume.Equal(decimal.NewFromInt(60)))
	// Carries record matching history and must survive the rebuild.
	assert.True(t, after.LeftCarry.Equal(before.LeftCarry))
	assert.True(t, after.RightCarry.Equal(before.RightCarry))
}

func TestExportSubtreeClampsDepth(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st, nil)

	// A left-leg chain deeper than the export ceiling.
	prev := newAccount(t, st, "a0")
	_, err := svc.PlaceRoot(ctx, prev.ID)
	require.NoError(t, err)
	rootID := prev.ID
	for i := 1; i <= MaxExportDepth+3; i++ {
		next := newAccount(t, st, fmt.Sprintf("a%d", i))
		_, err = svc.Place(ctx, next.ID, prev.ID, models.PositionLeft)
		require.NoError(t, err)
		prev = next
	}

	view, err := svc.ExportSubtree(ctx, rootID, 1000)
	require.NoError(t, err)

	depth := 0
	for v := view; v.Left != nil; v = v.Left {
		depth++
	}
	assert.Equal(t, MaxExportDepth, depth)
}

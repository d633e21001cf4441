package tree

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/store"
)

// PlacementStrategy decides where an auto-placed enrollment lands in the
// sponsor's subtree. Explicit admin placement bypasses the strategy entirely.
type PlacementStrategy interface {
	// FindSlot returns the account owning the open slot and the leg to fill,
	// searching under the sponsor's node.
	FindSlot(ctx context.Context, st store.Store, sponsorAccountID uuid.UUID) (uuid.UUID, models.Position, error)
}

// BreadthFirst fills the shallowest open slot under the sponsor, left before
// right, so the tree stays balanced. This is the default strategy.
type BreadthFirst struct{}

func (BreadthFirst) FindSlot(ctx context.Context, st store.Store, sponsorAccountID uuid.UUID) (uuid.UUID, models.Position, error) {
	// Widen the search window until an open slot appears. A window of depth
	// d covers 2^(d+1)-1 nodes, so a few rounds cover any realistic tree.
	for depth := 4; depth <= 64; depth *= 2 {
		nodes, err := st.Subtree(ctx, sponsorAccountID, depth)
		if err != nil {
			return uuid.Nil, "", err
		}
		for _, node := range nodes {
			if node.LeftChildID == nil {
				return node.AccountID, models.PositionLeft, nil
			}
			if node.RightChildID == nil {
				return node.AccountID, models.PositionRight, nil
			}
		}
		if !windowFull(nodes, depth) {
			break
		}
	}
	return uuid.Nil, "", fmt.Errorf("no open slot under sponsor %s: %w", sponsorAccountID, apperrors.ErrPositionOccupied)
}

// windowFull reports whether the loaded window was a complete binary tree,
// meaning open slots may still exist below the cut-off depth.
func windowFull(nodes []*models.BinaryNode, depth int) bool {
	return len(nodes) >= (1<<(depth+1))-1
}

// ExtremeLeg places every enrollment at the bottom of one leg ("power leg"
// placement). Configured per sponsor preference by the caller.
type ExtremeLeg struct {
	Leg models.Position
}

func (s ExtremeLeg) FindSlot(ctx context.Context, st store.Store, sponsorAccountID uuid.UUID) (uuid.UUID, models.Position, error) {
	if !s.Leg.Valid() {
		return uuid.Nil, "", fmt.Errorf("unknown leg %q: %w", s.Leg, apperrors.ErrValidation)
	}
	node, err := st.GetNodeByAccount(ctx, sponsorAccountID)
	if err != nil {
		return uuid.Nil, "", err
	}
	for node.ChildID(s.Leg) != nil {
		node, err = st.GetNode(ctx, *node.ChildID(s.Leg))
		if err != nil {
			return uuid.Nil, "", err
		}
	}
	return node.AccountID, s.Leg, nil
}

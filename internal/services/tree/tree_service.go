package tree

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/store"
)

const (
	// DefaultExportDepth bounds tree exports when the caller does not ask
	// for a depth; MaxExportDepth is the hard ceiling.
	DefaultExportDepth = 5
	MaxExportDepth     = 10
)

// Service maintains the binary placement tree: node creation, volume
// propagation to ancestors, full recalculation, and bounded exports.
type Service struct {
	store    store.Store
	strategy PlacementStrategy
}

// NewService creates a tree service with the given auto-placement strategy.
// Pass nil to default to breadth-first placement.
func NewService(s store.Store, strategy PlacementStrategy) *Service {
	if strategy == nil {
		strategy = BreadthFirst{}
	}
	return &Service{store: s, strategy: strategy}
}

// Place creates a node for the account under an explicit parent and leg.
// The slot must be open, the parent must have a node, and the account must
// not already be placed; positions are immutable once set.
func (s *Service) Place(ctx context.Context, accountID, parentAccountID uuid.UUID, position models.Position) (*models.BinaryNode, error) {
	if !position.Valid() {
		return nil, fmt.Errorf("unknown position %q: %w", position, apperrors.ErrValidation)
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if existing, err := s.store.GetNodeByAccount(ctx, accountID); err == nil && existing != nil {
		return nil, fmt.Errorf("account %s already placed: %w", accountID, apperrors.ErrDuplicate)
	}

	var node *models.BinaryNode
	err := s.store.Atomic(ctx, func(st store.Store) error {
		parent, err := st.GetNodeByAccount(ctx, parentAccountID)
		if err != nil {
			return err
		}
		if parent.ChildID(position) != nil {
			return fmt.Errorf("%s slot of account %s: %w", position, parentAccountID, apperrors.ErrPositionOccupied)
		}

		node = &models.BinaryNode{
			AccountID: accountID,
			ParentID:  &parent.ID,
			Position:  position,
			Depth:     parent.Depth + 1,
		}
		if err := st.CreateNode(ctx, node); err != nil {
			return err
		}
		parent.SetChildID(position, node.ID)
		return st.SaveNodes(ctx, parent)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// PlaceRoot creates the tree root for an account with no parent. Exactly one
// parentless node may exist; a second root attempt fails with ErrDuplicate.
func (s *Service) PlaceRoot(ctx context.Context, accountID uuid.UUID) (*models.BinaryNode, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	var node *models.BinaryNode
	err := s.store.Atomic(ctx, func(st store.Store) error {
		existing, err := st.RootNode(ctx)
		if err == nil {
			return fmt.Errorf("tree root already held by account %s: %w",
				existing.AccountID, apperrors.ErrDuplicate)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		node = &models.BinaryNode{AccountID: accountID}
		return st.CreateNode(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// AutoPlace finds a slot under the sponsor using the configured strategy and
// places the account there.
func (s *Service) AutoPlace(ctx context.Context, accountID, sponsorAccountID uuid.UUID) (*models.BinaryNode, error) {
	parentAccountID, position, err := s.strategy.FindSlot(ctx, s.store, sponsorAccountID)
	if err != nil {
		return nil, err
	}
	return s.Place(ctx, accountID, parentAccountID, position)
}

// PropagateVolume adds a volume delta to the appropriate leg of every strict
// ancestor, determined by which child-path the origin sits on, and attributes
// the delta to the origin node's own volume. The whole chain is loaded once
// and written back as a batch, so the cost is O(depth) with one round trip
// each way. Callers supply deltas, never re-sent history.
func (s *Service) PropagateVolume(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("volume delta must be positive, got %s: %w", amount, apperrors.ErrValidation)
	}
	return s.store.Atomic(ctx, func(st store.Store) error {
		chain, err := st.AncestorChain(ctx, accountID)
		if err != nil {
			return err
		}
		applyVolume(chain, amount)
		return st.SaveNodes(ctx, chain...)
	})
}

// applyVolume mutates a loaded ancestor chain in memory: own volume on the
// origin, leg volume and matchable carry on each ancestor.
func applyVolume(chain []*models.BinaryNode, amount decimal.Decimal) {
	chain[0].OwnVolume = chain[0].OwnVolume.Add(amount)
	for i := 1; i < len(chain); i++ {
		leg := chain[i-1].Position
		chain[i].AddVolume(leg, amount)
		if leg == models.PositionLeft {
			chain[i].LeftCarry = chain[i].LeftCarry.Add(amount)
		} else {
			chain[i].RightCarry = chain[i].RightCarry.Add(amount)
		}
	}
}

// RecomputeAllVolumes is the repair tool for volume corruption after manual
// placement changes: it rebuilds every node's cumulative leg volumes
// bottom-up from own attributed volume. O(n) over all nodes; never called on
// the purchase path. Carries are left untouched since matched history cannot
// be rebuilt from volumes alone.
func (s *Service) RecomputeAllVolumes(ctx context.Context) (int, error) {
	var updated int
	err := s.store.Atomic(ctx, func(st store.Store) error {
		nodes, err := st.NodesByDepthDesc(ctx)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*models.BinaryNode, len(nodes))
		for _, node := range nodes {
			byID[node.ID] = node
		}
		// Deepest-first order guarantees children are final before their
		// parent is computed.
		for _, node := range nodes {
			node.LeftVolume = subtreeVolume(byID, node.LeftChildID)
			node.RightVolume = subtreeVolume(byID, node.RightChildID)
		}
		updated = len(nodes)
		return st.SaveNodes(ctx, nodes...)
	})
	if err != nil {
		return 0, err
	}
	log.Printf("Recomputed volumes for %d binary nodes", updated)
	return updated, nil
}

func subtreeVolume(byID map[uuid.UUID]*models.BinaryNode, childID *uuid.UUID) decimal.Decimal {
	if childID == nil {
		return decimal.Zero
	}
	child, ok := byID[*childID]
	if !ok {
		return decimal.Zero
	}
	return child.OwnVolume.Add(child.LeftVolume).Add(child.RightVolume)
}

// NodeView is one exported tree node with its children nested.
type NodeView struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Position    models.Position `json:"position,omitempty"`
	Depth       int             `json:"depth"`
	OwnVolume   decimal.Decimal `json:"own_volume"`
	LeftVolume  decimal.Decimal `json:"left_volume"`
	RightVolume decimal.Decimal `json:"right_volume"`
	Left        *NodeView       `json:"left,omitempty"`
	Right       *NodeView       `json:"right,omitempty"`
}

// ExportSubtree materializes the tree below an account, depth-bounded.
// Requests above MaxExportDepth are clamped; unbounded export is not offered.
func (s *Service) ExportSubtree(ctx context.Context, accountID uuid.UUID, maxDepth int) (*NodeView, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultExportDepth
	}
	if maxDepth > MaxExportDepth {
		maxDepth = MaxExportDepth
	}
	nodes, err := s.store.Subtree(ctx, accountID, maxDepth)
	if err != nil {
		return nil, err
	}

	views := make(map[uuid.UUID]*NodeView, len(nodes))
	for _, node := range nodes {
		views[node.ID] = &NodeView{
			AccountID:   node.AccountID,
			Position:    node.Position,
			Depth:       node.Depth,
			OwnVolume:   node.OwnVolume,
			LeftVolume:  node.LeftVolume,
			RightVolume: node.RightVolume,
		}
	}
	for _, node := range nodes {
		view := views[node.ID]
		if node.LeftChildID != nil {
			view.Left = views[*node.LeftChildID]
		}
		if node.RightChildID != nil {
			view.Right = views[*node.RightChildID]
		}
	}
	return views[nodes[0].ID], nil
}

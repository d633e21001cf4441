package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
)

func (g *Gorm) CreateNode(ctx context.Context, node *models.BinaryNode) error {
	if err := g.db.WithContext(ctx).Create(node).Error; err != nil {
		return fmt.Errorf("error creating binary node: %w", err)
	}
	return nil
}

func (g *Gorm) GetNode(ctx context.Context, id uuid.UUID) (*models.BinaryNode, error) {
	var node models.BinaryNode
	if err := g.db.WithContext(ctx).First(&node, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("binary node %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding binary node: %w", err)
	}
	return &node, nil
}

func (g *Gorm) GetNodeByAccount(ctx context.Context, accountID uuid.UUID) (*models.BinaryNode, error) {
	var node models.BinaryNode
	if err := g.db.WithContext(ctx).First(&node, "account_id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("binary node for account %s: %w", accountID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding binary node: %w", err)
	}
	return &node, nil
}

func (g *Gorm) RootNode(ctx context.Context) (*models.BinaryNode, error) {
	var node models.BinaryNode
	if err := g.db.WithContext(ctx).First(&node, "parent_id IS NULL").Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tree root: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding tree root: %w", err)
	}
	return &node, nil
}

// AncestorChain loads the node and every ancestor up to the root in a single
// recursive query, origin first. Postgres does not allow FOR UPDATE on a
// WITH query, so the rows are locked with a second plain select on their
// ids; concurrent propagations on a shared chain serialize on that lock.
func (g *Gorm) AncestorChain(ctx context.Context, accountID uuid.UUID) ([]*models.BinaryNode, error) {
	var nodes []*models.BinaryNode
	err := g.db.WithContext(ctx).Raw(`
		WITH RECURSIVE chain AS (
			SELECT n.*, 0 AS rel_depth FROM binary_nodes n
			WHERE n.account_id = ? AND n.deleted_at IS NULL
			UNION ALL
			SELECT n.*, c.rel_depth + 1 FROM binary_nodes n
			JOIN chain c ON n.id = c.parent_id
			WHERE n.deleted_at IS NULL
		)
		SELECT * FROM chain ORDER BY rel_depth`, accountID).Scan(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("error loading ancestor chain: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("binary node for account %s: %w", accountID, apperrors.ErrNotFound)
	}

	ids := make([]uuid.UUID, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	var locked []uuid.UUID
	if err := g.db.WithContext(ctx).Model(&models.BinaryNode{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Pluck("id", &locked).Error; err != nil {
		return nil, fmt.Errorf("error locking ancestor chain: %w", err)
	}
	return nodes, nil
}

// Subtree loads the node and its descendants down to maxDepth levels in one
// recursive query, shallowest first.
func (g *Gorm) Subtree(ctx context.Context, accountID uuid.UUID, maxDepth int) ([]*models.BinaryNode, error) {
	var nodes []*models.BinaryNode
	err := g.db.WithContext(ctx).Raw(`
		WITH RECURSIVE subtree AS (
			SELECT n.*, 0 AS rel_depth FROM binary_nodes n
			WHERE n.account_id = ? AND n.deleted_at IS NULL
			UNION ALL
			SELECT n.*, s.rel_depth + 1 FROM binary_nodes n
			JOIN subtree s ON n.parent_id = s.id
			WHERE s.rel_depth < ? AND n.deleted_at IS NULL
		)
		SELECT * FROM subtree ORDER BY rel_depth, position`, accountID, maxDepth).Scan(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("error loading subtree: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("binary node for account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return nodes, nil
}

func (g *Gorm) NodesByDepthDesc(ctx context.Context) ([]*models.BinaryNode, error) {
	var nodes []*models.BinaryNode
	if err := g.db.WithContext(ctx).Order("depth DESC").Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("error loading nodes by depth: %w", err)
	}
	return nodes, nil
}

// SaveNodes writes a batch of mutated nodes back in one upsert round trip.
func (g *Gorm) SaveNodes(ctx context.Context, nodes ...*models.BinaryNode) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&nodes).Error; err != nil {
		return fmt.Errorf("error saving binary nodes: %w", err)
	}
	return nil
}

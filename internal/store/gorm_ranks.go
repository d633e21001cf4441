package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
)

func (g *Gorm) RankTiers(ctx context.Context) ([]models.RankTier, error) {
	var tiers []models.RankTier
	if err := g.db.WithContext(ctx).Order("order_index").Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("error listing rank tiers: %w", err)
	}
	return tiers, nil
}

func (g *Gorm) GetRankTier(ctx context.Context, id uuid.UUID) (*models.RankTier, error) {
	var tier models.RankTier
	if err := g.db.WithContext(ctx).First(&tier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rank tier %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding rank tier: %w", err)
	}
	return &tier, nil
}

func (g *Gorm) CreateAchievement(ctx context.Context, a *models.RankAchievement) error {
	if err := g.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("rank %s already achieved by account %s: %w",
				a.RankName, a.AccountID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("error creating rank achievement: %w", err)
	}
	return nil
}

func (g *Gorm) HasAchievement(ctx context.Context, accountID, tierID uuid.UUID) (bool, error) {
	var count int64
	if err := g.db.WithContext(ctx).Model(&models.RankAchievement{}).
		Where("account_id = ? AND rank_tier_id = ?", accountID, tierID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("error checking rank achievement: %w", err)
	}
	return count > 0, nil
}

func (g *Gorm) BinarySettings(ctx context.Context) (*models.BinarySettings, error) {
	var settings models.BinarySettings
	if err := g.db.WithContext(ctx).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("binary settings: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error loading binary settings: %w", err)
	}
	return &settings, nil
}

func (g *Gorm) SaveBinarySettings(ctx context.Context, s *models.BinarySettings) error {
	if err := g.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("error saving binary settings: %w", err)
	}
	return nil
}

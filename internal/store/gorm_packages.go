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

func (g *Gorm) CreatePackageType(ctx context.Context, pt *models.PackageType) error {
	if err := g.db.WithContext(ctx).Create(pt).Error; err != nil {
		return fmt.Errorf("error creating package type: %w", err)
	}
	return nil
}

func (g *Gorm) GetPackageType(ctx context.Context, id uuid.UUID) (*models.PackageType, error) {
	var pt models.PackageType
	if err := g.db.WithContext(ctx).Preload("LevelPercents").First(&pt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("package type %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding package type: %w", err)
	}
	return &pt, nil
}

func (g *Gorm) ListPackageTypes(ctx context.Context) ([]models.PackageType, error) {
	var types []models.PackageType
	if err := g.db.WithContext(ctx).Preload("LevelPercents").
		Where("is_active = ?", true).Order("min_amount").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("error listing package types: %w", err)
	}
	return types, nil
}

func (g *Gorm) CreatePackage(ctx context.Context, pkg *models.Package) error {
	if err := g.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return fmt.Errorf("error creating package: %w", err)
	}
	return nil
}

func (g *Gorm) GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	if err := g.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("package %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding package: %w", err)
	}
	return &pkg, nil
}

func (g *Gorm) SavePackage(ctx context.Context, pkg *models.Package) error {
	if err := g.db.WithContext(ctx).Save(pkg).Error; err != nil {
		return fmt.Errorf("error saving package: %w", err)
	}
	return nil
}

func (g *Gorm) ActivePackages(ctx context.Context, offset, limit int) ([]models.Package, error) {
	var packages []models.Package
	if err := g.db.WithContext(ctx).
		Where("status = ?", models.PackageStatusActive).
		Order("created_at").Offset(offset).Limit(limit).
		Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("error listing active packages: %w", err)
	}
	return packages, nil
}

func (g *Gorm) ActivePackageIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := g.db.WithContext(ctx).Model(&models.Package{}).
		Where("status = ?", models.PackageStatusActive).
		Order("created_at").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("error listing active package ids: %w", err)
	}
	return ids, nil
}

func (g *Gorm) CreateRoiPayout(ctx context.Context, payout *models.RoiPayout) error {
	if err := g.db.WithContext(ctx).Create(payout).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("roi payout for package %s on %s: %w",
				payout.PackageID, payout.PayoutDate, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("error creating roi payout record: %w", err)
	}
	return nil
}

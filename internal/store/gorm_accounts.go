package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
)

// earningColumn maps a ledger category to the lifetime bucket it accrues
// into. Purchases and adjustments move money without counting as earnings.
func earningColumn(category models.TransactionCategory) string {
	switch category {
	case models.CategoryRoiDistribution:
		return "roi_earned"
	case models.CategoryDirectIncome, models.CategoryLevelIncome, models.CategoryBoosterIncome:
		return "commission_earned"
	case models.CategoryMatchingBonus:
		return "binary_earned"
	case models.CategoryRankReward:
		return "rank_earned"
	}
	return ""
}

func (g *Gorm) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := g.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("error creating account: %w", err)
	}
	return nil
}

func (g *Gorm) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := g.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding account: %w", err)
	}
	return &account, nil
}

func (g *Gorm) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var account models.Account
	if err := g.db.WithContext(ctx).First(&account, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("referral code %s: %w", code, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error finding account by referral code: %w", err)
	}
	return &account, nil
}

func (g *Gorm) SaveAccount(ctx context.Context, account *models.Account) error {
	if err := g.db.WithContext(ctx).Save(account).Error; err != nil {
		return fmt.Errorf("error saving account: %w", err)
	}
	return nil
}

// CreditBalance issues a single atomic increment so concurrent credits from
// the ROI batch and live purchases never lose an update.
func (g *Gorm) CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal, category models.TransactionCategory) (decimal.Decimal, error) {
	updates := map[string]interface{}{
		"wallet_balance": gorm.Expr("wallet_balance + ?", amount),
	}
	if col := earningColumn(category); col != "" {
		updates[col] = gorm.Expr(col+" + ?", amount)
		updates["total_earned"] = gorm.Expr("total_earned + ?", amount)
	}

	result := g.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("error crediting balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}

	var balance decimal.Decimal
	if err := g.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Pluck("wallet_balance", &balance).Error; err != nil {
		return decimal.Zero, fmt.Errorf("error reading balance: %w", err)
	}
	return balance, nil
}

// DebitBalance decrements the wallet only when the balance covers the amount,
// in one statement, so a concurrent spend cannot drive the balance negative.
func (g *Gorm) DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	result := g.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND wallet_balance >= ?", id, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("error debiting balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := g.GetAccount(ctx, id); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("debit %s from account %s: %w", amount, id, apperrors.ErrInsufficientFunds)
	}

	var balance decimal.Decimal
	if err := g.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Pluck("wallet_balance", &balance).Error; err != nil {
		return decimal.Zero, fmt.Errorf("error reading balance: %w", err)
	}
	return balance, nil
}

func (g *Gorm) CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID) (int, int, error) {
	var total, active int64
	if err := g.db.WithContext(ctx).Model(&models.Account{}).
		Where("sponsor_id = ?", sponsorID).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("error counting referrals: %w", err)
	}
	if err := g.db.WithContext(ctx).Model(&models.Account{}).
		Where("sponsor_id = ? AND is_active = ?", sponsorID, true).Count(&active).Error; err != nil {
		return 0, 0, fmt.Errorf("error counting active referrals: %w", err)
	}
	return int(total), int(active), nil
}

// SponsorChain walks the enrollment hierarchy in one recursive query so the
// 30-level override walk costs a single round trip, not one per level.
func (g *Gorm) SponsorChain(ctx context.Context, accountID uuid.UUID, maxLevels int) ([]models.Account, error) {
	var chain []models.Account
	err := g.db.WithContext(ctx).Raw(`
		WITH RECURSIVE sponsors AS (
			SELECT a.*, 0 AS lvl FROM accounts a
			WHERE a.id = ? AND a.deleted_at IS NULL
			UNION ALL
			SELECT a.*, s.lvl + 1 FROM accounts a
			JOIN sponsors s ON a.id = s.sponsor_id
			WHERE s.lvl < ? AND a.deleted_at IS NULL
		)
		SELECT * FROM sponsors WHERE lvl > 0 ORDER BY lvl`, accountID, maxLevels).Scan(&chain).Error
	if err != nil {
		return nil, fmt.Errorf("error loading sponsor chain: %w", err)
	}
	return chain, nil
}

func (g *Gorm) SetRank(ctx context.Context, id uuid.UUID, rank string) error {
	result := g.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("rank", rank)
	if result.Error != nil {
		return fmt.Errorf("error setting rank: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

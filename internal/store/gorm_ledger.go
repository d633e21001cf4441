package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/models"
)

func (g *Gorm) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	if err := g.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("error appending transaction: %w", err)
	}
	return nil
}

func (g *Gorm) Transactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	if err := g.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding transactions: %w", err)
	}

	return transactions, total, nil
}

func (g *Gorm) ActiveAccountIDsSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := g.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("created_at >= ?", since).
		Distinct().Pluck("account_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("error listing active accounts: %w", err)
	}
	return ids, nil
}

func (g *Gorm) SumCompleted(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := g.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ? AND status = ?", accountID, models.TransactionCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return decimal.Zero, fmt.Errorf("error summing transactions: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

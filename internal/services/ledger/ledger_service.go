package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/store"
	"github.com/nexarise/backend/internal/utils"
)

// Service is the ledger store: every balance change goes through it so the
// wallet delta and the append-only transaction record land in one atomic
// unit. No other component writes balances directly.
type Service struct {
	store store.Store
}

// NewService creates a new ledger service
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Entry describes one balance movement. Amount is always positive; Credit
// and Debit decide the sign recorded in the ledger.
type Entry struct {
	AccountID      uuid.UUID
	Category       models.TransactionCategory
	Amount         decimal.Decimal
	CounterpartyID *uuid.UUID
	Level          *int
	PackageID      *uuid.UUID
	Description    string
	MetaData       models.JSON
}

func refPrefix(category models.TransactionCategory) string {
	switch category {
	case models.CategoryRoiDistribution:
		return "ROI"
	case models.CategoryDirectIncome:
		return "DIR"
	case models.CategoryLevelIncome:
		return "LVL"
	case models.CategoryMatchingBonus:
		return "BIN"
	case models.CategoryRankReward:
		return "RNK"
	case models.CategoryBoosterIncome:
		return "BST"
	case models.CategoryPackagePurchase:
		return "PKG"
	default:
		return "ADJ"
	}
}

func (e Entry) validate() error {
	if e.AccountID == uuid.Nil {
		return fmt.Errorf("missing account id: %w", apperrors.ErrValidation)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s: %w", e.Amount, apperrors.ErrValidation)
	}
	return nil
}

// Credit adds funds to an account wallet and appends the matching ledger
// record in one transaction.
func (s *Service) Credit(ctx context.Context, e Entry) (*models.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	txn := &models.Transaction{
		AccountID:      e.AccountID,
		Category:       e.Category,
		Amount:         e.Amount,
		CounterpartyID: e.CounterpartyID,
		Level:          e.Level,
		PackageID:      e.PackageID,
		Reference:      utils.GenerateReference(refPrefix(e.Category)),
		Status:         models.TransactionCompleted,
		Description:    e.Description,
		MetaData:       e.MetaData,
	}
	err := s.store.Atomic(ctx, func(st store.Store) error {
		balance, err := st.CreditBalance(ctx, e.AccountID, e.Amount, e.Category)
		if err != nil {
			return err
		}
		txn.BalanceAfter = balance
		return st.AppendTransaction(ctx, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("credit %s to account %s: %w", e.Amount, e.AccountID, err)
	}
	return txn, nil
}

// CreditIn is Credit running inside an already-open transactional scope.
func (s *Service) CreditIn(ctx context.Context, st store.Store, e Entry) (*models.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	balance, err := st.CreditBalance(ctx, e.AccountID, e.Amount, e.Category)
	if err != nil {
		return nil, err
	}
	txn := &models.Transaction{
		AccountID:      e.AccountID,
		Category:       e.Category,
		Amount:         e.Amount,
		CounterpartyID: e.CounterpartyID,
		Level:          e.Level,
		PackageID:      e.PackageID,
		Reference:      utils.GenerateReference(refPrefix(e.Category)),
		Status:         models.TransactionCompleted,
		Description:    e.Description,
		MetaData:       e.MetaData,
		BalanceAfter:   balance,
	}
	if err := st.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// DebitIn is Debit running inside an already-open transactional scope.
func (s *Service) DebitIn(ctx context.Context, st store.Store, e Entry) (*models.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	balance, err := st.DebitBalance(ctx, e.AccountID, e.Amount)
	if err != nil {
		return nil, err
	}
	txn := &models.Transaction{
		AccountID:      e.AccountID,
		Category:       e.Category,
		Amount:         e.Amount.Neg(),
		CounterpartyID: e.CounterpartyID,
		PackageID:      e.PackageID,
		Reference:      utils.GenerateReference(refPrefix(e.Category)),
		Status:         models.TransactionCompleted,
		Description:    e.Description,
		MetaData:       e.MetaData,
		BalanceAfter:   balance,
	}
	if err := st.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit removes funds from an account wallet, failing with
// apperrors.ErrInsufficientFunds before any state changes when the balance
// is short. The ledger records the amount negated.
func (s *Service) Debit(ctx context.Context, e Entry) (*models.Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	txn := &models.Transaction{
		AccountID:      e.AccountID,
		Category:       e.Category,
		Amount:         e.Amount.Neg(),
		CounterpartyID: e.CounterpartyID,
		PackageID:      e.PackageID,
		Reference:      utils.GenerateReference(refPrefix(e.Category)),
		Status:         models.TransactionCompleted,
		Description:    e.Description,
		MetaData:       e.MetaData,
	}
	err := s.store.Atomic(ctx, func(st store.Store) error {
		balance, err := st.DebitBalance(ctx, e.AccountID, e.Amount)
		if err != nil {
			return err
		}
		txn.BalanceAfter = balance
		return st.AppendTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// History returns the paginated ledger for an account, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.store.Transactions(ctx, accountID, page, pageSize)
}

// Reconcile checks the reconciliation invariant: the wallet balance must
// equal the sum of completed ledger amounts. A mismatch is an operational
// signal, not a user-facing error.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	sum, err := s.store.SumCompleted(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.WalletBalance.Equal(sum) {
		return fmt.Errorf("account %s: balance %s, ledger sum %s: %w",
			accountID, account.WalletBalance, sum, apperrors.ErrReconciliation)
	}
	return nil
}

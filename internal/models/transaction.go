package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionCategory classifies a ledger entry.
type TransactionCategory string

const (
	CategoryRoiDistribution TransactionCategory = "roi_distribution"
	CategoryDirectIncome    TransactionCategory = "direct_income"
	CategoryLevelIncome     TransactionCategory = "level_income"
	CategoryMatchingBonus   TransactionCategory = "matching_bonus"
	CategoryRankReward      TransactionCategory = "rank_reward"
	CategoryBoosterIncome   TransactionCategory = "booster_income"
	CategoryPackagePurchase TransactionCategory = "package_purchase"
	CategoryAdjustment      TransactionCategory = "adjustment"
)

// TransactionStatus is the settlement state of a ledger entry. It transitions
// pending -> completed/failed exactly once; entries are never mutated otherwise.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one append-only ledger entry. The ledger is the system of
// record: an account's wallet balance must always equal the sum of its
// completed entry amounts.
type Transaction struct {
	Base
	AccountID uuid.UUID `gorm:"type:uuid;index;not null" json:"account_id"`
	Account   *Account  `gorm:"foreignKey:AccountID" json:"-"`

	Category TransactionCategory `gorm:"type:varchar(30);index;not null" json:"category"`

	// Amount is signed: credits positive, debits negative.
	Amount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`

	// CounterpartyID is the account whose activity produced this entry
	// (the purchaser for commissions), when there is one.
	CounterpartyID *uuid.UUID `gorm:"type:uuid" json:"counterparty_id"`

	// Level is the sponsor-chain depth for level_income entries.
	Level *int `json:"level,omitempty"`

	PackageID *uuid.UUID `gorm:"type:uuid" json:"package_id,omitempty"`

	Reference   string            `gorm:"type:varchar(100);uniqueIndex" json:"reference"`
	Status      TransactionStatus `gorm:"type:varchar(20);default:'completed'" json:"status"`
	Description string            `gorm:"type:text" json:"description"`

	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,8)" json:"balance_after"`

	MetaData JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

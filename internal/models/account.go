package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a member of the network. Accounts are never hard-deleted;
// deactivation flips IsActive and leaves the row (and its tree node) in place.
type Account struct {
	Base
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	ReferralCode string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"referral_code"`
	SponsorID    *uuid.UUID `gorm:"type:uuid;index" json:"sponsor_id"`
	Sponsor      *Account   `gorm:"foreignKey:SponsorID" json:"-"`

	WalletBalance    decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"wallet_balance"`
	TotalEarned      decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"total_earned"`
	RoiEarned        decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"roi_earned"`
	CommissionEarned decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"commission_earned"`
	BinaryEarned     decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"binary_earned"`
	RankEarned       decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"rank_earned"`

	Rank        string     `gorm:"type:varchar(50);default:'member'" json:"rank"`
	KYCVerified bool       `gorm:"default:false" json:"kyc_verified"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	EnrolledAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"enrolled_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// EarningCategoryTotal returns the lifetime total for a ledger category that
// contributes to one of the tracked earning buckets.
func (a *Account) EarningCategoryTotal(category TransactionCategory) decimal.Decimal {
	switch category {
	case CategoryRoiDistribution:
		return a.RoiEarned
	case CategoryDirectIncome, CategoryLevelIncome, CategoryBoosterIncome:
		return a.CommissionEarned
	case CategoryMatchingBonus:
		return a.BinaryEarned
	case CategoryRankReward:
		return a.RankEarned
	}
	return decimal.Zero
}

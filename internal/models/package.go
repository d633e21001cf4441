package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PackageStatus is the lifecycle state of an investment package.
type PackageStatus string

const (
	PackageStatusActive    PackageStatus = "active"
	PackageStatusCompleted PackageStatus = "completed"
	PackageStatusExpired   PackageStatus = "expired"
)

// PackageType is an admin-managed product definition: a purchasable tier with
// a daily return rate, a lifetime payout cap, and the commission tables that
// a purchase of this type triggers.
type PackageType struct {
	Base
	Name      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	MinAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"min_amount"`
	MaxAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"max_amount"`

	// DailyRatePercent of the principal paid out each day while active.
	DailyRatePercent decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"daily_rate_percent"`

	// CapMultiplier times the principal is the lifetime payout ceiling
	// (2.0 = 200%).
	CapMultiplier decimal.Decimal `gorm:"type:decimal(8,4);default:2" json:"cap_multiplier"`

	DurationDays int `gorm:"not null" json:"duration_days"`

	// DirectPercent of the purchase paid to the direct sponsor, and
	// BoosterPercent paid on top while the sponsor is inside the booster
	// window.
	DirectPercent  decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"direct_percent"`
	BoosterPercent decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"booster_percent"`

	LevelPercents []LevelPercent `gorm:"foreignKey:PackageTypeID" json:"level_percents"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// LevelPercent is one row of a package type's 30-level override table.
type LevelPercent struct {
	Base
	PackageTypeID uuid.UUID       `gorm:"type:uuid;index;not null" json:"package_type_id"`
	Level         int             `gorm:"not null" json:"level"`
	Percent       decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"percent"`
}

// PercentForLevel looks up the override percentage for a sponsor-chain depth.
// Levels without a configured row pay nothing.
func (t *PackageType) PercentForLevel(level int) decimal.Decimal {
	for i := range t.LevelPercents {
		if t.LevelPercents[i].Level == level {
			return t.LevelPercents[i].Percent
		}
	}
	return decimal.Zero
}

// Package is an investment contract: a purchased instance of a PackageType.
// Only the ROI distribution engine mutates it after creation, and it becomes
// immutable once completed or expired.
type Package struct {
	Base
	AccountID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"account_id"`
	Account       *Account     `gorm:"foreignKey:AccountID" json:"-"`
	PackageTypeID uuid.UUID    `gorm:"type:uuid;index;not null" json:"package_type_id"`
	PackageType   *PackageType `gorm:"foreignKey:PackageTypeID" json:"-"`

	Principal   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"principal"`
	DailyAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"daily_amount"`
	Cap         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"cap"`
	Earned      decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"earned"`

	ActivatedAt time.Time `gorm:"not null" json:"activated_at"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`

	// LastPayoutDate (UTC, YYYY-MM-DD) is the dedupe marker that keeps the
	// daily batch from paying the same package twice in one day.
	LastPayoutDate string `gorm:"type:varchar(10)" json:"last_payout_date"`

	Status PackageStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
}

// RemainingCap returns how much the package may still pay before hitting its
// lifetime ceiling.
func (p *Package) RemainingCap() decimal.Decimal {
	return p.Cap.Sub(p.Earned)
}

// RoiPayout is the per-day dedupe record for the ROI batch. The unique
// (package_id, payout_date) index makes a second run of the same day a no-op
// even across processes.
type RoiPayout struct {
	Base
	PackageID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_roi_payout_day" json:"package_id"`
	PayoutDate string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_roi_payout_day" json:"payout_date"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
}

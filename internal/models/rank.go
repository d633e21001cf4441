package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RankTier is one row of the ordered qualification table. Admin-managed
// reference data, read-only to the engine.
type RankTier struct {
	Base
	Name       string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	OrderIndex int    `gorm:"uniqueIndex;not null" json:"order_index"`

	RewardAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"reward_amount"`

	MinDirectReferrals int             `gorm:"not null" json:"min_direct_referrals"`
	MinActiveDirects   int             `gorm:"not null" json:"min_active_directs"`
	MinTeamVolume      decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"min_team_volume"`
	MinPersonalVolume  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"min_personal_volume"`

	// UnlockedLevels is the deepest sponsor-chain level this rank may earn
	// override commission from.
	UnlockedLevels int `gorm:"default:5" json:"unlocked_levels"`
}

// RankAchievement records a one-time rank reward. The unique
// (account_id, rank_tier_id) index is what makes reward distribution
// idempotent per tier ever achieved.
type RankAchievement struct {
	Base
	AccountID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rank_once" json:"account_id"`
	RankTierID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rank_once" json:"rank_tier_id"`

	RankName      string          `gorm:"type:varchar(50);not null" json:"rank_name"`
	RewardAmount  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"reward_amount"`
	DistributedBy string          `gorm:"type:varchar(50);default:'system'" json:"distributed_by"`
	AchievedAt    time.Time       `gorm:"not null" json:"achieved_at"`
}

package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position identifies a leg of a binary node.
type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// Valid reports whether the position is one of the two known legs.
func (p Position) Valid() bool {
	return p == PositionLeft || p == PositionRight
}

// Opposite returns the other leg.
func (p Position) Opposite() Position {
	if p == PositionLeft {
		return PositionRight
	}
	return PositionLeft
}

// BinaryNode is one slot in the placement tree. Exactly one node has no
// parent (the root). A position is immutable once set: an occupied child
// slot is never reassigned.
//
// LeftVolume/RightVolume are cumulative subtree volumes maintained
// incrementally on propagation, so ancestor updates cost O(depth) and never
// require a subtree scan. LeftCarry/RightCarry hold unmatched volume retained
// after a matching pass.
type BinaryNode struct {
	Base
	AccountID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"account_id"`
	Account   *Account   `gorm:"foreignKey:AccountID" json:"-"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Position  Position   `gorm:"type:varchar(5)" json:"position"`

	LeftChildID  *uuid.UUID `gorm:"type:uuid" json:"left_child_id"`
	RightChildID *uuid.UUID `gorm:"type:uuid" json:"right_child_id"`

	LeftVolume   decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"left_volume"`
	RightVolume  decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"right_volume"`
	LeftCarry    decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"left_carry"`
	RightCarry   decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"right_carry"`
	OwnVolume    decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"own_volume"`
	MatchedTotal decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"matched_total"`

	// Depth from the root (root = 0), maintained at placement time so the
	// volume recalculation repair tool can process nodes bottom-up.
	Depth int `gorm:"default:0;index" json:"depth"`

	// MatchesToday and MatchDate implement the per-node daily match limit.
	MatchesToday int    `gorm:"default:0" json:"matches_today"`
	MatchDate    string `gorm:"type:varchar(10)" json:"match_date"`
}

// ChildID returns the child reference for the given leg.
func (n *BinaryNode) ChildID(pos Position) *uuid.UUID {
	if pos == PositionLeft {
		return n.LeftChildID
	}
	return n.RightChildID
}

// SetChildID fills the child reference for the given leg.
func (n *BinaryNode) SetChildID(pos Position, id uuid.UUID) {
	if pos == PositionLeft {
		n.LeftChildID = &id
	} else {
		n.RightChildID = &id
	}
}

// Volume returns the cumulative subtree volume of the given leg.
func (n *BinaryNode) Volume(pos Position) decimal.Decimal {
	if pos == PositionLeft {
		return n.LeftVolume
	}
	return n.RightVolume
}

// AddVolume adds a delta to the given leg's cumulative volume.
func (n *BinaryNode) AddVolume(pos Position, amount decimal.Decimal) {
	if pos == PositionLeft {
		n.LeftVolume = n.LeftVolume.Add(amount)
	} else {
		n.RightVolume = n.RightVolume.Add(amount)
	}
}

// BinarySettings is the singleton configuration row for the matching engine.
// It is read-only at evaluation time; admins manage it out of band.
type BinarySettings struct {
	Base
	MatchPercent       decimal.Decimal `gorm:"type:decimal(8,4);default:10" json:"match_percent"`
	MaxDailyMatches    int             `gorm:"default:10" json:"max_daily_matches"`
	CarryoverEnabled   bool            `gorm:"default:true" json:"carryover_enabled"`
	RequireActiveLeft  bool            `gorm:"default:true" json:"require_active_left"`
	RequireActiveRight bool            `gorm:"default:true" json:"require_active_right"`
	MinLegVolume       decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"min_leg_volume"`

	// VolumeSplitPercent is the share of a purchase credited to the buyer's
	// own node before propagation. 100 attributes the whole purchase.
	VolumeSplitPercent decimal.Decimal `gorm:"type:decimal(8,4);default:100" json:"volume_split_percent"`
}

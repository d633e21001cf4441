package binary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
	"github.com/nexarise/backend/internal/services/ledger"
	"github.com/nexarise/backend/internal/store"
)

var oneHundred = decimal.NewFromInt(100)

// Service is the binary matching engine. On each purchase it attributes
// volume to the buyer's node, propagates it up the tree, and evaluates a
// matching bonus at every ancestor.
//
// Volume bookkeeping: LeftVolume/RightVolume are lifetime cumulative leg
// volumes and only ever grow. LeftCarry/RightCarry are the currently
// matchable balances per leg: propagation adds to them, and a match
// decrements both carries by the matched amount, so the stronger leg's
// leftover is preserved for future cycles. With carryover disabled, both
// carries are flushed to zero after a match instead.
type Service struct {
	store  store.Store
	ledger *ledger.Service
}

// NewService creates a new binary matching service
func NewService(s store.Store, l *ledger.Service) *Service {
	return &Service{store: s, ledger: l}
}

// NodeMatch records the matching outcome at one ancestor.
type NodeMatch struct {
	AccountID uuid.UUID       `json:"account_id"`
	Matched   decimal.Decimal `json:"matched"`
	Bonus     decimal.Decimal `json:"bonus"`
	Paid      bool            `json:"paid"`
	Skip      string          `json:"skip_reason,omitempty"`
}

// Report aggregates one volume update walk.
type Report struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Volume     decimal.Decimal `json:"volume"`
	TotalBonus decimal.Decimal `json:"total_bonus"`
	Matches    []NodeMatch     `json:"matches"`
}

// UpdateBinaryVolume attributes a purchase to the account's node, propagates
// the volume to every ancestor leg, and evaluates matching at each ancestor
// up to the root. The chain is loaded and locked once and written back as a
// batch. A node that fails its eligibility gates is skipped without blocking
// its own ancestors, whose legs carry volume from elsewhere too. A failed
// bonus payment is different: it aborts the whole update, so a wallet delta
// can never commit without its ledger record.
func (s *Service) UpdateBinaryVolume(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*Report, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("volume must be positive, got %s: %w", amount, apperrors.ErrValidation)
	}
	settings, err := s.store.BinarySettings(ctx)
	if err != nil {
		return nil, err
	}

	volume := amount.Mul(settings.VolumeSplitPercent).Div(oneHundred)
	report := &Report{
		AccountID:  accountID,
		Volume:     volume,
		TotalBonus: decimal.Zero,
	}
	today := time.Now().UTC().Format("2006-01-02")

	err = s.store.Atomic(ctx, func(st store.Store) error {
		chain, err := st.AncestorChain(ctx, accountID)
		if err != nil {
			return err
		}

		// Attribute and propagate first so every ancestor's legs reflect
		// this purchase before matching runs.
		chain[0].OwnVolume = chain[0].OwnVolume.Add(volume)
		for i := 1; i < len(chain); i++ {
			leg := chain[i-1].Position
			chain[i].AddVolume(leg, volume)
			if leg == models.PositionLeft {
				chain[i].LeftCarry = chain[i].LeftCarry.Add(volume)
			} else {
				chain[i].RightCarry = chain[i].RightCarry.Add(volume)
			}
		}

		for i := 1; i < len(chain); i++ {
			match, err := s.evaluateNode(ctx, st, chain[i], settings, today)
			if err != nil {
				return fmt.Errorf("matching bonus for account %s: %w", chain[i].AccountID, err)
			}
			report.Matches = append(report.Matches, match)
			if match.Paid {
				report.TotalBonus = report.TotalBonus.Add(match.Bonus)
			}
		}

		return st.SaveNodes(ctx, chain...)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// evaluateNode applies the eligibility gates and, if they pass, consumes the
// matchable volume and pays the bonus. The node is mutated in place; the
// caller persists the batch. A non-nil error means the bonus payment failed
// part-way and the surrounding transaction must roll back.
func (s *Service) evaluateNode(ctx context.Context, st store.Store, node *models.BinaryNode, settings *models.BinarySettings, today string) (NodeMatch, error) {
	match := NodeMatch{AccountID: node.AccountID, Matched: decimal.Zero, Bonus: decimal.Zero}

	if node.MatchDate != today {
		node.MatchDate = today
		node.MatchesToday = 0
	}

	matchable := decimal.Min(node.LeftCarry, node.RightCarry)
	if !matchable.IsPositive() {
		match.Skip = "nothing matchable"
		return match, nil
	}
	if matchable.LessThan(settings.MinLegVolume) {
		match.Skip = fmt.Sprintf("below minimum leg volume %s", settings.MinLegVolume)
		return match, nil
	}
	if node.MatchesToday >= settings.MaxDailyMatches {
		match.Skip = "daily match limit reached"
		return match, nil
	}
	if ok, reason := s.activeLegsOK(ctx, st, node, settings); !ok {
		match.Skip = reason
		return match, nil
	}

	bonus := matchable.Mul(settings.MatchPercent).Div(oneHundred)
	if _, err := s.ledger.CreditIn(ctx, st, ledger.Entry{
		AccountID:   node.AccountID,
		Category:    models.CategoryMatchingBonus,
		Amount:      bonus,
		Description: fmt.Sprintf("Matching bonus on %s matched volume", matchable),
	}); err != nil {
		return match, err
	}

	// Consume the matched amount from both legs. With carryover on, the
	// stronger leg keeps its unmatched excess; with it off, the excess is
	// flushed.
	if settings.CarryoverEnabled {
		node.LeftCarry = node.LeftCarry.Sub(matchable)
		node.RightCarry = node.RightCarry.Sub(matchable)
	} else {
		node.LeftCarry = decimal.Zero
		node.RightCarry = decimal.Zero
	}
	node.MatchedTotal = node.MatchedTotal.Add(matchable)
	node.MatchesToday++

	match.Matched = matchable
	match.Bonus = bonus
	match.Paid = true
	return match, nil
}

// activeLegsOK checks the require-active-leg gates: the corresponding child
// must exist and its owner account must be active.
func (s *Service) activeLegsOK(ctx context.Context, st store.Store, node *models.BinaryNode, settings *models.BinarySettings) (bool, string) {
	check := func(childID *uuid.UUID, leg models.Position) (bool, string) {
		if childID == nil {
			return false, fmt.Sprintf("no %s child", leg)
		}
		child, err := st.GetNode(ctx, *childID)
		if err != nil {
			return false, fmt.Sprintf("%s child unavailable", leg)
		}
		owner, err := st.GetAccount(ctx, child.AccountID)
		if err != nil || !owner.IsActive {
			return false, fmt.Sprintf("%s leg not active", leg)
		}
		return true, ""
	}
	if settings.RequireActiveLeft {
		if ok, reason := check(node.LeftChildID, models.PositionLeft); !ok {
			return false, reason
		}
	}
	if settings.RequireActiveRight {
		if ok, reason := check(node.RightChildID, models.PositionRight); !ok {
			return false, reason
		}
	}
	return true, ""
}

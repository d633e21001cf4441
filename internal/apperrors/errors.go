package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrPositionOccupied indicates that a binary tree slot is already filled.
var ErrPositionOccupied = errors.New("position already occupied")

// ErrMatchLimitReached indicates that a node hit its daily matching limit.
var ErrMatchLimitReached = errors.New("daily match limit reached")

// ErrInsufficientFunds indicates that a wallet balance is below the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrReconciliation indicates that an account balance diverged from its ledger sum.
// Surfaced to operational monitoring, never to API callers.
var ErrReconciliation = errors.New("ledger reconciliation mismatch")

// SubFailure records one failed unit inside a batch or chain operation.
type SubFailure struct {
	Unit string
	Err  error
}

func (f SubFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Unit, f.Err)
}

func (f SubFailure) Unwrap() error { return f.Err }

// PartialFailure aggregates per-unit failures from an operation that
// deliberately continues past individual errors (level walks, ROI batches).
// The overall operation is still considered successful; callers inspect
// Failures for retry or audit.
type PartialFailure struct {
	Op       string
	Failures []SubFailure
}

func (p *PartialFailure) Error() string {
	return fmt.Sprintf("%s: %d sub-operations failed", p.Op, len(p.Failures))
}

// Add records a failed unit. Nil errors are ignored so callers can pass
// results through unconditionally.
func (p *PartialFailure) Add(unit string, err error) {
	if err == nil {
		return
	}
	p.Failures = append(p.Failures, SubFailure{Unit: unit, Err: err})
}

// OrNil returns the aggregate as an error only when at least one unit failed.
func (p *PartialFailure) OrNil() error {
	if len(p.Failures) == 0 {
		return nil
	}
	return p
}

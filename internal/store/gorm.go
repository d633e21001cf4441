package store

import (
	"context"

	"gorm.io/gorm"
)

// Gorm is the Postgres-backed Store. Every method runs against the handle it
// was constructed with, so an instance built inside Atomic shares that
// transaction.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps a gorm database handle in the Store contract.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Atomic runs fn inside a single database transaction. The Store passed to fn
// writes through that transaction; returning an error rolls everything back.
func (g *Gorm) Atomic(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

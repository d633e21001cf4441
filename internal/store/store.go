package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/models"
)

// Accounts is the persistence contract for member accounts and their wallet
// balances. Balance mutations are atomic increments, never read-then-write.
type Accounts interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	// CreditBalance atomically adds amount to the wallet balance and to the
	// lifetime bucket the category belongs to, returning the new balance.
	CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal, category models.TransactionCategory) (decimal.Decimal, error)

	// DebitBalance atomically subtracts amount from the wallet balance,
	// failing with apperrors.ErrInsufficientFunds when the balance is short.
	DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// CountDirectReferrals returns total and active direct referral counts.
	CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID) (total int, active int, err error)

	// SponsorChain returns up to maxLevels enrollment ancestors, direct
	// sponsor first, loaded in a single query.
	SponsorChain(ctx context.Context, accountID uuid.UUID, maxLevels int) ([]models.Account, error)

	SetRank(ctx context.Context, id uuid.UUID, rank string) error
}

// Nodes is the persistence contract for the binary placement tree. Walks load
// the relevant chain or subtree once and write back as a batch; per-node
// re-queries on the hot path are not part of the contract.
type Nodes interface {
	CreateNode(ctx context.Context, node *models.BinaryNode) error
	GetNode(ctx context.Context, id uuid.UUID) (*models.BinaryNode, error)
	GetNodeByAccount(ctx context.Context, accountID uuid.UUID) (*models.BinaryNode, error)

	// RootNode returns the single parentless node, or
	// apperrors.ErrNotFound when the tree is empty.
	RootNode(ctx context.Context) (*models.BinaryNode, error)

	// AncestorChain returns the node itself followed by each strict ancestor
	// up to and including the root.
	AncestorChain(ctx context.Context, accountID uuid.UUID) ([]*models.BinaryNode, error)

	// Subtree returns the node and its descendants down to maxDepth levels
	// below it, breadth-first.
	Subtree(ctx context.Context, accountID uuid.UUID, maxDepth int) ([]*models.BinaryNode, error)

	// NodesByDepthDesc returns every node ordered deepest-first, for the
	// bottom-up volume recalculation repair tool.
	NodesByDepthDesc(ctx context.Context) ([]*models.BinaryNode, error)

	// SaveNodes persists a batch of mutated nodes in one round trip.
	SaveNodes(ctx context.Context, nodes ...*models.BinaryNode) error
}

// Packages is the persistence contract for package types and investment
// contracts.
type Packages interface {
	CreatePackageType(ctx context.Context, pt *models.PackageType) error
	GetPackageType(ctx context.Context, id uuid.UUID) (*models.PackageType, error)
	ListPackageTypes(ctx context.Context) ([]models.PackageType, error)

	CreatePackage(ctx context.Context, pkg *models.Package) error
	GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error)
	SavePackage(ctx context.Context, pkg *models.Package) error

	// ActivePackages pages through packages still in active status.
	ActivePackages(ctx context.Context, offset, limit int) ([]models.Package, error)

	// ActivePackageIDs snapshots the ids of every active package, oldest
	// first. Batch runs iterate the snapshot so status changes made while
	// the batch is running cannot shift the iteration.
	ActivePackageIDs(ctx context.Context) ([]uuid.UUID, error)

	// CreateRoiPayout inserts the per-day dedupe record, failing with
	// apperrors.ErrDuplicate when the (package, date) pair already exists.
	CreateRoiPayout(ctx context.Context, payout *models.RoiPayout) error
}

// Ledger is the persistence contract for the append-only transaction log.
type Ledger interface {
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
	Transactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, int64, error)

	// SumCompleted totals the signed amounts of completed entries for an
	// account; the reconciliation audit compares it to the wallet balance.
	SumCompleted(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)

	// ActiveAccountIDsSince lists accounts with ledger activity after the
	// given instant, for the periodic rank sweep.
	ActiveAccountIDsSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// Ranks is the persistence contract for the rank qualification table and
// one-time achievement records.
type Ranks interface {
	// RankTiers returns the tier table ordered by ascending OrderIndex.
	RankTiers(ctx context.Context) ([]models.RankTier, error)
	GetRankTier(ctx context.Context, id uuid.UUID) (*models.RankTier, error)

	// CreateAchievement inserts the one-time record, failing with
	// apperrors.ErrDuplicate when the (account, tier) pair already exists.
	CreateAchievement(ctx context.Context, a *models.RankAchievement) error
	HasAchievement(ctx context.Context, accountID, tierID uuid.UUID) (bool, error)
}

// Settings reads engine configuration singletons.
type Settings interface {
	BinarySettings(ctx context.Context) (*models.BinarySettings, error)
	SaveBinarySettings(ctx context.Context, s *models.BinarySettings) error
}

// Store bundles every repository the engines use. Implementations must make
// Atomic run the callback inside one transaction: either every write in the
// callback persists or none do.
type Store interface {
	Accounts
	Nodes
	Packages
	Ledger
	Ranks
	Settings

	Atomic(ctx context.Context, fn func(Store) error) error
}

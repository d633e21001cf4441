package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexarise/backend/internal/apperrors"
	"github.com/nexarise/backend/internal/models"
)

// Memory is an in-process Store used by engine tests and local tooling. It
// honors the same contracts as the Postgres store: copies out on read, copies
// in on write, rollback on Atomic failure, unique-key rejection on the dedupe
// tables.
type Memory struct {
	mu sync.Mutex
	// noLock is set on the view handed to an Atomic callback, which already
	// runs under the outer lock.
	noLock bool
	data   *memData
}

type memData struct {
	accounts     map[uuid.UUID]models.Account
	refCodes     map[string]uuid.UUID
	nodes        map[uuid.UUID]models.BinaryNode
	nodeByOwner  map[uuid.UUID]uuid.UUID
	packageTypes map[uuid.UUID]models.PackageType
	packages     map[uuid.UUID]models.Package
	transactions []models.Transaction
	roiPayouts   map[string]models.RoiPayout
	tiers        []models.RankTier
	achievements map[string]models.RankAchievement
	settings     *models.BinarySettings
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: &memData{
		accounts:     make(map[uuid.UUID]models.Account),
		refCodes:     make(map[string]uuid.UUID),
		nodes:        make(map[uuid.UUID]models.BinaryNode),
		nodeByOwner:  make(map[uuid.UUID]uuid.UUID),
		packageTypes: make(map[uuid.UUID]models.PackageType),
		packages:     make(map[uuid.UUID]models.Package),
		roiPayouts:   make(map[string]models.RoiPayout),
		achievements: make(map[string]models.RankAchievement),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		accounts:     make(map[uuid.UUID]models.Account, len(d.accounts)),
		refCodes:     make(map[string]uuid.UUID, len(d.refCodes)),
		nodes:        make(map[uuid.UUID]models.BinaryNode, len(d.nodes)),
		nodeByOwner:  make(map[uuid.UUID]uuid.UUID, len(d.nodeByOwner)),
		packageTypes: make(map[uuid.UUID]models.PackageType, len(d.packageTypes)),
		packages:     make(map[uuid.UUID]models.Package, len(d.packages)),
		transactions: append([]models.Transaction(nil), d.transactions...),
		roiPayouts:   make(map[string]models.RoiPayout, len(d.roiPayouts)),
		tiers:        append([]models.RankTier(nil), d.tiers...),
		achievements: make(map[string]models.RankAchievement, len(d.achievements)),
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.refCodes {
		c.refCodes[k] = v
	}
	for k, v := range d.nodes {
		c.nodes[k] = v
	}
	for k, v := range d.nodeByOwner {
		c.nodeByOwner[k] = v
	}
	for k, v := range d.packageTypes {
		c.packageTypes[k] = v
	}
	for k, v := range d.packages {
		c.packages[k] = v
	}
	for k, v := range d.roiPayouts {
		c.roiPayouts[k] = v
	}
	for k, v := range d.achievements {
		c.achievements[k] = v
	}
	if d.settings != nil {
		s := *d.settings
		c.settings = &s
	}
	return c
}

func (m *Memory) lock() {
	if !m.noLock {
		m.mu.Lock()
	}
}

func (m *Memory) unlock() {
	if !m.noLock {
		m.mu.Unlock()
	}
}

// Atomic serializes the callback under the store lock and restores the
// pre-callback state if it errors, mirroring a database rollback.
func (m *Memory) Atomic(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.data.clone()
	view := &Memory{noLock: true, data: m.data}
	if err := fn(view); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func stamp(base *models.Base) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// --- Accounts ---

func (m *Memory) CreateAccount(ctx context.Context, account *models.Account) error {
	m.lock()
	defer m.unlock()
	stamp(&account.Base)
	if _, exists := m.data.refCodes[account.ReferralCode]; exists {
		return fmt.Errorf("referral code %s: %w", account.ReferralCode, apperrors.ErrDuplicate)
	}
	m.data.accounts[account.ID] = *account
	m.data.refCodes[account.ReferralCode] = account.ID
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.lock()
	defer m.unlock()
	account, ok := m.data.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}
	return &account, nil
}

func (m *Memory) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	m.lock()
	defer m.unlock()
	id, ok := m.data.refCodes[code]
	if !ok {
		return nil, fmt.Errorf("referral code %s: %w", code, apperrors.ErrNotFound)
	}
	account := m.data.accounts[id]
	return &account, nil
}

func (m *Memory) SaveAccount(ctx context.Context, account *models.Account) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.data.accounts[account.ID]; !ok {
		return fmt.Errorf("account %s: %w", account.ID, apperrors.ErrNotFound)
	}
	account.UpdatedAt = time.Now()
	m.data.accounts[account.ID] = *account
	return nil
}

func (m *Memory) CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal, category models.TransactionCategory) (decimal.Decimal, error) {
	m.lock()
	defer m.unlock()
	account, ok := m.data.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}
	account.WalletBalance = account.WalletBalance.Add(amount)
	switch earningColumn(category) {
	case "roi_earned":
		account.RoiEarned = account.RoiEarned.Add(amount)
		account.TotalEarned = account.TotalEarned.Add(amount)
	case "commission_earned":
		account.CommissionEarned = account.CommissionEarned.Add(amount)
		account.TotalEarned = account.TotalEarned.Add(amount)
	case "binary_earned":
		account.BinaryEarned = account.BinaryEarned.Add(amount)
		account.TotalEarned = account.TotalEarned.Add(amount)
	case "rank_earned":
		account.RankEarned = account.RankEarned.Add(amount)
		account.TotalEarned = account.TotalEarned.Add(amount)
	}
	account.UpdatedAt = time.Now()
	m.data.accounts[id] = account
	return account.WalletBalance, nil
}

func (m *Memory) DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	m.lock()
	defer m.unlock()
	account, ok := m.data.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}
	if account.WalletBalance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("debit %s from account %s: %w", amount, id, apperrors.ErrInsufficientFunds)
	}
	account.WalletBalance = account.WalletBalance.Sub(amount)
	account.UpdatedAt = time.Now()
	m.data.accounts[id] = account
	return account.WalletBalance, nil
}

func (m *Memory) CountDirectReferrals(ctx context.Context, sponsorID uuid.UUID) (int, int, error) {
	m.lock()
	defer m.unlock()
	var total, active int
	for _, account := range m.data.accounts {
		if account.SponsorID != nil && *account.SponsorID == sponsorID {
			total++
			if account.IsActive {
				active++
			}
		}
	}
	return total, active, nil
}

func (m *Memory) SponsorChain(ctx context.Context, accountID uuid.UUID, maxLevels int) ([]models.Account, error) {
	m.lock()
	defer m.unlock()
	current, ok := m.data.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	var chain []models.Account
	for level := 0; level < maxLevels && current.SponsorID != nil; level++ {
		sponsor, ok := m.data.accounts[*current.SponsorID]
		if !ok {
			break
		}
		chain = append(chain, sponsor)
		current = sponsor
	}
	return chain, nil
}

func (m *Memory) SetRank(ctx context.Context, id uuid.UUID, rank string) error {
	m.lock()
	defer m.unlock()
	account, ok := m.data.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}
	account.Rank = rank
	account.UpdatedAt = time.Now()
	m.data.accounts[id] = account
	return nil
}

// --- Nodes ---

func (m *Memory) CreateNode(ctx context.Context, node *models.BinaryNode) error {
	m.lock()
	defer m.unlock()
	stamp(&node.Base)
	if _, exists := m.data.nodeByOwner[node.AccountID]; exists {
		return fmt.Errorf("binary node for account %s: %w", node.AccountID, apperrors.ErrDuplicate)
	}
	m.data.nodes[node.ID] = *node
	m.data.nodeByOwner[node.AccountID] = node.ID
	return nil
}

func (m *Memory) GetNode(ctx context.Context, id uuid.UUID) (*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	node, ok := m.data.nodes[id]
	if !ok {
		return nil, fmt.Errorf("binary node %s: %w", id, apperrors.ErrNotFound)
	}
	return &node, nil
}

func (m *Memory) GetNodeByAccount(ctx context.Context, accountID uuid.UUID) (*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	return m.nodeByAccountLocked(accountID)
}

func (m *Memory) RootNode(ctx context.Context) (*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	for _, node := range m.data.nodes {
		if node.ParentID == nil {
			n := node
			return &n, nil
		}
	}
	return nil, fmt.Errorf("tree root: %w", apperrors.ErrNotFound)
}

func (m *Memory) nodeByAccountLocked(accountID uuid.UUID) (*models.BinaryNode, error) {
	nodeID, ok := m.data.nodeByOwner[accountID]
	if !ok {
		return nil, fmt.Errorf("binary node for account %s: %w", accountID, apperrors.ErrNotFound)
	}
	node := m.data.nodes[nodeID]
	return &node, nil
}

func (m *Memory) AncestorChain(ctx context.Context, accountID uuid.UUID) ([]*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	start, err := m.nodeByAccountLocked(accountID)
	if err != nil {
		return nil, err
	}
	chain := []*models.BinaryNode{start}
	current := start
	for current.ParentID != nil {
		parent, ok := m.data.nodes[*current.ParentID]
		if !ok {
			return nil, fmt.Errorf("parent node %s: %w", *current.ParentID, apperrors.ErrNotFound)
		}
		p := parent
		chain = append(chain, &p)
		current = &p
	}
	return chain, nil
}

func (m *Memory) Subtree(ctx context.Context, accountID uuid.UUID, maxDepth int) ([]*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	root, err := m.nodeByAccountLocked(accountID)
	if err != nil {
		return nil, err
	}
	result := []*models.BinaryNode{root}
	frontier := []*models.BinaryNode{root}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []*models.BinaryNode
		for _, node := range frontier {
			for _, childID := range []*uuid.UUID{node.LeftChildID, node.RightChildID} {
				if childID == nil {
					continue
				}
				if child, ok := m.data.nodes[*childID]; ok {
					c := child
					next = append(next, &c)
				}
			}
		}
		result = append(result, next...)
		frontier = next
	}
	return result, nil
}

func (m *Memory) NodesByDepthDesc(ctx context.Context) ([]*models.BinaryNode, error) {
	m.lock()
	defer m.unlock()
	nodes := make([]*models.BinaryNode, 0, len(m.data.nodes))
	for _, node := range m.data.nodes {
		n := node
		nodes = append(nodes, &n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Depth > nodes[j].Depth })
	return nodes, nil
}

func (m *Memory) SaveNodes(ctx context.Context, nodes ...*models.BinaryNode) error {
	m.lock()
	defer m.unlock()
	for _, node := range nodes {
		node.UpdatedAt = time.Now()
		m.data.nodes[node.ID] = *node
		m.data.nodeByOwner[node.AccountID] = node.ID
	}
	return nil
}

// --- Packages ---

func (m *Memory) CreatePackageType(ctx context.Context, pt *models.PackageType) error {
	m.lock()
	defer m.unlock()
	stamp(&pt.Base)
	m.data.packageTypes[pt.ID] = *pt
	return nil
}

func (m *Memory) GetPackageType(ctx context.Context, id uuid.UUID) (*models.PackageType, error) {
	m.lock()
	defer m.unlock()
	pt, ok := m.data.packageTypes[id]
	if !ok {
		return nil, fmt.Errorf("package type %s: %w", id, apperrors.ErrNotFound)
	}
	return &pt, nil
}

func (m *Memory) ListPackageTypes(ctx context.Context) ([]models.PackageType, error) {
	m.lock()
	defer m.unlock()
	types := make([]models.PackageType, 0, len(m.data.packageTypes))
	for _, pt := range m.data.packageTypes {
		if pt.IsActive {
			types = append(types, pt)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].MinAmount.LessThan(types[j].MinAmount) })
	return types, nil
}

func (m *Memory) CreatePackage(ctx context.Context, pkg *models.Package) error {
	m.lock()
	defer m.unlock()
	stamp(&pkg.Base)
	m.data.packages[pkg.ID] = *pkg
	return nil
}

func (m *Memory) GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	m.lock()
	defer m.unlock()
	pkg, ok := m.data.packages[id]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", id, apperrors.ErrNotFound)
	}
	return &pkg, nil
}

func (m *Memory) SavePackage(ctx context.Context, pkg *models.Package) error {
	m.lock()
	defer m.unlock()
	if _, ok := m.data.packages[pkg.ID]; !ok {
		return fmt.Errorf("package %s: %w", pkg.ID, apperrors.ErrNotFound)
	}
	pkg.UpdatedAt = time.Now()
	m.data.packages[pkg.ID] = *pkg
	return nil
}

func (m *Memory) ActivePackages(ctx context.Context, offset, limit int) ([]models.Package, error) {
	m.lock()
	defer m.unlock()
	var active []models.Package
	for _, pkg := range m.data.packages {
		if pkg.Status == models.PackageStatusActive {
			active = append(active, pkg)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	if offset >= len(active) {
		return nil, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], nil
}

func (m *Memory) ActivePackageIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.lock()
	defer m.unlock()
	var active []models.Package
	for _, pkg := range m.data.packages {
		if pkg.Status == models.PackageStatusActive {
			active = append(active, pkg)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	ids := make([]uuid.UUID, len(active))
	for i, pkg := range active {
		ids[i] = pkg.ID
	}
	return ids, nil
}

func (m *Memory) CreateRoiPayout(ctx context.Context, payout *models.RoiPayout) error {
	m.lock()
	defer m.unlock()
	key := payout.PackageID.String() + "|" + payout.PayoutDate
	if _, exists := m.data.roiPayouts[key]; exists {
		return fmt.Errorf("roi payout for package %s on %s: %w",
			payout.PackageID, payout.PayoutDate, apperrors.ErrDuplicate)
	}
	stamp(&payout.Base)
	m.data.roiPayouts[key] = *payout
	return nil
}

// --- Ledger ---

func (m *Memory) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	m.lock()
	defer m.unlock()
	stamp(&txn.Base)
	if txn.Status == "" {
		txn.Status = models.TransactionCompleted
	}
	m.data.transactions = append(m.data.transactions, *txn)
	return nil
}

func (m *Memory) Transactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Transaction, int64, error) {
	m.lock()
	defer m.unlock()
	var owned []models.Transaction
	for _, txn := range m.data.transactions {
		if txn.AccountID == accountID {
			owned = append(owned, txn)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	total := int64(len(owned))
	offset := (page - 1) * pageSize
	if offset >= len(owned) {
		return nil, total, nil
	}
	end := offset + pageSize
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], total, nil
}

func (m *Memory) ActiveAccountIDsSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	m.lock()
	defer m.unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, txn := range m.data.transactions {
		if !txn.CreatedAt.Before(since) && !seen[txn.AccountID] {
			seen[txn.AccountID] = true
			ids = append(ids, txn.AccountID)
		}
	}
	return ids, nil
}

func (m *Memory) SumCompleted(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	m.lock()
	defer m.unlock()
	sum := decimal.Zero
	for _, txn := range m.data.transactions {
		if txn.AccountID == accountID && txn.Status == models.TransactionCompleted {
			sum = sum.Add(txn.Amount)
		}
	}
	return sum, nil
}

// --- Ranks ---

func (m *Memory) RankTiers(ctx context.Context) ([]models.RankTier, error) {
	m.lock()
	defer m.unlock()
	tiers := append([]models.RankTier(nil), m.data.tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].OrderIndex < tiers[j].OrderIndex })
	return tiers, nil
}

// AddRankTier seeds a tier row. Reference data has no engine-facing write
// path, so the in-memory store exposes this directly for tests and tooling.
func (m *Memory) AddRankTier(tier models.RankTier) {
	m.lock()
	defer m.unlock()
	stamp(&tier.Base)
	m.data.tiers = append(m.data.tiers, tier)
}

func (m *Memory) GetRankTier(ctx context.Context, id uuid.UUID) (*models.RankTier, error) {
	m.lock()
	defer m.unlock()
	for _, tier := range m.data.tiers {
		if tier.ID == id {
			t := tier
			return &t, nil
		}
	}
	return nil, fmt.Errorf("rank tier %s: %w", id, apperrors.ErrNotFound)
}

func (m *Memory) CreateAchievement(ctx context.Context, a *models.RankAchievement) error {
	m.lock()
	defer m.unlock()
	key := a.AccountID.String() + "|" + a.RankTierID.String()
	if _, exists := m.data.achievements[key]; exists {
		return fmt.Errorf("rank %s already achieved by account %s: %w", a.RankName, a.AccountID, apperrors.ErrDuplicate)
	}
	stamp(&a.Base)
	m.data.achievements[key] = *a
	return nil
}

func (m *Memory) HasAchievement(ctx context.Context, accountID, tierID uuid.UUID) (bool, error) {
	m.lock()
	defer m.unlock()
	_, exists := m.data.achievements[accountID.String()+"|"+tierID.String()]
	return exists, nil
}

// --- Settings ---

func (m *Memory) BinarySettings(ctx context.Context) (*models.BinarySettings, error) {
	m.lock()
	defer m.unlock()
	if m.data.settings == nil {
		return nil, fmt.Errorf("binary settings: %w", apperrors.ErrNotFound)
	}
	s := *m.data.settings
	return &s, nil
}

func (m *Memory) SaveBinarySettings(ctx context.Context, s *models.BinarySettings) error {
	m.lock()
	defer m.unlock()
	stamp(&s.Base)
	copied := *s
	m.data.settings = &copied
	return nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// A single mutex serializes all access; Atomic snapshots the data
// before running the callback and restores the snapshot on error, so a
// failed unit leaves no partial effect — matching a rolled-back
// database transaction.
type MemoryStore struct {
	mu sync.Mutex
	tx memTx
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tx: memTx{d: newMemData()}}
}

func (s *MemoryStore) Atomic(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.tx.d.clone()
	if err := fn(&s.tx); err != nil {
		s.tx.d = snap
		return err
	}
	return nil
}

func (s *MemoryStore) CreateCoin(ctx context.Context, c *model.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateCoin(ctx, c)
}

func (s *MemoryStore) GetCoin(ctx context.Context, id string) (*model.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetCoin(ctx, id)
}

func (s *MemoryStore) CoinsInBounds(ctx context.Context, b grid.Bounds, status string) ([]model.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CoinsInBounds(ctx, b, status)
}

func (s *MemoryStore) CountCoinsInBounds(ctx context.Context, b grid.Bounds, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CountCoinsInBounds(ctx, b, status)
}

func (s *MemoryStore) TransitionCoin(ctx context.Context, id, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.TransitionCoin(ctx, id, from, to)
}

func (s *MemoryStore) SetCoinValue(ctx context.Context, id string, v decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.SetCoinValue(ctx, id, v)
}

func (s *MemoryStore) DeleteCoin(ctx context.Context, id, ifStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.DeleteCoin(ctx, id, ifStatus)
}

func (s *MemoryStore) DeleteSystemCoinsInBounds(ctx context.Context, b grid.Bounds) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.DeleteSystemCoinsInBounds(ctx, b)
}

func (s *MemoryStore) TouchGrid(ctx context.Context, g *model.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.TouchGrid(ctx, g)
}

func (s *MemoryStore) GetGrid(ctx context.Context, id string) (*model.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetGrid(ctx, id)
}

func (s *MemoryStore) IdleGrids(ctx context.Context, cutoff time.Time) ([]model.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.IdleGrids(ctx, cutoff)
}

func (s *MemoryStore) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetWallet(ctx, userID)
}

func (s *MemoryStore) PutWallet(ctx context.Context, w *model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.PutWallet(ctx, w)
}

func (s *MemoryStore) WalletsNotChargedSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.WalletsNotChargedSince(ctx, cutoff)
}

func (s *MemoryStore) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetStats(ctx, userID)
}

func (s *MemoryStore) PutStats(ctx context.Context, st *model.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.PutStats(ctx, st)
}

func (s *MemoryStore) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.AppendTransaction(ctx, tx)
}

func (s *MemoryStore) TransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.TransactionsByUser(ctx, userID, limit)
}

func (s *MemoryStore) PendingTransactionsBefore(ctx context.Context, userID string, cutoff time.Time) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.PendingTransactionsBefore(ctx, userID, cutoff)
}

func (s *MemoryStore) UsersWithPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.UsersWithPendingBefore(ctx, cutoff)
}

func (s *MemoryStore) ConfirmTransactions(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ConfirmTransactions(ctx, ids)
}

func (s *MemoryStore) CreateFind(ctx context.Context, f *model.CoinFind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateFind(ctx, f)
}

func (s *MemoryStore) RecentFinds(ctx context.Context, finderID string, limit int) ([]model.CoinFind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.RecentFinds(ctx, finderID, limit)
}

func (s *MemoryStore) CountFinds(ctx context.Context, finderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CountFinds(ctx, finderID)
}

func (s *MemoryStore) ConfirmFindsByCoin(ctx context.Context, coinIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ConfirmFindsByCoin(ctx, coinIDs)
}

// --- unlocked view used inside Atomic ---

type memData struct {
	coins   map[string]*model.Coin
	grids   map[string]*model.Grid
	wallets map[string]*model.Wallet
	stats   map[string]*model.UserStats
	txs     []model.Transaction
	finds   []model.CoinFind
}

func newMemData() *memData {
	return &memData{
		coins:   make(map[string]*model.Coin),
		grids:   make(map[string]*model.Grid),
		wallets: make(map[string]*model.Wallet),
		stats:   make(map[string]*model.UserStats),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.coins {
		cp := *v
		c.coins[k] = &cp
	}
	for k, v := range d.grids {
		cp := *v
		c.grids[k] = &cp
	}
	for k, v := range d.wallets {
		cp := *v
		c.wallets[k] = &cp
	}
	for k, v := range d.stats {
		cp := *v
		c.stats[k] = &cp
	}
	c.txs = append([]model.Transaction(nil), d.txs...)
	c.finds = append([]model.CoinFind(nil), d.finds...)
	return c
}

// memTx operates on memData without locking. MemoryStore hands it out
// under its mutex, both per call and inside Atomic.
type memTx struct {
	d *memData
}

// Atomic joins the enclosing unit: the caller already holds the lock.
func (t *memTx) Atomic(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *memTx) CreateCoin(_ context.Context, c *model.Coin) error {
	if _, ok := t.d.coins[c.ID]; ok {
		return fmt.Errorf("coin %s already exists", c.ID)
	}
	cp := *c
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	t.d.coins[c.ID] = &cp
	return nil
}

func (t *memTx) GetCoin(_ context.Context, id string) (*model.Coin, error) {
	c, ok := t.d.coins[id]
	if !ok {
		return nil, fmt.Errorf("coin %s: %w", id, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) CoinsInBounds(_ context.Context, b grid.Bounds, status string) ([]model.Coin, error) {
	var result []model.Coin
	for _, c := range t.d.coins {
		if status != "" && c.Status != status {
			continue
		}
		if b.Contains(c.Lat, c.Lon) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (t *memTx) CountCoinsInBounds(ctx context.Context, b grid.Bounds, status string) (int, error) {
	coins, err := t.CoinsInBounds(ctx, b, status)
	if err != nil {
		return 0, err
	}
	return len(coins), nil
}

func (t *memTx) TransitionCoin(_ context.Context, id, from, to string) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("illegal coin transition %s→%s", from, to)
	}
	c, ok := t.d.coins[id]
	if !ok {
		return fmt.Errorf("coin %s: %w", id, ErrNotFound)
	}
	if c.Status != from {
		return fmt.Errorf("coin %s is %s: %w", id, c.Status, ErrConflict)
	}
	c.Status = to
	return nil
}

func (t *memTx) SetCoinValue(_ context.Context, id string, v decimal.Decimal) error {
	c, ok := t.d.coins[id]
	if !ok {
		return fmt.Errorf("coin %s: %w", id, ErrNotFound)
	}
	c.Value = &v
	return nil
}

func (t *memTx) DeleteCoin(_ context.Context, id, ifStatus string) error {
	c, ok := t.d.coins[id]
	if !ok {
		return fmt.Errorf("coin %s: %w", id, ErrNotFound)
	}
	if ifStatus != "" && c.Status != ifStatus {
		return fmt.Errorf("coin %s is %s: %w", id, c.Status, ErrConflict)
	}
	delete(t.d.coins, id)
	return nil
}

func (t *memTx) DeleteSystemCoinsInBounds(_ context.Context, b grid.Bounds) (int64, error) {
	var n int64
	for id, c := range t.d.coins {
		if c.HiderID != model.SystemHiderID || c.Status != model.CoinStatusVisible {
			continue
		}
		if b.Contains(c.Lat, c.Lon) {
			delete(t.d.coins, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) TouchGrid(_ context.Context, g *model.Grid) error {
	cp := *g
	t.d.grids[g.ID] = &cp
	return nil
}

func (t *memTx) GetGrid(_ context.Context, id string) (*model.Grid, error) {
	g, ok := t.d.grids[id]
	if !ok {
		return nil, fmt.Errorf("grid %s: %w", id, ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (t *memTx) IdleGrids(_ context.Context, cutoff time.Time) ([]model.Grid, error) {
	var result []model.Grid
	for _, g := range t.d.grids {
		if g.LastActivity.Before(cutoff) {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (t *memTx) GetWallet(_ context.Context, userID string) (*model.Wallet, error) {
	w, ok := t.d.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (t *memTx) PutWallet(_ context.Context, w *model.Wallet) error {
	cp := *w
	t.d.wallets[w.UserID] = &cp
	return nil
}

func (t *memTx) WalletsNotChargedSince(_ context.Context, cutoff time.Time) ([]string, error) {
	var users []string
	for id, w := range t.d.wallets {
		if w.LastGasCharge.Before(cutoff) {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (t *memTx) GetStats(_ context.Context, userID string) (*model.UserStats, error) {
	s, ok := t.d.stats[userID]
	if !ok {
		return nil, fmt.Errorf("stats %s: %w", userID, ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) PutStats(_ context.Context, s *model.UserStats) error {
	cp := *s
	t.d.stats[s.UserID] = &cp
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, tx *model.Transaction) error {
	cp := *tx
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	t.d.txs = append(t.d.txs, cp)
	return nil
}

func (t *memTx) TransactionsByUser(_ context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var result []model.Transaction
	for _, tx := range t.d.txs {
		if tx.UserID == userID {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (t *memTx) PendingTransactionsBefore(_ context.Context, userID string, cutoff time.Time) ([]model.Transaction, error) {
	var result []model.Transaction
	for _, tx := range t.d.txs {
		if tx.UserID == userID && tx.Status == model.TxStatusPending && tx.CreatedAt.Before(cutoff) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (t *memTx) UsersWithPendingBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var users []string
	for _, tx := range t.d.txs {
		if tx.Status == model.TxStatusPending && tx.CreatedAt.Before(cutoff) && !seen[tx.UserID] {
			seen[tx.UserID] = true
			users = append(users, tx.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (t *memTx) ConfirmTransactions(_ context.Context, ids []string) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range t.d.txs {
		if want[t.d.txs[i].ID] {
			t.d.txs[i].Status = model.TxStatusConfirmed
		}
	}
	return nil
}

func (t *memTx) CreateFind(_ context.Context, f *model.CoinFind) error {
	cp := *f
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	t.d.finds = append(t.d.finds, cp)
	return nil
}

func (t *memTx) RecentFinds(_ context.Context, finderID string, limit int) ([]model.CoinFind, error) {
	if limit <= 0 {
		limit = 10
	}
	var result []model.CoinFind
	for _, f := range t.d.finds {
		if f.FinderID == finderID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (t *memTx) CountFinds(_ context.Context, finderID string) (int64, error) {
	var n int64
	for _, f := range t.d.finds {
		if f.FinderID == finderID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ConfirmFindsByCoin(_ context.Context, coinIDs []string) error {
	want := make(map[string]bool, len(coinIDs))
	for _, id := range coinIDs {
		want[id] = true
	}
	for i := range t.d.finds {
		if want[t.d.finds[i].CoinID] && t.d.finds[i].Status == model.TxStatusPending {
			t.d.finds[i].Status = model.TxStatusConfirmed
		}
	}
	return nil
}

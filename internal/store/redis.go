package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache for the hot read paths: individual coins and the
// per-cell visible-coin lists the nearby query hammers. Writes go to
// the primary store and invalidate single-coin keys; cell lists expire
// by TTL, which rule §5 tolerates (transient over/under-counts are
// acceptable, the status CAS remains the correctness guard).
//
// Wallet, stats, and ledger reads always hit the primary: money is
// never served stale.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

// Atomic wraps the primary's transactional unit so that writes inside
// it still invalidate coin keys.
func (s *CachedStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return s.primary.Atomic(ctx, func(tx Store) error {
		return fn(&CachedStore{primary: tx, rdb: s.rdb, ttl: s.ttl})
	})
}

// --- Cached coin reads ---

func (s *CachedStore) GetCoin(ctx context.Context, id string) (*model.Coin, error) {
	data, err := s.rdb.Get(ctx, coinKey(id)).Bytes()
	if err == nil {
		var c model.Coin
		if json.Unmarshal(data, &c) == nil {
			return &c, nil
		}
	}

	c, err := s.primary.GetCoin(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(c); err == nil {
		s.rdb.Set(ctx, coinKey(id), data, s.ttl)
	}
	return c, nil
}

func (s *CachedStore) CoinsInBounds(ctx context.Context, b grid.Bounds, status string) ([]model.Coin, error) {
	key := boundsKey(b, status)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var coins []model.Coin
		if json.Unmarshal(data, &coins) == nil {
			return coins, nil
		}
	}

	coins, err := s.primary.CoinsInBounds(ctx, b, status)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(coins); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return coins, nil
}

// --- Write-through (write to primary, invalidate) ---

func (s *CachedStore) CreateCoin(ctx context.Context, c *model.Coin) error {
	if err := s.primary.CreateCoin(ctx, c); err != nil {
		return err
	}
	s.invalidateCell(ctx, c.Lat, c.Lon)
	return nil
}

func (s *CachedStore) TransitionCoin(ctx context.Context, id, from, to string) error {
	if err := s.primary.TransitionCoin(ctx, id, from, to); err != nil {
		return err
	}
	s.rdb.Del(ctx, coinKey(id))
	return nil
}

func (s *CachedStore) SetCoinValue(ctx context.Context, id string, v decimal.Decimal) error {
	if err := s.primary.SetCoinValue(ctx, id, v); err != nil {
		return err
	}
	s.rdb.Del(ctx, coinKey(id))
	return nil
}

func (s *CachedStore) DeleteCoin(ctx context.Context, id, ifStatus string) error {
	if err := s.primary.DeleteCoin(ctx, id, ifStatus); err != nil {
		return err
	}
	s.rdb.Del(ctx, coinKey(id))
	return nil
}

func (s *CachedStore) DeleteSystemCoinsInBounds(ctx context.Context, b grid.Bounds) (int64, error) {
	n, err := s.primary.DeleteSystemCoinsInBounds(ctx, b)
	if err != nil {
		return 0, err
	}
	s.rdb.Del(ctx, boundsKey(b, model.CoinStatusVisible))
	return n, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) CountCoinsInBounds(ctx context.Context, b grid.Bounds, status string) (int, error) {
	return s.primary.CountCoinsInBounds(ctx, b, status)
}

func (s *CachedStore) TouchGrid(ctx context.Context, g *model.Grid) error {
	return s.primary.TouchGrid(ctx, g)
}

func (s *CachedStore) GetGrid(ctx context.Context, id string) (*model.Grid, error) {
	return s.primary.GetGrid(ctx, id)
}

func (s *CachedStore) IdleGrids(ctx context.Context, cutoff time.Time) ([]model.Grid, error) {
	return s.primary.IdleGrids(ctx, cutoff)
}

func (s *CachedStore) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return s.primary.GetWallet(ctx, userID)
}

func (s *CachedStore) PutWallet(ctx context.Context, w *model.Wallet) error {
	return s.primary.PutWallet(ctx, w)
}

func (s *CachedStore) WalletsNotChargedSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.primary.WalletsNotChargedSince(ctx, cutoff)
}

func (s *CachedStore) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	return s.primary.GetStats(ctx, userID)
}

func (s *CachedStore) PutStats(ctx context.Context, st *model.UserStats) error {
	return s.primary.PutStats(ctx, st)
}

func (s *CachedStore) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	return s.primary.AppendTransaction(ctx, tx)
}

func (s *CachedStore) TransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	return s.primary.TransactionsByUser(ctx, userID, limit)
}

func (s *CachedStore) PendingTransactionsBefore(ctx context.Context, userID string, cutoff time.Time) ([]model.Transaction, error) {
	return s.primary.PendingTransactionsBefore(ctx, userID, cutoff)
}

func (s *CachedStore) UsersWithPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.primary.UsersWithPendingBefore(ctx, cutoff)
}

func (s *CachedStore) ConfirmTransactions(ctx context.Context, ids []string) error {
	return s.primary.ConfirmTransactions(ctx, ids)
}

func (s *CachedStore) CreateFind(ctx context.Context, f *model.CoinFind) error {
	return s.primary.CreateFind(ctx, f)
}

func (s *CachedStore) RecentFinds(ctx context.Context, finderID string, limit int) ([]model.CoinFind, error) {
	return s.primary.RecentFinds(ctx, finderID, limit)
}

func (s *CachedStore) CountFinds(ctx context.Context, finderID string) (int64, error) {
	return s.primary.CountFinds(ctx, finderID)
}

func (s *CachedStore) ConfirmFindsByCoin(ctx context.Context, coinIDs []string) error {
	return s.primary.ConfirmFindsByCoin(ctx, coinIDs)
}

// --- Cache helpers ---

func (s *CachedStore) invalidateCell(ctx context.Context, lat, lon float64) {
	b := grid.CellBounds(lat, lon)
	s.rdb.Del(ctx, boundsKey(b, model.CoinStatusVisible))
}

func coinKey(id string) string { return fmt.Sprintf("coin:%s", id) }

func boundsKey(b grid.Bounds, status string) string {
	return fmt.Sprintf("cell:%.2f:%.2f:%.2f:%.2f:%s", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon, status)
}

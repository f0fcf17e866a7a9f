// Package store defines the persistence interface for the coin engine.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache for coin reads), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a compare-and-set precondition
	// fails, e.g. losing a race to collect the same coin.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence interface. Every ledger operation runs its
// reads and writes inside one Atomic unit; a failed unit leaves no
// partial effect.
type Store interface {
	// --- Coins ---

	// CreateCoin persists a new coin.
	CreateCoin(ctx context.Context, c *model.Coin) error

	// GetCoin retrieves a coin by id.
	GetCoin(ctx context.Context, id string) (*model.Coin, error)

	// CoinsInBounds returns coins inside a bounding box, optionally
	// filtered by status ("" matches all).
	CoinsInBounds(ctx context.Context, b grid.Bounds, status string) ([]model.Coin, error)

	// CountCoinsInBounds counts coins inside a bounding box.
	CountCoinsInBounds(ctx context.Context, b grid.Bounds, status string) (int, error)

	// TransitionCoin flips a coin's status from→to as a single
	// compare-and-set. Returns ErrConflict when the coin is no longer
	// in the from status.
	TransitionCoin(ctx context.Context, id, from, to string) error

	// SetCoinValue persists the resolved value of a pool coin.
	SetCoinValue(ctx context.Context, id string, v decimal.Decimal) error

	// DeleteCoin removes a coin, guarded by ifStatus ("" skips the
	// guard). Returns ErrConflict when the guard fails.
	DeleteCoin(ctx context.Context, id, ifStatus string) error

	// DeleteSystemCoinsInBounds removes visible system-hidden coins
	// inside a bounding box and reports how many were removed.
	DeleteSystemCoinsInBounds(ctx context.Context, b grid.Bounds) (int64, error)

	// --- Grids ---

	// TouchGrid upserts a grid row, stamping its last activity.
	TouchGrid(ctx context.Context, g *model.Grid) error

	// GetGrid retrieves a grid by id.
	GetGrid(ctx context.Context, id string) (*model.Grid, error)

	// IdleGrids returns grids whose last activity is before cutoff.
	IdleGrids(ctx context.Context, cutoff time.Time) ([]model.Grid, error)

	// --- Wallets and stats ---

	// GetWallet retrieves a wallet by user id.
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)

	// PutWallet upserts a wallet.
	PutWallet(ctx context.Context, w *model.Wallet) error

	// WalletsNotChargedSince returns user ids whose last gas charge is
	// before cutoff. Feeds the daily gas sweep.
	WalletsNotChargedSince(ctx context.Context, cutoff time.Time) ([]string, error)

	// GetStats retrieves user stats by user id.
	GetStats(ctx context.Context, userID string) (*model.UserStats, error)

	// PutStats upserts user stats.
	PutStats(ctx context.Context, s *model.UserStats) error

	// --- Immutable ledger ---

	// AppendTransaction appends a ledger row.
	AppendTransaction(ctx context.Context, tx *model.Transaction) error

	// TransactionsByUser returns a user's most recent ledger rows.
	TransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error)

	// PendingTransactionsBefore returns a user's pending rows created
	// before cutoff.
	PendingTransactionsBefore(ctx context.Context, userID string, cutoff time.Time) ([]model.Transaction, error)

	// UsersWithPendingBefore returns the distinct users holding
	// pending rows created before cutoff. Feeds the confirmation sweep.
	UsersWithPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// ConfirmTransactions flips the given rows to confirmed.
	ConfirmTransactions(ctx context.Context, ids []string) error

	// --- Coin finds ---

	// CreateFind records a successful collection.
	CreateFind(ctx context.Context, f *model.CoinFind) error

	// RecentFinds returns a finder's most recent finds, newest first.
	RecentFinds(ctx context.Context, finderID string, limit int) ([]model.CoinFind, error)

	// CountFinds returns a finder's lifetime find count.
	CountFinds(ctx context.Context, finderID string) (int64, error)

	// ConfirmFindsByCoin flips pending finds for the given coins to
	// confirmed.
	ConfirmFindsByCoin(ctx context.Context, coinIDs []string) error

	// Atomic runs fn as one transactional read-modify-write unit. The
	// Store passed to fn joins the unit; a returned error aborts with
	// zero partial effect. Nested calls join the enclosing unit.
	Atomic(ctx context.Context, fn func(Store) error) error
}

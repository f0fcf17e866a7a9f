package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// methods serve plain calls and calls inside Atomic.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL as the source of
// truth. All monetary values are stored as NUMERIC for exact decimal
// precision.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

// Atomic runs fn inside one database transaction. A nil pool means the
// receiver is already transactional, so nested calls join the unit.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Coins ---

func (s *PostgresStore) CreateCoin(ctx context.Context, c *model.Coin) error {
	var value *string
	if c.Value != nil {
		v := c.Value.String()
		value = &v
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO coins (id, coin_type, value, contribution, lat, lon, hider_id, status, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5, $6, $7, $8, $9)`,
		c.ID, c.Type, value, c.Contribution.String(),
		c.Lat, c.Lon, c.HiderID, c.Status, c.CreatedAt,
	)
	return err
}

const coinColumns = `id, coin_type, value::TEXT, contribution::TEXT, lat, lon, hider_id, status, created_at`

func scanCoin(row pgx.Row) (*model.Coin, error) {
	var c model.Coin
	var value *string
	var contribution string

	if err := row.Scan(&c.ID, &c.Type, &value, &contribution,
		&c.Lat, &c.Lon, &c.HiderID, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.Contribution, _ = decimal.NewFromString(contribution)
	if value != nil {
		v, _ := decimal.NewFromString(*value)
		c.Value = &v
	}
	return &c, nil
}

func (s *PostgresStore) GetCoin(ctx context.Context, id string) (*model.Coin, error) {
	c, err := scanCoin(s.q.QueryRow(ctx,
		`SELECT `+coinColumns+` FROM coins WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("coin %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get coin %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) CoinsInBounds(ctx context.Context, b grid.Bounds, status string) ([]model.Coin, error) {
	query := `SELECT ` + coinColumns + `
		 FROM coins
		 WHERE lat >= $1 AND lat < $2 AND lon >= $3 AND lon < $4`
	args := []any{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon}
	if status != "" {
		query += ` AND status = $5`
		args = append(args, status)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coins []model.Coin
	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, err
		}
		coins = append(coins, *c)
	}
	return coins, rows.Err()
}

func (s *PostgresStore) CountCoinsInBounds(ctx context.Context, b grid.Bounds, status string) (int, error) {
	query := `SELECT COUNT(*) FROM coins
		 WHERE lat >= $1 AND lat < $2 AND lon >= $3 AND lon < $4`
	args := []any{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon}
	if status != "" {
		query += ` AND status = $5`
		args = append(args, status)
	}

	var n int
	if err := s.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) TransitionCoin(ctx context.Context, id, from, to string) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("illegal coin transition %s→%s", from, to)
	}

	// Compare-and-set: the WHERE clause carries the precondition, so
	// two racing transitions resolve at the database.
	tag, err := s.q.Exec(ctx,
		`UPDATE coins SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM coins WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("coin %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("coin %s not %s: %w", id, from, ErrConflict)
	}
	return nil
}

func (s *PostgresStore) SetCoinValue(ctx context.Context, id string, v decimal.Decimal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE coins SET value = $2::NUMERIC WHERE id = $1`, id, v.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coin %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteCoin(ctx context.Context, id, ifStatus string) error {
	query := `DELETE FROM coins WHERE id = $1`
	args := []any{id}
	if ifStatus != "" {
		query += ` AND status = $2`
		args = append(args, ifStatus)
	}

	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM coins WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("coin %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("coin %s not %s: %w", id, ifStatus, ErrConflict)
	}
	return nil
}

func (s *PostgresStore) DeleteSystemCoinsInBounds(ctx context.Context, b grid.Bounds) (int64, error) {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM coins
		 WHERE hider_id = $1 AND status = $2
		   AND lat >= $3 AND lat < $4 AND lon >= $5 AND lon < $6`,
		model.SystemHiderID, model.CoinStatusVisible,
		b.MinLat, b.MaxLat, b.MinLon, b.MaxLon,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Grids ---

func (s *PostgresStore) TouchGrid(ctx context.Context, g *model.Grid) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO grids (id, center_lat, center_lon, last_activity)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET last_activity = EXCLUDED.last_activity`,
		g.ID, g.CenterLat, g.CenterLon, g.LastActivity,
	)
	return err
}

func (s *PostgresStore) GetGrid(ctx context.Context, id string) (*model.Grid, error) {
	var g model.Grid
	err := s.q.QueryRow(ctx,
		`SELECT id, center_lat, center_lon, last_activity FROM grids WHERE id = $1`, id).
		Scan(&g.ID, &g.CenterLat, &g.CenterLon, &g.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("grid %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get grid %s: %w", id, err)
	}
	return &g, nil
}

func (s *PostgresStore) IdleGrids(ctx context.Context, cutoff time.Time) ([]model.Grid, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, center_lat, center_lon, last_activity
		 FROM grids WHERE last_activity < $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grids []model.Grid
	for rows.Next() {
		var g model.Grid
		if err := rows.Scan(&g.ID, &g.CenterLat, &g.CenterLon, &g.LastActivity); err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
	return grids, rows.Err()
}

// --- Wallets and stats ---

func (s *PostgresStore) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	var total, gas, parked, pending string

	err := s.q.QueryRow(ctx,
		`SELECT user_id, total_balance::TEXT, gas_tank::TEXT, parked::TEXT, pending::TEXT, last_gas_charge
		 FROM wallets WHERE user_id = $1`, userID).
		Scan(&w.UserID, &total, &gas, &parked, &pending, &w.LastGasCharge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("wallet %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get wallet %s: %w", userID, err)
	}

	w.TotalBalance, _ = decimal.NewFromString(total)
	w.GasTank, _ = decimal.NewFromString(gas)
	w.Parked, _ = decimal.NewFromString(parked)
	w.Pending, _ = decimal.NewFromString(pending)
	return &w, nil
}

func (s *PostgresStore) PutWallet(ctx context.Context, w *model.Wallet) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO wallets (user_id, total_balance, gas_tank, parked, pending, last_gas_charge)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		   total_balance = EXCLUDED.total_balance,
		   gas_tank = EXCLUDED.gas_tank,
		   parked = EXCLUDED.parked,
		   pending = EXCLUDED.pending,
		   last_gas_charge = EXCLUDED.last_gas_charge`,
		w.UserID, w.TotalBalance.String(), w.GasTank.String(),
		w.Parked.String(), w.Pending.String(), w.LastGasCharge,
	)
	return err
}

func (s *PostgresStore) WalletsNotChargedSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.q.Query(ctx,
		`SELECT user_id FROM wallets WHERE last_gas_charge < $1 ORDER BY user_id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PostgresStore) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	var st model.UserStats
	var findLimit, foundValue, hiddenValue, highest string

	err := s.q.QueryRow(ctx,
		`SELECT user_id, find_limit::TEXT, total_found_count, total_found_value::TEXT,
		        total_hidden_count, total_hidden_value::TEXT, highest_hidden_value::TEXT
		 FROM user_stats WHERE user_id = $1`, userID).
		Scan(&st.UserID, &findLimit, &st.TotalFoundCount, &foundValue,
			&st.TotalHiddenCount, &hiddenValue, &highest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stats %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get stats %s: %w", userID, err)
	}

	st.FindLimit, _ = decimal.NewFromString(findLimit)
	st.TotalFoundValue, _ = decimal.NewFromString(foundValue)
	st.TotalHiddenValue, _ = decimal.NewFromString(hiddenValue)
	st.HighestHiddenValue, _ = decimal.NewFromString(highest)
	return &st, nil
}

func (s *PostgresStore) PutStats(ctx context.Context, st *model.UserStats) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO user_stats (user_id, find_limit, total_found_count, total_found_value,
		                         total_hidden_count, total_hidden_value, highest_hidden_value)
		 VALUES ($1, $2::NUMERIC, $3, $4::NUMERIC, $5, $6::NUMERIC, $7::NUMERIC)
		 ON CONFLICT (user_id) DO UPDATE SET
		   find_limit = EXCLUDED.find_limit,
		   total_found_count = EXCLUDED.total_found_count,
		   total_found_value = EXCLUDED.total_found_value,
		   total_hidden_count = EXCLUDED.total_hidden_count,
		   total_hidden_value = EXCLUDED.total_hidden_value,
		   highest_hidden_value = EXCLUDED.highest_hidden_value`,
		st.UserID, st.FindLimit.String(), st.TotalFoundCount, st.TotalFoundValue.String(),
		st.TotalHiddenCount, st.TotalHiddenValue.String(), st.HighestHiddenValue.String(),
	)
	return err
}

// --- Immutable ledger ---

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	var coinID *string
	if tx.CoinID != "" {
		coinID = &tx.CoinID
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, tx_type, amount, status, coin_id, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7)`,
		tx.ID, tx.UserID, tx.Type, tx.Amount.String(), tx.Status, coinID, tx.CreatedAt,
	)
	return err
}

const txColumns = `id, user_id, tx_type, amount::TEXT, status, coin_id, created_at`

func scanTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		var amount string
		var coinID *string

		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &amount,
			&tx.Status, &coinID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Amount, _ = decimal.NewFromString(amount)
		if coinID != nil {
			tx.CoinID = *coinID
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.Query(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PostgresStore) PendingTransactionsBefore(ctx context.Context, userID string, cutoff time.Time) ([]model.Transaction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE user_id = $1 AND status = $2 AND created_at < $3
		 ORDER BY created_at`, userID, model.TxStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PostgresStore) UsersWithPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.q.Query(ctx,
		`SELECT DISTINCT user_id FROM transactions
		 WHERE status = $1 AND created_at < $2 ORDER BY user_id`,
		model.TxStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *PostgresStore) ConfirmTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx,
		`UPDATE transactions SET status = $1 WHERE id = ANY($2)`,
		model.TxStatusConfirmed, ids)
	return err
}

// --- Coin finds ---

func (s *PostgresStore) CreateFind(ctx context.Context, f *model.CoinFind) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO coin_finds (id, coin_id, finder_id, value_received, status, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6)`,
		f.ID, f.CoinID, f.FinderID, f.ValueReceived.String(), f.Status, f.CreatedAt,
	)
	return err
}

func (s *PostgresStore) RecentFinds(ctx context.Context, finderID string, limit int) ([]model.CoinFind, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.q.Query(ctx,
		`SELECT id, coin_id, finder_id, value_received::TEXT, status, created_at
		 FROM coin_finds WHERE finder_id = $1
		 ORDER BY created_at DESC LIMIT $2`, finderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var finds []model.CoinFind
	for rows.Next() {
		var f model.CoinFind
		var value string
		if err := rows.Scan(&f.ID, &f.CoinID, &f.FinderID, &value, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.ValueReceived, _ = decimal.NewFromString(value)
		finds = append(finds, f)
	}
	return finds, rows.Err()
}

func (s *PostgresStore) CountFinds(ctx context.Context, finderID string) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM coin_finds WHERE finder_id = $1`, finderID).Scan(&n)
	return n, err
}

func (s *PostgresStore) ConfirmFindsByCoin(ctx context.Context, coinIDs []string) error {
	if len(coinIDs) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx,
		`UPDATE coin_finds SET status = $1 WHERE coin_id = ANY($2) AND status = $3`,
		model.TxStatusConfirmed, coinIDs, model.TxStatusPending)
	return err
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

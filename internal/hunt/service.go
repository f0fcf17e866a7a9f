// Package hunt provides the wallet ledger and the HTTP handlers for
// the coin-hunt engine: hiding, collecting, and retrieving coins, and
// the park/gas/confirmation money movements.
//
// Every ledger operation runs as one store.Atomic unit touching its
// subset of {Coin, Wallet, UserStats, Transaction, CoinFind}; partial
// application is never observable, and after every completed operation
//
//	wallet.TotalBalance = GasTank + Parked + Pending
//
// holds exactly. All monetary values use shopspring/decimal — never
// float64 for money.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/collection"
	"github.com/geohunt/coin-engine/internal/distribution"
	"github.com/geohunt/coin-engine/internal/geo"
	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/metrics"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/geohunt/coin-engine/internal/payout"
	"github.com/geohunt/coin-engine/internal/store"
)

// Defaults.
var (
	// DefaultDailyGasRate is the daily gas charge, also the flat
	// unpark fee.
	DefaultDailyGasRate = decimal.RequireFromString("0.33")

	// DefaultFindLimit is the fixed-coin cap for players who have not
	// hidden anything yet; hiding a bigger coin raises it.
	DefaultFindLimit = decimal.RequireFromString("1.00")
)

const (
	// DefaultConfirmAfter is the dispute window before found funds
	// become spendable.
	DefaultConfirmAfter = 24 * time.Hour

	// DefaultNearbyRadiusMeters bounds the nearby-coin query when the
	// caller does not pass a radius.
	DefaultNearbyRadiusMeters = 250.0

	// MaxNearbyRadiusMeters caps the nearby-coin query radius.
	MaxNearbyRadiusMeters = 2000.0

	recentFindWindow = 10
)

// Config holds the ledger policy.
type Config struct {
	DailyGasRate       decimal.Decimal
	ConfirmAfter       time.Duration
	NearbyRadiusMeters float64
}

func (c Config) withDefaults() Config {
	if c.DailyGasRate.IsZero() {
		c.DailyGasRate = DefaultDailyGasRate
	}
	if c.ConfirmAfter <= 0 {
		c.ConfirmAfter = DefaultConfirmAfter
	}
	if c.NearbyRadiusMeters <= 0 {
		c.NearbyRadiusMeters = DefaultNearbyRadiusMeters
	}
	return c
}

// Service executes the ledger operations. All coordination happens at
// the store layer; the service holds no mutable state of its own.
type Service struct {
	store     store.Store
	dist      *distribution.Engine
	validator *collection.Validator
	resolver  *payout.Resolver
	cfg       Config
	hub       *Hub // optional WebSocket hub for live coin events
}

// NewService creates a new hunt service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, dist *distribution.Engine, validator *collection.Validator, resolver *payout.Resolver, cfg Config, hub *Hub) *Service {
	return &Service{
		store:     st,
		dist:      dist,
		validator: validator,
		resolver:  resolver,
		cfg:       cfg.withDefaults(),
		hub:       hub,
	}
}

// NearbyCoin is a visible coin annotated with its distance and bearing
// from the query point.
type NearbyCoin struct {
	model.Coin
	DistanceMeters float64 `json:"distance_meters"`
	Bearing        float64 `json:"bearing"`
}

// CollectResult is the settlement of a successful collection.
type CollectResult struct {
	CoinID        string          `json:"coin_id"`
	FindID        string          `json:"find_id"`
	ValueReceived decimal.Decimal `json:"value_received"`
}

// GasCharge is the outcome of a daily gas consumption.
type GasCharge struct {
	Charged        decimal.Decimal `json:"charged"`
	AlreadyCharged bool            `json:"already_charged"`
}

// NearbyCoins tops up the query point's grid cell and returns the
// visible coins within radius meters, closest first.
func (s *Service) NearbyCoins(ctx context.Context, userID string, lat, lon, radius float64) ([]NearbyCoin, error) {
	if radius <= 0 {
		radius = s.cfg.NearbyRadiusMeters
	}
	if radius > MaxNearbyRadiusMeters {
		radius = MaxNearbyRadiusMeters
	}

	if _, seeded, err := s.dist.EnsureGridHasCoins(ctx, lat, lon); err != nil {
		return nil, err
	} else if seeded > 0 {
		metrics.CoinsSeeded.Add(float64(seeded))
	}

	// Bounding box first, exact Haversine filter second. Longitude
	// degrees scale by the query point's latitude.
	dLat := geo.MetersToDegreesLat(radius)
	dLon := geo.MetersToDegreesLon(radius, lat)
	box := grid.Bounds{
		MinLat: lat - dLat,
		MinLon: lon - dLon,
		MaxLat: lat + dLat,
		MaxLon: lon + dLon,
	}

	coins, err := s.store.CoinsInBounds(ctx, box, model.CoinStatusVisible)
	if err != nil {
		return nil, fmt.Errorf("nearby coins: %w", err)
	}

	result := make([]NearbyCoin, 0, len(coins))
	for _, c := range coins {
		d := geo.Distance(lat, lon, c.Lat, c.Lon)
		if d > radius {
			continue
		}
		result = append(result, NearbyCoin{
			Coin:           c,
			DistanceMeters: d,
			Bearing:        geo.Bearing(lat, lon, c.Lat, c.Lon),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	return result, nil
}

// Hide creates a coin at the given point, funded from the hider's gas
// tank. Fixed coins carry their value; pool coins stay undetermined
// until collection. Hiding a coin bigger than the player's previous
// best raises their find limit.
func (s *Service) Hide(ctx context.Context, userID, coinType string, value decimal.Decimal, lat, lon float64) (*model.Coin, error) {
	if coinType != model.CoinTypeFixed && coinType != model.CoinTypePool {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCoinType, coinType)
	}
	value = value.Round(2)
	if value.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	coin := &model.Coin{
		ID:           uuid.New().String(),
		Type:         coinType,
		Contribution: value,
		Lat:          lat,
		Lon:          lon,
		HiderID:      userID,
		Status:       model.CoinStatusVisible,
		CreatedAt:    time.Now().UTC(),
	}
	if coinType == model.CoinTypeFixed {
		v := value
		coin.Value = &v
	}

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.GasTank.LessThan(value) {
			return fmt.Errorf("%w: gas tank %s, need %s", ErrInsufficientGas, w.GasTank.StringFixed(2), value.StringFixed(2))
		}

		if err := tx.CreateCoin(ctx, coin); err != nil {
			return err
		}
		if err := touchGrid(ctx, tx, lat, lon); err != nil {
			return err
		}

		w.GasTank = w.GasTank.Sub(value)
		w.TotalBalance = w.TotalBalance.Sub(value)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		st, err := loadStats(ctx, tx, userID)
		if err != nil {
			return err
		}
		st.TotalHiddenCount++
		st.TotalHiddenValue = st.TotalHiddenValue.Add(value)
		// The find limit tracks the all-time maximum hidden
		// contribution, never a wallet balance snapshot.
		if value.GreaterThan(st.HighestHiddenValue) {
			st.HighestHiddenValue = value
		}
		if st.HighestHiddenValue.GreaterThan(st.FindLimit) {
			st.FindLimit = st.HighestHiddenValue
		}
		if err := tx.PutStats(ctx, st); err != nil {
			return err
		}

		return tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeHidden,
			Amount:    value.Neg(),
			Status:    model.TxStatusConfirmed,
			CoinID:    coin.ID,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("coin hidden",
		"coin", coin.ID,
		"hider", userID,
		"type", coinType,
		"contribution", value.String(),
	)
	metrics.CoinsHidden.Inc()

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:   EventCoinPlaced,
			CoinID: coin.ID,
			GridID: grid.ID(lat, lon),
			Lat:    lat,
			Lon:    lon,
		})
	}
	return coin, nil
}

// Collect settles a collection attempt: validation, value resolution,
// the visible→collected status flip, and the wallet/stats/ledger
// updates, all in one atomic unit. Two concurrent collects on the same
// coin race safely: exactly one commits, the loser gets
// store.ErrConflict with no payout.
func (s *Service) Collect(ctx context.Context, userID, coinID string, lat, lon float64) (*CollectResult, error) {
	var result *CollectResult
	var gridID string

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		coin, err := tx.GetCoin(ctx, coinID)
		if err != nil {
			return err
		}
		gridID = grid.ID(coin.Lat, coin.Lon)

		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		st, err := loadStats(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := s.validator.CanCollect(coin, w, st, lat, lon); err != nil {
			return err
		}

		var value decimal.Decimal
		if coin.Type == model.CoinTypeFixed && coin.Value != nil {
			value = *coin.Value
		} else {
			history, err := s.finderHistory(ctx, tx, userID)
			if err != nil {
				return err
			}
			value = s.resolver.Resolve(coin.Contribution, history)
		}

		// The status flip is the race decider: the precondition and
		// the write are one compare-and-set.
		if err := tx.TransitionCoin(ctx, coinID, model.CoinStatusVisible, model.CoinStatusCollected); err != nil {
			return err
		}
		if coin.Type == model.CoinTypePool {
			if err := tx.SetCoinValue(ctx, coinID, value); err != nil {
				return err
			}
		}

		find := &model.CoinFind{
			ID:            uuid.New().String(),
			CoinID:        coinID,
			FinderID:      userID,
			ValueReceived: value,
			Status:        model.TxStatusPending,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.CreateFind(ctx, find); err != nil {
			return err
		}

		w.Pending = w.Pending.Add(value)
		w.TotalBalance = w.TotalBalance.Add(value)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		st.TotalFoundCount++
		st.TotalFoundValue = st.TotalFoundValue.Add(value)
		if err := tx.PutStats(ctx, st); err != nil {
			return err
		}

		if err := tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeFound,
			Amount:    value,
			Status:    model.TxStatusPending,
			CoinID:    coinID,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		result = &CollectResult{CoinID: coinID, FindID: find.ID, ValueReceived: value}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			metrics.CollectsTotal.WithLabelValues("conflict").Inc()
		case isValidation(err):
			metrics.CollectsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	slog.Info("coin collected",
		"coin", coinID,
		"finder", userID,
		"value", result.ValueReceived.String(),
	)
	metrics.CollectsTotal.WithLabelValues("ok").Inc()
	metrics.PayoutAmount.Observe(result.ValueReceived.InexactFloat64())

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:   EventCoinCollected,
			CoinID: coinID,
			GridID: gridID,
			Value:  result.ValueReceived.String(),
		})
	}
	return result, nil
}

// PreviewPoolValue estimates a pool coin's payout for a collector. It
// calls the same resolver as settlement — there is exactly one
// implementation of the formula.
func (s *Service) PreviewPoolValue(ctx context.Context, userID, coinID string) (decimal.Decimal, error) {
	coin, err := s.store.GetCoin(ctx, coinID)
	if err != nil {
		return decimal.Zero, err
	}
	if coin.Type != model.CoinTypePool {
		return decimal.Zero, ErrNotPoolCoin
	}
	history, err := s.finderHistory(ctx, s.store, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.resolver.Resolve(coin.Contribution, history), nil
}

// Retrieve lets a hider take back their own still-visible coin for a
// full refund of the contribution. The coin is destroyed.
func (s *Service) Retrieve(ctx context.Context, userID, coinID string) (decimal.Decimal, error) {
	var refunded decimal.Decimal
	var gridID string

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		coin, err := tx.GetCoin(ctx, coinID)
		if err != nil {
			return err
		}
		if coin.HiderID != userID {
			return ErrNotHider
		}
		gridID = grid.ID(coin.Lat, coin.Lon)

		if err := tx.DeleteCoin(ctx, coinID, model.CoinStatusVisible); err != nil {
			return err
		}

		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		w.GasTank = w.GasTank.Add(coin.Contribution)
		w.TotalBalance = w.TotalBalance.Add(coin.Contribution)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		refunded = coin.Contribution
		return tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeRefund,
			Amount:    coin.Contribution,
			Status:    model.TxStatusConfirmed,
			CoinID:    coinID,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	slog.Info("coin retrieved", "coin", coinID, "hider", userID, "refunded", refunded.String())

	if s.hub != nil {
		s.hub.Broadcast(Event{Type: EventCoinRetrieved, CoinID: coinID, GridID: gridID})
	}
	return refunded, nil
}

// Park moves funds from the gas tank into the parked bucket, shielding
// them from daily gas consumption. Total balance is unchanged.
func (s *Service) Park(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount = amount.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return s.store.Atomic(ctx, func(tx store.Store) error {
		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(w.GasTank) {
			return fmt.Errorf("%w: gas tank %s, need %s", ErrInsufficientGas, w.GasTank.StringFixed(2), amount.StringFixed(2))
		}

		w.GasTank = w.GasTank.Sub(amount)
		w.Parked = w.Parked.Add(amount)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		return tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeParked,
			Amount:    amount.Neg(),
			Status:    model.TxStatusConfirmed,
			CreatedAt: time.Now().UTC(),
		})
	})
}

// Unpark moves funds back into the gas tank minus a flat fee of one
// day's gas rate. The fee never exceeds the amount moved, so the
// balance invariant holds even for sub-fee unparks.
func (s *Service) Unpark(ctx context.Context, userID string, amount decimal.Decimal) (net, fee decimal.Decimal, err error) {
	amount = amount.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, ErrInvalidAmount
	}

	err = s.store.Atomic(ctx, func(tx store.Store) error {
		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(w.Parked) {
			return fmt.Errorf("%w: parked %s, need %s", ErrInsufficientParked, w.Parked.StringFixed(2), amount.StringFixed(2))
		}

		fee = decimal.Min(s.cfg.DailyGasRate, amount)
		net = amount.Sub(fee)

		w.Parked = w.Parked.Sub(amount)
		w.GasTank = w.GasTank.Add(net)
		w.TotalBalance = w.TotalBalance.Sub(fee)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		if err := tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeUnparked,
			Amount:    amount,
			Status:    model.TxStatusConfirmed,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeGasConsumed,
			Amount:    fee.Neg(),
			Status:    model.TxStatusConfirmed,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return net, fee, nil
}

// ConsumeDailyGas charges one day's gas, capped at whatever is left in
// the tank. Idempotent per UTC calendar day: a second call the same
// day reports AlreadyCharged without touching the wallet.
func (s *Service) ConsumeDailyGas(ctx context.Context, userID string) (*GasCharge, error) {
	var charge GasCharge

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		startOfDay := now.Truncate(24 * time.Hour)
		if !w.LastGasCharge.Before(startOfDay) {
			charge = GasCharge{Charged: decimal.Zero, AlreadyCharged: true}
			return nil
		}

		amount := decimal.Min(s.cfg.DailyGasRate, w.GasTank)
		w.GasTank = w.GasTank.Sub(amount)
		w.TotalBalance = w.TotalBalance.Sub(amount)
		w.LastGasCharge = now
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		charge = GasCharge{Charged: amount}
		return tx.AppendTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      model.TxTypeGasConsumed,
			Amount:    amount.Neg(),
			Status:    model.TxStatusConfirmed,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	if !charge.AlreadyCharged {
		metrics.GasCharged.Add(charge.Charged.InexactFloat64())
	}
	return &charge, nil
}

// ConsumeDailyGasSweep charges every wallet not yet charged today.
// Invoked by the scheduler; idempotence rests on the per-wallet charge
// guard, not on external locking.
func (s *Service) ConsumeDailyGasSweep(ctx context.Context) (int, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	users, err := s.store.WalletsNotChargedSince(ctx, startOfDay)
	if err != nil {
		return 0, err
	}

	charged := 0
	for _, userID := range users {
		c, err := s.ConsumeDailyGas(ctx, userID)
		if err != nil {
			slog.Error("daily gas charge failed", "user", userID, "err", err)
			continue
		}
		if !c.AlreadyCharged {
			charged++
		}
	}
	return charged, nil
}

// ConfirmPending moves a user's matured pending credits into the gas
// tank and flips the underlying transactions and coin finds to
// confirmed. Returns the confirmed sum.
func (s *Service) ConfirmPending(ctx context.Context, userID string) (decimal.Decimal, error) {
	confirmed := decimal.Zero

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		cutoff := time.Now().UTC().Add(-s.cfg.ConfirmAfter)
		pending, err := tx.PendingTransactionsBefore(ctx, userID, cutoff)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		sum := decimal.Zero
		ids := make([]string, 0, len(pending))
		var coinIDs []string
		for _, p := range pending {
			ids = append(ids, p.ID)
			if p.Amount.IsPositive() {
				sum = sum.Add(p.Amount)
			}
			if p.CoinID != "" {
				coinIDs = append(coinIDs, p.CoinID)
			}
		}

		w, err := loadWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		w.Pending = w.Pending.Sub(sum)
		w.GasTank = w.GasTank.Add(sum)
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}

		if err := tx.ConfirmTransactions(ctx, ids); err != nil {
			return err
		}
		if err := tx.ConfirmFindsByCoin(ctx, coinIDs); err != nil {
			return err
		}

		confirmed = sum
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if confirmed.IsPositive() {
		slog.Info("pending confirmed", "user", userID, "amount", confirmed.String())
	}
	return confirmed, nil
}

// ConfirmPendingSweep confirms matured pending credits for every user
// holding any. Invoked by the scheduler.
func (s *Service) ConfirmPendingSweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.ConfirmAfter)
	users, err := s.store.UsersWithPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, userID := range users {
		if _, err := s.ConfirmPending(ctx, userID); err != nil {
			slog.Error("pending confirmation failed", "user", userID, "err", err)
		}
	}
	return len(users), nil
}

// Wallet returns a user's wallet, zero-valued if they have none yet.
func (s *Service) Wallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return loadWallet(ctx, s.store, userID)
}

// Stats returns a user's stats, zero-valued if they have none yet.
func (s *Service) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	return loadStats(ctx, s.store, userID)
}

// History returns a user's most recent ledger rows.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID, limit)
}

// finderHistory assembles the resolver input from the find records.
func (s *Service) finderHistory(ctx context.Context, st store.Store, userID string) (payout.FinderHistory, error) {
	lifetime, err := st.CountFinds(ctx, userID)
	if err != nil {
		return payout.FinderHistory{}, err
	}
	recent, err := st.RecentFinds(ctx, userID, recentFindWindow)
	if err != nil {
		return payout.FinderHistory{}, err
	}

	values := make([]decimal.Decimal, 0, len(recent))
	for _, f := range recent {
		values = append(values, f.ValueReceived)
	}
	return payout.FinderHistory{LifetimeFinds: lifetime, RecentValues: values}, nil
}

// loadWallet returns the user's wallet or a fresh zero wallet. The
// authentication layer vouches for the user id; wallets materialize on
// first touch.
func loadWallet(ctx context.Context, st store.Store, userID string) (*model.Wallet, error) {
	w, err := st.GetWallet(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &model.Wallet{
		UserID:       userID,
		TotalBalance: decimal.Zero,
		GasTank:      decimal.Zero,
		Parked:       decimal.Zero,
		Pending:      decimal.Zero,
	}, nil
}

// loadStats returns the user's stats or a fresh zero record with the
// starting find limit.
func loadStats(ctx context.Context, st store.Store, userID string) (*model.UserStats, error) {
	s, err := st.GetStats(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &model.UserStats{
		UserID:             userID,
		FindLimit:          DefaultFindLimit,
		TotalFoundValue:    decimal.Zero,
		TotalHiddenValue:   decimal.Zero,
		HighestHiddenValue: decimal.Zero,
	}, nil
}

// touchGrid stamps activity on the cell containing a point.
func touchGrid(ctx context.Context, st store.Store, lat, lon float64) error {
	id := grid.ID(lat, lon)
	centerLat, centerLon, err := grid.Center(id)
	if err != nil {
		return err
	}
	return st.TouchGrid(ctx, &model.Grid{
		ID:           id,
		CenterLat:    centerLat,
		CenterLon:    centerLon,
		LastActivity: time.Now().UTC(),
	})
}

// isValidation reports whether an error is an expected ledger or
// collection rejection rather than a store failure.
func isValidation(err error) bool {
	var ve *collection.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidCoinType) ||
		errors.Is(err, ErrInsufficientGas) ||
		errors.Is(err, ErrInsufficientParked) ||
		errors.Is(err, ErrNotHider) ||
		errors.Is(err, ErrNotPoolCoin)
}

// Package distribution keeps active grid cells stocked with coins. It
// seeds system pool coins up to a minimum visible density per cell and
// recycles unclaimed system coins out of cells that have gone idle,
// bounding inventory in abandoned areas. Player-hidden coins are never
// recycled.
package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/geohunt/coin-engine/internal/store"
)

// Defaults.
var (
	DefaultMinContribution = decimal.RequireFromString("0.10")
	DefaultMaxContribution = decimal.RequireFromString("5.00")
)

const (
	DefaultMinCoinsPerGrid = 5
	DefaultRecycleAfter    = 24 * time.Hour
)

// Rand is the randomness source for coin placement and contribution.
// Tests substitute a fixed sequence.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// Config holds the distribution policy.
type Config struct {
	// MinCoinsPerGrid is the visible-coin floor per active cell.
	MinCoinsPerGrid int

	// MinContribution and MaxContribution bound the random
	// contribution of seeded coins.
	MinContribution decimal.Decimal
	MaxContribution decimal.Decimal

	// RecycleAfter is the inactivity window after which a grid's
	// system coins are reclaimed.
	RecycleAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinCoinsPerGrid <= 0 {
		c.MinCoinsPerGrid = DefaultMinCoinsPerGrid
	}
	if c.MinContribution.IsZero() {
		c.MinContribution = DefaultMinContribution
	}
	if c.MaxContribution.IsZero() {
		c.MaxContribution = DefaultMaxContribution
	}
	if c.RecycleAfter <= 0 {
		c.RecycleAfter = DefaultRecycleAfter
	}
	return c
}

// Engine seeds and recycles system coins.
type Engine struct {
	store store.Store
	cfg   Config
	rng   Rand
}

// NewEngine creates a distribution engine. A nil rng selects the
// system random source.
func NewEngine(st store.Store, cfg Config, rng Rand) *Engine {
	if rng == nil {
		rng = systemRand{}
	}
	return &Engine{store: st, cfg: cfg.withDefaults(), rng: rng}
}

// EnsureGridHasCoins touches the grid for a coordinate pair and tops
// its visible-coin count up to the configured minimum, seeding one
// system coin at a time. Returns the grid and the number of coins
// seeded. Concurrent callers may transiently overshoot the minimum;
// counts never go negative.
func (e *Engine) EnsureGridHasCoins(ctx context.Context, lat, lon float64) (*model.Grid, int, error) {
	id := grid.ID(lat, lon)
	centerLat, centerLon, err := grid.Center(id)
	if err != nil {
		return nil, 0, err
	}

	g := &model.Grid{
		ID:           id,
		CenterLat:    centerLat,
		CenterLon:    centerLon,
		LastActivity: time.Now().UTC(),
	}
	if err := e.store.TouchGrid(ctx, g); err != nil {
		return nil, 0, fmt.Errorf("touch grid %s: %w", id, err)
	}

	count, err := e.store.CountCoinsInBounds(ctx, grid.CellBounds(lat, lon), model.CoinStatusVisible)
	if err != nil {
		return nil, 0, fmt.Errorf("count coins in %s: %w", id, err)
	}

	seeded := 0
	for count+seeded < e.cfg.MinCoinsPerGrid {
		if _, err := e.PlaceSystemCoin(ctx, id); err != nil {
			return g, seeded, err
		}
		seeded++
	}

	if seeded > 0 {
		slog.Info("grid topped up", "grid", id, "had", count, "seeded", seeded)
	}
	return g, seeded, nil
}

// PlaceSystemCoin creates one visible system pool coin at a uniformly
// random point inside the cell, with a random contribution in the
// configured range, rounded to cents. The coin's value stays
// undetermined until collection.
func (e *Engine) PlaceSystemCoin(ctx context.Context, gridID string) (*model.Coin, error) {
	b, err := grid.BoundsOf(gridID)
	if err != nil {
		return nil, err
	}

	lat := b.MinLat + e.rng.Float64()*(b.MaxLat-b.MinLat)
	lon := b.MinLon + e.rng.Float64()*(b.MaxLon-b.MinLon)

	coin := &model.Coin{
		ID:           uuid.New().String(),
		Type:         model.CoinTypePool,
		Contribution: e.randomContribution(),
		Lat:          lat,
		Lon:          lon,
		HiderID:      model.SystemHiderID,
		Status:       model.CoinStatusVisible,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.store.CreateCoin(ctx, coin); err != nil {
		return nil, fmt.Errorf("place system coin in %s: %w", gridID, err)
	}
	return coin, nil
}

// RecycleStaleCoins removes visible system coins from every grid whose
// last activity is older than the recycle window, and reports how many
// coins were reclaimed. Idempotent: a second sweep finds nothing left
// to remove.
func (e *Engine) RecycleStaleCoins(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-e.cfg.RecycleAfter)
	grids, err := e.store.IdleGrids(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list idle grids: %w", err)
	}

	var total int64
	for _, g := range grids {
		b, err := grid.BoundsOf(g.ID)
		if err != nil {
			slog.Warn("skipping grid with bad id", "grid", g.ID, "err", err)
			continue
		}
		n, err := e.store.DeleteSystemCoinsInBounds(ctx, b)
		if err != nil {
			return total, fmt.Errorf("recycle grid %s: %w", g.ID, err)
		}
		if n > 0 {
			slog.Info("recycled stale coins", "grid", g.ID, "coins", n)
		}
		total += n
	}
	return total, nil
}

// randomContribution picks a uniform cent amount in
// [MinContribution, MaxContribution].
func (e *Engine) randomContribution() decimal.Decimal {
	minCents := e.cfg.MinContribution.Mul(decimal.NewFromInt(100)).IntPart()
	maxCents := e.cfg.MaxContribution.Mul(decimal.NewFromInt(100)).IntPart()
	cents := minCents + int64(e.rng.Float64()*float64(maxCents-minCents+1))
	if cents > maxCents {
		cents = maxCents
	}
	return decimal.New(cents, -2)
}

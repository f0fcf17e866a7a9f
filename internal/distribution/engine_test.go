package distribution_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/distribution"
	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/geohunt/coin-engine/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine(ms *store.MemoryStore, minCoins int) *distribution.Engine {
	return distribution.NewEngine(ms, distribution.Config{
		MinCoinsPerGrid: minCoins,
		MinContribution: d("0.10"),
		MaxContribution: d("5.00"),
		RecycleAfter:    24 * time.Hour,
	}, nil)
}

func TestEnsureGridHasCoins_SeedsEmptyGrid(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 5)
	ctx := context.Background()

	g, seeded, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if seeded != 5 {
		t.Errorf("expected 5 seeded coins, got %d", seeded)
	}

	count, _ := ms.CountCoinsInBounds(ctx, grid.CellBounds(37.7749, -122.4194), model.CoinStatusVisible)
	if count != 5 {
		t.Errorf("expected 5 visible coins in cell, got %d", count)
	}

	// The grid record exists with fresh activity.
	stored, err := ms.GetGrid(ctx, g.ID)
	if err != nil {
		t.Fatalf("grid not stored: %v", err)
	}
	if time.Since(stored.LastActivity) > time.Minute {
		t.Errorf("last activity not refreshed: %v", stored.LastActivity)
	}
}

func TestEnsureGridHasCoins_TopsUpPartialGrid(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 5)
	ctx := context.Background()

	// Pre-place 3 coins, one of them player-hidden.
	id := grid.ID(37.7749, -122.4194)
	for i := 0; i < 2; i++ {
		if _, err := e.PlaceSystemCoin(ctx, id); err != nil {
			t.Fatalf("place failed: %v", err)
		}
	}
	ms.CreateCoin(ctx, &model.Coin{
		ID: "player-coin", Type: model.CoinTypeFixed, Contribution: d("1.00"),
		Lat: 37.776, Lon: -122.418, HiderID: "alice", Status: model.CoinStatusVisible,
	})

	_, seeded, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if seeded != 2 {
		t.Errorf("expected top-up of 2, got %d", seeded)
	}
}

func TestEnsureGridHasCoins_FullGridSeedsNothing(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 3)
	ctx := context.Background()

	if _, _, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194); err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	_, seeded, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if seeded != 0 {
		t.Errorf("full grid should not seed, got %d", seeded)
	}
}

func TestPlaceSystemCoin_InsideCell(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 5)
	ctx := context.Background()

	id := grid.ID(-33.8688, 151.2093)
	b, _ := grid.BoundsOf(id)

	for i := 0; i < 20; i++ {
		coin, err := e.PlaceSystemCoin(ctx, id)
		if err != nil {
			t.Fatalf("place failed: %v", err)
		}
		if !b.Contains(coin.Lat, coin.Lon) {
			t.Errorf("coin at (%f,%f) outside cell %+v", coin.Lat, coin.Lon, b)
		}
		if coin.HiderID != model.SystemHiderID {
			t.Errorf("expected system hider, got %s", coin.HiderID)
		}
		if coin.Type != model.CoinTypePool {
			t.Errorf("system coins must be pool type, got %s", coin.Type)
		}
		if coin.Value != nil {
			t.Error("system coin value must stay unresolved")
		}
		if coin.Contribution.LessThan(d("0.10")) || coin.Contribution.GreaterThan(d("5.00")) {
			t.Errorf("contribution %s outside configured range", coin.Contribution)
		}
		if coin.Contribution.Exponent() < -2 {
			t.Errorf("contribution %s not whole cents", coin.Contribution)
		}
	}
}

func TestPlaceSystemCoin_BadGridID(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 5)

	if _, err := e.PlaceSystemCoin(context.Background(), "bogus"); err == nil {
		t.Error("expected error for invalid grid id")
	}
}

func TestRecycleStaleCoins(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 3)
	ctx := context.Background()

	// Seed a grid, then age it past the recycle window.
	g, _, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	ms.CreateCoin(ctx, &model.Coin{
		ID: "player-coin", Type: model.CoinTypeFixed, Contribution: d("1.00"),
		Lat: 37.776, Lon: -122.418, HiderID: "alice", Status: model.CoinStatusVisible,
	})
	ms.TouchGrid(ctx, &model.Grid{
		ID: g.ID, CenterLat: g.CenterLat, CenterLon: g.CenterLon,
		LastActivity: time.Now().UTC().Add(-25 * time.Hour),
	})

	n, err := e.RecycleStaleCoins(ctx)
	if err != nil {
		t.Fatalf("recycle failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 recycled coins, got %d", n)
	}

	// Player coin survives.
	if _, err := ms.GetCoin(ctx, "player-coin"); err != nil {
		t.Errorf("player coin should survive recycling: %v", err)
	}

	// Second sweep is a no-op.
	n, err = e.RecycleStaleCoins(ctx)
	if err != nil {
		t.Fatalf("second recycle failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep should reclaim nothing, got %d", n)
	}
}

func TestRecycleStaleCoins_ActiveGridUntouched(t *testing.T) {
	ms := store.NewMemoryStore()
	e := newEngine(ms, 3)
	ctx := context.Background()

	if _, _, err := e.EnsureGridHasCoins(ctx, 37.7749, -122.4194); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	n, err := e.RecycleStaleCoins(ctx)
	if err != nil {
		t.Fatalf("recycle failed: %v", err)
	}
	if n != 0 {
		t.Errorf("active grid should not be recycled, got %d coins reclaimed", n)
	}
}

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/grid"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/geohunt/coin-engine/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedCoin(t *testing.T, ms *store.MemoryStore, id, status string) {
	t.Helper()
	err := ms.CreateCoin(context.Background(), &model.Coin{
		ID: id, Type: model.CoinTypePool, Contribution: d("1.00"),
		Lat: 37.76, Lon: -122.43, HiderID: model.SystemHiderID, Status: status,
	})
	if err != nil {
		t.Fatalf("failed to seed coin: %v", err)
	}
}

func TestTransitionCoin_CAS(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedCoin(t, ms, "c1", model.CoinStatusVisible)

	if err := ms.TransitionCoin(ctx, "c1", model.CoinStatusVisible, model.CoinStatusCollected); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	// Second transition loses: the precondition no longer holds.
	err := ms.TransitionCoin(ctx, "c1", model.CoinStatusVisible, model.CoinStatusCollected)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	err = ms.TransitionCoin(ctx, "ghost", model.CoinStatusVisible, model.CoinStatusCollected)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionCoin_IllegalTransition(t *testing.T) {
	ms := store.NewMemoryStore()
	seedCoin(t, ms, "c1", model.CoinStatusVisible)

	// collected is terminal.
	err := ms.TransitionCoin(context.Background(), "c1", model.CoinStatusCollected, model.CoinStatusVisible)
	if err == nil {
		t.Error("expected error for illegal transition")
	}
}

func TestDeleteCoin_StatusGuard(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedCoin(t, ms, "c1", model.CoinStatusCollected)

	err := ms.DeleteCoin(ctx, "c1", model.CoinStatusVisible)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict for guarded delete, got %v", err)
	}

	// Coin untouched.
	if _, err := ms.GetCoin(ctx, "c1"); err != nil {
		t.Errorf("coin should survive a failed delete: %v", err)
	}
}

func TestAtomic_RollbackOnError(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	ms.PutWallet(ctx, &model.Wallet{
		UserID: "alice", TotalBalance: d("10.00"), GasTank: d("10.00"),
	})

	boom := errors.New("boom")
	err := ms.Atomic(ctx, func(tx store.Store) error {
		w, _ := tx.GetWallet(ctx, "alice")
		w.GasTank = d("1.00")
		w.TotalBalance = d("1.00")
		if err := tx.PutWallet(ctx, w); err != nil {
			return err
		}
		if err := tx.CreateCoin(ctx, &model.Coin{
			ID: "inside", Type: model.CoinTypePool, Contribution: d("1.00"),
			Lat: 37.76, Lon: -122.43, HiderID: "alice", Status: model.CoinStatusVisible,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	// Everything written inside the unit is rolled back.
	w, _ := ms.GetWallet(ctx, "alice")
	if !w.GasTank.Equal(d("10.00")) {
		t.Errorf("wallet write should be rolled back, gas=%s", w.GasTank)
	}
	if _, err := ms.GetCoin(ctx, "inside"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("coin write should be rolled back, got %v", err)
	}
}

func TestAtomic_CommitOnSuccess(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	err := ms.Atomic(ctx, func(tx store.Store) error {
		return tx.PutWallet(ctx, &model.Wallet{UserID: "alice", TotalBalance: d("5.00"), GasTank: d("5.00")})
	})
	if err != nil {
		t.Fatalf("atomic failed: %v", err)
	}

	w, err := ms.GetWallet(ctx, "alice")
	if err != nil {
		t.Fatalf("wallet missing after commit: %v", err)
	}
	if !w.GasTank.Equal(d("5.00")) {
		t.Errorf("expected gas 5.00, got %s", w.GasTank)
	}
}

func TestAtomic_NestedJoins(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := ms.Atomic(ctx, func(tx store.Store) error {
		if err := tx.PutWallet(ctx, &model.Wallet{UserID: "a", TotalBalance: d("1.00"), GasTank: d("1.00")}); err != nil {
			return err
		}
		// The inner unit joins the outer one; its writes share the
		// outer fate.
		if err := tx.Atomic(ctx, func(inner store.Store) error {
			return inner.PutWallet(ctx, &model.Wallet{UserID: "b", TotalBalance: d("2.00"), GasTank: d("2.00")})
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := ms.GetWallet(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Error("outer write should be rolled back")
	}
	if _, err := ms.GetWallet(ctx, "b"); !errors.Is(err, store.ErrNotFound) {
		t.Error("inner write should be rolled back with the outer unit")
	}
}

func TestCoinsInBounds_FiltersStatusAndBox(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedCoin(t, ms, "visible-in", model.CoinStatusVisible)
	seedCoin(t, ms, "collected-in", model.CoinStatusCollected)
	ms.CreateCoin(ctx, &model.Coin{
		ID: "visible-out", Type: model.CoinTypePool, Contribution: d("1.00"),
		Lat: 40.0, Lon: -100.0, HiderID: model.SystemHiderID, Status: model.CoinStatusVisible,
	})

	b := grid.CellBounds(37.76, -122.43)
	coins, err := ms.CoinsInBounds(ctx, b, model.CoinStatusVisible)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(coins) != 1 || coins[0].ID != "visible-in" {
		t.Errorf("expected only visible-in, got %+v", coins)
	}
}

func TestDeleteSystemCoinsInBounds_SparesPlayers(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedCoin(t, ms, "sys1", model.CoinStatusVisible)
	seedCoin(t, ms, "sys-collected", model.CoinStatusCollected)
	ms.CreateCoin(ctx, &model.Coin{
		ID: "player", Type: model.CoinTypeFixed, Contribution: d("1.00"),
		Lat: 37.76, Lon: -122.43, HiderID: "alice", Status: model.CoinStatusVisible,
	})

	n, err := ms.DeleteSystemCoinsInBounds(ctx, grid.CellBounds(37.76, -122.43))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	// Player coin and collected system coin both survive.
	if _, err := ms.GetCoin(ctx, "player"); err != nil {
		t.Errorf("player coin deleted: %v", err)
	}
	if _, err := ms.GetCoin(ctx, "sys-collected"); err != nil {
		t.Errorf("collected coin should stay for the audit trail: %v", err)
	}
}

func TestTransactionsByUser_NewestFirstWithLimit(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ms.AppendTransaction(ctx, &model.Transaction{
			ID: string(rune('a' + i)), UserID: "alice", Type: model.TxTypeGasConsumed,
			Amount: d("-0.33"), Status: model.TxStatusConfirmed,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	txs, err := ms.TransactionsByUser(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(txs))
	}
	if txs[0].ID != "e" || txs[2].ID != "c" {
		t.Errorf("expected newest first (e,d,c), got %s,%s,%s", txs[0].ID, txs[1].ID, txs[2].ID)
	}
}

func TestWalletsNotChargedSince(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	ms.PutWallet(ctx, &model.Wallet{UserID: "stale", LastGasCharge: now.Add(-48 * time.Hour)})
	ms.PutWallet(ctx, &model.Wallet{UserID: "fresh", LastGasCharge: now})

	users, err := ms.WalletsNotChargedSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(users) != 1 || users[0] != "stale" {
		t.Errorf("expected [stale], got %v", users)
	}
}

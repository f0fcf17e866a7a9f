package collection_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/collection"
	"github.com/geohunt/coin-engine/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const (
	coinLat = 37.7749
	coinLon = -122.4194
)

func visibleCoin(coinType string, value string) *model.Coin {
	c := &model.Coin{
		ID:           "coin1",
		Type:         coinType,
		Contribution: d(value),
		Lat:          coinLat,
		Lon:          coinLon,
		HiderID:      "hider",
		Status:       model.CoinStatusVisible,
	}
	if coinType == model.CoinTypeFixed {
		v := d(value)
		c.Value = &v
	}
	return c
}

func fundedWallet() *model.Wallet {
	return &model.Wallet{
		UserID:       "finder",
		TotalBalance: d("10.00"),
		GasTank:      d("10.00"),
	}
}

func defaultStats() *model.UserStats {
	return &model.UserStats{UserID: "finder", FindLimit: d("1.00")}
}

func assertReason(t *testing.T, err error, want string) {
	t.Helper()
	var ve *collection.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Reason, want) {
		t.Errorf("expected reason containing %q, got %q", want, ve.Reason)
	}
}

func TestCanCollect_Valid(t *testing.T) {
	v := collection.NewValidator(0)
	err := v.CanCollect(visibleCoin(model.CoinTypeFixed, "0.50"), fundedWallet(), defaultStats(), coinLat, coinLon)
	if err != nil {
		t.Errorf("expected valid collection, got %v", err)
	}
}

func TestCanCollect_NilCoin(t *testing.T) {
	v := collection.NewValidator(0)
	assertReason(t, v.CanCollect(nil, fundedWallet(), defaultStats(), coinLat, coinLon), "not found")
}

func TestCanCollect_AlreadyCollected(t *testing.T) {
	v := collection.NewValidator(0)
	coin := visibleCoin(model.CoinTypePool, "1.00")
	coin.Status = model.CoinStatusCollected
	assertReason(t, v.CanCollect(coin, fundedWallet(), defaultStats(), coinLat, coinLon), "already collected")
}

func TestCanCollect_DeletedReportsNotFound(t *testing.T) {
	// Deleted coins are indistinguishable from never-existing ones so
	// clients cannot probe retrieved coins.
	v := collection.NewValidator(0)
	coin := visibleCoin(model.CoinTypePool, "1.00")
	coin.Status = model.CoinStatusDeleted
	assertReason(t, v.CanCollect(coin, fundedWallet(), defaultStats(), coinLat, coinLon), "not found")
}

func TestCanCollect_OutOfRange(t *testing.T) {
	v := collection.NewValidator(10)
	// ~111m north of the coin.
	err := v.CanCollect(visibleCoin(model.CoinTypePool, "1.00"), fundedWallet(), defaultStats(), coinLat+0.001, coinLon)
	assertReason(t, err, "collection range")

	var ve *collection.ValidationError
	errors.As(err, &ve)
	if !ve.HasDistance || ve.Distance < 100 || ve.Distance > 125 {
		t.Errorf("expected measured distance ~111m, got %+v", ve)
	}
}

func TestCanCollect_JustInsideRange(t *testing.T) {
	v := collection.NewValidator(10)
	// ~5.5m away.
	err := v.CanCollect(visibleCoin(model.CoinTypePool, "1.00"), fundedWallet(), defaultStats(), coinLat+0.00005, coinLon)
	if err != nil {
		t.Errorf("5m should be inside a 10m range, got %v", err)
	}
}

func TestCanCollect_FixedCoinAboveFindLimit(t *testing.T) {
	v := collection.NewValidator(0)
	err := v.CanCollect(visibleCoin(model.CoinTypeFixed, "2.50"), fundedWallet(), defaultStats(), coinLat, coinLon)
	assertReason(t, err, "find limit")
}

func TestCanCollect_FixedCoinAtFindLimit(t *testing.T) {
	v := collection.NewValidator(0)
	err := v.CanCollect(visibleCoin(model.CoinTypeFixed, "1.00"), fundedWallet(), defaultStats(), coinLat, coinLon)
	if err != nil {
		t.Errorf("value equal to the limit should pass, got %v", err)
	}
}

func TestCanCollect_PoolCoinSkipsFindLimit(t *testing.T) {
	// Pool value is undetermined at validation time, so the limit does
	// not apply regardless of contribution size.
	v := collection.NewValidator(0)
	err := v.CanCollect(visibleCoin(model.CoinTypePool, "5.00"), fundedWallet(), defaultStats(), coinLat, coinLon)
	if err != nil {
		t.Errorf("pool coin should skip find limit, got %v", err)
	}
}

func TestCanCollect_EmptyGasTank(t *testing.T) {
	v := collection.NewValidator(0)
	w := fundedWallet()
	w.GasTank = decimal.Zero
	assertReason(t, v.CanCollect(visibleCoin(model.CoinTypePool, "1.00"), w, defaultStats(), coinLat, coinLon), "gas tank")
}

func TestCanCollect_CheckOrder(t *testing.T) {
	// A coin that is both collected and far away reports the status
	// failure: checks run in a fixed order.
	v := collection.NewValidator(10)
	coin := visibleCoin(model.CoinTypePool, "1.00")
	coin.Status = model.CoinStatusCollected
	assertReason(t, v.CanCollect(coin, fundedWallet(), defaultStats(), coinLat+1, coinLon), "already collected")
}

// Package model defines the core domain types shared across the coin engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemHiderID is the sentinel hider for coins seeded by the
// distribution engine rather than hidden by a player.
const SystemHiderID = "system"

// Coin types.
const (
	CoinTypeFixed = "fixed" // payout is the stored value
	CoinTypePool  = "pool"  // payout resolved at collection time
)

// Coin lifecycle states. A coin starts visible and terminates in
// exactly one of collected (successful find) or deleted (hider
// retrieval). There are no other transitions.
const (
	CoinStatusVisible   = "visible"
	CoinStatusCollected = "collected"
	CoinStatusDeleted   = "deleted"
)

// CanTransition reports whether a coin status change is legal.
func CanTransition(from, to string) bool {
	if from != CoinStatusVisible {
		return false
	}
	return to == CoinStatusCollected || to == CoinStatusDeleted
}

// Coin is a hidden coin placed at a geographic point. Value is nil for
// pool coins until collection resolves it; Contribution is always the
// amount the hider paid (or the system seeded).
type Coin struct {
	ID           string           `json:"id" db:"id"`
	Type         string           `json:"coin_type" db:"coin_type"`
	Value        *decimal.Decimal `json:"value,omitempty" db:"value"`
	Contribution decimal.Decimal  `json:"contribution" db:"contribution"`
	Lat          float64          `json:"lat" db:"lat"`
	Lon          float64          `json:"lon" db:"lon"`
	HiderID      string           `json:"hider_id" db:"hider_id"`
	Status       string           `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// Grid is one fixed-size latitude/longitude cell. LastActivity is the
// sole signal the distribution engine uses to decide whether the cell
// is alive; grids are never deleted.
type Grid struct {
	ID           string    `json:"id" db:"id"`
	CenterLat    float64   `json:"center_lat" db:"center_lat"`
	CenterLon    float64   `json:"center_lon" db:"center_lon"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}

// Wallet is a player's multi-bucket balance. Invariant at every
// externally observable instant:
//
//	TotalBalance = GasTank + Parked + Pending
type Wallet struct {
	UserID        string          `json:"user_id" db:"user_id"`
	TotalBalance  decimal.Decimal `json:"total_balance" db:"total_balance"`
	GasTank       decimal.Decimal `json:"gas_tank" db:"gas_tank"`
	Parked        decimal.Decimal `json:"parked" db:"parked"`
	Pending       decimal.Decimal `json:"pending" db:"pending"`
	LastGasCharge time.Time       `json:"last_gas_charge" db:"last_gas_charge"`
}

// Balanced reports whether the wallet satisfies the balance invariant.
func (w *Wallet) Balanced() bool {
	return w.TotalBalance.Equal(w.GasTank.Add(w.Parked).Add(w.Pending))
}

// UserStats tracks a player's hide/find history. FindLimit is derived
// from HighestHiddenValue: hiding a bigger coin raises the cap on the
// fixed-coin value the player may collect.
type UserStats struct {
	UserID             string          `json:"user_id" db:"user_id"`
	FindLimit          decimal.Decimal `json:"find_limit" db:"find_limit"`
	TotalFoundCount    int64           `json:"total_found_count" db:"total_found_count"`
	TotalFoundValue    decimal.Decimal `json:"total_found_value" db:"total_found_value"`
	TotalHiddenCount   int64           `json:"total_hidden_count" db:"total_hidden_count"`
	TotalHiddenValue   decimal.Decimal `json:"total_hidden_value" db:"total_hidden_value"`
	HighestHiddenValue decimal.Decimal `json:"highest_hidden_value" db:"highest_hidden_value"`
}

// Transaction settlement states. Only found-coin credits start pending;
// everything else is confirmed immediately.
const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
)

// Ledger row types.
const (
	TxTypeHidden      = "hidden"
	TxTypeFound       = "found"
	TxTypeRefund      = "refund"
	TxTypeParked      = "parked"
	TxTypeUnparked    = "unparked"
	TxTypeGasConsumed = "gas_consumed"
)

// Transaction is an append-only ledger row. Immutable once written
// except for the pending→confirmed status flip.
type Transaction struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Type      string          `json:"tx_type" db:"tx_type"`
	Amount    decimal.Decimal `json:"amount" db:"amount"` // signed
	Status    string          `json:"status" db:"status"`
	CoinID    string          `json:"coin_id,omitempty" db:"coin_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// CoinFind records a successful collection. It is both the settlement
// record (pending until the dispute window passes) and the history
// input to the pool-value resolver.
type CoinFind struct {
	ID            string          `json:"id" db:"id"`
	CoinID        string          `json:"coin_id" db:"coin_id"`
	FinderID      string          `json:"finder_id" db:"finder_id"`
	ValueReceived decimal.Decimal `json:"value_received" db:"value_received"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

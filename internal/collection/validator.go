// Package collection gates collection attempts. Checks run in a fixed
// order and fail fast, each with a human-readable reason: the coin
// must exist, still be visible, be within collection range, not exceed
// the collector's find limit (fixed coins only), and the collector
// must have gas left.
package collection

import (
	"fmt"

	"github.com/geohunt/coin-engine/internal/geo"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultRangeMeters is the default collection range.
const DefaultRangeMeters = 10.0

// ValidationError is a failed collection check. Distance carries the
// measured distance in meters when the check got that far.
type ValidationError struct {
	Reason      string
	Distance    float64
	HasDistance bool
}

func (e *ValidationError) Error() string {
	return "collection: " + e.Reason
}

// Validator holds the collection policy.
type Validator struct {
	// RangeMeters is the maximum collection distance.
	RangeMeters float64
}

// NewValidator creates a validator. A non-positive range selects the
// default.
func NewValidator(rangeMeters float64) *Validator {
	if rangeMeters <= 0 {
		rangeMeters = DefaultRangeMeters
	}
	return &Validator{RangeMeters: rangeMeters}
}

// CanCollect validates a collection attempt. It returns nil when every
// check passes, or a *ValidationError carrying the first failing
// reason.
func (v *Validator) CanCollect(coin *model.Coin, wallet *model.Wallet, stats *model.UserStats, userLat, userLon float64) error {
	if coin == nil {
		return &ValidationError{Reason: "coin not found"}
	}

	switch coin.Status {
	case model.CoinStatusVisible:
	case model.CoinStatusCollected:
		return &ValidationError{Reason: "coin already collected"}
	default:
		return &ValidationError{Reason: "coin not found"}
	}

	dist := geo.Distance(userLat, userLon, coin.Lat, coin.Lon)
	if dist > v.RangeMeters {
		return &ValidationError{
			Reason:      fmt.Sprintf("coin is %.1fm away, collection range is %.0fm", dist, v.RangeMeters),
			Distance:    dist,
			HasDistance: true,
		}
	}

	// Pool coins skip the find-limit check: their value is
	// undetermined until collection.
	if coin.Type == model.CoinTypeFixed && coin.Value != nil {
		if coin.Value.GreaterThan(stats.FindLimit) {
			return &ValidationError{
				Reason:      fmt.Sprintf("coin value %s exceeds find limit %s", coin.Value.StringFixed(2), stats.FindLimit.StringFixed(2)),
				Distance:    dist,
				HasDistance: true,
			}
		}
	}

	if wallet.GasTank.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{
			Reason:      "gas tank is empty",
			Distance:    dist,
			HasDistance: true,
		}
	}

	return nil
}

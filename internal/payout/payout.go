// Package payout implements the stochastic value resolution for pool
// coins. This is the single canonical implementation of the formula:
// the collection settlement and the client-facing preview both call
// Resolver.Resolve, never a re-derivation.
//
// Given the hider's contribution c and the collector's find history:
//
//	base = 0.5c
//	base += 0.3c            if ≥3 of the last 10 finds paid < $1 (cold streak)
//	base += rand()·c        if lifetime finds < 10 (new-player variance)
//	final = base + c·(rand()·0.5 − 0.25)
//	clamp to [0.05, 3c], round to cents
//
// Fixed coins bypass this package entirely; their payout is the stored
// value. All monetary values use shopspring/decimal — never float64
// for money; random multipliers are converted to decimal immediately.
package payout

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Formula constants.
var (
	// MinPayout is the floor of any resolved pool value.
	MinPayout = decimal.RequireFromString("0.05")

	// MaxPayoutMultiple caps the resolved value at this multiple of
	// the contribution.
	MaxPayoutMultiple = decimal.NewFromInt(3)

	baseShare       = decimal.RequireFromString("0.5")
	coldStreakShare = decimal.RequireFromString("0.3")

	// coldStreakValue is the payout below which a find counts toward
	// a cold streak.
	coldStreakValue = decimal.NewFromInt(1)
)

const (
	// coldStreakWindow is how many recent finds are inspected.
	coldStreakWindow = 10

	// coldStreakMinCount is how many low-value finds within the
	// window trigger the bonus.
	coldStreakMinCount = 3

	// newPlayerFindCount is the lifetime find count below which the
	// new-player variance applies.
	newPlayerFindCount = 10
)

// Rand is the source of randomness. Tests substitute a fixed sequence
// to assert deterministic outputs; production uses math/rand/v2.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// FinderHistory is the collector-side input to the formula.
type FinderHistory struct {
	// LifetimeFinds is the collector's total successful finds.
	LifetimeFinds int64

	// RecentValues holds the payouts of up to the last ten finds.
	RecentValues []decimal.Decimal
}

// Resolver computes pool-coin payouts. It is stateless apart from its
// random source.
type Resolver struct {
	rng Rand
}

// NewResolver creates a resolver. A nil rng selects the system random
// source.
func NewResolver(rng Rand) *Resolver {
	if rng == nil {
		rng = systemRand{}
	}
	return &Resolver{rng: rng}
}

// Resolve computes the payout for a pool coin with the given hider
// contribution and collector history. The result is always in
// [0.05, 3·contribution], rounded to cents.
func (r *Resolver) Resolve(contribution decimal.Decimal, h FinderHistory) decimal.Decimal {
	base := contribution.Mul(baseShare)

	if coldStreak(h.RecentValues) {
		base = base.Add(contribution.Mul(coldStreakShare))
	}

	if h.LifetimeFinds < newPlayerFindCount {
		bonus := contribution.Mul(decimal.NewFromFloat(r.rng.Float64()))
		base = base.Add(bonus)
	}

	// ±25% noise.
	noise := decimal.NewFromFloat(r.rng.Float64()*0.5 - 0.25)
	final := base.Add(contribution.Mul(noise))

	upper := contribution.Mul(MaxPayoutMultiple)
	if final.LessThan(MinPayout) {
		final = MinPayout
	}
	if final.GreaterThan(upper) {
		final = upper
	}
	return final.Round(2)
}

// coldStreak reports whether at least coldStreakMinCount of the most
// recent coldStreakWindow finds paid below coldStreakValue.
func coldStreak(recent []decimal.Decimal) bool {
	if len(recent) > coldStreakWindow {
		recent = recent[:coldStreakWindow]
	}
	low := 0
	for _, v := range recent {
		if v.LessThan(coldStreakValue) {
			low++
		}
	}
	return low >= coldStreakMinCount
}

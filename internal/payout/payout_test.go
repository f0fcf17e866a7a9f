package payout_test

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/payout"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedRand replays a fixed sequence, cycling when exhausted.
type fixedRand struct {
	seq []float64
	i   int
}

func (f *fixedRand) Float64() float64 {
	v := f.seq[f.i%len(f.seq)]
	f.i++
	return v
}

// veteran is a history past the new-player window with no cold streak.
func veteran() payout.FinderHistory {
	return payout.FinderHistory{
		LifetimeFinds: 25,
		RecentValues:  []decimal.Decimal{d("1.50"), d("2.00"), d("1.10")},
	}
}

func TestResolve_Veteran_NoBonuses(t *testing.T) {
	// Only the noise term draws randomness; 0.5 makes it exactly zero,
	// leaving the bare 50% base share.
	r := payout.NewResolver(&fixedRand{seq: []float64{0.5}})

	got := r.Resolve(d("2.00"), veteran())
	if !got.Equal(d("1.00")) {
		t.Errorf("expected 1.00, got %s", got)
	}
}

func TestResolve_ColdStreakBonus(t *testing.T) {
	r := payout.NewResolver(&fixedRand{seq: []float64{0.5}})

	h := payout.FinderHistory{
		LifetimeFinds: 25,
		RecentValues: []decimal.Decimal{
			d("0.40"), d("0.75"), d("0.10"), d("1.50"), d("2.00"),
		},
	}

	// base 0.5 + cold streak 0.3, zero noise.
	got := r.Resolve(d("1.00"), h)
	if !got.Equal(d("0.80")) {
		t.Errorf("expected 0.80 with cold streak, got %s", got)
	}
}

func TestResolve_TwoLowFindsIsNotAStreak(t *testing.T) {
	r := payout.NewResolver(&fixedRand{seq: []float64{0.5}})

	h := payout.FinderHistory{
		LifetimeFinds: 25,
		RecentValues:  []decimal.Decimal{d("0.40"), d("0.75"), d("1.50")},
	}

	got := r.Resolve(d("1.00"), h)
	if !got.Equal(d("0.50")) {
		t.Errorf("expected 0.50 without cold streak, got %s", got)
	}
}

func TestResolve_ColdStreakIgnoresOldFinds(t *testing.T) {
	r := payout.NewResolver(&fixedRand{seq: []float64{0.5}})

	// Three low finds, but two of them sit beyond the 10-find window.
	recent := []decimal.Decimal{d("0.40")}
	for i := 0; i < 9; i++ {
		recent = append(recent, d("1.50"))
	}
	recent = append(recent, d("0.30"), d("0.20"))

	got := r.Resolve(d("1.00"), payout.FinderHistory{LifetimeFinds: 25, RecentValues: recent})
	if !got.Equal(d("0.50")) {
		t.Errorf("finds outside the window should not count, got %s", got)
	}
}

func TestResolve_NewPlayerBonus(t *testing.T) {
	// First draw is the new-player bonus multiplier, second the noise.
	r := payout.NewResolver(&fixedRand{seq: []float64{0.5, 0.5}})

	h := payout.FinderHistory{LifetimeFinds: 0}
	got := r.Resolve(d("1.00"), h)

	// base 0.5 + bonus 0.5·1.00, zero noise.
	if !got.Equal(d("1.00")) {
		t.Errorf("expected 1.00 with new-player bonus, got %s", got)
	}
}

func TestResolve_NewPlayerBonusStopsAtTen(t *testing.T) {
	r := payout.NewResolver(&fixedRand{seq: []float64{0.9, 0.5}})

	atNine := r.Resolve(d("1.00"), payout.FinderHistory{LifetimeFinds: 9, RecentValues: veteran().RecentValues})
	r2 := payout.NewResolver(&fixedRand{seq: []float64{0.9, 0.5}})
	atTen := r2.Resolve(d("1.00"), payout.FinderHistory{LifetimeFinds: 10, RecentValues: veteran().RecentValues})

	if !atNine.GreaterThan(atTen) {
		t.Errorf("9 finds should still get the bonus: atNine=%s atTen=%s", atNine, atTen)
	}
}

func TestResolve_FloorClamp(t *testing.T) {
	// Minimum noise on a tiny contribution dips below the floor.
	r := payout.NewResolver(&fixedRand{seq: []float64{0.0}})

	got := r.Resolve(d("0.10"), veteran())
	if !got.Equal(payout.MinPayout) {
		t.Errorf("expected floor %s, got %s", payout.MinPayout, got)
	}
}

func TestResolve_AlwaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	r := payout.NewResolver(rng)

	contributions := []decimal.Decimal{d("0.10"), d("0.50"), d("1.00"), d("5.00")}
	histories := []payout.FinderHistory{
		{LifetimeFinds: 0},
		{LifetimeFinds: 5, RecentValues: []decimal.Decimal{d("0.20"), d("0.30"), d("0.40")}},
		veteran(),
	}

	for _, c := range contributions {
		upper := c.Mul(payout.MaxPayoutMultiple)
		for _, h := range histories {
			for i := 0; i < 200; i++ {
				got := r.Resolve(c, h)
				if got.LessThan(payout.MinPayout) {
					t.Fatalf("payout %s below floor for c=%s", got, c)
				}
				if got.GreaterThan(upper) {
					t.Fatalf("payout %s above 3x cap for c=%s", got, c)
				}
				if got.Exponent() < -2 {
					t.Fatalf("payout %s not rounded to cents", got)
				}
			}
		}
	}
}

package grid_test

import (
	"errors"
	"math"
	"testing"

	"github.com/geohunt/coin-engine/internal/grid"
)

func TestID_Deterministic(t *testing.T) {
	// Any point inside the same cell maps to the same id.
	id1 := grid.ID(37.7749, -122.4194)
	id2 := grid.ID(37.7749, -122.4194)
	if id1 != id2 {
		t.Errorf("same point produced different ids: %s vs %s", id1, id2)
	}
}

func TestID_Format(t *testing.T) {
	id := grid.ID(37.7749, -122.4194)
	if id != "37.75:-122.45" {
		t.Errorf("expected 37.75:-122.45, got %s", id)
	}
}

func TestID_SameCell(t *testing.T) {
	// Two points inside one 0.05° cell share an id.
	a := grid.ID(37.751, -122.449)
	b := grid.ID(37.799, -122.401)
	if a != b {
		t.Errorf("points in same cell got different ids: %s vs %s", a, b)
	}
}

func TestID_AdjacentCells(t *testing.T) {
	a := grid.ID(37.749, -122.42)
	b := grid.ID(37.751, -122.42)
	if a == b {
		t.Errorf("points in adjacent cells share id %s", a)
	}
}

func TestID_NegativeCoordinates(t *testing.T) {
	// Flooring must round toward -∞, not toward zero.
	id := grid.ID(-33.8688, 151.2093)
	if id != "-33.90:151.20" {
		t.Errorf("expected -33.90:151.20, got %s", id)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	id := grid.ID(37.7749, -122.4194)
	minLat, minLon, err := grid.Parse(id)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if grid.ID(minLat+0.001, minLon+0.001) != id {
		t.Errorf("parsed corner does not map back to %s", id)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, id := range []string{"", "abc", "37.75", "37.7:-122.45", "37.75:-122.4", "91.00:0.00", "0.00:180.00"} {
		if _, _, err := grid.Parse(id); !errors.Is(err, grid.ErrInvalidID) {
			t.Errorf("expected ErrInvalidID for %q, got %v", id, err)
		}
	}
}

func TestBoundsOf_ContainsOriginalPoint(t *testing.T) {
	lat, lon := 37.7749, -122.4194
	b, err := grid.BoundsOf(grid.ID(lat, lon))
	if err != nil {
		t.Fatalf("bounds failed: %v", err)
	}
	if !b.Contains(lat, lon) {
		t.Errorf("cell bounds %+v should contain the source point", b)
	}
}

func TestBounds_EdgeExclusivity(t *testing.T) {
	b := grid.Bounds{MinLat: 37.75, MinLon: -122.45, MaxLat: 37.80, MaxLon: -122.40}
	if !b.Contains(37.75, -122.45) {
		t.Error("min edge should be inclusive")
	}
	if b.Contains(37.80, -122.43) {
		t.Error("max lat edge should be exclusive")
	}
	if b.Contains(37.77, -122.40) {
		t.Error("max lon edge should be exclusive")
	}
}

func TestCellBounds_MatchesBoundsOf(t *testing.T) {
	lat, lon := -33.8688, 151.2093
	direct := grid.CellBounds(lat, lon)
	viaID, err := grid.BoundsOf(grid.ID(lat, lon))
	if err != nil {
		t.Fatalf("bounds failed: %v", err)
	}
	if direct != viaID {
		t.Errorf("CellBounds %+v != BoundsOf %+v", direct, viaID)
	}
}

func TestCenter_InsideCell(t *testing.T) {
	id := grid.ID(37.7749, -122.4194)
	lat, lon, err := grid.Center(id)
	if err != nil {
		t.Fatalf("center failed: %v", err)
	}
	b, _ := grid.BoundsOf(id)
	if !b.Contains(lat, lon) {
		t.Errorf("center (%f,%f) outside cell %+v", lat, lon, b)
	}
	// Center is equidistant from the cell edges.
	if math.Abs((lat-b.MinLat)-(b.MaxLat-lat)) > 1e-9 {
		t.Errorf("center lat %f not centered in [%f,%f]", lat, b.MinLat, b.MaxLat)
	}
}

func TestCenter_MapsBackToSameID(t *testing.T) {
	id := grid.ID(-33.8688, 151.2093)
	lat, lon, err := grid.Center(id)
	if err != nil {
		t.Fatalf("center failed: %v", err)
	}
	if grid.ID(lat, lon) != id {
		t.Errorf("center of %s maps to %s", id, grid.ID(lat, lon))
	}
}

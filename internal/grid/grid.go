// Package grid maps coordinates to fixed-size latitude/longitude
// cells. Cell ids are deterministic string keys derived by flooring
// both coordinates to the cell size, so every point inside a cell maps
// to the same id and the id can be inverted back to the cell's bounds
// and canonical center.
package grid

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// CellSizeDegrees is the edge length of a grid cell in degrees
// (~5.5 km of latitude).
const CellSizeDegrees = 0.05

// idRegex matches: {flooredLat}:{flooredLon}, both with two decimals.
// Example: 37.75:-122.45
var idRegex = regexp.MustCompile(`^(-?\d+\.\d{2}):(-?\d+\.\d{2})$`)

// ErrInvalidID is returned when a grid id cannot be parsed.
var ErrInvalidID = errors.New("grid: invalid grid id")

// Bounds is the bounding box of one cell. Min edges are inclusive,
// max edges exclusive.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether a point falls inside the bounds.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat < b.MaxLat && lon >= b.MinLon && lon < b.MaxLon
}

// ID returns the cell id for a coordinate pair. Any two coordinates
// inside the same cell yield an identical id.
func ID(lat, lon float64) string {
	fLat := floorToCell(lat)
	fLon := floorToCell(lon)
	return strconv.FormatFloat(fLat, 'f', 2, 64) + ":" + strconv.FormatFloat(fLon, 'f', 2, 64)
}

// Parse validates a grid id and returns the cell's floored south-west
// corner.
func Parse(id string) (minLat, minLon float64, err error) {
	matches := idRegex.FindStringSubmatch(id)
	if matches == nil {
		return 0, 0, fmt.Errorf("%w: %s (expected {lat}:{lon} with two decimals)", ErrInvalidID, id)
	}
	minLat, err = strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	minLon, err = strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	if minLat < -90 || minLat >= 90 || minLon < -180 || minLon >= 180 {
		return 0, 0, fmt.Errorf("%w: %s out of range", ErrInvalidID, id)
	}
	return minLat, minLon, nil
}

// BoundsOf inverts a grid id into the cell's bounding box.
func BoundsOf(id string) (Bounds, error) {
	minLat, minLon, err := Parse(id)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{
		MinLat: minLat,
		MinLon: minLon,
		MaxLat: minLat + CellSizeDegrees,
		MaxLon: minLon + CellSizeDegrees,
	}, nil
}

// CellBounds returns the bounding box of the cell containing a point.
func CellBounds(lat, lon float64) Bounds {
	minLat := floorToCell(lat)
	minLon := floorToCell(lon)
	return Bounds{
		MinLat: minLat,
		MinLon: minLon,
		MaxLat: minLat + CellSizeDegrees,
		MaxLon: minLon + CellSizeDegrees,
	}
}

// Center inverts a grid id into the cell's canonical center.
func Center(id string) (lat, lon float64, err error) {
	minLat, minLon, err := Parse(id)
	if err != nil {
		return 0, 0, err
	}
	return minLat + CellSizeDegrees/2, minLon + CellSizeDegrees/2, nil
}

func floorToCell(deg float64) float64 {
	return math.Floor(deg/CellSizeDegrees) * CellSizeDegrees
}

package modes

import (
	"errors"
)

// Polygon is a list of [x, y] coordinate pairs.
type Polygon [][]int

var errInvalidPolygon = errors.New("polygon must be a list of at least 3 positive integer couples")

func isCoord(coords []int) bool {
	if len(coords) != 2 {
		return false
	}
	return coords[0] >= 0 && coords[1] >= 0
}

// Validate ensures the polygon is a list of at least 3 valid coordinates.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return errInvalidPolygon
	}
	for _, coords := range p {
		if !isCoord(coords) {
			return errInvalidPolygon
		}
	}
	return nil
}

func coordLess(a, b []int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func coordEqual(a, b []int) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// Canonical deduplicates consecutive points and rotates the polygon so
// that its lowest coordinate pair comes first. Fully re-ordering a polygon
// is not meaningful, a stable starting point is enough to compare two
// submissions of the same shape. Canonicalizing twice yields the same
// result as once.
func (p Polygon) Canonical() (Polygon, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	deduped := make(Polygon, 0, len(p))
	for _, coords := range p {
		if len(deduped) > 0 && coordEqual(deduped[len(deduped)-1], coords) {
			continue
		}
		deduped = append(deduped, []int{coords[0], coords[1]})
	}
	// A closed ring repeats its start as its end; drop it so rotation
	// cannot create a consecutive duplicate.
	if len(deduped) > 1 && coordEqual(deduped[0], deduped[len(deduped)-1]) {
		deduped = deduped[:len(deduped)-1]
	}
	if len(deduped) < 3 {
		return nil, errInvalidPolygon
	}

	minIndex := 0
	for i, coords := range deduped {
		if coordLess(coords, deduped[minIndex]) {
			minIndex = i
		}
	}
	return append(deduped[minIndex:], deduped[:minIndex]...), nil
}

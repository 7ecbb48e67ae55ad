package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonValidate(t *testing.T) {
	assert.NoError(t, Polygon{{0, 0}, {10, 0}, {10, 10}}.Validate())

	assert.Error(t, Polygon{{0, 0}, {10, 0}}.Validate(), "two points are not a polygon")
	assert.Error(t, Polygon{{0, 0}, {10, 0}, {10}}.Validate(), "coordinates come in pairs")
	assert.Error(t, Polygon{{0, 0}, {-1, 0}, {10, 10}}.Validate(), "coordinates are positive")
}

func TestPolygonCanonical(t *testing.T) {
	canonical, err := Polygon{{10, 10}, {0, 0}, {10, 0}}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, Polygon{{0, 0}, {10, 0}, {10, 10}}, canonical, "starts at the smallest point")

	canonical, err = Polygon{{0, 0}, {0, 0}, {10, 0}, {10, 10}, {10, 10}}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, Polygon{{0, 0}, {10, 0}, {10, 10}}, canonical, "consecutive duplicates collapse")

	_, err = Polygon{{0, 0}, {0, 0}, {10, 0}}.Canonical()
	assert.Error(t, err, "deduplication can leave too few points")
}

func TestPolygonCanonicalIdempotent(t *testing.T) {
	first, err := Polygon{{5, 5}, {1, 2}, {4, 0}, {5, 5}}.Canonical()
	require.NoError(t, err)

	second, err := first.Canonical()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

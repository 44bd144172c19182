//go:build gdal

package geotiff

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// These tests exercise the real GDAL bindings and require a GDAL
// installation. Run with: go test -tags=gdal ./internal/adapter/geotiff/ -v

func classTableFixture(t *testing.T) *domain.Table {
	t.Helper()
	var points []geom.Point
	var classes []float64
	for _, y := range []float64{46.50, 46.51, 46.52} {
		for _, x := range []float64{8.00, 8.01, 8.02} {
			points = append(points, geom.Point{X: x, Y: y})
			classes = append(classes, domain.ClassSnow)
		}
	}
	classes[4] = domain.ClassIce
	tbl, err := domain.NewTable(points, domain.Proj4WGS84).
		WithColumn(domain.FieldClasses, classes)
	require.NoError(t, err)
	return tbl
}

func TestSmoke_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.tif")
	tbl := classTableFixture(t)

	x := []float64{8.00, 8.01, 8.02}
	y := []float64{46.50, 46.51, 46.52}
	require.NoError(t, WriteRaster(path, tbl, domain.FieldClasses, x, y))

	back, err := ReadClassPoints(path)
	require.NoError(t, err)
	assert.Equal(t, 9, back.Len())

	classes, ok := back.Column(domain.FieldClasses)
	require.True(t, ok)
	ice := 0
	for _, c := range classes {
		if c == domain.ClassIce {
			ice++
		}
	}
	assert.Equal(t, 1, ice)
}

func TestSmoke_WarpToLV95(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wgs84.tif")
	dst := filepath.Join(dir, "lv95.tif")
	tbl := classTableFixture(t)

	x := []float64{8.00, 8.01, 8.02}
	y := []float64{46.50, 46.51, 46.52}
	require.NoError(t, WriteRaster(src, tbl, domain.FieldClasses, x, y))
	require.NoError(t, Warp(src, dst, domain.Proj4LV95))

	back, err := ReadClassPoints(dst)
	require.NoError(t, err)
	require.NotZero(t, back.Len())
	// LV95 eastings sit in the 2.6 million range for this part of the Alps.
	assert.InDelta(t, 2.67e6, back.Points[0].X, 5e4)
	for _, c := range mustColumn(t, back, domain.FieldClasses) {
		assert.False(t, math.IsNaN(c))
	}
}

func mustColumn(t *testing.T, tbl *domain.Table, name string) []float64 {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok)
	return col
}

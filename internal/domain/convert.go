package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// GridToPoints extracts one table row per masked grid cell, pairing the
// grid's coordinate axes as a full cross product and keeping the named
// fields as columns. Locations come straight from the axes; no row is ever
// given an invented location. A field that is absent or whose shape does not
// match the grid fails before anything is built.
func GridToPoints(g *Grid, fields ...string) (*Table, error) {
	arrays := make(map[string]*sparse.DenseArray, len(fields))
	for _, name := range fields {
		f, ok := g.Field(name)
		if !ok {
			return nil, fmt.Errorf("field %q not in grid", name)
		}
		if len(f.Shape) != 2 || f.Shape[0] != g.Ny() || f.Shape[1] != g.Nx() {
			return nil, fmt.Errorf("field %q has shape %v, grid is [%d %d]", name, f.Shape, g.Ny(), g.Nx())
		}
		arrays[name] = f
	}

	n := g.MaskCount()
	points := make([]geom.Point, 0, n)
	columns := make(map[string][]float64, len(fields))
	for _, name := range fields {
		columns[name] = make([]float64, 0, n)
	}

	for j, y := range g.Y {
		for i, x := range g.X {
			if !g.Mask[j*g.Nx()+i] {
				continue
			}
			points = append(points, geom.Point{X: x, Y: y})
			for _, name := range fields {
				columns[name] = append(columns[name], arrays[name].Get(j, i))
			}
		}
	}

	t := NewTable(points, g.Proj4)
	for _, name := range fields {
		var err error
		if t, err = t.WithColumn(name, columns[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// PointsToRaster rasterizes one table column onto the given coordinate axes.
// Every cell starts as NaN; each row lands in the nearest axis bin (nearest
// lookup, not interpolation), and when two rows map to the same cell the
// later row wins. The result is shaped [len(yAxis), len(xAxis)].
func PointsToRaster(t *Table, column string, xAxis, yAxis []float64) (*sparse.DenseArray, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("column %q not in table", column)
	}
	if len(xAxis) == 0 || len(yAxis) == 0 {
		return nil, fmt.Errorf("empty raster axes (%d x, %d y)", len(xAxis), len(yAxis))
	}

	data := sparse.ZerosDense(len(yAxis), len(xAxis))
	for i := range data.Elements {
		data.Elements[i] = math.NaN()
	}

	for r, p := range t.Points {
		ix := nearestIndex(xAxis, p.X)
		iy := nearestIndex(yAxis, p.Y)
		data.Set(col[r], iy, ix)
	}
	return data, nil
}

// nearestIndex returns the index of the axis value closest to v. Axes are
// small (at most a few hundred cells), so a linear scan beats maintaining a
// sorted view of possibly descending latitude axes. First minimum wins on a
// tie.
func nearestIndex(axis []float64, v float64) int {
	best, bestDist := 0, math.Abs(axis[0]-v)
	for i := 1; i < len(axis); i++ {
		if d := math.Abs(axis[i] - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

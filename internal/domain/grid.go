package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Canonical field and column names, shared with the glacier directory
// NetCDF files and every table derived from them.
const (
	FieldPrediction = "pred_masked"
	FieldElevation  = "masked_elev"
	FieldDistance   = "masked_dis"
	FieldClasses    = "classes"
	FieldElevBand   = "elev_band"
)

// Grid is a rectilinear raster: two 1-D coordinate axes, a glacier mask, and
// named 2-D fields shaped [ny, nx] in row-major order ([y][x]). A Grid is
// immutable by convention; transforms return a new Grid and never modify
// their receiver's arrays.
type Grid struct {
	XName string // axis dimension names: "x"/"y" planar, "longitude"/"latitude" geographic
	YName string

	X []float64
	Y []float64

	// Proj4 describes the coordinate reference system of the axes. Empty
	// means the projection metadata was absent from the source file.
	Proj4 string

	// Mask marks valid glacier cells, row-major [y][x], length ny*nx.
	Mask []bool

	Fields map[string]*sparse.DenseArray
}

// NewGrid creates a grid with the given axes and glacier mask.
func NewGrid(xName, yName string, x, y []float64, proj4 string, mask []bool) (*Grid, error) {
	if len(mask) != len(x)*len(y) {
		return nil, fmt.Errorf("grid mask has %d cells, axes imply %d", len(mask), len(x)*len(y))
	}
	return &Grid{
		XName:  xName,
		YName:  yName,
		X:      x,
		Y:      y,
		Proj4:  proj4,
		Mask:   mask,
		Fields: make(map[string]*sparse.DenseArray),
	}, nil
}

// Nx returns the number of columns.
func (g *Grid) Nx() int { return len(g.X) }

// Ny returns the number of rows.
func (g *Grid) Ny() int { return len(g.Y) }

// Field returns the named field, or false if it is absent.
func (g *Grid) Field(name string) (*sparse.DenseArray, bool) {
	f, ok := g.Fields[name]
	return f, ok
}

// MaskCount returns the number of valid glacier cells.
func (g *Grid) MaskCount() int {
	n := 0
	for _, m := range g.Mask {
		if m {
			n++
		}
	}
	return n
}

// clone copies the grid shell. Field arrays are shared: they are treated as
// immutable and replaced wholesale, never written through.
func (g *Grid) clone() *Grid {
	c := &Grid{
		XName:  g.XName,
		YName:  g.YName,
		X:      append([]float64(nil), g.X...),
		Y:      append([]float64(nil), g.Y...),
		Proj4:  g.Proj4,
		Mask:   append([]bool(nil), g.Mask...),
		Fields: make(map[string]*sparse.DenseArray, len(g.Fields)),
	}
	for name, f := range g.Fields {
		c.Fields[name] = f
	}
	return c
}

// WithField returns a copy of the grid carrying the named field. The field's
// shape must be [ny, nx].
func (g *Grid) WithField(name string, data *sparse.DenseArray) (*Grid, error) {
	if len(data.Shape) != 2 || data.Shape[0] != g.Ny() || data.Shape[1] != g.Nx() {
		return nil, fmt.Errorf("field %q has shape %v, grid is [%d %d]", name, data.Shape, g.Ny(), g.Nx())
	}
	c := g.clone()
	c.Fields[name] = data
	return c, nil
}

// AttachPredictions distributes per-cell model predictions onto the grid as
// the named field. preds carries exactly one value per masked cell, in
// row-major mask scan order; every unmasked cell becomes NaN. The count must
// match the mask or nothing is written.
func (g *Grid) AttachPredictions(preds []float64, field string) (*Grid, error) {
	if n := g.MaskCount(); len(preds) != n {
		return nil, fmt.Errorf("got %d predictions for %d masked cells", len(preds), n)
	}
	data := sparse.ZerosDense(g.Ny(), g.Nx())
	k := 0
	for j := 0; j < g.Ny(); j++ {
		for i := 0; i < g.Nx(); i++ {
			if g.Mask[j*g.Nx()+i] {
				data.Set(preds[k], j, i)
				k++
			} else {
				data.Set(math.NaN(), j, i)
			}
		}
	}
	return g.WithField(field, data)
}

package domain

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Well-known CRS definitions used across the pipeline.
const (
	// Proj4WGS84 is geographic longitude/latitude on WGS84 (EPSG:4326).
	Proj4WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

	// Proj4LV95 is the Swiss planar system LV95 (EPSG:2056), used for the
	// national map products.
	Proj4LV95 = "+proj=somerc +lat_0=46.95240555555556 +lon_0=7.439583333333333 " +
		"+k_0=1 +x_0=2600000 +y_0=1200000 +ellps=bessel " +
		"+towgs84=674.374,15.056,405.346,0,0,0,0 +units=m +no_defs"
)

// ToGeographic converts a planar grid to geographic WGS84 coordinates. It
// transforms the full 2-D mesh of source coordinates and collapses the
// result back to 1-D axes by taking the first transformed row as the
// longitude axis and the first transformed column as the latitude axis (the
// separable-projection approximation described in the package doc). The
// planar axes are dropped and the spatial dimensions renamed
// longitude/latitude. Fields and mask are carried over unchanged.
func ToGeographic(g *Grid) (*Grid, error) {
	if g.Proj4 == "" {
		return nil, fmt.Errorf("grid has no projection metadata")
	}
	srcSR, err := proj.Parse(g.Proj4)
	if err != nil {
		return nil, fmt.Errorf("parsing grid projection: %w", err)
	}
	dstSR, err := proj.Parse(Proj4WGS84)
	if err != nil {
		return nil, fmt.Errorf("parsing WGS84: %w", err)
	}
	trans, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("building transform to WGS84: %w", err)
	}

	lon := make([]float64, g.Nx())
	lat := make([]float64, g.Ny())
	for i, x := range g.X {
		lo, _, err := trans(x, g.Y[0])
		if err != nil {
			return nil, fmt.Errorf("transforming row 0 column %d: %w", i, err)
		}
		lon[i] = lo
	}
	for j, y := range g.Y {
		_, la, err := trans(g.X[0], y)
		if err != nil {
			return nil, fmt.Errorf("transforming column 0 row %d: %w", j, err)
		}
		lat[j] = la
	}

	c := g.clone()
	c.XName, c.YName = "longitude", "latitude"
	c.X, c.Y = lon, lat
	c.Proj4 = Proj4WGS84
	return c, nil
}

// ReprojectPoints transforms every table location from the table's CRS into
// dstProj4 and returns the re-located table. Columns are untouched.
func ReprojectPoints(t *Table, dstProj4 string) (*Table, error) {
	if t.Proj4 == "" {
		return nil, fmt.Errorf("table has no projection metadata")
	}
	srcSR, err := proj.Parse(t.Proj4)
	if err != nil {
		return nil, fmt.Errorf("parsing table projection: %w", err)
	}
	dstSR, err := proj.Parse(dstProj4)
	if err != nil {
		return nil, fmt.Errorf("parsing target projection: %w", err)
	}
	trans, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("building point transform: %w", err)
	}

	c := t.clone()
	for i, p := range c.Points {
		x, y, err := trans(p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("transforming point %d: %w", i, err)
		}
		c.Points[i] = geom.Point{X: x, Y: y}
	}
	c.Proj4 = dstProj4
	return c, nil
}

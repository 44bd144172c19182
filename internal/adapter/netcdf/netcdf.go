// Package netcdf reads and writes glacier grids as NetCDF classic files.
//
// The layout mirrors the glacier directory files produced by the upstream
// model: two 1-D coordinate variables named after the spatial dimensions
// ("x"/"y" planar, "longitude"/"latitude" geographic), a "glacier_mask"
// variable, and one 2-D float64 variable per field, all shaped
// [y-dimension, x-dimension]. The proj4 string of the coordinate axes is a
// global attribute.
package netcdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

const (
	maskVariable = "glacier_mask"
	attrProj4    = "proj4"
)

// ReadGrid loads a glacier grid from a NetCDF file.
func ReadGrid(path string) (*domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grid file: %w", err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	dims := nc.Header.Dimensions(maskVariable)
	if len(dims) != 2 {
		return nil, fmt.Errorf("%s: variable %q must have 2 dimensions, has %d", path, maskVariable, len(dims))
	}
	yName, xName := dims[0], dims[1]

	y, err := readVector(nc, yName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	x, err := readVector(nc, xName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	maskVals, err := readVector(nc, maskVariable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(maskVals) != len(x)*len(y) {
		return nil, fmt.Errorf("%s: mask has %d cells, axes imply %d", path, len(maskVals), len(x)*len(y))
	}
	mask := make([]bool, len(maskVals))
	for i, v := range maskVals {
		mask[i] = v == 1
	}

	proj4, _ := nc.Header.GetAttribute("", attrProj4).(string)
	grid, err := domain.NewGrid(xName, yName, x, y, proj4, mask)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, name := range nc.Header.Variables() {
		if name == maskVariable || name == xName || name == yName {
			continue
		}
		if len(nc.Header.Dimensions(name)) != 2 {
			continue
		}
		vals, err := readVector(nc, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		data := sparse.ZerosDense(len(y), len(x))
		copy(data.Elements, vals)
		if grid, err = grid.WithField(name, data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return grid, nil
}

// WriteGrid saves a grid to path, deleting any existing file there first and
// creating the destination directory if absent.
func WriteGrid(path string, g *domain.Grid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale output: %w", err)
	}

	h := cdf.NewHeader([]string{g.YName, g.XName}, []int{g.Ny(), g.Nx()})
	if g.Proj4 != "" {
		h.AddAttribute("", attrProj4, g.Proj4)
	}

	h.AddVariable(g.YName, []string{g.YName}, []float64{0})
	h.AddVariable(g.XName, []string{g.XName}, []float64{0})
	h.AddVariable(maskVariable, []string{g.YName, g.XName}, []float64{0})

	// Sorted so files are byte-stable across runs.
	names := make([]string, 0, len(g.Fields))
	for name := range g.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddVariable(name, []string{g.YName, g.XName}, []float64{0})
	}
	h.Define()
	for _, err := range h.Check() {
		if err != nil {
			return fmt.Errorf("defining %s: %w", path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	nc, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("writing header of %s: %w", path, err)
	}

	if err := writeVector(nc, g.YName, g.Y); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := writeVector(nc, g.XName, g.X); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	maskVals := make([]float64, len(g.Mask))
	for i, m := range g.Mask {
		if m {
			maskVals[i] = 1
		}
	}
	if err := writeVector(nc, maskVariable, maskVals); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, name := range names {
		if err := writeVector(nc, name, g.Fields[name].Elements); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

// readVector reads a variable's full contents as a flat float64 slice.
func readVector(nc *cdf.File, name string) ([]float64, error) {
	n := 1
	for _, l := range nc.Header.Lengths(name) {
		n *= l
	}
	buf := make([]float64, n)
	if _, err := nc.Reader(name, nil, nil).Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %q: %w", name, err)
	}
	return buf, nil
}

// writeVector writes a variable's full contents from a flat float64 slice.
func writeVector(nc *cdf.File, name string, values []float64) error {
	end := nc.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := nc.Writer(name, start, end).Write(values); err != nil {
		return fmt.Errorf("writing variable %q: %w", name, err)
	}
	return nil
}

package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/geom"
)

// Table is the point-based (vector) form of a grid: one record per valid
// cell or satellite pixel, each with a location and named float64 columns.
// NaN marks missing column values. Row order carries no meaning; points are
// unique by location.
//
// Transforms return a new Table rather than mutating the receiver, so each
// pipeline stage owns its table exclusively.
type Table struct {
	Points []geom.Point

	// Selected flags rows belonging to the snowline band. Nil until
	// FindSnowline has run.
	Selected []bool

	// Proj4 describes the CRS of the point locations.
	Proj4 string

	// ProcessedAt records when this table was derived.
	ProcessedAt time.Time

	columns map[string][]float64
}

// NewTable creates an empty-columned table over the given points.
func NewTable(points []geom.Point, proj4 string) *Table {
	return &Table{
		Points:      points,
		Proj4:       proj4,
		ProcessedAt: clock.Now(),
		columns:     make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Points) }

// Column returns the named column, or false if it is absent. The returned
// slice must not be written through.
func (t *Table) Column(name string) ([]float64, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// ColumnNames lists the table's columns in unspecified order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.columns))
	for n := range t.columns {
		names = append(names, n)
	}
	return names
}

func (t *Table) clone() *Table {
	c := &Table{
		Points:      append([]geom.Point(nil), t.Points...),
		Proj4:       t.Proj4,
		ProcessedAt: clock.Now(),
		columns:     make(map[string][]float64, len(t.columns)),
	}
	if t.Selected != nil {
		c.Selected = append([]bool(nil), t.Selected...)
	}
	for name, col := range t.columns {
		c.columns[name] = col
	}
	return c
}

// WithColumn returns a copy of the table carrying the named column. The
// column length must match the row count.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), t.Len())
	}
	c := t.clone()
	c.columns[name] = values
	return c, nil
}

// Bounds returns the bounding box of all point locations, or nil for an
// empty table.
func (t *Table) Bounds() *geom.Bounds {
	if t.Len() == 0 {
		return nil
	}
	b := geom.NewBounds()
	for _, p := range t.Points {
		b.Extend(p.Bounds())
	}
	return b
}

// validCount returns the number of non-NaN entries in the named column.
func (t *Table) validCount(name string) int {
	col, ok := t.columns[name]
	if !ok {
		return 0
	}
	n := 0
	for _, v := range col {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

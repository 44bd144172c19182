package domain

import (
	"fmt"
	"math"
)

// Surface class labels, shared with the satellite classification products.
const (
	ClassSnow   = 1
	ClassFirn   = 2
	ClassIce    = 3
	ClassDebris = 4
	ClassCloud  = 5
)

// ClassifySnowIce thresholds the mass-balance column into surface classes:
// values above -tolerance become snow, values at or below it become ice, and
// missing values stay missing. The tolerance absorbs near-zero noise around
// the firn line; the boundary value -tolerance itself classifies as ice.
//
// The result is the same table with a "classes" column added; no other
// column is touched.
func ClassifySnowIce(t *Table, valueColumn string, tolerance float64) (*Table, error) {
	col, ok := t.Column(valueColumn)
	if !ok {
		return nil, fmt.Errorf("column %q not in table", valueColumn)
	}

	classes := make([]float64, len(col))
	for i, v := range col {
		switch {
		case math.IsNaN(v):
			classes[i] = math.NaN()
		case v > -tolerance:
			classes[i] = ClassSnow
		default:
			classes[i] = ClassIce
		}
	}
	return t.WithColumn(FieldClasses, classes)
}

package domain

import (
	"fmt"
	"math"
	"sort"
)

// BandElevations assigns each row an elevation-band label equal to
// floor(elevation / bandSize) * bandSize. Bands are left-closed: label B
// covers [B, B+bandSize). Rows with missing elevation get a missing band
// label, never a numeric placeholder.
func BandElevations(t *Table, bandSize float64) (*Table, error) {
	if bandSize <= 0 {
		return nil, fmt.Errorf("band size %g must be positive", bandSize)
	}
	elev, ok := t.Column(FieldElevation)
	if !ok {
		return nil, fmt.Errorf("column %q not in table", FieldElevation)
	}

	bands := make([]float64, len(elev))
	for i, e := range elev {
		if math.IsNaN(e) {
			bands[i] = math.NaN()
			continue
		}
		bands[i] = math.Floor(e/bandSize) * bandSize
	}
	return t.WithColumn(FieldElevBand, bands)
}

// FindSnowline scans elevation bands from the lowest upward and returns the
// first band in which the percentage of classValue rows (over the band's
// non-missing class rows) meets or exceeds thresholdPercent. The returned
// table carries a Selected flag marking the rows of the winning band; later,
// higher bands are never considered even when their percentage is higher.
// found is false when no band qualifies, and every Selected flag is false.
func FindSnowline(t *Table, classValue, thresholdPercent float64) (*Table, float64, bool) {
	classes, okC := t.Column(FieldClasses)
	bands, okB := t.Column(FieldElevBand)

	c := t.clone()
	c.Selected = make([]bool, c.Len())
	if !okC || !okB {
		return c, 0, false
	}

	valid := make(map[float64]int)
	matched := make(map[float64]int)
	for i, b := range bands {
		if math.IsNaN(b) || math.IsNaN(classes[i]) {
			continue
		}
		valid[b]++
		if classes[i] == classValue {
			matched[b]++
		}
	}

	labels := make([]float64, 0, len(valid))
	for b := range valid {
		labels = append(labels, b)
	}
	sort.Float64s(labels)

	for _, b := range labels {
		pct := 100 * float64(matched[b]) / float64(valid[b])
		if pct < thresholdPercent {
			continue
		}
		for i, rb := range bands {
			c.Selected[i] = rb == b
		}
		return c, b, true
	}
	return c, 0, false
}

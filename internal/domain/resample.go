package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// ResampleOutcome distinguishes the expected geometric failure modes of
// [ResampleToPoints] from success. Both failure outcomes are common in a
// batch run (a satellite scene simply does not cover the glacier) and are
// deliberately not errors: callers skip the scene and move on.
type ResampleOutcome int

const (
	// ResampleOK means the resampled table is usable.
	ResampleOK ResampleOutcome = iota
	// ResampleOutsideCoverage means the target bounding box is not fully
	// contained in the source bounding box.
	ResampleOutsideCoverage
	// ResampleNoData means the source had no points inside the target
	// bounding box.
	ResampleNoData
)

func (o ResampleOutcome) String() string {
	switch o {
	case ResampleOK:
		return "ok"
	case ResampleOutsideCoverage:
		return "outside-coverage"
	case ResampleNoData:
		return "no-data-in-region"
	default:
		return fmt.Sprintf("ResampleOutcome(%d)", int(o))
	}
}

// classPoint wraps a point with its class label for spatial indexing.
type classPoint struct {
	geom.Point
	class float64
}

// ResampleToPoints matches an independently sourced classification table
// onto the target point grid by nearest neighbor. The source must fully
// cover the target bounding box (ResampleOutsideCoverage otherwise) and must
// have at least one point inside it (ResampleNoData otherwise). Target rows
// whose valueColumn entry is missing are forced to a missing class
// regardless of the nearest-neighbor answer: the glacier's own missingness
// is authoritative over borrowed classification.
//
// On success the returned table is the target with a "classes" column
// holding each row's nearest source class.
func ResampleToPoints(target, source *Table, valueColumn string) (*Table, ResampleOutcome, error) {
	values, ok := target.Column(valueColumn)
	if !ok {
		return nil, ResampleOK, fmt.Errorf("column %q not in target table", valueColumn)
	}
	classes, ok := source.Column(FieldClasses)
	if !ok {
		return nil, ResampleOK, fmt.Errorf("column %q not in source table", FieldClasses)
	}

	tb, sb := target.Bounds(), source.Bounds()
	if tb == nil {
		empty, err := target.WithColumn(FieldClasses, nil)
		return empty, ResampleOK, err
	}
	if sb == nil ||
		tb.Min.X < sb.Min.X || tb.Min.Y < sb.Min.Y ||
		tb.Max.X > sb.Max.X || tb.Max.Y > sb.Max.Y {
		return nil, ResampleOutsideCoverage, nil
	}

	// Clip the source to the target bounding box before indexing.
	tree := rtree.NewTree(25, 50)
	clipped := 0
	for i, p := range source.Points {
		if p.X < tb.Min.X || p.X > tb.Max.X || p.Y < tb.Min.Y || p.Y > tb.Max.Y {
			continue
		}
		tree.Insert(&classPoint{Point: p, class: classes[i]})
		clipped++
	}
	if clipped == 0 {
		return nil, ResampleNoData, nil
	}

	out := make([]float64, target.Len())
	for i, p := range target.Points {
		if math.IsNaN(values[i]) {
			out[i] = math.NaN()
			continue
		}
		nn := tree.NearestNeighbor(p).(*classPoint)
		out[i] = nn.class
	}

	res, err := target.WithColumn(FieldClasses, out)
	return res, ResampleOK, err
}

// CoverageFraction returns the fraction of non-missing class rows equal to
// classValue, with rows of excludeClass removed from both numerator and
// denominator. A table with no valid rows yields NaN, never a panic and
// never a spurious zero.
func CoverageFraction(t *Table, classValue, excludeClass float64) float64 {
	classes, ok := t.Column(FieldClasses)
	if !ok {
		return math.NaN()
	}
	matched, valid := 0, 0
	for _, c := range classes {
		if math.IsNaN(c) || c == excludeClass {
			continue
		}
		valid++
		if c == classValue {
			matched++
		}
	}
	if valid == 0 {
		return math.NaN()
	}
	return float64(matched) / float64(valid)
}

// SnowCoverFraction is the standard diagnostic: the snow fraction of a
// classified table with cloud pixels excluded.
func SnowCoverFraction(t *Table) float64 {
	return CoverageFraction(t, ClassSnow, ClassCloud)
}

// FillCloudsNearest relabels every cloud row with the class of its nearest
// non-missing, non-cloud neighbor. When the table has no cloud rows, or no
// neighbors to borrow from, the input table is returned unchanged.
func FillCloudsNearest(t *Table, cloudClass float64) *Table {
	classes, ok := t.Column(FieldClasses)
	if !ok {
		return t
	}

	tree := rtree.NewTree(25, 50)
	donors, clouds := 0, 0
	for i, c := range classes {
		switch {
		case c == cloudClass:
			clouds++
		case !math.IsNaN(c):
			tree.Insert(&classPoint{Point: t.Points[i], class: c})
			donors++
		}
	}
	if clouds == 0 || donors == 0 {
		return t
	}

	out := append([]float64(nil), classes...)
	for i, c := range classes {
		if c != cloudClass {
			continue
		}
		nn := tree.NearestNeighbor(t.Points[i]).(*classPoint)
		out[i] = nn.class
	}

	res, err := t.WithColumn(FieldClasses, out)
	if err != nil {
		// Column length always matches here.
		return t
	}
	return res
}

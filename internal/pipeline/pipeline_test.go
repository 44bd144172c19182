package pipeline

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciermb/glacier-geodata-etl/internal/config"
	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
	"github.com/glaciermb/glacier-geodata-etl/internal/observability"
)

type fakeGrids struct {
	grids map[string]*domain.Grid
}

func (f *fakeGrids) Glaciers() ([]string, error) {
	names := make([]string, 0, len(f.grids))
	for n := range f.grids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeGrids) Grid(glacier string) (*domain.Grid, error) {
	g, ok := f.grids[glacier]
	if !ok {
		return nil, errors.New("no such glacier")
	}
	return g, nil
}

type fakePreds struct {
	keys []domain.HydroKey
	vals map[string][]float64
}

func (f *fakePreds) Keys(string) ([]domain.HydroKey, error) { return f.keys, nil }

func (f *fakePreds) Load(glacier string, _ domain.HydroKey) ([]float64, error) {
	v, ok := f.vals[glacier]
	if !ok {
		return nil, errors.New("no predictions")
	}
	return v, nil
}

type fakeScenes struct {
	tables map[string]*domain.Table
}

func (f *fakeScenes) ScenesFor(domain.HydroKey) [][]string {
	paths := make([]string, 0, len(f.tables))
	for p := range f.tables {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	groups := make([][]string, len(paths))
	for i, p := range paths {
		groups[i] = []string{p}
	}
	return groups
}

func (f *fakeScenes) ReadClassPoints(paths []string) (*domain.Table, error) {
	t, ok := f.tables[paths[0]]
	if !ok {
		return nil, errors.New("unreadable scene")
	}
	return t, nil
}

type fakeProducts struct {
	grids   map[string]*domain.Grid
	rasters map[string]string
	tables  map[string]*domain.Table
	warps   map[string]string
	reports map[string][]SceneReport
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{
		grids:   map[string]*domain.Grid{},
		rasters: map[string]string{},
		tables:  map[string]*domain.Table{},
		warps:   map[string]string{},
		reports: map[string][]SceneReport{},
	}
}

func (f *fakeProducts) WriteGrid(path string, g *domain.Grid) error {
	f.grids[path] = g
	return nil
}

func (f *fakeProducts) WriteRaster(path string, t *domain.Table, column string, _, _ []float64) error {
	f.rasters[path] = column
	f.tables[path] = t
	return nil
}

func (f *fakeProducts) Warp(src, dst, _ string) error {
	f.warps[dst] = src
	return nil
}

func (f *fakeProducts) WriteSceneReports(path string, reports []SceneReport) error {
	f.reports[path] = reports
	return nil
}

// testGrid is a 3x2 geographic grid with four masked cells, an elevation
// field, and a distance-to-terminus field.
func testGrid(t *testing.T) *domain.Grid {
	t.Helper()
	x := []float64{7.99, 8.00, 8.01}
	y := []float64{46.50, 46.51}
	mask := []bool{true, false, true, true, true, false}
	g, err := domain.NewGrid("x", "y", x, y, domain.Proj4WGS84, mask)
	require.NoError(t, err)

	elev := sparse.ZerosDense(2, 3)
	dist := sparse.ZerosDense(2, 3)
	for i, e := range []float64{2450, 2500, 2580, 2520, 2650, 2700} {
		elev.Elements[i] = e
		dist.Elements[i] = 50 * float64(i)
	}
	g, err = g.WithField(domain.FieldElevation, elev)
	require.NoError(t, err)
	g, err = g.WithField(domain.FieldDistance, dist)
	require.NoError(t, err)
	return g
}

// snowScene covers the grid's neighborhood with all-snow donor points.
func snowScene(t *testing.T) *domain.Table {
	t.Helper()
	var pts []geom.Point
	var classes []float64
	for _, x := range []float64{7.97, 8.00, 8.03} {
		for _, y := range []float64{46.48, 46.51, 46.53} {
			pts = append(pts, geom.Point{X: x, Y: y})
			classes = append(classes, domain.ClassSnow)
		}
	}
	tb, err := domain.NewTable(pts, domain.Proj4WGS84).WithColumn(domain.FieldClasses, classes)
	require.NoError(t, err)
	return tb
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.OutputDir = "/out"
	return cfg
}

func newTestPipeline(grids GridSource, preds PredictionSource, scenes SceneSource, products ProductWriter) (*Pipeline, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	logger := observability.NewLogger(io.Discard, "error", "text")
	return New(grids, preds, scenes, products, testConfig(), logger, m), m
}

func TestRun(t *testing.T) {
	key := domain.HydroKey{Year: 2021, Month: "jun"}

	t.Run("happy path writes all products", func(t *testing.T) {
		products := newFakeProducts()
		p, m := newTestPipeline(
			&fakeGrids{grids: map[string]*domain.Grid{"aletsch": testGrid(t)}},
			&fakePreds{keys: []domain.HydroKey{key}, vals: map[string][]float64{"aletsch": {0.5, 0.3, 0.2, 0.8}}},
			&fakeScenes{tables: map[string]*domain.Table{"/scenes/2021/s.tif": snowScene(t)}},
			products,
		)

		require.NoError(t, p.Run(context.Background()))

		assert.Contains(t, products.grids, "/out/aletsch/2021_jun/grid_xy.nc")
		assert.Contains(t, products.grids, "/out/aletsch/2021_jun/grid_latlon.nc")
		assert.Equal(t, domain.FieldPrediction, products.rasters["/out/aletsch/2021_jun/pred_latlon.tif"])
		assert.Equal(t, domain.FieldClasses, products.rasters["/out/aletsch/2021_jun/classes_latlon.tif"])

		// The point table carries every grid field, not just the prediction.
		table := products.tables["/out/aletsch/2021_jun/pred_latlon.tif"]
		require.NotNil(t, table)
		for _, col := range []string{domain.FieldPrediction, domain.FieldElevation, domain.FieldDistance} {
			_, ok := table.Column(col)
			assert.True(t, ok, "column %s missing", col)
		}
		assert.Equal(t, "/out/aletsch/2021_jun/pred_latlon.tif", products.warps["/out/aletsch/2021_jun/pred_lv95.tif"])
		assert.Equal(t, "/out/aletsch/2021_jun/classes_latlon.tif", products.warps["/out/aletsch/2021_jun/classes_lv95.tif"])

		reports := products.reports["/out/aletsch/2021_jun/snow_cover.csv"]
		require.Len(t, reports, 1)
		rep := reports[0]
		assert.Equal(t, "s.tif", rep.Scene)
		// All predictions are positive and the scene is all snow.
		assert.Equal(t, 1.0, rep.SnowCover)
		assert.Equal(t, 1.0, rep.ModelSnowCover)
		require.True(t, rep.SnowlineFound)
		// The lowest masked elevation is 2450, so the first qualifying
		// band is 2400.
		assert.Equal(t, 2400.0, rep.SnowlineBand)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.GlaciersProcessed))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.GlacierErrors))
		assert.Equal(t, 6.0, testutil.ToFloat64(m.RastersWritten))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ScenesResampled))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SnowlinesFound))
	})

	t.Run("failed run is skipped, not fatal", func(t *testing.T) {
		products := newFakeProducts()
		p, m := newTestPipeline(
			&fakeGrids{grids: map[string]*domain.Grid{"aletsch": testGrid(t)}},
			// Three values for four masked cells.
			&fakePreds{keys: []domain.HydroKey{key}, vals: map[string][]float64{"aletsch": {0.5, 0.3, 0.2}}},
			&fakeScenes{},
			products,
		)

		require.NoError(t, p.Run(context.Background()))
		assert.Empty(t, products.grids)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.GlacierErrors))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.GlaciersProcessed))
	})

	t.Run("scene outside coverage is counted and skipped", func(t *testing.T) {
		farScene, err := domain.NewTable([]geom.Point{
			{X: 9.00, Y: 47.00}, {X: 9.01, Y: 47.01},
		}, domain.Proj4WGS84).WithColumn(domain.FieldClasses, []float64{domain.ClassSnow, domain.ClassIce})
		require.NoError(t, err)

		products := newFakeProducts()
		p, m := newTestPipeline(
			&fakeGrids{grids: map[string]*domain.Grid{"aletsch": testGrid(t)}},
			&fakePreds{keys: []domain.HydroKey{key}, vals: map[string][]float64{"aletsch": {0.5, 0.3, 0.2, 0.8}}},
			&fakeScenes{tables: map[string]*domain.Table{"/scenes/2021/far.tif": farScene}},
			products,
		)

		require.NoError(t, p.Run(context.Background()))
		assert.Empty(t, products.reports)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ScenesSkipped.WithLabelValues("outside-coverage")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.GlaciersProcessed))
	})

	t.Run("no scenes means no report", func(t *testing.T) {
		products := newFakeProducts()
		p, _ := newTestPipeline(
			&fakeGrids{grids: map[string]*domain.Grid{"aletsch": testGrid(t)}},
			&fakePreds{keys: []domain.HydroKey{key}, vals: map[string][]float64{"aletsch": {0.5, 0.3, 0.2, 0.8}}},
			&fakeScenes{},
			products,
		)
		require.NoError(t, p.Run(context.Background()))
		assert.Empty(t, products.reports)
		assert.Len(t, products.grids, 2)
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		products := newFakeProducts()
		p, _ := newTestPipeline(
			&fakeGrids{grids: map[string]*domain.Grid{"aletsch": testGrid(t)}},
			&fakePreds{keys: []domain.HydroKey{key}, vals: map[string][]float64{"aletsch": {0.5, 0.3, 0.2, 0.8}}},
			&fakeScenes{},
			products,
		)
		require.ErrorIs(t, p.Run(ctx), context.Canceled)
		assert.Empty(t, products.grids)
	})
}

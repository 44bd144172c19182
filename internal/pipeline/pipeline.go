// Package pipeline orchestrates the per-glacier batch: load the directory
// grid, attach and smooth model predictions, write the georeferenced
// products, and compare the model classification against every matching
// satellite scene. One failed glacier run is logged and skipped; it never
// aborts the rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glaciermb/glacier-geodata-etl/internal/config"
	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
	"github.com/glaciermb/glacier-geodata-etl/internal/observability"
)

// GridSource serves glacier-directory grids.
type GridSource interface {
	Glaciers() ([]string, error)
	Grid(glacier string) (*domain.Grid, error)
}

// PredictionSource serves per-cell prediction vectors by glacier and run.
type PredictionSource interface {
	Keys(glacier string) ([]domain.HydroKey, error)
	Load(glacier string, key domain.HydroKey) ([]float64, error)
}

// SceneSource serves satellite classification scenes. ScenesFor groups
// tiles by acquisition date; ReadClassPoints mosaics a multi-tile group
// before converting it to points.
type SceneSource interface {
	ScenesFor(key domain.HydroKey) [][]string
	ReadClassPoints(paths []string) (*domain.Table, error)
}

// SceneReport summarizes one satellite scene against the model
// classification for the same glacier run.
type SceneReport struct {
	Scene          string
	SnowCover      float64
	ModelSnowCover float64
	SnowlineBand   float64
	SnowlineFound  bool
}

// ProductWriter persists pipeline outputs. Paths are composed by the
// pipeline; implementations replace pre-existing files.
type ProductWriter interface {
	WriteGrid(path string, g *domain.Grid) error
	WriteRaster(path string, t *domain.Table, column string, xAxis, yAxis []float64) error
	Warp(src, dst, dstProj4 string) error
	WriteSceneReports(path string, reports []SceneReport) error
}

// Pipeline runs the batch over every glacier with a grid on disk.
type Pipeline struct {
	grids    GridSource
	preds    PredictionSource
	scenes   SceneSource
	products ProductWriter
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Pipeline with the given sources, sink, and observability.
func New(grids GridSource, preds PredictionSource, scenes SceneSource, products ProductWriter,
	cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		grids:    grids,
		preds:    preds,
		scenes:   scenes,
		products: products,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run processes every (glacier, run) combination. Individual run failures
// are counted and skipped; Run itself fails only when the glacier listing
// does, or when the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	glaciers, err := p.grids.Glaciers()
	if err != nil {
		return fmt.Errorf("listing glaciers: %w", err)
	}
	p.logger.Info("batch started", "glaciers", len(glaciers))

	for _, glacier := range glaciers {
		keys, err := p.preds.Keys(glacier)
		if err != nil {
			p.logger.Error("listing runs failed, skipping glacier", "glacier", glacier, "error", err)
			p.metrics.GlacierErrors.Inc()
			continue
		}
		if len(keys) == 0 {
			p.logger.Warn("no predictions for glacier", "glacier", glacier)
			continue
		}

		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				p.logger.Info("batch stopping", "reason", err)
				return err
			}

			start := time.Now()
			if err := p.processRun(glacier, key); err != nil {
				p.logger.Error("run failed, skipping",
					"glacier", glacier, "hydro_year", key.Year, "month", key.Month, "error", err)
				p.metrics.GlacierErrors.Inc()
				continue
			}
			p.metrics.GlaciersProcessed.Inc()
			p.metrics.GlacierDuration.Observe(time.Since(start).Seconds())
		}
	}

	p.logger.Info("batch finished")
	return nil
}

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/geotiff"
	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/netcdf"
	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/scenes"
	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
	"github.com/glaciermb/glacier-geodata-etl/internal/pipeline"
)

// sceneSource adapts the on-disk scene index and the GeoTIFF reader to the
// pipeline's SceneSource. Multi-tile acquisitions are mosaicked into a
// temporary raster before reading.
type sceneSource struct {
	index scenes.Index
}

func (s sceneSource) ScenesFor(key domain.HydroKey) [][]string {
	return s.index.ScenesFor(key)
}

func (s sceneSource) ReadClassPoints(paths []string) (*domain.Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("empty scene group")
	}
	if len(paths) == 1 {
		return geotiff.ReadClassPoints(paths[0])
	}

	tmp, err := os.MkdirTemp("", "geodata-mosaic-*")
	if err != nil {
		return nil, fmt.Errorf("creating mosaic workspace: %w", err)
	}
	defer os.RemoveAll(tmp)

	merged := paths[0]
	for i, next := range paths[1:] {
		out := filepath.Join(tmp, fmt.Sprintf("mosaic_%d.tif", i))
		if err := geotiff.Merge(merged, next, out); err != nil {
			return nil, fmt.Errorf("merging %s: %w", next, err)
		}
		merged = out
	}
	return geotiff.ReadClassPoints(merged)
}

// productStore persists pipeline outputs to the local filesystem.
type productStore struct{}

func (productStore) WriteGrid(path string, g *domain.Grid) error {
	return netcdf.WriteGrid(path, g)
}

func (productStore) WriteRaster(path string, t *domain.Table, column string, xAxis, yAxis []float64) error {
	return geotiff.WriteRaster(path, t, column, xAxis, yAxis)
}

func (productStore) Warp(src, dst, dstProj4 string) error {
	return geotiff.Warp(src, dst, dstProj4)
}

func (productStore) WriteSceneReports(path string, reports []pipeline.SceneReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"scene", "snow_cover", "model_snow_cover", "snowline_band", "snowline_found"}); err != nil {
		return err
	}
	for _, r := range reports {
		band := ""
		if r.SnowlineFound {
			band = strconv.FormatFloat(r.SnowlineBand, 'f', -1, 64)
		}
		rec := []string{
			r.Scene,
			strconv.FormatFloat(r.SnowCover, 'g', -1, 64),
			strconv.FormatFloat(r.ModelSnowCover, 'g', -1, 64),
			band,
			strconv.FormatBool(r.SnowlineFound),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

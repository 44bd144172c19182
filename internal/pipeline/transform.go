package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// processRun produces all outputs for one (glacier, run) combination under
// <output>/<glacier>/<year>_<month>/.
func (p *Pipeline) processRun(glacier string, key domain.HydroKey) error {
	g, err := p.grids.Grid(glacier)
	if err != nil {
		return fmt.Errorf("loading grid: %w", err)
	}
	preds, err := p.preds.Load(glacier, key)
	if err != nil {
		return fmt.Errorf("loading predictions: %w", err)
	}
	g, err = g.AttachPredictions(preds, domain.FieldPrediction)
	if err != nil {
		return fmt.Errorf("attaching predictions: %w", err)
	}
	g, err = domain.SmoothField(g, domain.FieldPrediction, p.cfg.Sigma)
	if err != nil {
		return fmt.Errorf("smoothing predictions: %w", err)
	}

	dir := filepath.Join(p.cfg.OutputDir, glacier, key.String())
	if err := p.writeGrid(filepath.Join(dir, "grid_xy.nc"), g); err != nil {
		return err
	}

	geo, err := domain.ToGeographic(g)
	if err != nil {
		return fmt.Errorf("reprojecting grid: %w", err)
	}
	if err := p.writeGrid(filepath.Join(dir, "grid_latlon.nc"), geo); err != nil {
		return err
	}

	fields := []string{domain.FieldPrediction}
	_, hasElev := geo.Field(domain.FieldElevation)
	if hasElev {
		fields = append(fields, domain.FieldElevation)
	}
	if _, ok := geo.Field(domain.FieldDistance); ok {
		fields = append(fields, domain.FieldDistance)
	}
	t, err := domain.GridToPoints(geo, fields...)
	if err != nil {
		return fmt.Errorf("converting grid to points: %w", err)
	}
	t, err = domain.ClassifySnowIce(t, domain.FieldPrediction, p.cfg.Tolerance)
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}

	rasters := []struct{ column, name string }{
		{domain.FieldPrediction, "pred"},
		{domain.FieldClasses, "classes"},
	}
	for _, r := range rasters {
		src := filepath.Join(dir, r.name+"_latlon.tif")
		if err := p.products.WriteRaster(src, t, r.column, geo.X, geo.Y); err != nil {
			return fmt.Errorf("writing %s raster: %w", r.name, err)
		}
		p.metrics.RastersWritten.Inc()

		dst := filepath.Join(dir, r.name+"_lv95.tif")
		if err := p.products.Warp(src, dst, domain.Proj4LV95); err != nil {
			return fmt.Errorf("warping %s raster: %w", r.name, err)
		}
		p.metrics.RastersWritten.Inc()
	}

	// Scene comparison runs in the scenes' frame, starting from the grid's
	// native coordinates. For the Swiss product both are LV95 already.
	native, err := domain.GridToPoints(g, fields...)
	if err != nil {
		return fmt.Errorf("converting grid to points: %w", err)
	}
	native, err = domain.ClassifySnowIce(native, domain.FieldPrediction, p.cfg.Tolerance)
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}
	reports, err := p.compareScenes(glacier, key, native, hasElev)
	if err != nil {
		return err
	}
	if len(reports) > 0 {
		if err := p.products.WriteSceneReports(filepath.Join(dir, "snow_cover.csv"), reports); err != nil {
			return fmt.Errorf("writing scene reports: %w", err)
		}
	}
	return nil
}

// compareScenes resamples every matching satellite scene onto the model
// point table and summarizes each. Scenes that fail to read or do not cover
// the glacier are counted and skipped. Each comparison runs in the scene's
// own frame; the model points are reprojected only when the frames differ.
func (p *Pipeline) compareScenes(glacier string, key domain.HydroKey, model *domain.Table, hasElev bool) ([]SceneReport, error) {
	groups := p.scenes.ScenesFor(key)
	if len(groups) == 0 {
		return nil, nil
	}

	target := model
	if hasElev {
		banded, err := domain.BandElevations(target, p.cfg.BandSize)
		if err != nil {
			return nil, fmt.Errorf("banding elevations: %w", err)
		}
		target = banded
	}
	modelSnow := domain.SnowCoverFraction(target)

	var reports []SceneReport
	for _, group := range groups {
		name := filepath.Base(group[0])
		scene, err := p.scenes.ReadClassPoints(group)
		if err != nil {
			p.logger.Warn("reading scene failed, skipping",
				"glacier", glacier, "scene", name, "tiles", len(group), "error", err)
			p.metrics.ScenesSkipped.WithLabelValues("read-error").Inc()
			continue
		}
		scene = domain.FillCloudsNearest(scene, p.cfg.CloudClass)

		// Proj4 comparison is textual: equivalent strings that differ in
		// spelling cost one identity reprojection, nothing more.
		cmp := target
		if scene.Proj4 != "" && scene.Proj4 != target.Proj4 {
			cmp, err = domain.ReprojectPoints(target, scene.Proj4)
			if err != nil {
				p.logger.Warn("reprojecting to scene frame failed, skipping",
					"glacier", glacier, "scene", name, "error", err)
				p.metrics.ScenesSkipped.WithLabelValues("reproject-error").Inc()
				continue
			}
		}

		res, outcome, err := domain.ResampleToPoints(cmp, scene, domain.FieldPrediction)
		if err != nil {
			return nil, fmt.Errorf("resampling scene %s: %w", name, err)
		}
		if outcome != domain.ResampleOK {
			p.logger.Debug("scene does not cover glacier",
				"glacier", glacier, "scene", name, "outcome", outcome.String())
			p.metrics.ScenesSkipped.WithLabelValues(outcome.String()).Inc()
			continue
		}
		p.metrics.ScenesResampled.Inc()

		rep := SceneReport{
			Scene:          name,
			SnowCover:      domain.SnowCoverFraction(res),
			ModelSnowCover: modelSnow,
		}
		if hasElev {
			if _, band, found := domain.FindSnowline(res, domain.ClassSnow, p.cfg.SnowlineThreshold); found {
				rep.SnowlineBand = band
				rep.SnowlineFound = true
				p.metrics.SnowlinesFound.Inc()
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// writeGrid persists one NetCDF product and counts it.
func (p *Pipeline) writeGrid(path string, g *domain.Grid) error {
	if err := p.products.WriteGrid(path, g); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	p.metrics.RastersWritten.Inc()
	return nil
}

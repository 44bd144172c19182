// Command geodata-etl post-processes glacier mass-balance predictions into
// georeferenced products and compares them against satellite snow/ice
// classifications.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/netcdf"
	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/predictions"
	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/scenes"
	"github.com/glaciermb/glacier-geodata-etl/internal/config"
	"github.com/glaciermb/glacier-geodata-etl/internal/observability"
	"github.com/glaciermb/glacier-geodata-etl/internal/pipeline"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	index, err := scenes.Build(cfg.SceneDir, cfg.SceneYears, cfg.SceneCutoff)
	if err != nil {
		logger.Error("indexing scenes failed", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(
		netcdf.NewDirStore(cfg.GridDir),
		predictions.NewStore(cfg.PredictionsDir),
		sceneSource{index: index},
		productStore{},
		cfg, logger, metrics,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := p.Run(ctx)
	metrics.LogSummary(logger)
	if runErr != nil {
		logger.Error("batch error", "error", runErr)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*config.Config, error) {
	cfg := config.Default()
	var years string

	fs := flag.NewFlagSet("geodata-etl", flag.ExitOnError)
	fs.StringVar(&cfg.GridDir, "grids", "", "directory of glacier grid NetCDF files")
	fs.StringVar(&cfg.PredictionsDir, "predictions", "", "directory of per-run prediction CSV files")
	fs.StringVar(&cfg.SceneDir, "scenes", "", "satellite classification root, one subdirectory per year")
	fs.StringVar(&cfg.OutputDir, "out", "", "output root directory")
	fs.StringVar(&years, "scene-years", "", "comma-separated acquisition years to index")
	fs.IntVar(&cfg.SceneCutoff, "scene-cutoff", cfg.SceneCutoff, "drop scenes at or beyond this hydrological year")
	fs.Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "snow/ice classification tolerance (m w.e.)")
	fs.Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "Gaussian smoothing sigma in grid cells")
	fs.Float64Var(&cfg.BandSize, "band-size", cfg.BandSize, "elevation band width in meters")
	fs.Float64Var(&cfg.SnowlineThreshold, "snowline-threshold", cfg.SnowlineThreshold, "snow percentage a band must reach")
	fs.Float64Var(&cfg.CloudClass, "cloud-class", cfg.CloudClass, "class label treated as cloud")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if years != "" {
		parsed, err := parseYears(years)
		if err != nil {
			return nil, err
		}
		cfg.SceneYears = parsed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parsing scene year %q: %w", part, err)
		}
		years = append(years, y)
	}
	return years, nil
}

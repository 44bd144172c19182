// Package config holds the run configuration for the geodata batch tool.
//
// There is deliberately one source of truth for the analysis thresholds
// (classification tolerance, smoothing sigma, elevation band size, snowline
// threshold): earlier incarnations of this pipeline scattered them across
// call sites as literals, and the defaults below are the authoritative
// values. Paths arrive as explicit CLI flags; nothing is read from the
// environment.
package config

import (
	"errors"
	"fmt"
)

// Config holds all settings for one batch run.
type Config struct {
	// GridDir contains one glacier-directory NetCDF file per glacier.
	GridDir string
	// PredictionsDir contains one CSV of per-cell mass-balance predictions
	// per (glacier, month).
	PredictionsDir string
	// SceneDir is the satellite classification root, one subdirectory per
	// acquisition year.
	SceneDir string
	// OutputDir is the root for every written product.
	OutputDir string

	// SceneYears lists the acquisition-year subdirectories to index.
	SceneYears []int
	// SceneCutoff drops scenes at or beyond this hydrological year.
	SceneCutoff int

	// Tolerance absorbs near-zero mass balance around the firn line when
	// classifying snow against ice (m w.e.).
	Tolerance float64
	// Sigma is the Gaussian smoothing standard deviation in grid cells.
	Sigma float64
	// BandSize is the elevation band width in meters.
	BandSize float64
	// SnowlineThreshold is the snow percentage a band must reach to count
	// as the snowline.
	SnowlineThreshold float64
	// CloudClass is the satellite label treated as unusable.
	CloudClass float64

	LogLevel  string
	LogFormat string
}

// Default returns the authoritative defaults for all analysis thresholds.
func Default() *Config {
	return &Config{
		SceneCutoff:       2022,
		Tolerance:         0.1,
		Sigma:             1,
		BandSize:          100,
		SnowlineThreshold: 50,
		CloudClass:        5,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.GridDir == "" {
		return errors.New("grid directory is required")
	}
	if c.PredictionsDir == "" {
		return errors.New("predictions directory is required")
	}
	if c.SceneDir == "" {
		return errors.New("scene directory is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if len(c.SceneYears) == 0 {
		return errors.New("at least one scene year is required")
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance %g must not be negative", c.Tolerance)
	}
	if c.Sigma < 0 {
		return fmt.Errorf("sigma %g must not be negative", c.Sigma)
	}
	if c.BandSize <= 0 {
		return fmt.Errorf("band size %g must be positive", c.BandSize)
	}
	if c.SnowlineThreshold <= 0 || c.SnowlineThreshold > 100 {
		return fmt.Errorf("snowline threshold %g must be in (0, 100]", c.SnowlineThreshold)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Package scenes discovers satellite classification scenes on disk and
// indexes them by hydrological year and month.
//
// Scenes live under one directory per acquisition year and are named with
// underscore-separated segments whose fourth segment starts with the
// 8-digit acquisition date, e.g.
//
//	<root>/2021/classification_S2_32TMS_20210917T103021_10m.tif
//
// The acquisition date decides the scene's hydrological bucket via
// domain.HydroDate.
package scenes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// Scene is one classification raster on disk.
type Scene struct {
	Path       string
	Date       time.Time
	HydroYear  int
	HydroMonth string
}

// Index maps hydrological year, then lowercase month name, to scenes sorted
// by acquisition date.
type Index map[int]map[string][]Scene

// ScenesFor returns the scene paths bucketed under key, oldest first,
// grouped by acquisition date: tiles acquired on the same day belong to one
// acquisition and are meant to be mosaicked before use.
func (ix Index) ScenesFor(key domain.HydroKey) [][]string {
	bucket := ix[key.Year][key.Month]
	var groups [][]string
	for i, s := range bucket {
		if i > 0 && s.Date.Equal(bucket[i-1].Date) {
			groups[len(groups)-1] = append(groups[len(groups)-1], s.Path)
			continue
		}
		groups = append(groups, []string{s.Path})
	}
	return groups
}

// Build walks one subdirectory per entry of years under root and indexes
// every .tif scene. Scenes falling into hydrological years at or beyond
// cutoff are dropped, matching the validation period of the satellite
// product. Filenames that do not carry a parseable date are an error: a
// silently skipped scene would bias the coverage statistics.
func Build(root string, years []int, cutoff int) (Index, error) {
	idx := make(Index)
	for _, year := range years {
		dir := filepath.Join(root, fmt.Sprint(year))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("listing scene directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".tif") {
				continue
			}
			date, err := sceneDate(e.Name())
			if err != nil {
				return nil, fmt.Errorf("scene %s: %w", e.Name(), err)
			}
			month, hydroYear := domain.HydroDate(date)
			if hydroYear >= cutoff {
				continue
			}
			if idx[hydroYear] == nil {
				idx[hydroYear] = make(map[string][]Scene)
			}
			idx[hydroYear][month] = append(idx[hydroYear][month], Scene{
				Path:       filepath.Join(dir, e.Name()),
				Date:       date,
				HydroYear:  hydroYear,
				HydroMonth: month,
			})
		}
	}
	for _, months := range idx {
		for _, list := range months {
			sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		}
	}
	return idx, nil
}

// sceneDate extracts the acquisition date from the fourth underscore
// segment of a scene filename.
func sceneDate(name string) (time.Time, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 4 || len(parts[3]) < 8 {
		return time.Time{}, fmt.Errorf("filename has no date segment")
	}
	date, err := time.Parse("20060102", parts[3][:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date segment %q: %w", parts[3][:8], err)
	}
	return date, nil
}

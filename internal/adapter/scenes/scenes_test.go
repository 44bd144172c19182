package scenes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

func TestBuild(t *testing.T) {
	root := t.TempDir()
	for _, y := range []string{"2020", "2021"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, y), 0o755))
	}
	files := map[string]string{
		"2020": "classification_S2_32TMS_20200917T103021_10m.tif",
		"2021": "classification_S2_32TMS_20210728T103021_10m.tif",
	}
	for year, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, year, name), nil, 0o644))
	}
	// A second July 2021 scene, earlier in the month, and a non-raster file.
	// Both July days are past the 15th, so neither snaps back to June.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "2021", "classification_S2_32TMS_20210716T103021_10m.tif"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2021", "notes.txt"), nil, 0o644))

	idx, err := Build(root, []int{2020, 2021}, 2022)
	require.NoError(t, err)

	t.Run("september scene lands in the next hydro year", func(t *testing.T) {
		require.Contains(t, idx, 2021)
		scenes := idx[2021]["sep"]
		require.Len(t, scenes, 1)
		assert.Equal(t, time.Date(2020, 9, 17, 0, 0, 0, 0, time.UTC), scenes[0].Date)
	})

	t.Run("scenes sorted by date within a month", func(t *testing.T) {
		scenes := idx[2021]["jul"]
		require.Len(t, scenes, 2)
		assert.True(t, scenes[0].Date.Before(scenes[1].Date))
	})

	t.Run("non-tif entries ignored", func(t *testing.T) {
		total := 0
		for _, months := range idx {
			for _, list := range months {
				total += len(list)
			}
		}
		assert.Equal(t, 3, total)
	})
}

func TestBuildEarlyDaySnapsToPreviousMonth(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021"), 0o755))
	// July 5th is before the 15th and buckets under June.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "2021", "classification_S2_32TMS_20210705T103021_10m.tif"), nil, 0o644))

	idx, err := Build(root, []int{2021}, 2022)
	require.NoError(t, err)
	require.Contains(t, idx, 2021)
	assert.Empty(t, idx[2021]["jul"])
	require.Len(t, idx[2021]["jun"], 1)
	assert.Equal(t, time.Date(2021, 7, 5, 0, 0, 0, 0, time.UTC), idx[2021]["jun"][0].Date)
}

func TestScenesFor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021"), 0o755))
	// Two tiles from the same July acquisition plus a later single-tile one.
	for _, name := range []string{
		"classification_S2_32TMS_20210716T103021_10m.tif",
		"classification_S2_32TNS_20210716T103021_10m.tif",
		"classification_S2_32TMS_20210727T103021_10m.tif",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "2021", name), nil, 0o644))
	}

	idx, err := Build(root, []int{2021}, 2022)
	require.NoError(t, err)

	groups := idx.ScenesFor(domain.HydroKey{Year: 2021, Month: "jul"})
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)

	assert.Empty(t, idx.ScenesFor(domain.HydroKey{Year: 2021, Month: "jan"}))
}

func TestBuildCutoff(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021"), 0o755))
	// October 2021 belongs to hydro year 2022, at the cutoff.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "2021", "classification_S2_32TMS_20211017T103021_10m.tif"), nil, 0o644))

	idx, err := Build(root, []int{2021}, 2022)
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestBuildBadFilename(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2021"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2021", "scene.tif"), nil, 0o644))

	_, err := Build(root, []int{2021}, 2022)
	require.Error(t, err)
}

func TestBuildMissingDirectory(t *testing.T) {
	_, err := Build(t.TempDir(), []int{1999}, 2022)
	require.Error(t, err)
}

func TestSceneDate(t *testing.T) {
	d, err := sceneDate("classification_S2_32TMS_20210917T103021_10m.tif")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 9, 17, 0, 0, 0, 0, time.UTC), d)

	_, err = sceneDate("classification_S2_32TMS_2021xx17.tif")
	require.Error(t, err)
}

package netcdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// DirStore serves glacier-directory grids from a flat directory holding one
// <glacier>.nc file per glacier.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Glaciers lists the glacier names with a grid on disk, sorted.
func (s *DirStore) Glaciers() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading grid directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".nc" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".nc"))
	}
	sort.Strings(names)
	return names, nil
}

// Grid loads one glacier's directory grid.
func (s *DirStore) Grid(glacier string) (*domain.Grid, error) {
	return ReadGrid(filepath.Join(s.dir, glacier+".nc"))
}

// Package predictions reads per-cell mass-balance prediction vectors from
// CSV files. One file holds the predictions for one glacier and one model
// run, named <glacier>_<hydroYear>_<month>.csv, with a single column of
// float values in the grid's row-major masked-cell scan order. An optional
// header row is skipped.
package predictions

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// Store reads prediction files from a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Keys lists the model runs available for a glacier, sorted by year then
// month name. Files that carry the glacier prefix but do not parse as
// <glacier>_<year>_<month>.csv are an error: a skipped run would silently
// shrink the batch.
func (s *Store) Keys(glacier string) ([]domain.HydroKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading predictions directory: %w", err)
	}

	prefix := glacier + "_"
	var keys []domain.HydroKey
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ".csv" {
			continue
		}
		key, err := parseKey(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".csv"))
		if err != nil {
			return nil, fmt.Errorf("prediction file %s: %w", name, err)
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
	return keys, nil
}

// Load reads the prediction vector for one run.
func (s *Store) Load(glacier string, key domain.HydroKey) ([]float64, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", glacier, key))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening predictions: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	values := make([]float64, 0, len(records))
	for i, rec := range records {
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			if i == 0 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("%s row %d: parsing %q: %w", path, i+1, rec[0], err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s holds no values", path)
	}
	return values, nil
}

func parseKey(s string) (domain.HydroKey, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return domain.HydroKey{}, fmt.Errorf("want <year>_<month>, got %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.HydroKey{}, fmt.Errorf("parsing year %q: %w", parts[0], err)
	}
	if len(parts[1]) != 3 {
		return domain.HydroKey{}, fmt.Errorf("month %q is not a three-letter name", parts[1])
	}
	return domain.HydroKey{Year: year, Month: parts[1]}, nil
}

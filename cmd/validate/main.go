// Command validate performs integrity checks over a geodata-etl output
// tree: product layout per run directory, NetCDF grid consistency between
// the planar and geographic variants, and snow-cover report plausibility.
//
// Usage:
//
//	go run ./cmd/validate -out data/out -band-size 100
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/netcdf"
	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

var requiredFiles = []string{
	"grid_xy.nc",
	"grid_latlon.nc",
	"pred_latlon.tif",
	"classes_latlon.tif",
	"pred_lv95.tif",
	"classes_lv95.tif",
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	out := flag.String("out", "", "geodata-etl output root to validate")
	bandSize := flag.Float64("band-size", 100, "elevation band width the run used")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		os.Exit(1)
	}
	if code := run(*out, *bandSize); code != 0 {
		os.Exit(code)
	}
}

func run(root string, bandSize float64) int {
	fmt.Println("=== Geodata Output Validation ===")
	fmt.Println()

	runs, err := findRuns(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scanning output tree: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no run directories under %s\n", root)
		return 1
	}

	phases := []*phase{
		validateLayout(runs),
		validateGrids(runs),
		validateReports(runs, bandSize),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Run directories checked: %d\n", len(runs))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// findRuns lists <root>/<glacier>/<year>_<month> directories.
func findRuns(root string) ([]string, error) {
	glaciers, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, g := range glaciers {
		if !g.IsDir() {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(root, g.Name()))
		if err != nil {
			return nil, err
		}
		for _, r := range sub {
			if r.IsDir() && strings.Contains(r.Name(), "_") {
				runs = append(runs, filepath.Join(root, g.Name(), r.Name()))
			}
		}
	}
	return runs, nil
}

// ── Phase 1: Product Layout ──
// Every run directory carries the full product set, and rasters are not
// zero-byte leftovers from an interrupted write.

func validateLayout(runs []string) *phase {
	p := &phase{name: "Phase 1: Product Layout"}
	for _, dir := range runs {
		for _, name := range requiredFiles {
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil {
				p.errorf("%s: missing %s", dir, name)
				continue
			}
			if info.Size() == 0 {
				p.errorf("%s: %s is empty", dir, name)
			}
		}
	}
	return p
}

// ── Phase 2: Grid Consistency ──
// The planar and geographic NetCDF variants describe the same glacier.

func validateGrids(runs []string) *phase {
	p := &phase{name: "Phase 2: Grid Consistency (NetCDF)"}
	for _, dir := range runs {
		xy, err := netcdf.ReadGrid(filepath.Join(dir, "grid_xy.nc"))
		if err != nil {
			p.errorf("%s: reading grid_xy.nc: %v", dir, err)
			continue
		}
		ll, err := netcdf.ReadGrid(filepath.Join(dir, "grid_latlon.nc"))
		if err != nil {
			p.errorf("%s: reading grid_latlon.nc: %v", dir, err)
			continue
		}

		checkGridPair(p, dir, xy, ll)
	}
	return p
}

func checkGridPair(p *phase, dir string, xy, ll *domain.Grid) {
	if xy.Nx() != ll.Nx() || xy.Ny() != ll.Ny() {
		p.errorf("%s: shape mismatch: xy %dx%d vs latlon %dx%d",
			dir, xy.Ny(), xy.Nx(), ll.Ny(), ll.Nx())
		return
	}
	if xy.MaskCount() != ll.MaskCount() {
		p.errorf("%s: mask mismatch: xy has %d cells, latlon has %d",
			dir, xy.MaskCount(), ll.MaskCount())
	}
	if ll.XName != "longitude" || ll.YName != "latitude" {
		p.errorf("%s: latlon axes named %q/%q", dir, ll.XName, ll.YName)
	}

	for _, g := range []*domain.Grid{xy, ll} {
		pred, ok := g.Field(domain.FieldPrediction)
		if !ok {
			p.errorf("%s: %s field missing", dir, domain.FieldPrediction)
			return
		}
		nx := g.Nx()
		for idx, masked := range g.Mask {
			v := pred.Get(idx/nx, idx%nx)
			if !masked && !math.IsNaN(v) {
				p.errorf("%s: prediction %g outside the glacier mask at cell %d", dir, v, idx)
			}
		}
	}
}

// ── Phase 3: Report Plausibility ──
// Snow-cover reports, when present, hold fractions and band-aligned
// snowline elevations.

func validateReports(runs []string, bandSize float64) *phase {
	p := &phase{name: "Phase 3: Report Plausibility (CSV)"}
	for _, dir := range runs {
		path := filepath.Join(dir, "snow_cover.csv")
		rows, err := readReport(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		for i, r := range rows {
			checkReportRow(p, path, i+2, r, bandSize)
		}
	}
	return p
}

type reportRow struct {
	scene      string
	snowCover  float64
	modelSnow  float64
	band       string
	foundField string
}

func readReport(path string) ([]reportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows")
	}
	want := []string{"scene", "snow_cover", "model_snow_cover", "snowline_band", "snowline_found"}
	for i, h := range want {
		if i >= len(all[0]) || all[0][i] != h {
			return nil, fmt.Errorf("header mismatch: want %v, got %v", want, all[0])
		}
	}

	rows := make([]reportRow, 0, len(all)-1)
	for _, rec := range all[1:] {
		if len(rec) != 5 {
			return nil, fmt.Errorf("row has %d fields, want 5", len(rec))
		}
		sc, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing snow_cover %q: %w", rec[1], err)
		}
		ms, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing model_snow_cover %q: %w", rec[2], err)
		}
		rows = append(rows, reportRow{
			scene: rec[0], snowCover: sc, modelSnow: ms,
			band: rec[3], foundField: rec[4],
		})
	}
	return rows, nil
}

func checkReportRow(p *phase, path string, line int, r reportRow, bandSize float64) {
	if r.scene == "" {
		p.errorf("%s line %d: empty scene name", path, line)
	}
	for _, v := range []struct {
		name string
		val  float64
	}{{"snow_cover", r.snowCover}, {"model_snow_cover", r.modelSnow}} {
		if math.IsNaN(v.val) {
			continue
		}
		if v.val < 0 || v.val > 1 {
			p.errorf("%s line %d: %s %g outside [0, 1]", path, line, v.name, v.val)
		}
	}

	switch r.foundField {
	case "true":
		band, err := strconv.ParseFloat(r.band, 64)
		if err != nil {
			p.errorf("%s line %d: snowline_band %q is not numeric", path, line, r.band)
			return
		}
		if rem := math.Mod(band, bandSize); rem != 0 {
			p.errorf("%s line %d: snowline_band %g is not a multiple of %g", path, line, band, bandSize)
		}
	case "false":
		if r.band != "" {
			p.errorf("%s line %d: snowline_band %q set but snowline_found is false", path, line, r.band)
		}
	default:
		p.errorf("%s line %d: snowline_found %q is not a boolean", path, line, r.foundField)
	}
}

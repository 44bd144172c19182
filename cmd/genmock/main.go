// Command genmock generates a synthetic input tree for exercising the
// geodata pipeline end to end without real glacier data: one glacier grid
// NetCDF, a matching prediction CSV, and a satellite classification scene.
// It uses the actual domain and adapter packages so the fixtures match real
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/mock -glacier aletsch -year 2021 -month jun
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/jonboulle/clockwork"

	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/geotiff"
	"github.com/glaciermb/glacier-geodata-etl/internal/adapter/netcdf"
	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

var calendarMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "root directory for the generated tree")
	glacier := flag.String("glacier", "aletsch", "glacier name")
	year := flag.Int("year", 2021, "hydrological year")
	month := flag.String("month", "jun", "lowercase three-letter month")
	nx := flag.Int("nx", 40, "grid columns")
	ny := flag.Int("ny", 30, "grid rows")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	calMonth, ok := calendarMonths[*month]
	if !ok {
		return fmt.Errorf("unknown month %q", *month)
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))

	g, err := buildGrid(*nx, *ny)
	if err != nil {
		return fmt.Errorf("building grid: %w", err)
	}
	gridPath := filepath.Join(*out, "grids", *glacier+".nc")
	if err := netcdf.WriteGrid(gridPath, g); err != nil {
		return fmt.Errorf("writing grid: %w", err)
	}
	log.Printf("wrote grid: %s (%d masked cells)", gridPath, g.MaskCount())

	key := domain.HydroKey{Year: *year, Month: *month}
	predPath := filepath.Join(*out, "predictions", fmt.Sprintf("%s_%s.csv", *glacier, key))
	if err := writePredictions(predPath, g); err != nil {
		return fmt.Errorf("writing predictions: %w", err)
	}
	log.Printf("wrote predictions: %s", predPath)

	sceneDate := sceneDateFor(*year, calMonth)
	scenePath := filepath.Join(*out, "scenes", fmt.Sprint(sceneDate.Year()),
		fmt.Sprintf("classification_S2_32TMS_%sT103021_10m.tif", sceneDate.Format("20060102")))
	if err := writeScene(scenePath, g); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	log.Printf("wrote scene: %s", scenePath)

	log.Printf("run the pipeline with: -grids %s -predictions %s -scenes %s -scene-years %d",
		filepath.Join(*out, "grids"), filepath.Join(*out, "predictions"),
		filepath.Join(*out, "scenes"), sceneDate.Year())
	return nil
}

// buildGrid makes an LV95 grid with an elliptical glacier mask, a
// north-sloping elevation field, and a distance-to-terminus field.
func buildGrid(nx, ny int) (*domain.Grid, error) {
	x := make([]float64, nx)
	y := make([]float64, ny)
	for i := range x {
		x[i] = 2600000 + 10*float64(i)
	}
	for j := range y {
		y[j] = 1100000 + 10*float64(j)
	}

	cx, cy := float64(nx-1)/2, float64(ny-1)/2
	mask := make([]bool, ny*nx)
	elev := sparse.ZerosDense(ny, nx)
	dist := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			dx := (float64(i) - cx) / cx
			dy := (float64(j) - cy) / cy
			inside := dx*dx+dy*dy <= 0.8
			mask[j*nx+i] = inside

			e := math.NaN()
			d := math.NaN()
			if inside {
				// Elevation climbs northward, 2100 m at the terminus.
				e = 2100 + 20*float64(j) + 5*math.Abs(float64(i)-cx)
				d = 10 * float64(j)
			}
			elev.Set(e, j, i)
			dist.Set(d, j, i)
		}
	}

	g, err := domain.NewGrid("x", "y", x, y, domain.Proj4LV95, mask)
	if err != nil {
		return nil, err
	}
	if g, err = g.WithField(domain.FieldElevation, elev); err != nil {
		return nil, err
	}
	return g.WithField(domain.FieldDistance, dist)
}

// writePredictions emits one mass-balance value per masked cell in row-major
// scan order: negative below the synthetic ELA, positive above.
func writePredictions(path string, g *domain.Grid) error {
	elev, _ := g.Field(domain.FieldElevation)
	const ela = 2500.0

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "pred"); err != nil {
		return err
	}
	nx := g.Nx()
	for idx, m := range g.Mask {
		if !m {
			continue
		}
		e := elev.Get(idx/nx, idx%nx)
		v := (e - ela) / 1000
		if _, err := fmt.Fprintln(f, strconv.FormatFloat(v, 'f', 4, 64)); err != nil {
			return err
		}
	}
	return f.Close()
}

// writeScene rasterizes a classification covering the grid with a margin:
// snow above the synthetic ELA elevation contour, ice below, and a small
// cloud patch near the center.
func writeScene(path string, g *domain.Grid) error {
	const margin = 5
	step := g.X[1] - g.X[0]

	var x, y []float64
	for v := g.X[0] - margin*step; v <= g.X[len(g.X)-1]+margin*step; v += step {
		x = append(x, v)
	}
	for v := g.Y[0] - margin*step; v <= g.Y[len(g.Y)-1]+margin*step; v += step {
		y = append(y, v)
	}

	// The grid's elevation climbs northward, so the snow/ice boundary is a
	// horizontal line in scene coordinates.
	boundary := g.Y[0] + 0.6*(g.Y[len(g.Y)-1]-g.Y[0])
	cloudX := g.X[len(g.X)/2]
	cloudY := g.Y[len(g.Y)/2]

	var pts []geom.Point
	var classes []float64
	for _, py := range y {
		for _, px := range x {
			c := float64(domain.ClassIce)
			if py > boundary {
				c = domain.ClassSnow
			}
			if math.Abs(px-cloudX) < 3*step && math.Abs(py-cloudY) < 3*step {
				c = domain.ClassCloud
			}
			pts = append(pts, geom.Point{X: px, Y: py})
			classes = append(classes, c)
		}
	}

	t, err := domain.NewTable(pts, domain.Proj4LV95).WithColumn(domain.FieldClasses, classes)
	if err != nil {
		return err
	}
	return geotiff.WriteRaster(path, t, domain.FieldClasses, x, y)
}

// sceneDateFor picks the 20th of the calendar month that buckets into the
// requested hydrological year.
func sceneDateFor(hydroYear int, m time.Month) time.Time {
	year := hydroYear
	if m >= time.September {
		year--
	}
	return time.Date(year, m, 20, 0, 0, 0, 0, time.UTC)
}

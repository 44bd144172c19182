// Package geotiff reads and writes raster image products through GDAL:
// gridded table columns out to GeoTIFF, satellite classification scenes in
// as point tables, plus reprojection (warp) and mosaicking of class rasters.
package geotiff

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/lukeroth/gdal"

	"github.com/glaciermb/glacier-geodata-etl/internal/domain"
)

// WriteRaster rasterizes one table column onto the given axes and writes it
// as a single-band GeoTIFF in the table's CRS. Any existing file at path is
// replaced; the destination directory is created if absent. NaN is the
// band's nodata value.
func WriteRaster(path string, t *domain.Table, column string, xAxis, yAxis []float64) error {
	data, err := domain.PointsToRaster(t, column, xAxis, yAxis)
	if err != nil {
		return err
	}
	return writeArray(path, data, xAxis, yAxis, t.Proj4)
}

// writeArray writes a [ny, nx] array over the given axes as a GeoTIFF.
func writeArray(path string, data *sparse.DenseArray, xAxis, yAxis []float64, proj4 string) error {
	if len(xAxis) < 2 || len(yAxis) < 2 {
		return fmt.Errorf("raster axes need at least 2 values per dimension (%d x, %d y)", len(xAxis), len(yAxis))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale output: %w", err)
	}

	nx, ny := len(xAxis), len(yAxis)
	gt := geoTransformFor(xAxis, yAxis)

	drv, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return fmt.Errorf("loading GTiff driver: %w", err)
	}
	ds := drv.Create(path, nx, ny, 1, gdal.Float64, nil)
	defer ds.Close()

	if err := ds.SetGeoTransform(gt); err != nil {
		return fmt.Errorf("setting geotransform on %s: %w", path, err)
	}
	if proj4 != "" {
		wkt, err := proj4ToWKT(proj4)
		if err != nil {
			return err
		}
		if err := ds.SetProjection(wkt); err != nil {
			return fmt.Errorf("setting projection on %s: %w", path, err)
		}
	}

	band := ds.RasterBand(1)
	if err := band.SetNoDataValue(math.NaN()); err != nil {
		return fmt.Errorf("setting nodata on %s: %w", path, err)
	}

	// The raster's first row is the northernmost; flip when the y axis
	// ascends.
	buf := make([]float64, nx*ny)
	for j := 0; j < ny; j++ {
		srcRow := j
		if yAscending(yAxis) {
			srcRow = ny - 1 - j
		}
		copy(buf[j*nx:(j+1)*nx], data.Elements[srcRow*nx:(srcRow+1)*nx])
	}
	if err := band.IO(gdal.Write, 0, 0, nx, ny, buf, nx, ny, 0, 0); err != nil {
		return fmt.Errorf("writing band of %s: %w", path, err)
	}
	return nil
}

// ReadClassPoints loads band 1 of a classification raster as a point table
// with a "classes" column, one row per pixel that is neither nodata nor NaN.
// Locations are pixel centers in the raster's own CRS.
func ReadClassPoints(path string) (*domain.Table, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer ds.Close()

	band := ds.RasterBand(1)
	nx, ny := band.XSize(), band.YSize()
	buf := make([]float64, nx*ny)
	if err := band.IO(gdal.Read, 0, 0, nx, ny, buf, nx, ny, 0, 0); err != nil {
		return nil, fmt.Errorf("reading band of %s: %w", path, err)
	}
	nodata, hasNodata := band.NoDataValue()

	gt := ds.GeoTransform()
	proj4, err := wktToProj4(ds.Projection())
	if err != nil {
		return nil, fmt.Errorf("reading CRS of %s: %w", path, err)
	}

	var points []geom.Point
	var classes []float64
	for row := 0; row < ny; row++ {
		for col := 0; col < nx; col++ {
			v := buf[row*nx+col]
			if math.IsNaN(v) || (hasNodata && v == nodata) {
				continue
			}
			x, y := pixelCenter(gt, col, row)
			points = append(points, geom.Point{X: x, Y: y})
			classes = append(classes, v)
		}
	}
	return domain.NewTable(points, proj4).WithColumn(domain.FieldClasses, classes)
}

// geoTransformFor builds a GDAL affine geotransform with the top-left pixel
// corner at the minimum x / maximum y cell edge.
func geoTransformFor(xAxis, yAxis []float64) [6]float64 {
	dx := math.Abs(xAxis[1] - xAxis[0])
	dy := math.Abs(yAxis[1] - yAxis[0])
	xmin := math.Min(xAxis[0], xAxis[len(xAxis)-1])
	ymax := math.Max(yAxis[0], yAxis[len(yAxis)-1])
	return [6]float64{xmin - dx/2, dx, 0, ymax + dy/2, 0, -dy}
}

// pixelCenter maps a (col, row) pixel index to its center coordinate.
func pixelCenter(gt [6]float64, col, row int) (x, y float64) {
	cx, cy := float64(col)+0.5, float64(row)+0.5
	x = gt[0] + cx*gt[1] + cy*gt[2]
	y = gt[3] + cx*gt[4] + cy*gt[5]
	return x, y
}

func yAscending(yAxis []float64) bool {
	return yAxis[len(yAxis)-1] > yAxis[0]
}

func proj4ToWKT(proj4 string) (string, error) {
	sr := gdal.CreateSpatialReference("")
	if err := sr.FromProj4(proj4); err != nil {
		return "", fmt.Errorf("parsing proj4 %q: %w", proj4, err)
	}
	wkt, err := sr.ToWKT()
	if err != nil {
		return "", fmt.Errorf("converting proj4 to WKT: %w", err)
	}
	return wkt, nil
}

func wktToProj4(wkt string) (string, error) {
	if wkt == "" {
		return "", nil
	}
	sr := gdal.CreateSpatialReference(wkt)
	proj4, err := sr.ToProj4()
	if err != nil {
		return "", fmt.Errorf("converting WKT to proj4: %w", err)
	}
	return proj4, nil
}

package geotiff

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/lukeroth/gdal"
)

// Warp reprojects a GeoTIFF into dstProj4 with nearest-neighbor resampling
// and writes the result to dst, replacing any existing file. Zero cells in
// the warped output are rewritten as NaN: the warp fills unmapped area with
// zeros, which would otherwise read as legitimate values.
func Warp(src, dst, dstProj4 string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale output: %w", err)
	}

	srcDS, err := gdal.Open(src, gdal.ReadOnly)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer srcDS.Close()

	dstWKT, err := proj4ToWKT(dstProj4)
	if err != nil {
		return err
	}

	vrt, err := srcDS.AutoCreateWarpedVRT(srcDS.Projection(), dstWKT, gdal.GRA_NearestNeighbour)
	if err != nil {
		return fmt.Errorf("warping %s: %w", src, err)
	}
	defer vrt.Close()

	drv, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return fmt.Errorf("loading GTiff driver: %w", err)
	}
	out := drv.CreateCopy(dst, vrt, 0, nil, nil, nil)
	out.Close()

	return zerosToNodata(dst)
}

// Merge mosaics two class rasters sharing a CRS and cell size onto their
// union extent and writes the result to out. Where both rasters carry data
// the first one wins. Zeros become NaN nodata, matching Warp.
func Merge(first, second, out string) error {
	a, err := readRaster(first)
	if err != nil {
		return err
	}
	b, err := readRaster(second)
	if err != nil {
		return err
	}
	if math.Abs(a.gt[1]-b.gt[1]) > 1e-9 || math.Abs(a.gt[5]-b.gt[5]) > 1e-9 {
		return fmt.Errorf("merging %s and %s: cell sizes differ", first, second)
	}

	dx, dy := a.gt[1], -a.gt[5]
	xmin := math.Min(a.gt[0], b.gt[0])
	ymax := math.Max(a.gt[3], b.gt[3])
	xmax := math.Max(a.gt[0]+float64(a.nx)*dx, b.gt[0]+float64(b.nx)*dx)
	ymin := math.Min(a.gt[3]-float64(a.ny)*dy, b.gt[3]-float64(b.ny)*dy)
	nx := int(math.Round((xmax - xmin) / dx))
	ny := int(math.Round((ymax - ymin) / dy))

	buf := make([]float64, nx*ny)
	for i := range buf {
		buf[i] = math.NaN()
	}
	gt := [6]float64{xmin, dx, 0, ymax, 0, -dy}

	// Paint in reverse precedence so the first raster overwrites.
	for _, r := range []*raster{b, a} {
		colOff := int(math.Round((r.gt[0] - xmin) / dx))
		rowOff := int(math.Round((ymax - r.gt[3]) / dy))
		for row := 0; row < r.ny; row++ {
			for col := 0; col < r.nx; col++ {
				v := r.data[row*r.nx+col]
				if math.IsNaN(v) || v == 0 {
					continue
				}
				buf[(row+rowOff)*nx+(col+colOff)] = v
			}
		}
	}

	return writeDataset(out, buf, nx, ny, gt, a.wkt)
}

// raster is a fully loaded single-band dataset.
type raster struct {
	data []float64
	gt   [6]float64
	wkt  string
	nx   int
	ny   int
}

func readRaster(path string) (*raster, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer ds.Close()

	band := ds.RasterBand(1)
	r := &raster{
		gt:  ds.GeoTransform(),
		wkt: ds.Projection(),
		nx:  band.XSize(),
		ny:  band.YSize(),
	}
	r.data = make([]float64, r.nx*r.ny)
	if err := band.IO(gdal.Read, 0, 0, r.nx, r.ny, r.data, r.nx, r.ny, 0, 0); err != nil {
		return nil, fmt.Errorf("reading band of %s: %w", path, err)
	}
	if nodata, ok := band.NoDataValue(); ok {
		for i, v := range r.data {
			if v == nodata {
				r.data[i] = math.NaN()
			}
		}
	}
	return r, nil
}

func writeDataset(path string, buf []float64, nx, ny int, gt [6]float64, wkt string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale output: %w", err)
	}

	drv, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return fmt.Errorf("loading GTiff driver: %w", err)
	}
	ds := drv.Create(path, nx, ny, 1, gdal.Float64, nil)
	defer ds.Close()

	if err := ds.SetGeoTransform(gt); err != nil {
		return fmt.Errorf("setting geotransform on %s: %w", path, err)
	}
	if wkt != "" {
		if err := ds.SetProjection(wkt); err != nil {
			return fmt.Errorf("setting projection on %s: %w", path, err)
		}
	}
	band := ds.RasterBand(1)
	if err := band.SetNoDataValue(math.NaN()); err != nil {
		return fmt.Errorf("setting nodata on %s: %w", path, err)
	}
	if err := band.IO(gdal.Write, 0, 0, nx, ny, buf, nx, ny, 0, 0); err != nil {
		return fmt.Errorf("writing band of %s: %w", path, err)
	}
	return nil
}

// zerosToNodata rewrites zero cells of band 1 as NaN in place.
func zerosToNodata(path string) error {
	ds, err := gdal.Open(path, gdal.Update)
	if err != nil {
		return fmt.Errorf("reopening %s: %w", path, err)
	}
	defer ds.Close()

	band := ds.RasterBand(1)
	nx, ny := band.XSize(), band.YSize()
	buf := make([]float64, nx*ny)
	if err := band.IO(gdal.Read, 0, 0, nx, ny, buf, nx, ny, 0, 0); err != nil {
		return fmt.Errorf("reading band of %s: %w", path, err)
	}
	for i, v := range buf {
		if v == 0 {
			buf[i] = math.NaN()
		}
	}
	if err := band.SetNoDataValue(math.NaN()); err != nil {
		return fmt.Errorf("setting nodata on %s: %w", path, err)
	}
	if err := band.IO(gdal.Write, 0, 0, nx, ny, buf, nx, ny, 0, 0); err != nil {
		return fmt.Errorf("writing band of %s: %w", path, err)
	}
	return nil
}

package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// SmoothField applies an isotropic Gaussian blur with standard deviation
// sigma to the named grid field. Missing cells are zero-filled before the
// convolution and restored to NaN afterwards, so the validity mask
// round-trips exactly: no missing cell becomes present and no present cell
// becomes missing.
//
// Values near the valid/invalid boundary are biased toward the
// zero-substituted neighbors. That is an accepted limitation of this filter,
// not a bug: a boundary-corrected diffusion is deliberately out of scope.
func SmoothField(g *Grid, field string, sigma float64) (*Grid, error) {
	arr, ok := g.Field(field)
	if !ok {
		return nil, fmt.Errorf("field %q not in grid", field)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("negative sigma %g", sigma)
	}

	ny, nx := arr.Shape[0], arr.Shape[1]
	valid := make([]bool, len(arr.Elements))
	filled := make([]float64, len(arr.Elements))
	for i, v := range arr.Elements {
		if math.IsNaN(v) {
			filled[i] = 0
		} else {
			valid[i] = true
			filled[i] = v
		}
	}

	kernel := gaussianKernel(sigma)
	smoothed := convolveRows(filled, ny, nx, kernel)
	smoothed = convolveCols(smoothed, ny, nx, kernel)

	out := sparse.ZerosDense(ny, nx)
	for i, v := range smoothed {
		if valid[i] {
			out.Elements[i] = v
		} else {
			out.Elements[i] = math.NaN()
		}
	}
	return g.WithField(field, out)
}

// gaussianKernel builds a normalized 1-D Gaussian truncated at 4 standard
// deviations, the standard statistical convention. Sigma zero degenerates to
// the identity kernel.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius == 0 {
		return []float64{1}
	}
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// convolveRows convolves each row with the kernel, reflecting at the edges.
func convolveRows(data []float64, ny, nx int, kernel []float64) []float64 {
	radius := len(kernel) / 2
	out := make([]float64, len(data))
	for j := 0; j < ny; j++ {
		row := data[j*nx : (j+1)*nx]
		for i := 0; i < nx; i++ {
			var sum float64
			for k, w := range kernel {
				sum += w * row[reflectIndex(i+k-radius, nx)]
			}
			out[j*nx+i] = sum
		}
	}
	return out
}

// convolveCols convolves each column with the kernel, reflecting at the edges.
func convolveCols(data []float64, ny, nx int, kernel []float64) []float64 {
	radius := len(kernel) / 2
	out := make([]float64, len(data))
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			var sum float64
			for k, w := range kernel {
				sum += w * data[reflectIndex(j+k-radius, ny)*nx+i]
			}
			out[j*nx+i] = sum
		}
	}
	return out
}

// reflectIndex maps an out-of-range index back into [0, n) by reflecting
// about the array edges: (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

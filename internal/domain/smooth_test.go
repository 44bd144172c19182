package domain

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smoothTestGrid returns a 5x5 grid whose field has a NaN hole in the middle
// and a NaN border corner.
func smoothTestGrid(t *testing.T) *Grid {
	t.Helper()
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 1, 2, 3, 4}
	mask := make([]bool, 25)
	for i := range mask {
		mask[i] = true
	}
	g, err := NewGrid("x", "y", x, y, Proj4WGS84, mask)
	require.NoError(t, err)

	data := sparse.ZerosDense(5, 5)
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			data.Set(float64(j*5+i), j, i)
		}
	}
	data.Set(math.NaN(), 2, 2)
	data.Set(math.NaN(), 0, 0)
	g, err = g.WithField(FieldPrediction, data)
	require.NoError(t, err)
	return g
}

func TestSmoothField(t *testing.T) {
	t.Run("mask round-trips exactly", func(t *testing.T) {
		g := smoothTestGrid(t)
		before, _ := g.Field(FieldPrediction)

		for _, sigma := range []float64{0, 0.5, 1, 2.5} {
			g2, err := SmoothField(g, FieldPrediction, sigma)
			require.NoError(t, err, "sigma %g", sigma)
			after, _ := g2.Field(FieldPrediction)
			for i := range before.Elements {
				assert.Equal(t, math.IsNaN(before.Elements[i]), math.IsNaN(after.Elements[i]),
					"sigma %g element %d", sigma, i)
			}
		}
	})

	t.Run("sigma zero is the identity", func(t *testing.T) {
		g := smoothTestGrid(t)
		g2, err := SmoothField(g, FieldPrediction, 0)
		require.NoError(t, err)

		before, _ := g.Field(FieldPrediction)
		after, _ := g2.Field(FieldPrediction)
		for i := range before.Elements {
			if !math.IsNaN(before.Elements[i]) {
				assert.Equal(t, before.Elements[i], after.Elements[i])
			}
		}
	})

	t.Run("preserves a constant field away from holes", func(t *testing.T) {
		x := []float64{0, 1, 2, 3, 4, 5, 6}
		mask := make([]bool, 49)
		for i := range mask {
			mask[i] = true
		}
		g, err := NewGrid("x", "y", x, x, Proj4WGS84, mask)
		require.NoError(t, err)
		data := sparse.ZerosDense(7, 7)
		for i := range data.Elements {
			data.Elements[i] = 3.5
		}
		g, err = g.WithField(FieldPrediction, data)
		require.NoError(t, err)

		g2, err := SmoothField(g, FieldPrediction, 0.6)
		require.NoError(t, err)
		after, _ := g2.Field(FieldPrediction)
		for i := range after.Elements {
			assert.InDelta(t, 3.5, after.Elements[i], 1e-12)
		}
	})

	t.Run("values near holes are biased toward zero", func(t *testing.T) {
		// Documented limitation: the zero fill pulls boundary values down.
		g := smoothTestGrid(t)
		g2, err := SmoothField(g, FieldPrediction, 1)
		require.NoError(t, err)

		before, _ := g.Field(FieldPrediction)
		after, _ := g2.Field(FieldPrediction)
		assert.Less(t, after.Get(2, 1), before.Get(2, 1))
	})

	t.Run("unknown field", func(t *testing.T) {
		g := smoothTestGrid(t)
		_, err := SmoothField(g, "nope", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in grid")
	})

	t.Run("negative sigma", func(t *testing.T) {
		g := smoothTestGrid(t)
		_, err := SmoothField(g, FieldPrediction, -1)
		require.Error(t, err)
	})
}

func TestGaussianKernel(t *testing.T) {
	t.Run("normalized", func(t *testing.T) {
		k := gaussianKernel(1.3)
		sum := 0.0
		for _, w := range k {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	})

	t.Run("truncated at four sigma", func(t *testing.T) {
		assert.Len(t, gaussianKernel(1), 9)
		assert.Len(t, gaussianKernel(0), 1)
	})
}

func TestReflectIndex(t *testing.T) {
	n := 4
	// (d c b a | a b c d | d c b a)
	assert.Equal(t, 0, reflectIndex(-1, n))
	assert.Equal(t, 1, reflectIndex(-2, n))
	assert.Equal(t, 3, reflectIndex(4, n))
	assert.Equal(t, 2, reflectIndex(5, n))
	assert.Equal(t, 2, reflectIndex(2, n))
	assert.Equal(t, 0, reflectIndex(7, 1))
}

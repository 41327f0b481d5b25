// Package brownian generates sampled Brownian motion paths on a time grid.
package brownian

import (
	"fmt"
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generator draws Brownian paths from a seeded source. A Generator is not
// safe for concurrent use.
type Generator struct {
	normal distuv.Normal
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
}

// Paths returns a numPaths x len(times) matrix. Each row starts at zero and
// has independent N(0, times[k+1]-times[k]) increments.
func (g *Generator) Paths(times []float64, numPaths int) (*mat.Dense, error) {
	if err := dynamo.ValidateGrid(times); err != nil {
		return nil, err
	}
	if numPaths < 1 {
		return nil, fmt.Errorf("%w: need at least one path, got %d", dynamo.ErrDimensionMismatch, numPaths)
	}

	cols := len(times)
	sqrtDt := make([]float64, cols-1)
	for k := range sqrtDt {
		sqrtDt[k] = math.Sqrt(times[k+1] - times[k])
	}

	data := make([]float64, numPaths*cols)
	for p := 0; p < numPaths; p++ {
		row := data[p*cols : (p+1)*cols]
		for k, s := range sqrtDt {
			row[k+1] = row[k] + s*g.normal.Rand()
		}
	}

	return mat.NewDense(numPaths, cols, data), nil
}

// Coarsen keeps every factor-th column of b, giving the same realization
// sampled on a grid factor times coarser. The column count minus one must
// be divisible by factor.
func Coarsen(b mat.Matrix, factor int) (*mat.Dense, error) {
	rows, cols := b.Dims()
	if factor < 1 || (cols-1)%factor != 0 {
		return nil, fmt.Errorf("%w: cannot coarsen %d points by %d", dynamo.ErrDimensionMismatch, cols, factor)
	}

	out := mat.NewDense(rows, (cols-1)/factor+1, nil)
	for p := 0; p < rows; p++ {
		for k := 0; k*factor < cols; k++ {
			out.Set(p, k, b.At(p, k*factor))
		}
	}
	return out, nil
}

// CoarsenGrid keeps every factor-th time point.
func CoarsenGrid(times []float64, factor int) ([]float64, error) {
	if factor < 1 || len(times) == 0 || (len(times)-1)%factor != 0 {
		return nil, fmt.Errorf("%w: cannot coarsen %d points by %d", dynamo.ErrDimensionMismatch, len(times), factor)
	}
	out := make([]float64, 0, (len(times)-1)/factor+1)
	for k := 0; k < len(times); k += factor {
		out = append(out, times[k])
	}
	return out, nil
}

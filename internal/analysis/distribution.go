package analysis

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Quantiles returns, for each probability in probs, the empirical quantile
// of the ensemble at every time column of paths.
func Quantiles(paths mat.Matrix, probs []float64) [][]float64 {
	rows, cols := paths.Dims()
	out := make([][]float64, len(probs))
	for i := range out {
		out[i] = make([]float64, cols)
	}

	col := make([]float64, rows)
	for k := 0; k < cols; k++ {
		mat.Col(col, k, paths)
		sort.Float64s(col)
		for i, p := range probs {
			out[i][k] = stat.Quantile(p, stat.Empirical, col, nil)
		}
	}
	return out
}

// FanChartToASCII draws every path value as a dot, one canvas column per
// bucket of time columns.
func FanChartToASCII(paths mat.Matrix, width, height int) string {
	if paths == nil || width <= 0 || height <= 0 {
		return ""
	}
	rows, cols := paths.Dims()
	if rows == 0 || cols == 0 {
		return ""
	}

	minVal, maxVal := mat.Min(paths), mat.Max(paths)
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for k := 0; k < cols; k++ {
		c := k * width / cols
		if c >= width {
			c = width - 1
		}
		for p := 0; p < rows; p++ {
			v := paths.At(p, k)
			r := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if r >= 0 && r < height {
				canvas[r][c] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

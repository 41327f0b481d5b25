package export

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var palette = []string{"#4e9a06", "#3465a4", "#c4a000", "#75507b", "#06989a", "#cc0000"}

const meanColor = "#eeeeec"

// PathsToSVG draws up to maxPaths rows of paths against times, with the
// ensemble mean over all rows drawn on top. maxPaths <= 0 draws every row.
func PathsToSVG(times []float64, paths mat.Matrix, width, height, maxPaths int) string {
	if paths == nil || len(times) < 2 {
		return ""
	}
	rows, cols := paths.Dims()
	if cols != len(times) || rows == 0 {
		return ""
	}
	if maxPaths <= 0 || maxPaths > rows {
		maxPaths = rows
	}

	mean := make([]float64, cols)
	col := make([]float64, rows)
	for k := 0; k < cols; k++ {
		mat.Col(col, k, paths)
		mean[k] = stat.Mean(col, nil)
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for p := 0; p < maxPaths; p++ {
		for k := 0; k < cols; k++ {
			v := paths.At(p, k)
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	for _, v := range mean {
		minY = math.Min(minY, v)
		maxY = math.Max(maxY, v)
	}

	minX, maxX := times[0], times[len(times)-1]
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	project := func(t, v float64) (float64, float64) {
		x := (t - minX) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	line := func(values func(k int) float64, stroke string, strokeWidth float64) {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="%.1f" d="M`, stroke, strokeWidth))
		for k := 0; k < cols; k++ {
			x, y := project(times[k], values(k))
			if k == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for p := 0; p < maxPaths; p++ {
		line(func(k int) float64 { return paths.At(p, k) }, palette[p%len(palette)], 1.0)
	}
	line(func(k int) float64 { return mean[k] }, meanColor, 2.5)

	sb.WriteString("</svg>")
	return sb.String()
}

package analysis

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestQuantiles(t *testing.T) {
	paths := mat.NewDense(5, 2, []float64{
		0, 5,
		0, 1,
		0, 4,
		0, 2,
		0, 3,
	})

	q := Quantiles(paths, []float64{0, 0.5, 1})
	if q[0][1] != 1 || q[1][1] != 3 || q[2][1] != 5 {
		t.Errorf("unexpected quantiles at t1: %v %v %v", q[0][1], q[1][1], q[2][1])
	}
	if q[1][0] != 0 {
		t.Errorf("expected zero median at t0, got %f", q[1][0])
	}
}

func TestFanChartToASCII(t *testing.T) {
	paths := mat.NewDense(2, 4, []float64{
		0, 1, 2, 3,
		0, -1, -2, -3,
	})

	out := FanChartToASCII(paths, 8, 5)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	if !strings.ContainsRune(lines[0], '•') || !strings.ContainsRune(lines[4], '•') {
		t.Error("expected extremes on the first and last rows")
	}

	if FanChartToASCII(nil, 8, 5) != "" {
		t.Error("expected empty output for nil paths")
	}
}

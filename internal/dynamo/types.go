package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State holds the current value of every path in an ensemble.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Broadcast expands x0 to n paths. A single value is repeated; otherwise
// x0 must already hold n values.
func Broadcast(x0 []float64, n int) (State, error) {
	switch len(x0) {
	case 1:
		s := make(State, n)
		for i := range s {
			s[i] = x0[0]
		}
		return s, nil
	case n:
		return State(x0).Clone(), nil
	default:
		return nil, ErrDimensionMismatch
	}
}

// SDE describes dX = mu(t, X) dt + sigma(t, X) dB for a scalar process.
type SDE interface {
	Drift(t, x float64) (float64, error)
	Vol(t, x float64) (float64, error)
}

// VolDerivative is implemented by equations that can supply d sigma / dx.
type VolDerivative interface {
	DVolDx(t, x float64) (float64, error)
}

// ExactSolution is implemented by equations with a closed-form solution
// driven by the Brownian value w at time t.
type ExactSolution interface {
	Exact(t, x0, w float64) float64
}

// Scheme advances a single path by one increment dt with Brownian
// increment dB, starting from x at time t.
type Scheme interface {
	Name() string
	StrongOrder() float64
	Step(eq SDE, t, x, dt, dB float64) (float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Result struct {
	Times      []float64
	Paths      *mat.Dense
	Metrics    map[string]float64
	StepsTaken int
}

// Terminal returns the ensemble at the last recorded time.
func (r *Result) Terminal() []float64 {
	if r.Paths == nil {
		return nil
	}
	rows, cols := r.Paths.Dims()
	out := make([]float64, rows)
	mat.Col(out, cols-1, r.Paths)
	return out
}

// UniformGrid returns n+1 evenly spaced points from t0 to t1.
func UniformGrid(t0, t1 float64, n int) []float64 {
	if n < 1 {
		return []float64{t0}
	}
	times := make([]float64, n+1)
	h := (t1 - t0) / float64(n)
	for i := range times {
		times[i] = t0 + float64(i)*h
	}
	times[n] = t1
	return times
}

// ValidateGrid reports ErrInvalidGrid unless times holds at least two
// strictly increasing points.
func ValidateGrid(times []float64) error {
	if len(times) < 2 {
		return ErrInvalidGrid
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return ErrInvalidGrid
		}
	}
	return nil
}

package metrics

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Stability scores an ensemble by how often it escapes a bound. Value is
// the fraction of observations where no path exceeded threshold in
// absolute value or went NaN; FirstBreach reports when the first escape
// happened.
type Stability struct {
	threshold float64
	breaches  int
	samples   int
	first     float64
	breached  bool
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.samples++
	if !s.escaped(x) {
		return
	}
	s.breaches++
	if !s.breached {
		s.first, s.breached = t, true
	}
}

func (s *Stability) escaped(x dynamo.State) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.Abs(v) > s.threshold {
			return true
		}
	}
	return false
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.breaches)/float64(s.samples)
}

// FirstBreach returns the time of the earliest out-of-bound observation.
func (s *Stability) FirstBreach() (float64, bool) {
	return s.first, s.breached
}

func (s *Stability) Reset() {
	*s = Stability{threshold: s.threshold}
}

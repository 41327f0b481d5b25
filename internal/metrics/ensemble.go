package metrics

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// Mean reports the ensemble mean at the last observed time.
type Mean struct {
	name  string
	value float64
}

func NewMean() *Mean {
	return &Mean{name: "mean"}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(x dynamo.State, t float64) {
	if len(x) == 0 {
		return
	}
	m.value = stat.Mean(x, nil)
}

func (m *Mean) Value() float64 { return m.value }

func (m *Mean) Reset() { m.value = 0 }

// StdDev reports the ensemble standard deviation at the last observed time.
type StdDev struct {
	name  string
	value float64
}

func NewStdDev() *StdDev {
	return &StdDev{name: "stddev"}
}

func (s *StdDev) Name() string { return s.name }

func (s *StdDev) Observe(x dynamo.State, t float64) {
	if len(x) < 2 {
		s.value = 0
		return
	}
	s.value = stat.StdDev(x, nil)
}

func (s *StdDev) Value() float64 { return s.value }

func (s *StdDev) Reset() { s.value = 0 }

// Range reports the widest spread max(x)-min(x) seen across all
// observations.
type Range struct {
	name  string
	value float64
}

func NewRange() *Range {
	return &Range{name: "max_spread"}
}

func (r *Range) Name() string { return r.name }

func (r *Range) Observe(x dynamo.State, t float64) {
	if len(x) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	r.value = math.Max(r.value, hi-lo)
}

func (r *Range) Value() float64 { return r.value }

func (r *Range) Reset() { r.value = 0 }

package sim

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/logger"
	"gonum.org/v1/gonum/mat"
)

const minPathsPerWorker = 256

// Solver advances an ensemble of paths across a fixed time grid using a
// single scheme. A Solver runs once; construct a new one to restart.
type Solver struct {
	scheme   dynamo.Scheme
	times    []float64
	brownian mat.Matrix
	x        dynamo.State
	next     dynamo.State
	iter     int
	done     bool

	workers  int
	validate bool
	log      *slog.Logger
}

type Option func(*Solver)

// WithWorkers evaluates paths on up to n goroutines within each step.
func WithWorkers(n int) Option {
	return func(s *Solver) { s.workers = n }
}

// WithValidation rejects steps that produce NaN or Inf.
func WithValidation(on bool) Option {
	return func(s *Solver) { s.validate = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a solver over times with brownian holding one Brownian path
// per row, sampled at every time point. x0 is either a single value shared
// by all paths or one value per path.
func New(scheme dynamo.Scheme, times []float64, x0 []float64, numPaths int, brownian mat.Matrix, opts ...Option) (*Solver, error) {
	if scheme == nil {
		return nil, dynamo.ErrInvalidScheme
	}
	if err := dynamo.ValidateGrid(times); err != nil {
		return nil, err
	}
	if numPaths < 1 || brownian == nil {
		return nil, dynamo.ErrDimensionMismatch
	}

	rows, cols := brownian.Dims()
	if rows != numPaths || cols != len(times) {
		return nil, fmt.Errorf("%w: brownian is %dx%d, want %dx%d", dynamo.ErrDimensionMismatch, rows, cols, numPaths, len(times))
	}

	x, err := dynamo.Broadcast(x0, numPaths)
	if err != nil {
		return nil, fmt.Errorf("%w: %d initial values for %d paths", err, len(x0), numPaths)
	}

	s := &Solver{
		scheme:   scheme,
		times:    append([]float64(nil), times...),
		brownian: brownian,
		x:        x,
		next:     make(dynamo.State, numPaths),
		workers:  1,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Debug("solver ready",
		"scheme", scheme.Name(),
		"paths", numPaths,
		"steps", s.Steps(),
		"workers", s.workers)

	return s, nil
}

func (s *Solver) Scheme() dynamo.Scheme { return s.scheme }

// Steps returns N, the number of increments in the grid.
func (s *Solver) Steps() int { return len(s.times) - 1 }

func (s *Solver) NumPaths() int { return len(s.x) }

// Iter returns the index of the step about to be taken, or N-1 once the
// solver is done.
func (s *Solver) Iter() int { return s.iter }

func (s *Solver) Done() bool { return s.done }

func (s *Solver) Times() []float64 {
	return append([]float64(nil), s.times...)
}

// Current returns a copy of the ensemble state.
func (s *Solver) Current() dynamo.State { return s.x.Clone() }

// StepSize returns times[n+1] - times[n].
func (s *Solver) StepSize(n int) float64 {
	return s.times[n+1] - s.times[n]
}

// Step advances every path by one increment and returns a copy of the new
// ensemble state. If any path fails, no path is updated.
func (s *Solver) Step(eq dynamo.SDE) (dynamo.State, error) {
	if s.done {
		return nil, &dynamo.SimulationError{Step: s.iter, Time: s.times[len(s.times)-1], Path: -1, Wrapped: dynamo.ErrOutOfRange}
	}

	n := s.iter
	t := s.times[n]
	dt := s.StepSize(n)

	err := dynamo.ParallelFor(len(s.x), minPathsPerWorker, s.workers, func(start, end int) error {
		return s.advance(eq, n, t, dt, start, end)
	})
	if err != nil {
		s.log.Debug("step aborted", "step", n, "t", t, "err", err)
		return nil, err
	}

	if s.validate && !s.next.IsValid() {
		return nil, &dynamo.SimulationError{Step: n, Time: t, Path: -1, Wrapped: dynamo.ErrInvalidState}
	}

	s.x, s.next = s.next, s.x
	if n == s.Steps()-1 {
		s.done = true
	} else {
		s.iter++
	}

	return s.x.Clone(), nil
}

// advance writes the updated values of paths [start, end) into s.next,
// reading only s.x and the brownian rows of those paths.
func (s *Solver) advance(eq dynamo.SDE, n int, t, dt float64, start, end int) error {
	for p := start; p < end; p++ {
		dB := s.brownian.At(p, n+1) - s.brownian.At(p, n)
		v, err := s.scheme.Step(eq, t, s.x[p], dt, dB)
		if err != nil {
			return &dynamo.SimulationError{Step: n, Time: t, Path: p, Wrapped: err}
		}
		s.next[p] = v
	}
	return nil
}

// Run yields the ensemble after each remaining step. The sequence ends
// after the final grid point or after the first error, which is yielded
// with a nil state.
func (s *Solver) Run(eq dynamo.SDE) iter.Seq2[dynamo.State, error] {
	return func(yield func(dynamo.State, error) bool) {
		for {
			x, err := s.Step(eq)
			if !yield(x, err) || err != nil || s.done {
				return
			}
		}
	}
}

// RunAll drives the solver to completion and returns a paths x (steps+1)
// matrix whose first column is the state before the first remaining step.
func (s *Solver) RunAll(eq dynamo.SDE) (*mat.Dense, error) {
	remaining := s.Steps() - s.iter
	if s.done {
		remaining = 0
	}
	out := mat.NewDense(len(s.x), remaining+1, nil)
	out.SetCol(0, s.x)

	col := 1
	for x, err := range s.Run(eq) {
		if err != nil {
			return nil, err
		}
		out.SetCol(col, x)
		col++
	}
	return out, nil
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoExactSolution = errors.New("analysis: equation has no closed-form solution")
	ErrTooFewLevels    = errors.New("analysis: need at least two positive error levels")
)

// Study configures a strong convergence experiment.
type Study struct {
	SDE       dynamo.SDE
	Scheme    dynamo.Scheme
	X0        float64
	T0        float64
	Horizon   float64
	FineSteps int
	Factors   []int
	Paths     int
	Seed      uint64
	Workers   int
}

type Level struct {
	Steps int
	Dt    float64
	Error float64
}

type Report struct {
	Scheme string
	Levels []Level
	Order  float64
}

// StrongError is the mean absolute difference between paired values.
func StrongError(approx, exact []float64) float64 {
	if len(approx) == 0 || len(approx) != len(exact) {
		return math.NaN()
	}
	sum := 0.0
	for i := range approx {
		sum += math.Abs(approx[i] - exact[i])
	}
	return sum / float64(len(approx))
}

// WeakError is the absolute difference of the sample means.
func WeakError(approx, exact []float64) float64 {
	if len(approx) == 0 || len(exact) == 0 {
		return math.NaN()
	}
	return math.Abs(stat.Mean(approx, nil) - stat.Mean(exact, nil))
}

// EstimateOrder fits log(err) = c + order*log(dt).
func EstimateOrder(dts, errs []float64) (float64, error) {
	if len(dts) != len(errs) {
		return 0, fmt.Errorf("%w: %d step sizes, %d errors", dynamo.ErrDimensionMismatch, len(dts), len(errs))
	}
	xs := make([]float64, 0, len(dts))
	ys := make([]float64, 0, len(errs))
	for i := range dts {
		if dts[i] <= 0 || errs[i] <= 0 {
			continue
		}
		xs = append(xs, math.Log(dts[i]))
		ys = append(ys, math.Log(errs[i]))
	}
	if len(xs) < 2 {
		return 0, ErrTooFewLevels
	}
	_, order := stat.LinearRegression(xs, ys, nil, false)
	return order, nil
}

// StrongConvergence draws one fine Brownian realization and solves the
// equation on each coarsened grid, comparing the terminal values with the
// exact solution driven by the same realization.
func StrongConvergence(ctx context.Context, st Study) (*Report, error) {
	exact, ok := st.SDE.(dynamo.ExactSolution)
	if !ok {
		return nil, ErrNoExactSolution
	}
	if st.Scheme == nil {
		return nil, dynamo.ErrInvalidScheme
	}

	fineTimes := dynamo.UniformGrid(st.T0, st.Horizon, st.FineSteps)
	fine, err := brownian.NewGenerator(st.Seed).Paths(fineTimes, st.Paths)
	if err != nil {
		return nil, err
	}

	elapsed := st.Horizon - st.T0
	target := make([]float64, st.Paths)
	for p := range target {
		target[p] = exact.Exact(elapsed, st.X0, fine.At(p, st.FineSteps))
	}

	report := &Report{Scheme: st.Scheme.Name()}
	dts := make([]float64, 0, len(st.Factors))
	errs := make([]float64, 0, len(st.Factors))

	for _, factor := range st.Factors {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		times, err := brownian.CoarsenGrid(fineTimes, factor)
		if err != nil {
			return nil, err
		}
		b, err := brownian.Coarsen(fine, factor)
		if err != nil {
			return nil, err
		}

		s, err := sim.New(st.Scheme, times, []float64{st.X0}, st.Paths, b, sim.WithWorkers(st.Workers))
		if err != nil {
			return nil, err
		}
		out, err := s.RunAll(st.SDE)
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", factor, err)
		}

		terminal := mat.Col(nil, len(times)-1, out)
		lvl := Level{
			Steps: len(times) - 1,
			Dt:    times[1] - times[0],
			Error: StrongError(terminal, target),
		}
		report.Levels = append(report.Levels, lvl)
		dts = append(dts, lvl.Dt)
		errs = append(errs, lvl.Error)
	}

	report.Order, err = EstimateOrder(dts, errs)
	if err != nil {
		return report, err
	}
	return report, nil
}

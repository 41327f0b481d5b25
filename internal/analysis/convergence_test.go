package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/models"
)

func TestStrongError(t *testing.T) {
	got := StrongError([]float64{1, 2, 3}, []float64{1, 3, 1})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1, got %f", got)
	}
	if !math.IsNaN(StrongError([]float64{1}, nil)) {
		t.Error("expected NaN for mismatched lengths")
	}
}

func TestWeakError(t *testing.T) {
	got := WeakError([]float64{1, 3}, []float64{0, 2})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1, got %f", got)
	}
}

func TestEstimateOrder(t *testing.T) {
	dts := []float64{0.1, 0.05, 0.025, 0.0125}
	errs := make([]float64, len(dts))
	for i, dt := range dts {
		errs[i] = 3 * math.Pow(dt, 1.5)
	}

	order, err := EstimateOrder(dts, errs)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if math.Abs(order-1.5) > 1e-9 {
		t.Errorf("expected order 1.5, got %f", order)
	}

	if _, err := EstimateOrder([]float64{0.1}, []float64{0.2}); !errors.Is(err, ErrTooFewLevels) {
		t.Errorf("expected ErrTooFewLevels, got %v", err)
	}
	if _, err := EstimateOrder([]float64{0.1, 0.2}, []float64{0.2}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestStrongConvergenceOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence study in short mode")
	}

	base := Study{
		SDE:       models.NewGBM(0.05, 0.5),
		X0:        1,
		Horizon:   1,
		FineSteps: 256,
		Factors:   []int{2, 4, 8, 16, 32},
		Paths:     2000,
		Seed:      2024,
	}

	emStudy := base
	emStudy.Scheme = integrators.NewEulerMaruyama()
	em, err := StrongConvergence(context.Background(), emStudy)
	if err != nil {
		t.Fatalf("euler study failed: %v", err)
	}

	mStudy := base
	mStudy.Scheme = integrators.NewMilstein()
	m, err := StrongConvergence(context.Background(), mStudy)
	if err != nil {
		t.Fatalf("milstein study failed: %v", err)
	}

	if len(em.Levels) != 5 || em.Levels[0].Steps != 128 {
		t.Fatalf("unexpected levels: %+v", em.Levels)
	}
	if em.Order < 0.3 || em.Order > 0.75 {
		t.Errorf("euler order %f outside [0.3, 0.75]", em.Order)
	}
	if m.Order < 0.8 {
		t.Errorf("milstein order %f below 0.8", m.Order)
	}
	if m.Levels[0].Error >= em.Levels[0].Error {
		t.Errorf("milstein error %g not below euler error %g at the finest level", m.Levels[0].Error, em.Levels[0].Error)
	}
}

func TestStrongConvergenceExactForAdditiveNoise(t *testing.T) {
	// constant coefficients: both schemes reproduce the exact solution
	report, err := StrongConvergence(context.Background(), Study{
		SDE:       models.NewArithmeticBrownian(0.3, 0.7),
		Scheme:    integrators.NewMilstein(),
		X0:        2,
		Horizon:   1,
		FineSteps: 16,
		Factors:   []int{1, 2, 4},
		Paths:     50,
		Seed:      5,
	})
	if err != nil && !errors.Is(err, ErrTooFewLevels) {
		t.Fatalf("study failed: %v", err)
	}
	if len(report.Levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(report.Levels))
	}
	for _, lvl := range report.Levels {
		if lvl.Error > 1e-12 {
			t.Errorf("steps %d: expected exact agreement, got error %g", lvl.Steps, lvl.Error)
		}
	}
}

func TestStrongConvergenceRequiresExactSolution(t *testing.T) {
	_, err := StrongConvergence(context.Background(), Study{
		SDE:    models.NewOrnsteinUhlenbeck(1, 0, 0.2),
		Scheme: integrators.NewEulerMaruyama(),
	})
	if !errors.Is(err, ErrNoExactSolution) {
		t.Errorf("expected ErrNoExactSolution, got %v", err)
	}
}

func TestStrongConvergenceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StrongConvergence(ctx, Study{
		SDE:       models.NewGBM(0.05, 0.2),
		Scheme:    integrators.NewMilstein(),
		X0:        1,
		Horizon:   1,
		FineSteps: 8,
		Factors:   []int{1, 2},
		Paths:     4,
		Seed:      1,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

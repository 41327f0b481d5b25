package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/logger"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

type feller interface {
	Feller() bool
}

type breacher interface {
	FirstBreach() (float64, bool)
}

type Experiment struct {
	cfg       *config.Config
	sde       dynamo.SDE
	scheme    dynamo.Scheme
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	log       *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) *Experiment {
	if log == nil {
		log = logger.Default
	}
	return &Experiment{
		cfg: cfg,
		log: log.With("model", cfg.Model, "scheme", cfg.Scheme),
	}
}

func (e *Experiment) Setup(sde dynamo.SDE, scheme dynamo.Scheme, metrics []dynamo.Metric) error {
	if sde == nil || scheme == nil {
		return fmt.Errorf("experiment setup: equation and scheme are required")
	}
	if f, ok := sde.(feller); ok && !f.Feller() {
		e.log.Warn("feller condition violated, paths may reach zero", "params", e.cfg.Params)
	}
	e.sde = sde
	e.scheme = scheme
	e.metrics = metrics
	return nil
}

// SetupFromRegistry resolves the configured model and scheme by name.
func (e *Experiment) SetupFromRegistry(r *Registry) error {
	sde, err := r.GetModel(e.cfg.Model, e.cfg.Params)
	if err != nil {
		return err
	}
	scheme, err := r.GetScheme(e.cfg.Scheme)
	if err != nil {
		return err
	}
	return e.Setup(sde, scheme, r.DefaultMetrics(e.cfg.Model))
}

func (e *Experiment) AddObserver(o dynamo.Observer) { e.observers = append(e.observers, o) }

// Solver generates the Brownian paths for the configured seed and returns
// a fresh solver positioned at T0.
func (e *Experiment) Solver() (*sim.Solver, error) {
	if e.sde == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	times := e.cfg.Times()
	b, err := brownian.NewGenerator(e.cfg.Seed).Paths(times, e.cfg.Paths)
	if err != nil {
		return nil, err
	}

	return sim.New(e.scheme, times, []float64{e.cfg.X0}, e.cfg.Paths, b,
		sim.WithWorkers(e.cfg.Workers),
		sim.WithValidation(e.cfg.ValidateState),
		sim.WithLogger(e.log))
}

func (e *Experiment) SDE() dynamo.SDE { return e.sde }

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	s, err := e.Solver()
	if err != nil {
		return nil, err
	}

	for _, m := range e.metrics {
		m.Reset()
	}

	times := s.Times()
	paths := mat.NewDense(s.NumPaths(), len(times), nil)
	paths.SetCol(0, s.Current())
	e.observe(s.Current(), times[0])

	result := &dynamo.Result{
		Times:   times,
		Paths:   paths,
		Metrics: make(map[string]float64),
	}

	e.log.Info("simulation started", "paths", s.NumPaths(), "steps", s.Steps(), "seed", e.cfg.Seed)

	for x, err := range s.Run(e.sde) {
		if err != nil {
			e.log.Error("simulation aborted", "step", result.StepsTaken, "err", err)
			return result, err
		}
		result.StepsTaken++
		paths.SetCol(result.StepsTaken, x)
		e.observe(x, times[result.StepsTaken])

		select {
		case <-ctx.Done():
			e.log.Warn("simulation canceled", "step", result.StepsTaken)
			return result, ctx.Err()
		default:
		}
	}

	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
		if b, ok := m.(breacher); ok {
			if at, breached := b.FirstBreach(); breached {
				result.Metrics[m.Name()+"_first_breach"] = at
				e.log.Warn("ensemble left the stable region", "metric", m.Name(), "t", at)
			}
		}
	}

	e.log.Info("simulation finished", "steps", result.StepsTaken)
	return result, nil
}

func (e *Experiment) observe(x dynamo.State, t float64) {
	for _, m := range e.metrics {
		m.Observe(x, t)
	}
	for _, o := range e.observers {
		o.OnStep(x, t)
	}
}

package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/metrics"
	"github.com/san-kum/sdesim/internal/models"
)

type modelFactory struct {
	required []string
	build    func(p map[string]float64) dynamo.SDE
}

type Registry struct {
	models  map[string]modelFactory
	schemes map[string]func() dynamo.Scheme
}

func NewRegistry() *Registry {
	r := &Registry{
		models:  make(map[string]modelFactory),
		schemes: make(map[string]func() dynamo.Scheme),
	}

	r.models["gbm"] = modelFactory{
		required: []string{"mu", "sigma"},
		build:    func(p map[string]float64) dynamo.SDE { return models.NewGBM(p["mu"], p["sigma"]) },
	}
	r.models["abm"] = modelFactory{
		required: []string{"mu", "sigma"},
		build:    func(p map[string]float64) dynamo.SDE { return models.NewArithmeticBrownian(p["mu"], p["sigma"]) },
	}
	r.models["ou"] = modelFactory{
		required: []string{"theta", "mean", "sigma"},
		build: func(p map[string]float64) dynamo.SDE {
			return models.NewOrnsteinUhlenbeck(p["theta"], p["mean"], p["sigma"])
		},
	}
	r.models["cir"] = modelFactory{
		required: []string{"kappa", "theta", "sigma"},
		build:    func(p map[string]float64) dynamo.SDE { return models.NewCIR(p["kappa"], p["theta"], p["sigma"]) },
	}

	r.schemes["euler"] = func() dynamo.Scheme { return integrators.NewEulerMaruyama() }
	r.schemes["milstein"] = func() dynamo.Scheme { return integrators.NewMilstein() }

	return r
}

// GetModel builds the named equation. Every parameter the model needs
// must be present in params.
func (r *Registry) GetModel(name string, params map[string]float64) (dynamo.SDE, error) {
	f, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	for _, key := range f.required {
		if _, ok := params[key]; !ok {
			return nil, fmt.Errorf("model %s: missing parameter %q", name, key)
		}
	}
	return f.build(params), nil
}

func (r *Registry) GetScheme(name string) (dynamo.Scheme, error) {
	fn, ok := r.schemes[name]
	if !ok {
		return nil, fmt.Errorf("unknown scheme: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSchemes() []string {
	names := make([]string, 0, len(r.schemes))
	for name := range r.schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelParams returns the parameter names the model requires.
func (r *Registry) ModelParams(name string) []string {
	return append([]string(nil), r.models[name].required...)
}

func (r *Registry) DefaultMetrics(model string) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewMean(),
		metrics.NewStdDev(),
		metrics.NewRange(),
	}
	if model == "gbm" || model == "cir" {
		ms = append(ms, metrics.NewStability(1e6))
	}
	return ms
}

package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/logger"
)

func builder(base *config.Config) func(map[string]float64) (*experiment.Experiment, error) {
	registry := experiment.NewRegistry()
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for k, v := range params {
			cfg.Params[k] = v
		}
		exp := experiment.New(cfg, logger.Discard())
		if err := exp.SetupFromRegistry(registry); err != nil {
			return nil, err
		}
		return exp, nil
	}
}

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid(map[string]string{"sigma": "0.1:0.5:5", "mu": "0.05"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(g.paramNames) != 2 || g.paramNames[0] != "mu" {
		t.Fatalf("unexpected names: %v", g.paramNames)
	}
	sigma := g.ranges[1]
	if len(sigma) != 5 || sigma[0] != 0.1 || math.Abs(sigma[4]-0.5) > 1e-12 {
		t.Errorf("unexpected sigma range: %v", sigma)
	}

	for _, bad := range []string{"a:b:c", "0.1:0.5", "0.1:0.5:0", "0.1:0.5:2.5"} {
		if _, err := ParseGrid(map[string]string{"sigma": bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSearchFindsTargetSpread(t *testing.T) {
	// abm has terminal stddev sigma*sqrt(T) for every seed up to sampling noise
	base := config.DefaultConfig()
	base.Model = "abm"
	base.Scheme = "euler"
	base.X0 = 0
	base.Steps = 10
	base.Paths = 2000
	base.Seed = 3
	base.Params = map[string]float64{"mu": 0, "sigma": 1}

	g := NewGridSearch([]string{"sigma"}, [][]float64{{0.1, 0.3, 0.5, 0.7, 0.9}})
	best, score, err := g.Search(context.Background(), builder(base), TargetMetric("stddev", 0.5))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["sigma"] != 0.5 {
		t.Errorf("expected sigma 0.5, got %v (score %f)", best["sigma"], score)
	}
}

func TestSearchSkipsFailingPoints(t *testing.T) {
	base := config.DefaultConfig()
	base.Steps = 5
	base.Paths = 10

	g := NewGridSearch([]string{"sigma"}, [][]float64{{0.2}})
	failing := func(map[string]float64) (*experiment.Experiment, error) {
		return nil, errors.New("boom")
	}
	if _, _, err := g.Search(context.Background(), failing, TargetMetric("mean", 0)); !errors.Is(err, ErrNoFeasiblePoint) {
		t.Errorf("expected ErrNoFeasiblePoint, got %v", err)
	}
}

func TestSearchCanceled(t *testing.T) {
	base := config.DefaultConfig()
	base.Steps = 5
	base.Paths = 10

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"sigma"}, [][]float64{{0.1, 0.2}})
	if _, _, err := g.Search(ctx, builder(base), TargetMetric("mean", 0)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTargetMetricMissing(t *testing.T) {
	obj := TargetMetric("absent", 1)
	if !math.IsInf(obj(&dynamo.Result{Metrics: map[string]float64{}}), 1) {
		t.Error("expected +Inf for a missing metric")
	}
}

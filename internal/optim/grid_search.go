package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
)

var ErrNoFeasiblePoint = errors.New("optim: every grid point failed")

// Objective scores a finished run; lower is better.
type Objective func(result *dynamo.Result) float64

// TargetMetric scores a run by how far the named metric lies from target.
func TargetMetric(name string, target float64) Objective {
	return func(result *dynamo.Result) float64 {
		v, ok := result.Metrics[name]
		if !ok {
			return math.Inf(1)
		}
		return math.Abs(v - target)
	}
}

// GridSearch evaluates every combination of parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// ParseGrid reads specs of the form name=lo:hi:n into a search over n
// evenly spaced values per parameter. A bare name=v fixes the value.
func ParseGrid(specs map[string]string) (*GridSearch, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	ranges := make([][]float64, len(names))
	for i, name := range names {
		parts := strings.Split(specs[name], ":")
		vals := make([]float64, len(parts))
		for j, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("grid %s: %w", name, err)
			}
			vals[j] = v
		}

		switch len(vals) {
		case 1:
			ranges[i] = vals
		case 3:
			n := int(vals[2])
			if n < 1 || float64(n) != vals[2] {
				return nil, fmt.Errorf("grid %s: count must be a positive integer", name)
			}
			ranges[i] = linspace(vals[0], vals[1], n)
		default:
			return nil, fmt.Errorf("grid %s: want lo:hi:n or a single value", name)
		}
	}
	return NewGridSearch(names, ranges), nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// Search builds and runs an experiment for every grid point and returns the
// parameters with the lowest objective. Points whose experiment fails are
// skipped; cancellation stops the search.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &best, &bestParams)
	if err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, ErrNoFeasiblePoint
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

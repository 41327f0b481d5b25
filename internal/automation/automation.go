package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/logger"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Its fields are those of config.Config plus a
// name and a save flag, with unset fields taking the config defaults.
type ScenarioStep struct {
	Name   string
	Save   bool
	Config *config.Config
}

func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	var meta struct {
		Name string `yaml:"name"`
		Save bool   `yaml:"save"`
	}
	if err := node.Decode(&meta); err != nil {
		return err
	}

	cfg, err := config.Decode(node.Decode)
	if err != nil {
		return err
	}

	s.Name = meta.Name
	s.Save = meta.Save
	s.Config = cfg
	return nil
}

// Saver persists a finished run and returns its id.
type Saver interface {
	Save(cfg *config.Config, result *dynamo.Result) (string, error)
}

type StepResult struct {
	Name   string
	RunID  string
	Result *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	for i, step := range scenario.Steps {
		if step.Config == nil {
			return nil, fmt.Errorf("step %d: empty step", i+1)
		}
		if err := step.Config.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return &scenario, nil
}

// LoggerFactory builds a logger at the given level.
type LoggerFactory func(level string) *slog.Logger

// RunScenario executes the steps in order and stops at the first failure.
// Each step logs through newLog at its own configured level. Steps marked
// for saving are written through saver, which may be nil if no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, saver Saver, newLog LoggerFactory) ([]StepResult, error) {
	if newLog == nil {
		newLog = func(string) *slog.Logger { return logger.Default }
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log := newLog(step.Config.LogLevel)
		log.Info("scenario step", "scenario", scenario.Name, "step", name, "index", i+1, "of", len(scenario.Steps))

		exp := experiment.New(step.Config, log)
		if err := exp.SetupFromRegistry(registry); err != nil {
			return results, fmt.Errorf("step %s setup: %w", name, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %s run: %w", name, err)
		}

		sr := StepResult{Name: name, Result: result}
		if step.Save {
			if saver == nil {
				return results, fmt.Errorf("step %s: no store to save to", name)
			}
			id, err := saver.Save(step.Config, result)
			if err != nil {
				return results, fmt.Errorf("step %s save: %w", name, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep reruns Base with one parameter varied over [Min, Max].
type ParameterSweep struct {
	Base    *config.Config
	Param   string
	Min     float64
	Max     float64
	Count   int
	Workers int
}

type SweepResult struct {
	Value  float64
	Mean   float64
	StdDev float64
}

// RunSweep runs the sweep points concurrently. Every point reuses the base
// seed so points differ only in the swept parameter.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, log *slog.Logger) ([]SweepResult, error) {
	if log == nil {
		log = logger.Default
	}
	if sweep.Base == nil || sweep.Count < 1 {
		return nil, fmt.Errorf("sweep needs a base config and at least one point")
	}

	step := 0.0
	if sweep.Count > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.Count-1)
	}

	results := make([]SweepResult, sweep.Count)
	g, ctx := errgroup.WithContext(ctx)
	if sweep.Workers > 0 {
		g.SetLimit(sweep.Workers)
	}

	for i := 0; i < sweep.Count; i++ {
		value := sweep.Min + float64(i)*step
		cfg := sweep.Base.Clone()
		cfg.Params[sweep.Param] = value

		g.Go(func() error {
			exp := experiment.New(cfg, logger.Discard())
			if err := exp.SetupFromRegistry(registry); err != nil {
				return err
			}
			result, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
			}

			mean, std := stat.MeanStdDev(result.Terminal(), nil)
			results[i] = SweepResult{Value: value, Mean: mean, StdDev: std}
			log.Debug("sweep point done", "param", sweep.Param, "value", value, "mean", mean)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

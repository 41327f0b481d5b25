package config

import "sort"

var Presets = map[string]map[string]*Config{
	"gbm": {
		"equity": {
			Model: "gbm", Scheme: "milstein", X0: 100, Horizon: 1, Steps: 252, Paths: 1000,
			Params: map[string]float64{"mu": 0.05, "sigma": 0.2},
		},
		"volatile": {
			Model: "gbm", Scheme: "milstein", X0: 100, Horizon: 1, Steps: 500, Paths: 2000,
			Params: map[string]float64{"mu": 0.1, "sigma": 0.8},
		},
		"two-step": {
			Model: "gbm", Scheme: "milstein", X0: 100, Horizon: 1, Steps: 2, Paths: 1,
			Params: map[string]float64{"mu": 0.05, "sigma": 0.2},
		},
	},
	"ou": {
		"reverting": {
			Model: "ou", Scheme: "euler", X0: 2, Horizon: 5, Steps: 500, Paths: 500,
			Params: map[string]float64{"theta": 1.5, "mean": 0, "sigma": 0.3},
		},
		"slow": {
			Model: "ou", Scheme: "euler", X0: 1, Horizon: 20, Steps: 2000, Paths: 200,
			Params: map[string]float64{"theta": 0.1, "mean": 0.5, "sigma": 0.1},
		},
	},
	"cir": {
		"rates": {
			Model: "cir", Scheme: "milstein", X0: 0.03, Horizon: 10, Steps: 2500, Paths: 500,
			Params: map[string]float64{"kappa": 0.8, "theta": 0.04, "sigma": 0.1},
		},
		"feller-violated": {
			Model: "cir", Scheme: "euler", X0: 0.01, Horizon: 5, Steps: 100, Paths: 500,
			Params: map[string]float64{"kappa": 0.2, "theta": 0.01, "sigma": 0.4},
		},
	},
	"abm": {
		"drifting": {
			Model: "abm", Scheme: "euler", X0: 0, Horizon: 1, Steps: 100, Paths: 500,
			Params: map[string]float64{"mu": 1, "sigma": 0.5},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	out.Workers = 1
	out.ValidateState = true
	if out.LogLevel == "" {
		out.LogLevel = DefaultLogLevel
	}
	return out
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package config

import "sort"

var Presets = map[string]map[string]*Config{
	"sellar": {
		"default": {
			Problem: "sellar",
			Solver:  SolverConfig{Tolerance: 1e-8, MaxIterations: 100},
			FD:      FDConfig{Scheme: "forward", Step: 1e-6},
		},
		"tight": {
			Problem: "sellar",
			Solver:  SolverConfig{Tolerance: 1e-12, MaxIterations: 500},
			FD:      FDConfig{Scheme: "central", Step: 1e-6},
		},
		"tutorial": {
			Problem: "sellar",
			Solver:  SolverConfig{Tolerance: 1e-8, MaxIterations: 100},
			FD:      FDConfig{Scheme: "forward", Step: 1e-6},
			Design:  map[string]float64{"x": 2.0, "z1": -1.0, "z2": -1.0},
		},
	},
	"sellar-connected": {
		"default": {
			Problem: "sellar-connected",
			Solver:  SolverConfig{Tolerance: 1e-8, MaxIterations: 100},
			FD:      FDConfig{Scheme: "forward", Step: 1e-6},
		},
	},
	"paraboloid": {
		"default": {
			Problem: "paraboloid",
			Solver:  SolverConfig{Tolerance: 1e-8, MaxIterations: 100},
			FD:      FDConfig{Scheme: "central", Step: 1e-6},
		},
		"offset": {
			Problem: "paraboloid",
			Solver:  SolverConfig{Tolerance: 1e-8, MaxIterations: 100},
			FD:      FDConfig{Scheme: "central", Step: 1e-6},
			Design:  map[string]float64{"x": 6.0, "y": -2.0},
		},
	},
}

func GetPreset(problem, name string) *Config {
	byName, ok := Presets[problem]
	if !ok {
		return nil
	}
	return byName[name]
}

func ListPresets(problem string) []string {
	byName, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(byName))
	for k := range byName {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

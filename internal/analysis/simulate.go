package analysis

import (
	"context"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability"
	"github.com/tphakala/birdnet-census/internal/scenario"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// Simulation layouts.
const (
	LayoutDiamond  = "diamond"
	LayoutRandom   = "random"
	LayoutBestCase = "bestcase"
)

// SimulationConfig selects a layout and the birds singing in it.
type SimulationConfig struct {
	Layout   string
	Diamond  scenario.DiamondConfig
	Random   scenario.RandomConfig
	Generate scenario.GenerateConfig
}

// DefaultSimulationConfig returns a diamond layout with the default
// chaffinch population.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Layout:   LayoutDiamond,
		Diamond:  scenario.DefaultDiamondConfig(),
		Random:   scenario.DefaultRandomConfig(),
		Generate: scenario.DefaultGenerateConfig(),
	}
}

// Simulation is a generated scenario, the census run over it and how far
// the estimates are from the truth.
type Simulation struct {
	Scenario   *scenario.Scenario
	Result     *census.Result
	Evaluation scenario.Evaluation
}

// BuildScenario generates the scenario described by cfg. Layouts and songs
// use the census hearing radius of settings; the best case brings its own.
func BuildScenario(settings *conf.Settings, cfg SimulationConfig) (*scenario.Scenario, error) {
	radius := settings.Census.HearingRadius
	var (
		layout []sensorgraph.Node
		err    error
	)
	switch cfg.Layout {
	case LayoutBestCase:
		return scenario.BestCase(), nil
	case "", LayoutDiamond:
		layout, err = scenario.DiamondLayout(cfg.Diamond)
	case LayoutRandom:
		rc := cfg.Random
		rc.HearingRadius = radius
		layout, err = scenario.RandomConditionalLayout(rc)
	default:
		return nil, errors.InvalidInput(componentName, "unknown layout %q", cfg.Layout).
			Context("layout", cfg.Layout).
			Build()
	}
	if err != nil {
		return nil, err
	}

	gc := cfg.Generate
	gc.HearingRadius = radius
	detections, songs, truth, err := scenario.GenerateDetections(layout, gc)
	if err != nil {
		return nil, err
	}

	name := cfg.Layout
	if name == "" {
		name = LayoutDiamond
	}
	return scenario.New(name, radius, layout, detections, songs, truth), nil
}

// Simulate runs the census over s and evaluates the estimates against its
// ground truth.
func Simulate(ctx context.Context, settings *conf.Settings, s *scenario.Scenario, m *observability.Metrics, sinks ...Sink) (*Simulation, error) {
	local := *settings
	local.Census.HearingRadius = s.HearingRadius

	in := &Input{
		Nodes:      s.SensorNodes(),
		Detections: s.SensorDetections(),
		Source:     "scenario:" + s.Name,
	}
	res, err := Run(ctx, &local, in, m, sinks...)
	if res == nil {
		return nil, err
	}

	sim := &Simulation{
		Scenario:   s,
		Result:     res,
		Evaluation: scenario.Evaluate(s.Truth, res.Estimates),
	}
	GetLogger().Info("simulation evaluated",
		logger.String("scenario", s.Name),
		logger.Float64("mean_absolute_error", sim.Evaluation.MeanAbsoluteError),
		logger.Float64("accuracy_rate", sim.Evaluation.AccuracyRate))
	return sim, err
}

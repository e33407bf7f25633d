// Package analysis runs a census over collaborator files or a scenario and
// hands the result to the configured sinks.
package analysis

import (
	"context"
	"time"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability"
	"github.com/tphakala/birdnet-census/internal/records"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

const componentName = "analysis"

// GetLogger returns the analysis module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}

// Input is the network and detections of one census.
type Input struct {
	Nodes      []sensorgraph.Node
	Detections []detection.Detection
	Source     string // recorded with the run, e.g. the detections file
}

// LoadInput reads the node and detection files described by settings.
func LoadInput(settings *conf.Settings, nodesPath, detectionsPath string) (*Input, error) {
	opts := records.Options{
		Coordinates: settings.Input.Coordinates,
		TimeFormat:  settings.Input.TimeFormat,
		Logger:      GetLogger(),
	}

	nodeSet, err := records.LoadNodes(nodesPath, opts)
	if err != nil {
		return nil, err
	}
	detections, err := records.LoadDetections(detectionsPath, opts)
	if err != nil {
		return nil, err
	}

	GetLogger().Info("census input loaded",
		logger.String("nodes_file", nodesPath),
		logger.String("detections_file", detectionsPath),
		logger.Int("nodes", len(nodeSet.Nodes)),
		logger.Int("detections", len(detections)))

	return &Input{
		Nodes:      nodeSet.Nodes,
		Detections: detections,
		Source:     detectionsPath,
	}, nil
}

// EstimatorOptions maps census settings to estimator options.
func EstimatorOptions(settings *conf.Settings, m *observability.Metrics) census.Options {
	opts := census.Options{
		Parallel:                settings.Census.Parallel,
		Workers:                 settings.Census.Workers,
		SkipUnneededAlternation: settings.Census.SkipUnneededAlternation,
		CacheAlternations:       settings.Census.Cache.Enabled,
		Logger:                  logger.Global().Module("census"),
	}
	if m != nil {
		opts.Metrics = m.Census
	}
	return opts
}

// Run builds the sensor graph, estimates every species and delivers the
// result to sinks. A sink failure is returned after the remaining sinks
// ran; the result is returned either way.
func Run(ctx context.Context, settings *conf.Settings, in *Input, m *observability.Metrics, sinks ...Sink) (*census.Result, error) {
	if in == nil {
		return nil, errors.InvalidInput(componentName, "census input must not be nil").Build()
	}

	g, err := sensorgraph.Build(in.Nodes, settings.Census.HearingRadius)
	if err != nil {
		return nil, err
	}

	estimator, err := census.NewEstimator(g, EstimatorOptions(settings, m))
	if err != nil {
		return nil, err
	}

	res, err := estimator.Estimate(ctx, in.Detections)
	if err != nil {
		return nil, err
	}

	GetLogger().Info("census complete",
		logger.String("run_id", res.RunID),
		logger.Int("species", len(res.Estimates)),
		logger.Int("individuals", res.Total()),
		logger.Duration("duration", res.Duration))

	var sinkErr error
	for _, s := range sinks {
		sinkStart := time.Now()
		if err := s.Deliver(ctx, res, in.Source); err != nil {
			GetLogger().Error("result sink failed",
				logger.String("sink", s.Name()),
				logger.String("run_id", res.RunID),
				logger.Error(err))
			if sinkErr == nil {
				sinkErr = err
			}
			continue
		}
		GetLogger().Debug("result delivered",
			logger.String("sink", s.Name()),
			logger.Duration("duration", time.Since(sinkStart)))
	}
	return res, sinkErr
}

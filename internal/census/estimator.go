// Package census estimates how many individual birds of each species a
// sensor network heard.
//
// Detections of a species are grouped into windows of overlapping intervals.
// Each window's nodes induce a subgraph of the sensor graph; alternation drops
// edges that form triangles of disks without a common point, and a greedy
// clique cover counts the birds. A species' estimate is its largest window
// count.
package census

import (
	"context"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability/metrics"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

const componentName = "census"

// Options configures an Estimator.
type Options struct {
	// Parallel runs species concurrently.
	Parallel bool
	// Workers bounds concurrent species; 0 means GOMAXPROCS.
	Workers int
	// SkipUnneededAlternation skips alternation entirely when no triangle of
	// the full sensor graph fails mutual intersection.
	SkipUnneededAlternation bool
	// CacheAlternations memoizes alternated subgraphs by node set.
	CacheAlternations bool

	Logger  logger.Logger
	Metrics metrics.CensusRecorder
}

// DefaultOptions returns the options used by EstimateSpeciesCounts.
func DefaultOptions() Options {
	return Options{
		Parallel:                true,
		SkipUnneededAlternation: true,
		CacheAlternations:       true,
	}
}

// Estimator runs the census over a fixed sensor graph. It is safe for
// concurrent use; the graph is only read.
type Estimator struct {
	graph   *sensorgraph.Graph
	opts    Options
	log     logger.Logger
	metrics metrics.CensusRecorder
	cache   *cache.Cache

	alternationNeeded bool
}

// alternation is a cached alternation outcome. Its subgraph is never handed
// out directly, only clones of it.
type alternation struct {
	sub     *sensorgraph.Subgraph
	removed []sensorgraph.Edge
}

// NewEstimator creates an estimator for g.
func NewEstimator(g *sensorgraph.Graph, opts Options) (*Estimator, error) {
	if g == nil {
		return nil, errors.InvalidInput(componentName, "estimator needs a sensor graph").Build()
	}
	if opts.Workers < 0 {
		return nil, errors.InvalidInput(componentName, "workers must not be negative, got %d", opts.Workers).
			Context("workers", opts.Workers).
			Build()
	}

	e := &Estimator{
		graph:             g,
		opts:              opts,
		log:               opts.Logger,
		metrics:           opts.Metrics,
		alternationNeeded: true,
	}
	if e.log == nil {
		e.log = logger.Global().Module(componentName)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewNoOpRecorder()
	}
	if opts.SkipUnneededAlternation {
		e.alternationNeeded = g.RequiresAlternation()
	}
	if opts.CacheAlternations && e.alternationNeeded {
		// Entries are only valid for this graph, which lives as long as the estimator.
		e.cache = cache.New(cache.NoExpiration, 0)
	}

	e.log.Debug("estimator ready",
		logger.Int("nodes", g.Len()),
		logger.Int("edges", g.EdgeCount()),
		logger.Float64("radius", g.Radius()),
		logger.Bool("alternation_needed", e.alternationNeeded))

	return e, nil
}

// EstimateSpeciesCounts runs the census with default options and returns the
// estimate per species.
func EstimateSpeciesCounts(g *sensorgraph.Graph, detections []detection.Detection) (map[string]int, error) {
	e, err := NewEstimator(g, DefaultOptions())
	if err != nil {
		return nil, err
	}
	res, err := e.Estimate(context.Background(), detections)
	if err != nil {
		return nil, err
	}
	return res.Estimates, nil
}

// Estimate counts individuals per species. Every detection is validated first
// and must reference a node of the graph. Cancelling ctx stops scheduling
// further species and windows.
func (e *Estimator) Estimate(ctx context.Context, detections []detection.Detection) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.With(logger.String("run_id", runID)).WithContext(ctx)

	if err := e.validate(detections); err != nil {
		e.fail(metrics.OpEstimate, err)
		return nil, err
	}

	codes, groups := detection.GroupBySpecies(detections)
	perSpecies := make([][]WindowResult, len(codes))
	estimates := make([]int, len(codes))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers())
	for i, code := range codes {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			windows, best, err := e.estimateSpecies(egCtx, code, groups[code])
			if err != nil {
				return err
			}
			perSpecies[i] = windows
			estimates[i] = best
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.New(ctxErr).
				Component(componentName).
				Category(errors.CategoryCancellation).
				Context("run_id", runID).
				Build()
		}
		e.fail(metrics.OpEstimate, err)
		log.Warn("estimation failed", logger.Error(err))
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		StartedAt: start,
		Radius:    e.graph.Radius(),
		Estimates: make(map[string]int, len(codes)),
	}
	for i, code := range codes {
		res.Estimates[code] = estimates[i]
		res.Windows = append(res.Windows, perSpecies[i]...)
	}
	res.Duration = time.Since(start)

	e.metrics.RecordOperation(metrics.OpEstimate, metrics.StatusSuccess)
	e.metrics.RecordDuration(metrics.OpEstimate, res.Duration.Seconds())
	log.Info("estimation finished",
		logger.Int("detections", len(detections)),
		logger.Int("species", len(codes)),
		logger.Int("windows", len(res.Windows)),
		logger.Int("individuals", res.Total()),
		logger.Duration("duration", res.Duration))

	return res, nil
}

func (e *Estimator) workers() int {
	switch {
	case !e.opts.Parallel:
		return 1
	case e.opts.Workers > 0:
		return e.opts.Workers
	default:
		return runtime.GOMAXPROCS(0)
	}
}

// validate checks every detection and its node before any work starts.
func (e *Estimator) validate(detections []detection.Detection) error {
	for i := range detections {
		d := &detections[i]
		if err := d.Validate(); err != nil {
			return err
		}
		if !e.graph.Has(d.Node) {
			return errors.InvalidInput(componentName, "detection of %s references unknown node %d", d.SpeciesCode, d.Node).
				Context("node", d.Node).
				Context("species", d.SpeciesCode).
				Build()
		}
	}
	return nil
}

// estimateSpecies counts every window of one species and returns the window
// results with the maximum count.
func (e *Estimator) estimateSpecies(ctx context.Context, species string, ds []detection.Detection) ([]WindowResult, int, error) {
	start := time.Now()

	windows, err := detection.Partition(ds)
	if err != nil {
		e.fail(metrics.OpSpecies, err)
		return nil, 0, err
	}

	results := make([]WindowResult, 0, len(windows))
	best := 0
	for i := range windows {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		wr, err := e.countWindow(&windows[i])
		if err != nil {
			e.fail(metrics.OpWindow, err)
			return nil, 0, err
		}
		best = max(best, wr.Count)
		results = append(results, wr)
	}

	e.metrics.SetEstimate(species, best)
	e.metrics.RecordOperation(metrics.OpSpecies, metrics.StatusSuccess)
	e.metrics.RecordDuration(metrics.OpSpecies, time.Since(start).Seconds())
	e.log.Debug("species counted",
		logger.String("species", species),
		logger.Int("windows", len(windows)),
		logger.Int("estimate", best))

	return results, best, nil
}

// countWindow alternates and covers the subgraph induced by one window.
func (e *Estimator) countWindow(w *detection.Window) (WindowResult, error) {
	start := time.Now()

	nodes := w.Nodes()
	if len(nodes) == 0 {
		return WindowResult{}, errors.InconsistentState(componentName, "window %d of %s has no nodes", w.Index, w.Species).
			Context("species", w.Species).
			Context("window", w.Index).
			Build()
	}

	sub, err := e.graph.Induce(nodes)
	if err != nil {
		return WindowResult{}, err
	}

	altStart := time.Now()
	altered, removed, err := e.alternate(sub, nodes)
	if err != nil {
		e.fail(metrics.OpAlternate, err)
		return WindowResult{}, err
	}
	e.metrics.RecordDuration(metrics.OpAlternate, time.Since(altStart).Seconds())
	for _, edge := range removed {
		e.log.Trace("alternation removed edge",
			logger.String("species", w.Species),
			logger.Int("window", w.Index),
			logger.Int64("u", edge.U),
			logger.Int64("v", edge.V))
	}

	coverStart := time.Now()
	cliques := CoverCliques(altered)
	count := len(cliques)
	e.metrics.RecordDuration(metrics.OpCover, time.Since(coverStart).Seconds())
	if count == 0 || count > len(nodes) {
		return WindowResult{}, errors.InconsistentState(componentName, "clique cover of window %d of %s counted %d birds over %d nodes", w.Index, w.Species, count, len(nodes)).
			Context("species", w.Species).
			Context("window", w.Index).
			Build()
	}

	e.metrics.RecordWindow(w.Species, len(nodes), len(removed), count)
	e.metrics.RecordDuration(metrics.OpWindow, time.Since(start).Seconds())
	e.log.Debug("window counted",
		logger.String("species", w.Species),
		logger.Int("window", w.Index),
		logger.Int("nodes", len(nodes)),
		logger.Int("edges_removed", len(removed)),
		logger.Int("count", count))

	return WindowResult{
		Species:      w.Species,
		Index:        w.Index,
		Begin:        w.Begin,
		End:          w.End,
		Nodes:        nodes,
		Detections:   w.Len(),
		EdgesRemoved: removed,
		Cliques:      cliques,
		Count:        count,
	}, nil
}

// alternate returns an alternated subgraph owned by the caller.
func (e *Estimator) alternate(sub *sensorgraph.Subgraph, nodes []int64) (*sensorgraph.Subgraph, []sensorgraph.Edge, error) {
	if !e.alternationNeeded {
		return sub, nil, nil
	}
	if e.cache == nil {
		return Alternate(sub)
	}

	key := nodeSetKey(nodes)
	if v, ok := e.cache.Get(key); ok {
		e.metrics.RecordCacheLookup(true)
		hit := v.(alternation)
		return hit.sub.Clone(), slices.Clone(hit.removed), nil
	}
	e.metrics.RecordCacheLookup(false)

	altered, removed, err := Alternate(sub)
	if err != nil {
		return nil, nil, err
	}
	e.cache.Set(key, alternation{sub: altered.Clone(), removed: slices.Clone(removed)}, cache.NoExpiration)
	return altered, removed, nil
}

// nodeSetKey joins sorted, distinct node ids into a cache key.
func nodeSetKey(nodes []int64) string {
	var b strings.Builder
	for i, id := range nodes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// fail records an error against an operation, labelled by its category.
func (e *Estimator) fail(operation string, err error) {
	category := string(errors.CategoryGeneric)
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		category = ee.GetCategory()
	}
	e.metrics.RecordOperation(operation, metrics.StatusError)
	e.metrics.RecordError(operation, category)
}

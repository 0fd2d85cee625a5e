// Package pipeline runs the full fetch, clip, and statistics flow for one
// boundary polygon and writes the per-layer results into the area store.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/clip"
	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/stats"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// DefaultBBoxBuffer pads the fetch bounding box past the polygon extrema so
// features straddling the boundary arrive complete.
const DefaultBBoxBuffer = 0.001

// Config wires the pipeline's collaborators.
type Config struct {
	Fetcher *fetch.Orchestrator
	Store   *area.Store
	// BBoxBuffer is in degrees.
	BBoxBuffer float64
	Logger     *slog.Logger
}

// Pipeline turns a boundary polygon and a set of layers into clipped
// features and statistics. Results land in the store layer by layer, so a
// cancelled run keeps everything that finished before the cancel.
type Pipeline struct {
	fetcher *fetch.Orchestrator
	store   *area.Store
	clipper *clip.Clipper
	buffer  float64
	logger  *slog.Logger
}

// LayerResult is one layer's outcome for store-free batch use.
type LayerResult struct {
	Layer   types.LayerSpec
	Raw     *types.FeatureSet
	Clipped *types.FeatureSet
	Stats   *types.LayerStats
}

func New(cfg Config) *Pipeline {
	if cfg.BBoxBuffer <= 0 {
		cfg.BBoxBuffer = DefaultBBoxBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		fetcher: cfg.Fetcher,
		store:   cfg.Store,
		clipper: clip.New(cfg.Logger),
		buffer:  cfg.BBoxBuffer,
		logger:  cfg.Logger,
	}
}

// Run fetches, clips, and summarizes every layer against the ring and
// merge-writes each layer into the area's cache as soon as it is ready.
// The returned error is the context's on cancellation, nil otherwise;
// per-layer provider failures degrade to empty entries instead.
func (p *Pipeline) Run(ctx context.Context, areaID string, ring orb.Ring, layers []types.LayerSpec, onProgress fetch.ProgressFunc) error {
	if p.store == nil {
		return errors.New("pipeline has no area store")
	}

	boundary := closedCopy(ring)
	bbox := types.RingBound(boundary, p.buffer)
	areaKm2 := stats.RingAreaKm2(boundary)
	start := time.Now()

	err := p.fetcher.Run(ctx, layers, bbox, onProgress, func(layer types.LayerSpec, raw *types.FeatureSet) {
		entry := p.processLayer(layer, raw, boundary, areaKm2)
		if werr := p.store.UpdateAreaLayerData(areaID, layer.ID, entry); werr != nil {
			// The area disappeared mid-run; its session is being torn
			// down, so just drop the write.
			p.logger.Debug("dropping layer write", "area", areaID, "layer", layer.ID, "error", werr)
		}
	})
	if err != nil {
		p.logger.Info("pipeline stopped",
			"area", areaID, "elapsed_ms", time.Since(start).Milliseconds(), "cause", err)
		return err
	}

	p.logger.Info("pipeline completed",
		"area", areaID, "layers", len(layers),
		"area_km2", areaKm2, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// Compute runs the same flow without touching any store, returning results
// in layer order. Used for one-shot batch reports.
func (p *Pipeline) Compute(ctx context.Context, ring orb.Ring, layers []types.LayerSpec, onProgress fetch.ProgressFunc) ([]LayerResult, error) {
	boundary := closedCopy(ring)
	bbox := types.RingBound(boundary, p.buffer)
	areaKm2 := stats.RingAreaKm2(boundary)

	results := make([]LayerResult, 0, len(layers))
	err := p.fetcher.Run(ctx, layers, bbox, onProgress, func(layer types.LayerSpec, raw *types.FeatureSet) {
		entry := p.processLayer(layer, raw, boundary, areaKm2)
		results = append(results, LayerResult{
			Layer:   layer,
			Raw:     entry.Raw,
			Clipped: entry.Clipped,
			Stats:   entry.Stats,
		})
	})
	return results, err
}

func (p *Pipeline) processLayer(layer types.LayerSpec, raw *types.FeatureSet, boundary orb.Ring, areaKm2 float64) *area.LayerData {
	clipped := p.clipper.Clip(raw, boundary, layer.Kind)
	layerStats := stats.Calculate(clipped, layer, areaKm2)

	metrics.FeaturesKept.WithLabelValues(layer.ID).Add(float64(clipped.Count()))
	if dropped := raw.Count() - clipped.Count(); dropped > 0 {
		metrics.FeaturesDropped.WithLabelValues(layer.ID).Add(float64(dropped))
	}

	return &area.LayerData{
		Ring:      boundary,
		Raw:       raw,
		Clipped:   clipped,
		Stats:     &layerStats,
		FetchedAt: time.Now(),
	}
}

func closedCopy(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	copy(out, ring)
	return types.CloseRing(out)
}

// Package fetch retrieves raw features for a set of layers from the data
// provider, one layer at a time, with bounded retries and cooperative
// cancellation.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/raynbowy23/Axon-City-sub002/internal/datasource"
	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

const (
	// DefaultMaxRetries caps attempts per layer, first try included.
	DefaultMaxRetries = 3

	// DefaultLayerDelay separates consecutive layer requests so the
	// provider's rate limits are respected.
	DefaultLayerDelay = time.Second

	// DefaultThrottleBackoff is the first wait after a 429, doubling on
	// each further attempt.
	DefaultThrottleBackoff = 2 * time.Second

	// DefaultTimeoutBackoff is the first wait after a gateway timeout or
	// transport failure, doubling on each further attempt.
	DefaultTimeoutBackoff = time.Second
)

// Provider supplies raw features for one layer restricted to a bounding box.
type Provider interface {
	FetchLayer(ctx context.Context, layer types.LayerSpec, bbox types.BoundingBox) (*types.FeatureSet, error)
}

// ProgressFunc is called after each layer resolves, successfully or not.
type ProgressFunc func(layerID string, completed, total int)

// LayerFunc receives each layer's features as soon as they are available,
// before the next layer is requested.
type LayerFunc func(layer types.LayerSpec, fs *types.FeatureSet)

// Config controls retry and pacing behavior.
type Config struct {
	Provider        Provider
	MaxRetries      int
	LayerDelay      time.Duration
	ThrottleBackoff time.Duration
	TimeoutBackoff  time.Duration
	Logger          *slog.Logger
}

// Orchestrator fetches layers sequentially and degrades per-layer failures
// to empty feature sets, so one broken layer never sinks the whole run.
type Orchestrator struct {
	provider        Provider
	maxRetries      int
	layerDelay      time.Duration
	throttleBackoff time.Duration
	timeoutBackoff  time.Duration
	logger          *slog.Logger
}

// New creates an orchestrator, filling zero config values with defaults.
func New(cfg Config) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.LayerDelay <= 0 {
		cfg.LayerDelay = DefaultLayerDelay
	}
	if cfg.ThrottleBackoff <= 0 {
		cfg.ThrottleBackoff = DefaultThrottleBackoff
	}
	if cfg.TimeoutBackoff <= 0 {
		cfg.TimeoutBackoff = DefaultTimeoutBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		provider:        cfg.Provider,
		maxRetries:      cfg.MaxRetries,
		layerDelay:      cfg.LayerDelay,
		throttleBackoff: cfg.ThrottleBackoff,
		timeoutBackoff:  cfg.TimeoutBackoff,
		logger:          cfg.Logger,
	}
}

// Run fetches the given layers in order, handing each layer's features to
// the each callback before the next layer is requested. onProgress fires
// once per resolved layer. The only error Run returns is the context's on
// cancellation; layers completed before that point have already been
// delivered and stay delivered.
func (o *Orchestrator) Run(ctx context.Context, layers []types.LayerSpec, bbox types.BoundingBox, onProgress ProgressFunc, each LayerFunc) error {
	total := len(layers)
	for i, layer := range layers {
		if i > 0 {
			if err := wait(ctx, o.layerDelay); err != nil {
				return err
			}
		}

		fs, err := o.FetchLayerData(ctx, layer, bbox)
		if err != nil {
			return err
		}
		if each != nil {
			each(layer, fs)
		}
		if onProgress != nil {
			onProgress(layer.ID, i+1, total)
		}
	}
	return nil
}

// Fetch collects all layer results into a map keyed by layer ID. On
// cancellation the map holds every layer that resolved before the cancel,
// alongside the context error.
func (o *Orchestrator) Fetch(ctx context.Context, layers []types.LayerSpec, bbox types.BoundingBox, onProgress ProgressFunc) (map[string]*types.FeatureSet, error) {
	out := make(map[string]*types.FeatureSet, len(layers))
	err := o.Run(ctx, layers, bbox, onProgress, func(layer types.LayerSpec, fs *types.FeatureSet) {
		out[layer.ID] = fs
	})
	return out, err
}

// FetchLayerData fetches a single layer with retries. Throttling (429) backs
// off from ThrottleBackoff, gateway timeouts and transport failures from
// TimeoutBackoff, both doubling per attempt. Any other provider rejection,
// or running out of attempts, yields an empty feature set and a nil error.
// A non-nil error means the context was cancelled.
func (o *Orchestrator) FetchLayerData(ctx context.Context, layer types.LayerSpec, bbox types.BoundingBox) (*types.FeatureSet, error) {
	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fs, err := o.provider.FetchLayer(ctx, layer, bbox)
		if err == nil {
			return fs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var delay time.Duration
		var reason string
		pe, isProvider := datasource.AsProviderError(err)
		switch {
		case isProvider && pe.Throttled():
			delay = o.throttleBackoff << attempt
			reason = "throttled"
		case isProvider && pe.Retryable():
			delay = o.timeoutBackoff << attempt
			reason = "timeout"
		case isProvider:
			o.logger.Warn("provider rejected layer request",
				"layer", layer.ID, "status", pe.StatusCode)
			return types.NewFeatureSet(), nil
		default:
			delay = o.timeoutBackoff << attempt
			reason = "transport"
		}

		if attempt == o.maxRetries-1 {
			break
		}

		metrics.ProviderRetries.WithLabelValues(layer.ID, reason).Inc()
		o.logger.Warn("retrying layer fetch",
			"layer", layer.ID, "attempt", attempt+1, "reason", reason,
			"backoff", delay, "error", err)
		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	o.logger.Warn("layer fetch exhausted retries, continuing with empty set",
		"layer", layer.ID, "attempts", o.maxRetries)
	return types.NewFeatureSet(), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

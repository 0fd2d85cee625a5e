package datasource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raynbowy23/Axon-City-sub002/internal/cache"
	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// DefaultEndpoint is the public Overpass API instance.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Config configures the Overpass client.
type Config struct {
	// Endpoint is the interpreter URL. Empty selects DefaultEndpoint.
	Endpoint string
	// QueryTimeout becomes the Overpass QL [timeout:] setting.
	QueryTimeout time.Duration
	// HTTPTimeout bounds the whole request. It should exceed QueryTimeout
	// so the server-side timeout fires first and reports 504.
	HTTPTimeout time.Duration
	// Cache optionally stores raw responses keyed by layer and bbox.
	Cache cache.Cache
	// CacheTTL is how long cached responses stay fresh.
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:     DefaultEndpoint,
		QueryTimeout: 60 * time.Second,
		HTTPTimeout:  90 * time.Second,
		CacheTTL:     15 * time.Minute,
		Logger:       slog.Default(),
	}
}

// Client fetches OSM features for configured layers from the Overpass API.
// Requests go through net/http directly so response status codes stay
// visible to the retry logic upstream.
type Client struct {
	http     *http.Client
	endpoint string
	qlsecs   int
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewClient creates an Overpass client, filling zero config values with
// defaults.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 60 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = cfg.QueryTimeout + 30*time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		endpoint: cfg.Endpoint,
		qlsecs:   int(cfg.QueryTimeout.Seconds()),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
	}
}

// FetchLayer retrieves the raw features for one layer within the bounding
// box. Responses are served from the cache when a fresh entry exists.
func (c *Client) FetchLayer(ctx context.Context, layer types.LayerSpec, bbox types.BoundingBox) (*types.FeatureSet, error) {
	query := BuildQuery(layer.Selectors, bbox, c.qlsecs)
	key := cacheKey(layer.ID, bbox)

	if body, ok := c.cachedResponse(ctx, key); ok {
		result, err := UnmarshalResult(body)
		if err == nil {
			fs := ExtractFeatures(result, layer.Kind)
			c.logger.Debug("layer served from cache", "layer", layer.ID, "features", fs.Count())
			return fs, nil
		}
		// A corrupt entry falls through to the network.
		c.logger.Warn("discarding undecodable cache entry", "layer", layer.ID, "error", err)
	}

	start := time.Now()
	body, err := c.execute(ctx, query)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(layer.ID, requestStatus(err)).Inc()
		return nil, err
	}
	metrics.ProviderRequests.WithLabelValues(layer.ID, "ok").Inc()

	result, err := UnmarshalResult(body)
	if err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}

	c.storeResponse(ctx, key, body)

	fs := ExtractFeatures(result, layer.Kind)
	c.logger.Debug("layer fetched",
		"layer", layer.ID,
		"features", fs.Count(),
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())
	return fs, nil
}

func (c *Client) execute(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, &ProviderError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading overpass response: %w", err)
	}
	return body, nil
}

func (c *Client) cachedResponse(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return body, ok
}

func (c *Client) storeResponse(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Close releases the cache handle if one is attached.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// BuildQuery assembles Overpass QL for a set of element selectors.
// Per-element bbox filters (south,west,north,east) are used instead of the
// global [bbox:] setting: combined with "out geom" Overpass then returns the
// COMPLETE geometry of elements intersecting the bbox rather than clipping
// them at its edge, so boundary clipping downstream sees whole features.
func BuildQuery(selectors []string, bbox types.BoundingBox, timeoutSecs int) string {
	b := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n(\n", timeoutSecs)
	for _, sel := range selectors {
		fmt.Fprintf(&sb, "  %s(%s);\n", sel, b)
	}
	sb.WriteString(");\nout geom;\n")
	return sb.String()
}

func cacheKey(layerID string, bbox types.BoundingBox) string {
	return fmt.Sprintf("overpass:%s:%.6f,%.6f,%.6f,%.6f",
		layerID, bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
}

func requestStatus(err error) string {
	if pe, ok := AsProviderError(err); ok {
		return fmt.Sprintf("http_%d", pe.StatusCode)
	}
	return "error"
}

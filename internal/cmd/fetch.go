package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raynbowy23/Axon-City-sub002/internal/cache"
	"github.com/raynbowy23/Axon-City-sub002/internal/config"
	"github.com/raynbowy23/Axon-City-sub002/internal/datasource"
	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/geojson"
	"github.com/raynbowy23/Axon-City-sub002/internal/pipeline"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
	"github.com/raynbowy23/Axon-City-sub002/internal/worker"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch, clip and summarize layers for boundaries in one shot",
	Long: `Fetch runs the full layer pipeline once per boundary polygon and reports
per-layer statistics. Boundaries come from a GeoJSON file of polygon features
(--input) or a single inline ring (--coords). With --out, the clipped
features are written as one GeoJSON file per boundary and layer.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("input", "", "GeoJSON file with polygon boundaries")
	fetchCmd.Flags().String("coords", "", "Inline boundary: lng,lat;lng,lat;... (at least 3 points)")
	fetchCmd.Flags().String("name", "area", "Boundary name for --coords mode")
	fetchCmd.Flags().String("layers", "", "Comma-separated layer ids (default: the active set)")
	fetchCmd.Flags().String("out", "", "Directory for clipped GeoJSON output (one file per boundary and layer)")
	fetchCmd.Flags().IntP("workers", "w", 0, "Number of parallel boundaries (default: number of CPUs)")
	fetchCmd.Flags().Bool("progress", true, "Show progress during the run")
	fetchCmd.Flags().Bool("allow-failures", false, "Exit zero even if some boundaries fail")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"fetch.input", "input"},
		{"fetch.coords", "coords"},
		{"fetch.name", "name"},
		{"fetch.layers", "layers"},
		{"fetch.out", "out"},
		{"fetch.workers", "workers"},
		{"fetch.progress", "progress"},
		{"fetch.allow_failures", "allow-failures"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, fetchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	input := viper.GetString("fetch.input")
	coords := viper.GetString("fetch.coords")
	inlineName := viper.GetString("fetch.name")
	layersCSV := viper.GetString("fetch.layers")
	outDir := viper.GetString("fetch.out")
	workers := viper.GetInt("fetch.workers")
	showProgress := viper.GetBool("fetch.progress")
	allowFailures := viper.GetBool("fetch.allow_failures")

	boundaries, err := collectBoundaries(input, coords, inlineName)
	if err != nil {
		return err
	}

	layers, err := selectLayers(cfg.Layers, layersCSV)
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	providerCache, err := cache.New(cache.Config{
		Backend: cfg.Cache.Backend,
		Path:    cfg.Cache.SQLitePath,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("setting up provider cache: %w", err)
	}

	client := datasource.NewClient(datasource.Config{
		Endpoint:     cfg.Overpass.Endpoint,
		QueryTimeout: cfg.Overpass.QueryTimeout,
		HTTPTimeout:  cfg.Overpass.HTTPTimeout,
		Cache:        providerCache,
		CacheTTL:     cfg.Cache.TTL,
		Logger:       logger,
	})
	defer client.Close()

	pl := pipeline.New(pipeline.Config{
		Fetcher: fetch.New(fetch.Config{
			Provider:        client,
			MaxRetries:      cfg.Fetch.MaxRetries,
			LayerDelay:      cfg.Fetch.LayerDelay,
			ThrottleBackoff: cfg.Fetch.ThrottleBackoff,
			TimeoutBackoff:  cfg.Fetch.TimeoutBackoff,
			Logger:          logger,
		}),
		Logger: logger,
	})

	tasks := make([]worker.Task, 0, len(boundaries))
	for _, b := range boundaries {
		tasks = append(tasks, worker.Task{Name: b.Name, Ring: b.Ring, Layers: layers})
	}

	logger.Info("Starting boundary processing",
		"boundaries", len(tasks),
		"layers", len(layers),
		"workers", workers,
		"out_dir", outDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, cancelling...")
		cancel()
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Runner:     pl,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Boundary processing failed", "boundary", r.Task.Name, "error", r.Err)
			continue
		}
		reportResult(r)
		if outDir != "" {
			if err := writeResult(outDir, r); err != nil {
				return err
			}
		}
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some boundaries failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d boundaries failed", failedCount)
	}
	return nil
}

// collectBoundaries resolves the boundary list from exactly one of the two
// input modes.
func collectBoundaries(input, coords, inlineName string) ([]geojson.Boundary, error) {
	switch {
	case input != "" && coords != "":
		return nil, fmt.Errorf("use either --input or --coords, not both")
	case input != "":
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("reading boundaries file: %w", err)
		}
		boundaries, err := geojson.ParseBoundaries(data)
		if err != nil {
			return nil, err
		}
		for i := range boundaries {
			if boundaries[i].Name == "" {
				boundaries[i].Name = fmt.Sprintf("area-%d", i+1)
			}
		}
		return boundaries, nil
	case coords != "":
		ring, err := parseRing(coords)
		if err != nil {
			return nil, fmt.Errorf("invalid coords: %w", err)
		}
		return []geojson.Boundary{{Name: inlineName, Ring: ring}}, nil
	default:
		return nil, fmt.Errorf("either --input or --coords is required")
	}
}

// parseRing parses "lng,lat;lng,lat;..." into a closed boundary ring.
func parseRing(s string) (orb.Ring, error) {
	var ring orb.Ring
	for i, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lngStr, latStr, found := strings.Cut(pair, ",")
		if !found {
			return nil, fmt.Errorf("point %d: expected lng,lat", i+1)
		}
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if errLng != nil || errLat != nil {
			return nil, fmt.Errorf("point %d: invalid number in %q", i+1, pair)
		}
		ring = append(ring, orb.Point{lng, lat})
	}

	ring = types.CloseRing(ring)
	if err := types.ValidRing(ring); err != nil {
		return nil, err
	}
	return ring, nil
}

// selectLayers picks the layers to fetch. An empty selection means every
// layer that is active by default.
func selectLayers(catalog []types.LayerSpec, csv string) ([]types.LayerSpec, error) {
	if csv == "" {
		var active []types.LayerSpec
		for _, l := range catalog {
			if l.DefaultActive {
				active = append(active, l)
			}
		}
		if len(active) == 0 {
			return nil, fmt.Errorf("no layers active by default; pass --layers")
		}
		return active, nil
	}

	byID := make(map[string]types.LayerSpec, len(catalog))
	for _, l := range catalog {
		byID[l.ID] = l
	}

	var picked []types.LayerSpec
	for _, id := range strings.Split(csv, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown layer %q", id)
		}
		picked = append(picked, l)
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("--layers selected nothing")
	}
	return picked, nil
}

func reportResult(r worker.Result) {
	for _, lr := range r.Layers {
		fields := []interface{}{
			"boundary", r.Task.Name,
			"layer", lr.Layer.ID,
			"features", lr.Stats.Count,
		}
		if lr.Stats.TotalLength != nil {
			fields = append(fields, "total_length_m", *lr.Stats.TotalLength)
		}
		if lr.Stats.TotalArea != nil {
			fields = append(fields, "total_area_m2", *lr.Stats.TotalArea)
		}
		if lr.Stats.AreaShare != nil {
			fields = append(fields, "area_share_pct", *lr.Stats.AreaShare)
		}
		if lr.Stats.Density != nil {
			fields = append(fields, "density_per_km2", *lr.Stats.Density)
		}
		logger.Info("Layer processed", fields...)
	}
}

func writeResult(outDir string, r worker.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, lr := range r.Layers {
		data, err := geojson.Marshal(lr.Clipped, lr.Layer.ID)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s_%s.geojson", fileSafeName(r.Task.Name), lr.Layer.ID)
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("Clipped layer written", "boundary", r.Task.Name, "layer", lr.Layer.ID, "path", path)
	}
	return nil
}

// fileSafeName lowercases a boundary name and keeps only characters safe in
// filenames.
func fileSafeName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	if safe == "" {
		return "area"
	}
	return safe
}

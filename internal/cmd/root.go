package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raynbowy23/Axon-City-sub002/internal/config"
	"github.com/raynbowy23/Axon-City-sub002/internal/datasource"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "axoncity",
	Short: "Compare OSM feature layers across drawn city areas",
	Long: `Axon City fetches OpenStreetMap features for drawn selection areas,
clips them to each boundary polygon, and derives per-layer statistics so up
to four areas can be compared side by side.

The serve command runs the session API the web renderer talks to; fetch runs
the same pipeline once for boundaries from a GeoJSON file or the command
line; link encodes and decodes shareable session links.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("overpass-endpoint", datasource.DefaultEndpoint, "Overpass interpreter URL")
	rootCmd.PersistentFlags().Duration("overpass-timeout", 60*time.Second, "Overpass query timeout")
	rootCmd.PersistentFlags().String("cache-backend", "memory", "Provider cache backend (memory, sqlite, redis)")
	rootCmd.PersistentFlags().String("cache-path", "", "SQLite cache file (cache-backend=sqlite)")
	rootCmd.PersistentFlags().Duration("cache-ttl", 15*time.Minute, "Provider cache entry TTL")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("verbose", "verbose")
	mustBind("overpass.endpoint", "overpass-endpoint")
	mustBind("overpass.query_timeout", "overpass-timeout")
	mustBind("cache.backend", "cache-backend")
	mustBind("cache.sqlite_path", "cache-path")
	mustBind("cache.ttl", "cache-ttl")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("AXONCITY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// initLogging builds the process logger from the log config keys. --verbose
// forces debug regardless of the configured level.
func initLogging() {
	lc := config.LogConfig{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	}

	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if viper.GetBool("verbose") {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

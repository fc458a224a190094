package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/s0up4200/tvcatalog/config"
	"github.com/s0up4200/tvcatalog/filter"
	"github.com/s0up4200/tvcatalog/httpcache"
	"github.com/s0up4200/tvcatalog/tvdb"
)

// skipInit marks commands that run without configuration
const skipInit = "skip-init"

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	store     httpcache.Store
	transport *httpcache.Transport
	client    *tvdb.Client
	filters   *filter.Manager

	// Global flags
	language    string
	noCache     bool
	interactive bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tvcatalog",
	Short: "Look up TV series, seasons and episodes on TheTVDB",
	Long: `tvcatalog is a CLI client for TheTVDB. It resolves show names to series,
fetches their seasons and episodes, and caches responses on disk so repeated
lookups stay off the network.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		closeClients()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "", "language abbreviation (overrides tvdb.language)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	rootCmd.PersistentFlags().BoolVarP(&interactive, "interactive", "i", false, "choose between search results interactively")
}

// initializeApp loads the configuration and builds the client stack
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipInit] != "" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command line overrides
	if cmd.Flags().Changed("language") {
		cfg.TVDB.Language = language
	}
	if noCache {
		cfg.Cache.Backend = httpcache.BackendNone
	}
	if cmd.Flags().Changed("interactive") {
		cfg.TVDB.Interactive = interactive
	}
	overrideBool(cmd, "banners", &cfg.TVDB.Banners)
	overrideBool(cmd, "actors", &cfg.TVDB.Actors)
	overrideBool(cmd, "dvd-order", &cfg.TVDB.DVDOrder)
	overrideBool(cmd, "all-languages", &cfg.TVDB.SearchAllLanguages)

	logger = setupLogger(cfg.Logging)

	store, err = httpcache.Open(httpcache.Options{
		Backend:   cfg.Cache.Backend,
		Path:      cfg.Cache.Path,
		MemoryTTL: cfg.Cache.MemoryTTL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if store != nil && pruneOnStart(cmd) {
		removed, err := store.RemoveExpired()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to remove expired cache entries")
		} else if removed > 0 {
			logger.Debug().Int("removed", removed).Msg("Removed expired cache entries")
		}
	}

	base, err := httpcache.NewBaseTransport(httpcache.ProxyConfig{
		HTTP:  cfg.Proxy.HTTP,
		HTTPS: cfg.Proxy.HTTPS,
	})
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if cfg.TVDB.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.TVDB.RateLimit), max(cfg.TVDB.RateBurst, 1))
	}

	transport = httpcache.NewTransport(store, tvdb.CacheKey,
		httpcache.WithBase(base),
		httpcache.WithTTL(cfg.Cache.Expire),
		httpcache.WithLimiter(limiter),
		httpcache.WithLogger(logger),
	)

	opts := []tvdb.Option{
		tvdb.WithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.TVDB.Timeout}),
		tvdb.WithLogger(logger),
		tvdb.WithBaseURL(cfg.TVDB.BaseURL),
		tvdb.WithArtworkURL(cfg.TVDB.ArtworkURL),
		tvdb.WithLanguage(cfg.TVDB.Language),
		tvdb.WithCredentials(cfg.TVDB.Username, cfg.TVDB.UserKey),
		tvdb.WithBanners(cfg.TVDB.Banners),
		tvdb.WithActors(cfg.TVDB.Actors),
		tvdb.WithDVDOrder(cfg.TVDB.DVDOrder),
		tvdb.WithSearchAllLanguages(cfg.TVDB.SearchAllLanguages),
		tvdb.WithMaxPages(cfg.TVDB.MaxPages),
	}
	if store != nil {
		opts = append(opts, tvdb.WithCacheProbe(transport))
	}
	if cfg.TVDB.Interactive {
		opts = append(opts, tvdb.WithSelector(tvdb.NewConsoleSelector(os.Stdin, os.Stdout, cfg.TVDB.SelectFirst, logger)))
	}

	client, err = tvdb.New(cfg.TVDB.APIKey, opts...)
	if err != nil {
		return fmt.Errorf("failed to create TVDB client: %w", err)
	}

	filters = filter.NewManager(filter.WithLogger(logger))
	if err := filters.RegisterFilters(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	return nil
}

// shutdownApp releases the client and the cache store
func shutdownApp(cmd *cobra.Command, args []string) error {
	if transport != nil {
		stats := transport.Stats()
		logger.Debug().
			Int64("hits", stats.Hits).
			Int64("misses", stats.Misses).
			Int64("stores", stats.Stores).
			Msg("Cache statistics")
	}
	return closeClients()
}

func closeClients() error {
	if client != nil {
		client.Close()
		client = nil
	}
	if store != nil {
		err := store.Close()
		store = nil
		if err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
	}
	return nil
}

// pruneOnStart reports whether expired cache entries are removed before cmd
// runs. The cache subcommands report and prune the store themselves.
func pruneOnStart(cmd *cobra.Command) bool {
	return cmd.Parent() != cacheCmd
}

// overrideBool copies a command-local flag into the config when it was set
func overrideBool(cmd *cobra.Command, name string, target *bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	if v, err := cmd.Flags().GetBool(name); err == nil {
		*target = v
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

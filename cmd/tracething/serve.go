package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuemby/tracething/pkg/addr"
	"github.com/cuemby/tracething/pkg/api"
	"github.com/cuemby/tracething/pkg/config"
	"github.com/cuemby/tracething/pkg/dns"
	"github.com/cuemby/tracething/pkg/events"
	"github.com/cuemby/tracething/pkg/health"
	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/cuemby/tracething/pkg/slot"
	"github.com/cuemby/tracething/pkg/source"
	"github.com/cuemby/tracething/pkg/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long listeners get to drain
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DNS responder",
	Long: `Run the DNS responder and its admin listener.

The responder answers NS at the zone apex, AAAA for <args>.<source>.<zone>
and PTR for reverse names under the configured prefix. Flags override
values from the config file.

Examples:
  # Serve with defaults on port 53
  tracething serve

  # Serve a test zone on a high port
  tracething serve --listen 127.0.0.1:5353 --suffix text.example.org`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", config.DefaultListenAddr, "DNS listen address")
	serveCmd.Flags().StringSlice("networks", []string{"udp", "tcp"}, "DNS transports to serve")
	serveCmd.Flags().String("suffix", config.DefaultSuffix, "Zone suffix AAAA lookups are served under")
	serveCmd.Flags().String("nameserver", config.DefaultNameserver, "Host returned for NS at the apex")
	serveCmd.Flags().Int("capacity", config.DefaultCapacity, "Number of slots in the ring")
	serveCmd.Flags().String("base-prefix", config.DefaultBasePrefix, "IPv6 base address of synthetic answers")
	serveCmd.Flags().StringSlice("sources", config.KnownSources, "Content sources to enable")
	serveCmd.Flags().String("data", "./tracething-data/docs.db", "Document database for the doc source")
	serveCmd.Flags().String("admin-listen", config.DefaultAdminAddr, "Admin HTTP listen address")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("log-json", false, "Log as JSON on stdout")
}

// applyServeFlags copies explicitly set flags over cfg
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.DNS.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("networks") {
		cfg.DNS.Networks, _ = flags.GetStringSlice("networks")
	}
	if flags.Changed("suffix") {
		cfg.DNS.Suffix, _ = flags.GetString("suffix")
	}
	if flags.Changed("nameserver") {
		cfg.DNS.Nameserver, _ = flags.GetString("nameserver")
	}
	if flags.Changed("capacity") {
		cfg.Slots.Capacity, _ = flags.GetInt("capacity")
	}
	if flags.Changed("base-prefix") {
		cfg.Slots.BasePrefix, _ = flags.GetString("base-prefix")
	}
	if flags.Changed("sources") {
		cfg.Sources.Enabled, _ = flags.GetStringSlice("sources")
	}
	if flags.Changed("data") {
		cfg.Storage.Path, _ = flags.GetString("data")
	}
	if flags.Changed("admin-listen") {
		cfg.Admin.Listen, _ = flags.GetString("admin-listen")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	initLogging(cfg)
	metrics.SetVersion(Version)
	logger := log.WithComponent("serve")

	// The document store is only opened when the doc source is enabled
	var store storage.Store
	if sourceEnabled(cfg, "doc") {
		bolt, err := storage.NewBoltStore(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open document store: %w", err)
		}
		defer bolt.Close()
		store = bolt
	}

	registry, err := buildRegistry(cfg, store)
	if err != nil {
		return err
	}
	metrics.RegisterComponent("sources", true, strings.Join(registry.Keys(), ","))

	slots, err := slot.New(cfg.Slots.Capacity)
	if err != nil {
		return err
	}
	codec, err := addr.NewCodec(cfg.Slots.BasePrefix)
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	router := dns.NewRouter(routerConfig(cfg), registry, slots, codec)
	router.SetPublisher(broker)
	server := dns.NewServer(router, &dns.Config{
		ListenAddr: cfg.DNS.Listen,
		Networks:   cfg.DNS.Networks,
	})
	admin := api.NewAdminServer(slots, registry.Keys())
	admin.SetEvents(broker)

	var documents metrics.DocumentLister
	if store != nil {
		documents = store
	}
	collector := metrics.NewCollector(slots, documents, metrics.DefaultCollectInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start DNS server: %w", err)
	}
	collector.Start()
	defer collector.Stop()

	if monitor := buildMonitor(cfg); monitor != nil {
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	logger.Info().
		Str("suffix", cfg.DNS.Suffix).
		Str("base_prefix", codec.Base().String()).
		Int("capacity", slots.Capacity()).
		Strs("sources", registry.Keys()).
		Msg("tracething is serving")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := admin.Start(cfg.Admin.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		dnsErr := server.Stop()
		adminErr := admin.Shutdown(shutdownCtx)
		return errors.Join(dnsErr, adminErr)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func sourceEnabled(cfg *config.Config, key string) bool {
	for _, k := range cfg.Sources.Enabled {
		if k == key {
			return true
		}
	}
	return false
}

// buildRegistry constructs and seals the enabled sources. Remote sources
// are wrapped in a result cache; the doc source reads the local store
// directly.
func buildRegistry(cfg *config.Config, store storage.Store) (*source.Registry, error) {
	registry := source.NewRegistry()
	client := source.NewHTTPClient(cfg.Sources.HTTPTimeout)

	for _, key := range cfg.Sources.Enabled {
		var src source.Source
		switch key {
		case "gist":
			src = source.Cached(source.NewGist(cfg.Sources.GistEndpoint, client), cfg.Sources.CacheSize, cfg.Sources.CacheTTL)
		case "wikipedia":
			src = source.Cached(source.NewWikipedia(cfg.Sources.WikipediaEndpoint, client), cfg.Sources.CacheSize, cfg.Sources.CacheTTL)
		case "doc":
			if store == nil {
				return nil, fmt.Errorf("doc source enabled without a document store")
			}
			src = source.NewDocuments(store)
		default:
			return nil, fmt.Errorf("unknown source: %s", key)
		}

		if err := registry.Register(key, src); err != nil {
			return nil, err
		}
	}

	registry.Seal()
	return registry, nil
}

// buildMonitor registers a reachability check per remote source plus one
// against the local listener. It returns nil when health checks are disabled.
func buildMonitor(cfg *config.Config) *health.Monitor {
	if !cfg.HealthChecks.Enabled {
		return nil
	}

	checkCfg := health.Config{
		Interval: cfg.HealthChecks.Interval,
		Timeout:  cfg.HealthChecks.Timeout,
		Retries:  cfg.HealthChecks.Retries,
	}
	client := source.NewHTTPClient(cfg.HealthChecks.Timeout)
	monitor := health.NewMonitor(metrics.UpdateComponent)

	if sourceEnabled(cfg, "gist") {
		monitor.Add("upstream.gist", health.NewHTTPChecker(cfg.Sources.GistEndpoint, client), checkCfg)
	}
	if sourceEnabled(cfg, "wikipedia") {
		monitor.Add("upstream.wikipedia", health.NewHTTPChecker(cfg.Sources.WikipediaEndpoint, client), checkCfg)
	}

	self := health.NewDNSChecker(health.LoopbackFor(cfg.DNS.Listen), cfg.DNS.Suffix)
	if !containsUDP(cfg.DNS.Networks) {
		self.Net = "tcp"
	}
	monitor.Add("dns.self", self, checkCfg)

	return monitor
}

func containsUDP(networks []string) bool {
	for _, n := range networks {
		if strings.HasPrefix(n, "udp") {
			return true
		}
	}
	return false
}

func routerConfig(cfg *config.Config) dns.RouterConfig {
	return dns.RouterConfig{
		Suffix:           cfg.DNS.Suffix,
		Nameserver:       cfg.DNS.Nameserver,
		TTL:              cfg.DNS.TTL,
		IdentityName:    cfg.DNS.IdentityName,
		IdentityPayload: cfg.DNS.IdentityPayload,
		Sentinel:         cfg.DNS.Sentinel,
		SentinelDomain:   cfg.DNS.SentinelDomain,
		MaxLabelSetBytes: cfg.Chunk.MaxLabelSetBytes,
	}
}

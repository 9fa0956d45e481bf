package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultListenAddr is where the responder answers queries
	DefaultListenAddr = "[::]:53"

	// DefaultSuffix is the apex under which AAAA lookups are served
	DefaultSuffix = "thing.f0x.es."

	// DefaultNameserver is returned for NS queries on the apex
	DefaultNameserver = "nsthing.pawnode.com."

	// DefaultBasePrefix is the routed prefix synthetic addresses live in
	DefaultBasePrefix = "2a0f:9400:7311:1337:1::"

	// DefaultCapacity is the number of slots in the ring
	DefaultCapacity = 60001

	// MaxCapacity keeps every slot id inside one 16-bit address group
	MaxCapacity = 1 << 16

	// DefaultAdminAddr serves health and metrics
	DefaultAdminAddr = "127.0.0.1:9153"
)

// Config is the full runtime configuration of the responder
type Config struct {
	DNS     DNSConfig     `yaml:"dns"`
	Slots        SlotsConfig        `yaml:"slots"`
	Chunk        ChunkConfig        `yaml:"chunk"`
	Sources      SourcesConfig      `yaml:"sources"`
	Storage      StorageConfig      `yaml:"storage"`
	Admin        AdminConfig        `yaml:"admin"`
	HealthChecks HealthChecksConfig `yaml:"health_checks"`
	Log          LogConfig          `yaml:"log"`
}

// DNSConfig holds listener and zone settings
type DNSConfig struct {
	Listen          string   `yaml:"listen"`
	Networks        []string `yaml:"networks"`
	Suffix          string   `yaml:"suffix"`
	Nameserver      string   `yaml:"nameserver"`
	TTL             uint32   `yaml:"ttl"`
	IdentityName    string   `yaml:"identity_name"`
	IdentityPayload string   `yaml:"identity_payload"`
	Sentinel        string   `yaml:"sentinel"`
	SentinelDomain  string   `yaml:"sentinel_domain"`
}

// SlotsConfig sizes the slot ring and the address prefix
type SlotsConfig struct {
	Capacity   int    `yaml:"capacity"`
	BasePrefix string `yaml:"base_prefix"`
}

// ChunkConfig controls how fetched text is split
type ChunkConfig struct {
	MaxLabelSetBytes int `yaml:"max_label_set_bytes"`
}

// SourcesConfig selects and tunes content sources
type SourcesConfig struct {
	Enabled           []string      `yaml:"enabled"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	GistEndpoint      string        `yaml:"gist_endpoint"`
	WikipediaEndpoint string        `yaml:"wikipedia_endpoint"`
}

// StorageConfig points at the local document database
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig holds the health/metrics listener
type AdminConfig struct {
	Listen string `yaml:"listen"`
}

// HealthChecksConfig tunes the background reachability checks
type HealthChecksConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

// LogConfig mirrors log.Config in YAML form
type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		DNS: DNSConfig{
			Listen:          DefaultListenAddr,
			Networks:        []string{"udp", "tcp"},
			Suffix:          DefaultSuffix,
			Nameserver:      DefaultNameserver,
			TTL:             60,
			IdentityName:    "6.6.6.6.6.6.6.6.6.6.6.6.6.6.6.6.7.3.3.1.1.1.3.7.0.0.4.9.f.0.a.2.ip6.arpa.",
			IdentityPayload: "<img src=https://doridian.net/icon.jpg />",
			Sentinel:        "end-of-the-line",
			SentinelDomain:  "0--0.f0x.es.",
		},
		Slots: SlotsConfig{
			Capacity:   DefaultCapacity,
			BasePrefix: DefaultBasePrefix,
		},
		Chunk: ChunkConfig{
			MaxLabelSetBytes: 64,
		},
		Sources: SourcesConfig{
			Enabled:           []string{"gist", "wikipedia", "doc"},
			HTTPTimeout:       10 * time.Second,
			CacheSize:         256,
			CacheTTL:          5 * time.Minute,
			GistEndpoint:      "https://gist.githubusercontent.com",
			WikipediaEndpoint: "https://en.wikipedia.org/w/api.php",
		},
		Storage: StorageConfig{
			Path: "./tracething-data/docs.db",
		},
		Admin: AdminConfig{
			Listen: DefaultAdminAddr,
		},
		HealthChecks: HealthChecksConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Timeout:  5 * time.Second,
			Retries:  3,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize makes zone names fully qualified and lower-case
func (c *Config) Normalize() {
	c.DNS.Suffix = strings.ToLower(dns.Fqdn(c.DNS.Suffix))
	c.DNS.Nameserver = dns.Fqdn(c.DNS.Nameserver)
	c.DNS.SentinelDomain = strings.ToLower(dns.Fqdn(c.DNS.SentinelDomain))
	if c.DNS.IdentityName != "" {
		c.DNS.IdentityName = strings.ToLower(dns.Fqdn(c.DNS.IdentityName))
	}
}

// Validate checks the configuration for values the responder cannot run with
func (c *Config) Validate() error {
	if c.DNS.Listen == "" {
		return fmt.Errorf("dns.listen is required")
	}
	if len(c.DNS.Networks) == 0 {
		return fmt.Errorf("dns.networks must name at least one network")
	}
	for _, n := range c.DNS.Networks {
		switch n {
		case "udp", "udp4", "udp6", "tcp", "tcp4", "tcp6":
		default:
			return fmt.Errorf("unsupported dns network: %s", n)
		}
	}
	if _, ok := dns.IsDomainName(c.DNS.Suffix); !ok || c.DNS.Suffix == "." {
		return fmt.Errorf("invalid dns.suffix: %q", c.DNS.Suffix)
	}
	if _, ok := dns.IsDomainName(c.DNS.SentinelDomain); !ok {
		return fmt.Errorf("invalid dns.sentinel_domain: %q", c.DNS.SentinelDomain)
	}
	if c.Slots.Capacity < 1 || c.Slots.Capacity > MaxCapacity {
		return fmt.Errorf("slots.capacity must be in [1, %d], got %d", MaxCapacity, c.Slots.Capacity)
	}
	addr, err := netip.ParseAddr(c.Slots.BasePrefix)
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return fmt.Errorf("slots.base_prefix must be an IPv6 address: %q", c.Slots.BasePrefix)
	}
	if c.Chunk.MaxLabelSetBytes < 1 {
		return fmt.Errorf("chunk.max_label_set_bytes must be positive")
	}
	for _, name := range c.Sources.Enabled {
		if !isKnownSource(name) {
			return fmt.Errorf("unknown source in sources.enabled: %s", name)
		}
	}
	if c.Sources.CacheSize < 0 {
		return fmt.Errorf("sources.cache_size must not be negative")
	}
	if c.HealthChecks.Enabled && (c.HealthChecks.Interval <= 0 || c.HealthChecks.Timeout <= 0 || c.HealthChecks.Retries < 1) {
		return fmt.Errorf("health checks need a positive interval, timeout and retry count")
	}
	return nil
}

// KnownSources lists the source keys the responder can build
var KnownSources = []string{"gist", "wikipedia", "doc"}

func isKnownSource(name string) bool {
	for _, k := range KnownSources {
		if k == name {
			return true
		}
	}
	return false
}

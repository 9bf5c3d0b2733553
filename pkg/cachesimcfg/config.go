// Package cachesimcfg holds the cachesimctl configuration structures and
// JSON-schema validation: a package-level Config plus an embedded JSON
// schema checked at load time.
package cachesimcfg

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"
	"net/url"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "CACHESIMCFG"

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchemaFile
}

// CacheConfig describes the geometry and policy of one simulated cache.
type CacheConfig struct {
	SizeKiB           int      `json:"size-kib"`
	LineSize          int      `json:"line-size"`
	Stride            int      `json:"stride"`
	Ways              int      `json:"ways"`
	ReplacementPolicy string   `json:"replacement-policy"`
	Decoder           string   `json:"decoder"`
	HashBitSubsets    [][]uint `json:"hash-bit-subsets"`
	WriteThrough      bool     `json:"write-through"`
	WriteAllocate     bool     `json:"write-allocate"`
	NonTemporal       bool     `json:"non-temporal"`
}

// MetricsConfig is the "metrics" section of the config file: whether
// BlockingCache counters should be exposed via Prometheus, and on which
// listen address. Load validates it and fills in a default listen address
// when enabled; cachesimctl does not read it and starts no metrics endpoint.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled"`
	ListenAddress string `json:"listen-address"`
}

// Config is the top-level cachesimctl configuration.
type Config struct {
	Cache         CacheConfig   `json:"cache"`
	PreloadFile   string        `json:"preload-file"`
	TransactionDB string        `json:"transaction-db"`
	Metrics       MetricsConfig `json:"metrics"`
	WatchInterval string        `json:"watch-interval"`
}

// Keys is the global cachesimctl configuration instance, populated by Load.
var Keys Config = Config{
	Cache: CacheConfig{
		Stride:            0, // 0 means "use line-size", resolved by the cache builder
		Decoder:           "default",
		ReplacementPolicy: "true-lru",
	},
	WatchInterval: "5s",
}

// Validate checks r against the embedded config JSON schema.
func Validate(r io.Reader) error {
	s, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return simerr.Wrap(simerr.ConfigError, component, "failed to compile config schema", err)
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return simerr.Wrap(simerr.ConfigError, component, "failed to decode config document", err)
	}
	if err := s.Validate(v); err != nil {
		return simerr.Wrap(simerr.ConfigError, component, "config document failed schema validation", err)
	}
	return nil
}

// Load reads, validates and parses the config file at path into Keys,
// preserving the package defaults for anything the file doesn't set.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, simerr.Wrap(simerr.IoError, component, "failed to read config file "+path, err)
	}

	if err := Validate(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	cfg := Keys
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, simerr.Wrap(simerr.ConfigError, component, "failed to parse config file "+path, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	Keys = cfg
	return &Keys, nil
}

func (c *Config) normalize() error {
	if c.Cache.Stride == 0 {
		c.Cache.Stride = c.Cache.LineSize
	}
	if c.Cache.Stride < c.Cache.LineSize {
		return simerr.Newf(simerr.ConfigError, component, "stride %d must be >= line size %d", c.Cache.Stride, c.Cache.LineSize)
	}
	if c.Metrics.ListenAddress == "" && c.Metrics.Enabled {
		c.Metrics.ListenAddress = ":9500"
	}
	return nil
}


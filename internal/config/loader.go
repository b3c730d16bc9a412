package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix = "FACEGATE_"
	EnvFile   = "FACEGATE_CONFIG"
)

// listKeys are the keys whose environment values are comma separated lists.
var listKeys = []string{
	"backends.detectors",
	"backends.embedders",
	"enrollment.poses",
	"announce.args",
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from path, or FACEGATE_CONFIG when path is empty
//  3. env (prefix FACEGATE_, "__" separates nested keys)
func Load(path string) (*Config, error) {
	cfg := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FACEGATE_LIVENESS__FAIL_OPEN -> liveness.fail_open
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if key == EnvFile {
			return "", nil
		}
		key = strings.TrimPrefix(key, EnvPrefix)
		key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
		if slices.Contains(listKeys, key) {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr must not be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		add("server.max_upload_bytes must be positive")
	}
	if c.Backends.CallTimeout <= 0 {
		add("backends.call_timeout must be positive")
	}
	for i, ms := range c.Backends.ModelServers {
		if ms.Name == "" || ms.URL == "" {
			add("backends.model_servers[%d] needs name and url", i)
		}
		for _, capability := range ms.Capabilities {
			if !slices.Contains([]string{"detect", "embed", "verify", "liveness"}, capability) {
				add("backends.model_servers[%d]: unknown capability %q", i, capability)
			}
		}
	}
	if c.Backends.Dlib.Enabled && c.Backends.Dlib.ModelsDir == "" {
		add("backends.dlib.models_dir is required when dlib is enabled")
	}
	if c.Liveness.Threshold < 0 || c.Liveness.Threshold > 1 {
		add("liveness.threshold must be within [0,1]")
	}
	if c.Scoring.CosineWeight < 0 || c.Scoring.EuclidWeight < 0 || c.Scoring.CosineWeight+c.Scoring.EuclidWeight == 0 {
		add("scoring weights must be non-negative and not both zero")
	}
	if c.Matching.Mode != ModeSingle && c.Matching.Mode != ModeQuorum {
		add("matching.mode must be %q or %q", ModeSingle, ModeQuorum)
	}
	if c.Matching.Quorum < 1 {
		add("matching.quorum must be at least 1")
	}
	if c.Matching.PartialThreshold < 0 || c.Matching.PerfectThreshold > 1 || c.Matching.PartialThreshold > c.Matching.PerfectThreshold {
		add("matching thresholds must satisfy 0 <= partial <= perfect <= 1")
	}
	if c.Matching.DedupeThreshold <= 0 || c.Matching.DedupeThreshold > 1 {
		add("matching.dedupe_threshold must be within (0,1]")
	}
	if len(c.Enrollment.Poses) == 0 {
		add("enrollment.poses must not be empty")
	}
	distinct := make(map[string]struct{}, len(c.Enrollment.Poses))
	for _, p := range c.Enrollment.Poses {
		if p == "" {
			add("enrollment.poses must not contain empty labels")
			continue
		}
		if _, dup := distinct[p]; dup {
			add("enrollment.poses: duplicate pose %q", p)
		}
		distinct[p] = struct{}{}
	}
	if c.Matching.Quorum > len(distinct) {
		add("matching.quorum %d exceeds the %d distinct enrollment poses", c.Matching.Quorum, len(distinct))
	}
	if c.Enrollment.CapturesPerPose < 1 {
		add("enrollment.captures_per_pose must be at least 1")
	}
	if c.Metrics.Namespace == "" {
		add("metrics.namespace must not be empty")
	}
	if !slices.IsSorted(c.Metrics.LatencyBucketsMs) {
		add("metrics.latency_buckets_ms must be ascending")
	}
	if c.Cooldown.Window < 0 {
		add("cooldown.window must not be negative")
	}
	switch c.Identities.Store {
	case StoreMemory:
	case StoreFile:
		if c.Identities.Path == "" {
			add("identities.path is required for the file store")
		}
	case StorePostgres:
		if c.Identities.DSN == "" {
			add("identities.dsn is required for the postgres store")
		}
	default:
		add("identities.store must be memory, file or postgres")
	}
	if p := c.Identities.DuplicatePolicy; p != "" && p != "reject" && p != "replace" {
		add("identities.duplicate_policy must be reject or replace")
	}
	switch c.Audit.Sink {
	case SinkLog, SinkMemory:
	case SinkPostgres:
		if c.Audit.DSN == "" {
			add("audit.dsn is required for the postgres sink")
		}
	default:
		add("audit.sink must be log, memory or postgres")
	}
	switch c.Announce.Sink {
	case SinkLog, SinkNone:
	case SinkCommand:
		if c.Announce.Command == "" {
			add("announce.command is required for the command sink")
		}
	default:
		add("announce.sink must be command, log or none")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

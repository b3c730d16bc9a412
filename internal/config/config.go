// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	Server     ServerConfig     `koanf:"server"`
	Backends   BackendsConfig   `koanf:"backends"`
	Liveness   LivenessConfig   `koanf:"liveness"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Matching   MatchingConfig   `koanf:"matching"`
	Enrollment EnrollmentConfig `koanf:"enrollment"`
	Cooldown   CooldownConfig   `koanf:"cooldown"`
	Identities IdentitiesConfig `koanf:"identities"`
	Audit      AuditConfig      `koanf:"audit"`
	Announce   AnnounceConfig   `koanf:"announce"`
	Decision   DecisionConfig   `koanf:"decision"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// MetricsConfig names the exported Prometheus series.
type MetricsConfig struct {
	Namespace string `koanf:"namespace"`

	// AccessPoint is attached as the access_point label of every series
	// when set.
	AccessPoint string `koanf:"access_point"`

	// LatencyBucketsMs overrides the latency histogram buckets.
	LatencyBucketsMs []float64 `koanf:"latency_buckets_ms"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxUploadBytes caps uploaded frames.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// BackendsConfig declares the available model backends and selects which
// ones the pipeline uses. Empty selections use every registered backend of
// that capability.
type BackendsConfig struct {
	CallTimeout  time.Duration       `koanf:"call_timeout"`
	Detectors    []string            `koanf:"detectors"`
	Embedders    []string            `koanf:"embedders"`
	Verifier     string              `koanf:"verifier"`
	Liveness     string              `koanf:"liveness"`
	ModelServers []ModelServerConfig `koanf:"model_servers"`
	Dlib         DlibConfig          `koanf:"dlib"`
}

// ModelServerConfig is one model hosted on an HTTP inference server.
type ModelServerConfig struct {
	Name         string        `koanf:"name"`
	URL          string        `koanf:"url"`
	Model        string        `koanf:"model"`
	Capabilities []string      `koanf:"capabilities"`
	Timeout      time.Duration `koanf:"timeout"`
}

// DlibConfig enables the in-process dlib backend (binary built with -tags dlib).
type DlibConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Name      string `koanf:"name"`
	ModelsDir string `koanf:"models_dir"`
	CNN       bool   `koanf:"cnn"`
}

// LivenessConfig configures the anti-spoofing gate.
type LivenessConfig struct {
	Threshold float64 `koanf:"threshold"`
	// FailOpen admits faces when the classifier fails. Off by default.
	FailOpen bool `koanf:"fail_open"`
}

// ScoringConfig holds the embedding similarity constants.
type ScoringConfig struct {
	CosineWeight   float64 `koanf:"cosine_weight"`
	EuclidWeight   float64 `koanf:"euclid_weight"`
	BoostThreshold float64 `koanf:"boost_threshold"`
	BoostAmount    float64 `koanf:"boost_amount"`
}

// MatchingConfig configures recognition.
type MatchingConfig struct {
	// Mode is the default recognition mode: single or quorum.
	Mode             string  `koanf:"mode"`
	Quorum           int     `koanf:"quorum"`
	PerfectThreshold float64 `koanf:"perfect_threshold"`
	PartialThreshold float64 `koanf:"partial_threshold"`
	DedupeThreshold  float64 `koanf:"dedupe_threshold"`
	// Enhance applies contrast and sharpening before embedding extraction.
	Enhance bool `koanf:"enhance"`
}

// EnrollmentConfig configures pose-capture sessions.
type EnrollmentConfig struct {
	Poses              []string      `koanf:"poses"`
	CapturesPerPose    int           `koanf:"captures_per_pose"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
	SweepInterval      time.Duration `koanf:"sweep_interval"`
	ReferenceEmbedding bool          `koanf:"reference_embedding"`
}

// CooldownConfig configures repeat suppression. Channel windows override
// the default when positive.
type CooldownConfig struct {
	Window time.Duration `koanf:"window"`
	Voice  time.Duration `koanf:"voice"`
	Audit  time.Duration `koanf:"audit"`
}

// IdentitiesConfig selects the identity store.
type IdentitiesConfig struct {
	// Store is memory, file or postgres.
	Store           string `koanf:"store"`
	Path            string `koanf:"path"`
	DSN             string `koanf:"dsn"`
	DuplicatePolicy string `koanf:"duplicate_policy"`
}

// AuditConfig selects the audit sink.
type AuditConfig struct {
	// Sink is log, memory or postgres.
	Sink           string        `koanf:"sink"`
	DSN            string        `koanf:"dsn"`
	MemoryCapacity int           `koanf:"memory_capacity"`
	Retention      time.Duration `koanf:"retention"`
	PurgeInterval  time.Duration `koanf:"purge_interval"`
}

// AnnounceConfig selects the announcement sink.
type AnnounceConfig struct {
	// Sink is command, log or none.
	Sink            string        `koanf:"sink"`
	Command         string        `koanf:"command"`
	Args            []string      `koanf:"args"`
	PlaybackTimeout time.Duration `koanf:"playback_timeout"`
}

// DecisionConfig maps match results to access.
type DecisionConfig struct {
	GrantOnPartial bool `koanf:"grant_on_partial"`
}

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Sink kinds.
const (
	SinkLog      = "log"
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
	SinkCommand  = "command"
	SinkNone     = "none"
)

// Recognition modes.
const (
	ModeSingle = "single"
	ModeQuorum = "quorum"
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:            ":9080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Backends: BackendsConfig{
			CallTimeout: 5 * time.Second,
			Dlib:        DlibConfig{Name: "dlib"},
		},
		Liveness: LivenessConfig{
			Threshold: 0.8,
		},
		Scoring: ScoringConfig{
			CosineWeight:   0.7,
			EuclidWeight:   0.3,
			BoostThreshold: 0.95,
			BoostAmount:    0.05,
		},
		Matching: MatchingConfig{
			Mode:             ModeSingle,
			Quorum:           3,
			PerfectThreshold: 0.9,
			PartialThreshold: 0,
			DedupeThreshold:  0.5,
			Enhance:          true,
		},
		Enrollment: EnrollmentConfig{
			Poses:              []string{"straight", "left", "right", "up", "down"},
			CapturesPerPose:    1,
			SessionTTL:         5 * time.Minute,
			SweepInterval:      30 * time.Second,
			ReferenceEmbedding: true,
		},
		Cooldown: CooldownConfig{
			Window: 3 * time.Second,
		},
		Identities: IdentitiesConfig{
			Store:           StoreFile,
			Path:            "data/identities",
			DuplicatePolicy: "reject",
		},
		Audit: AuditConfig{
			Sink:           SinkLog,
			MemoryCapacity: 1000,
			Retention:      30 * 24 * time.Hour,
			PurgeInterval:  time.Hour,
		},
		Announce: AnnounceConfig{
			Sink:            SinkLog,
			Command:         "espeak",
			Args:            []string{"-s", "150"},
			PlaybackTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "facegate",
		},
	}
}

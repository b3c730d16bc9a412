package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/facegate/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Liveness.Threshold, convey.ShouldEqual, 0.8)
			convey.So(cfg.Liveness.FailOpen, convey.ShouldBeFalse)
			convey.So(cfg.Matching.Quorum, convey.ShouldEqual, 3)
			convey.So(cfg.Matching.PerfectThreshold, convey.ShouldEqual, 0.9)
			convey.So(cfg.Matching.DedupeThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.Scoring.CosineWeight, convey.ShouldEqual, 0.7)
			convey.So(cfg.Cooldown.Window, convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.Enrollment.Poses, convey.ShouldResemble, []string{"straight", "left", "right", "up", "down"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Load(t *testing.T) {
	convey.Convey("Given a YAML file and environment overrides", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "facegate.yaml")
		yaml := `
log_level: debug
server:
  addr: ":8080"
liveness:
  threshold: 0.6
matching:
  mode: quorum
backends:
  call_timeout: 2s
  model_servers:
    - name: arcface
      url: http://models:8000
      model: buffalo_l
      capabilities: [detect, embed, verify]
identities:
  store: memory
`
		convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
		t.Setenv("FACEGATE_LIVENESS__FAIL_OPEN", "true")
		t.Setenv("FACEGATE_COOLDOWN__WINDOW", "5s")
		t.Setenv("FACEGATE_SERVER__ADDR", ":7070")

		convey.Convey("When loading", func() {
			cfg, err := config.Load(path)

			convey.Convey("Then file, env and defaults should be layered", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Server.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Liveness.Threshold, convey.ShouldEqual, 0.6)
				convey.So(cfg.Liveness.FailOpen, convey.ShouldBeTrue)
				convey.So(cfg.Cooldown.Window, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.Matching.Mode, convey.ShouldEqual, config.ModeQuorum)
				convey.So(cfg.Matching.Quorum, convey.ShouldEqual, 3)
				convey.So(cfg.Backends.CallTimeout, convey.ShouldEqual, 2*time.Second)
				convey.So(len(cfg.Backends.ModelServers), convey.ShouldEqual, 1)
				convey.So(cfg.Backends.ModelServers[0].Capabilities, convey.ShouldResemble, []string{"detect", "embed", "verify"})
				convey.So(cfg.Identities.Store, convey.ShouldEqual, config.StoreMemory)
			})
		})
	})

	convey.Convey("Given a missing config file", t, func() {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))

		convey.Convey("Then loading should fail", func() {
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an invalid override", t, func() {
		t.Setenv("FACEGATE_LIVENESS__THRESHOLD", "1.5")
		t.Setenv("FACEGATE_MATCHING__MODE", "best-effort")
		_, err := config.Load("")

		convey.Convey("Then every problem should be reported as invalid config", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "liveness.threshold")
			convey.So(err.Error(), convey.ShouldContainSubstring, "matching.mode")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with dependent settings missing", t, func() {
		cases := map[string]func(*config.Config){
			"identities.dsn":   func(c *config.Config) { c.Identities.Store = config.StorePostgres },
			"audit.dsn":        func(c *config.Config) { c.Audit.Sink = config.SinkPostgres },
			"models_dir":       func(c *config.Config) { c.Backends.Dlib.Enabled = true },
			"thresholds":       func(c *config.Config) { c.Matching.PartialThreshold = 0.95 },
			"duplicate_policy": func(c *config.Config) { c.Identities.DuplicatePolicy = "merge" },
			"exceeds the 5 distinct": func(c *config.Config) {
				c.Matching.Quorum = 6
			},
			"duplicate pose": func(c *config.Config) {
				c.Enrollment.Poses = []string{"straight", "straight", "left"}
				c.Matching.Quorum = 2
			},
			"exceeds the 2 distinct": func(c *config.Config) {
				c.Enrollment.Poses = []string{"straight", "straight", "left"}
			},
			"unknown capability": func(c *config.Config) {
				c.Backends.ModelServers = []config.ModelServerConfig{{Name: "x", URL: "http://x", Capabilities: []string{"smile"}}}
			},
		}
		for want, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, want)
		}
	})

	convey.Convey("Given a quorum equal to the number of enrollment poses", t, func() {
		cfg := config.New()
		cfg.Enrollment.Poses = []string{"straight", "left"}
		cfg.Matching.Quorum = 2

		convey.Convey("Then it should be valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

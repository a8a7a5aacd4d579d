package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.StoreDSN, convey.ShouldEqual, "critic.db")
			convey.So(cfg.BaselineRating, convey.ShouldEqual, 1000)
			convey.So(cfg.GroupFallback, convey.ShouldBeTrue)
			convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 20)
			convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "critic")
			convey.So(cfg.MetricsRefreshMS, convey.ShouldEqual, 10000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("CRITIC_ADDR", ":8080")
			t.Setenv("CRITIC_STORE_DRIVER", "memory")
			t.Setenv("CRITIC_BASELINE_RATING", "1500")
			t.Setenv("CRITIC_GROUP_FALLBACK", "false")
			t.Setenv("CRITIC_RANDOM_SEED", "42")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.BaselineRating, convey.ShouldEqual, 1500)
				convey.So(cfg.GroupFallback, convey.ShouldBeFalse)
				convey.So(cfg.RandomSeed, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, `
# store on postgres
store_driver: postgres
store_dsn: "postgres://critic@localhost/critic"
max_page_size: 50
seed_on_empty: false
`)
			t.Setenv("CRITIC_CONFIG", path)
			t.Setenv("CRITIC_MAX_PAGE_SIZE", "75")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "postgres://critic@localhost/critic")
				convey.So(cfg.SeedOnEmpty, convey.ShouldBeFalse)
				convey.So(cfg.MaxPageSize, convey.ShouldEqual, 75)
			})
		})

		convey.Convey("When the file shapes the metrics", func() {
			t.Setenv("CRITIC_CONFIG", writeConfigFile(t, `
metrics_namespace: rated
metrics_buckets: [1, 5, 25]
metrics_labels:
  env: staging
`))
			t.Setenv("CRITIC_METRICS_SUBSYSTEM", "core")

			cfg, err := config.Load(ctx)

			convey.Convey("Then every metrics key is read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "rated")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "core")
				convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{1, 5, 25})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"env": "staging"})
			})
		})

		convey.Convey("When the metrics buckets do not increase", func() {
			t.Setenv("CRITIC_CONFIG", writeConfigFile(t, "metrics_buckets: [5, 1]\n"))

			_, err := config.Load(ctx)

			convey.Convey("Then they are rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_buckets")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			t.Setenv("CRITIC_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			t.Setenv("CRITIC_CONFIG", "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the settings are inconsistent", func() {
			cases := map[string]string{
				"CRITIC_ADDR":               "",
				"CRITIC_STORE_DRIVER":       "mongo",
				"CRITIC_BASELINE_RATING":    "0",
				"CRITIC_DEFAULT_PAGE_SIZE":  "500",
				"CRITIC_LOG_FORMAT":         "xml",
				"CRITIC_METRICS_NAMESPACE":  "",
				"CRITIC_METRICS_REFRESH_MS": "0",
			}

			convey.Convey("Then each one is rejected as invalid", func() {
				for key, val := range cases {
					clearConfigEnvVars(t)
					t.Setenv(key, val)
					_, err := config.Load(ctx)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When a SQL driver has no DSN", func() {
			t.Setenv("CRITIC_STORE_DSN", "")

			_, err := config.Load(ctx)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "store_dsn")
			})
		})
	})
}

// Helper functions.

var configEnvVars = []string{
	"CRITIC_CONFIG",
	"CRITIC_ADDR",
	"CRITIC_LOG_LEVEL",
	"CRITIC_LOG_FORMAT",
	"CRITIC_STORE_DRIVER",
	"CRITIC_STORE_DSN",
	"CRITIC_BASELINE_RATING",
	"CRITIC_GROUP_FALLBACK",
	"CRITIC_DEFAULT_PAGE_SIZE",
	"CRITIC_MAX_PAGE_SIZE",
	"CRITIC_SEED_ON_EMPTY",
	"CRITIC_RANDOM_SEED",
	"CRITIC_SHUTDOWN_TIMEOUT_MS",
	"CRITIC_METRICS_NAMESPACE",
	"CRITIC_METRICS_SUBSYSTEM",
	"CRITIC_METRICS_BUCKETS",
	"CRITIC_METRICS_REFRESH_MS",
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		// Setenv registers restoration; Unsetenv then clears it for this test.
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "critic.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

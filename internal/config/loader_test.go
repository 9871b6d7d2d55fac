package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/inkflow/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"INKFLOW_CONFIG", "INKFLOW_ADDR", "INKFLOW_LOG_LEVEL", "INKFLOW_LOG_FORMAT",
	"INKFLOW_QUEUE_SIZE", "INKFLOW_DEDUPE_SIZE", "INKFLOW_ARCHIVE_SIZE",
	"INKFLOW_MAX_LIST_LIMIT", "INKFLOW_PREVIEW_WIDTH", "INKFLOW_PREVIEW_HEIGHT",
	"INKFLOW_STREAM_BUFFER", "INKFLOW_STREAM_WRITE_TIMEOUT_MS",
	"INKFLOW_STREAM_PING_INTERVAL_MS", "INKFLOW_PREVIEW_PADDING", "INKFLOW_SHUTDOWN_TIMEOUT_MS",
	"INKFLOW_METRICS_ENABLED", "INKFLOW_METRICS_NAMESPACE", "INKFLOW_METRICS_PREFIX",
	"INKFLOW_METRICS_BUCKETS", "INKFLOW_METRICS_REFRESH_INTERVAL_MS",
}

// clearConfigEnv unsets every config variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnv(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("INKFLOW_ADDR", ":8080")
			t.Setenv("INKFLOW_LOG_FORMAT", "json")
			t.Setenv("INKFLOW_QUEUE_SIZE", "500")
			t.Setenv("INKFLOW_ARCHIVE_SIZE", "42")
			t.Setenv("INKFLOW_STREAM_WRITE_TIMEOUT_MS", "250")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, config.FormatJSON)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.ArchiveSize, convey.ShouldEqual, 42)
				convey.So(cfg.StreamWriteTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			t.Setenv("INKFLOW_CONFIG", writeConfigFile(t, `
# preview settings
addr: ":9090"
preview_width: 256
preview_height: 128
stream_buffer: 16
`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values merge with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PreviewWidth, convey.ShouldEqual, 256)
				convey.So(cfg.PreviewHeight, convey.ShouldEqual, 128)
				convey.So(cfg.StreamBuffer, convey.ShouldEqual, 16)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When lifecycle and metrics keys are set", func() {
			t.Setenv("INKFLOW_CONFIG", writeConfigFile(t, `
metrics_labels:
  deployment: canary
preview_padding: 4
`))
			t.Setenv("INKFLOW_SHUTDOWN_TIMEOUT_MS", "1500")
			t.Setenv("INKFLOW_STREAM_PING_INTERVAL_MS", "2000")
			t.Setenv("INKFLOW_METRICS_ENABLED", "false")
			t.Setenv("INKFLOW_METRICS_PREFIX", "edge")
			t.Setenv("INKFLOW_METRICS_BUCKETS", "1,2,4")
			t.Setenv("INKFLOW_METRICS_REFRESH_INTERVAL_MS", "750")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they reach the config", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 1500*time.Millisecond)
				convey.So(cfg.StreamPingInterval(), convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.PreviewPadding, convey.ShouldEqual, 4)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsPrefix, convey.ShouldEqual, "edge")
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"deployment": "canary"})
				convey.So(cfg.MetricsRefreshInterval(), convey.ShouldEqual, 750*time.Millisecond)
				buckets, err := cfg.HistogramBuckets()
				convey.So(err, convey.ShouldBeNil)
				convey.So(buckets, convey.ShouldResemble, []float64{1, 2, 4})
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			t.Setenv("INKFLOW_CONFIG", writeConfigFile(t, "addr: \":9090\"\nqueue_size: 300\n"))
			t.Setenv("INKFLOW_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			t.Setenv("INKFLOW_CONFIG", writeConfigFile(t, "addr: [unterminated\n"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("INKFLOW_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			t.Setenv("INKFLOW_QUEUE_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file empties addr", func() {
			t.Setenv("INKFLOW_CONFIG", writeConfigFile(t, "addr: \"\"\n"))

			_, err := config.Load(ctx)

			convey.Convey("Then a validation error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			t.Setenv("INKFLOW_LOG_FORMAT", "xml")

			_, err := config.Load(ctx)

			convey.Convey("Then a validation error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

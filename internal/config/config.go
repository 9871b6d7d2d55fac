// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the batches waiting for the worker.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many batch ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ArchiveSize bounds the number of archived stroke snapshots.
	ArchiveSize int `koanf:"archive_size"`

	// MaxListLimit caps GET /strokes?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// PreviewWidth and PreviewHeight size the PNG previews.
	PreviewWidth  int `koanf:"preview_width"`
	PreviewHeight int `koanf:"preview_height"`

	// StreamBuffer is the per-subscriber notification buffer.
	StreamBuffer int `koanf:"stream_buffer"`

	// StreamWriteTimeoutMS bounds each write to a subscriber.
	StreamWriteTimeoutMS int `koanf:"stream_write_timeout_ms"`

	// StreamPingIntervalMS is how often idle subscribers are pinged.
	StreamPingIntervalMS int `koanf:"stream_ping_interval_ms"`

	// PreviewPadding is the margin in pixels kept around a preview.
	PreviewPadding float64 `koanf:"preview_padding"`

	// ShutdownTimeoutMS bounds how long Stop waits for queued batches.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MetricsEnabled turns series registration on /healthz off when false.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsPrefix shape series names:
	// <namespace>_strokes_<prefix>_<name>.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels added to every series. YAML only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBuckets lists latency histogram buckets in milliseconds,
	// comma separated. Empty keeps the Prometheus defaults.
	MetricsBuckets string `koanf:"metrics_buckets"`

	// MetricsRefreshIntervalMS is how often polled gauges are refreshed.
	MetricsRefreshIntervalMS int `koanf:"metrics_refresh_interval_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            FormatText,
		Addr:                 ":9080",
		QueueSize:            10_000,
		DedupeSize:           50_000,
		ArchiveSize:          10_000,
		MaxListLimit:         1_000,
		PreviewWidth:         512,
		PreviewHeight:        512,
		StreamBuffer:         64,
		StreamWriteTimeoutMS: 5_000,

		StreamPingIntervalMS:     30_000,
		PreviewPadding:           16,
		ShutdownTimeoutMS:        10_000,
		MetricsEnabled:           true,
		MetricsNamespace:         "inkflow",
		MetricsRefreshIntervalMS: 5_000,
	}
}

// StreamWriteTimeout returns StreamWriteTimeoutMS as a duration.
func (c *Config) StreamWriteTimeout() time.Duration {
	return time.Duration(c.StreamWriteTimeoutMS) * time.Millisecond
}

// StreamPingInterval returns StreamPingIntervalMS as a duration.
func (c *Config) StreamPingInterval() time.Duration {
	return time.Duration(c.StreamPingIntervalMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MetricsRefreshInterval returns MetricsRefreshIntervalMS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalMS) * time.Millisecond
}

// HistogramBuckets parses MetricsBuckets. Buckets must be positive and
// strictly increasing.
func (c *Config) HistogramBuckets() ([]float64, error) {
	if strings.TrimSpace(c.MetricsBuckets) == "" {
		return nil, nil
	}
	parts := strings.Split(c.MetricsBuckets, ",")
	buckets := make([]float64, 0, len(parts))
	for _, p := range parts {
		b, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics_buckets: %w", ErrInvalidConfig, err)
		}
		if b <= 0 || (len(buckets) > 0 && b <= buckets[len(buckets)-1]) {
			return nil, fmt.Errorf("%w: metrics_buckets must be positive and increasing", ErrInvalidConfig)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// Validate checks the values the service cannot run without. Sizes that are
// zero or negative fall back to component defaults and are not rejected.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != FormatText && c.LogFormat != FormatJSON:
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	case c.PreviewWidth <= 0 || c.PreviewHeight <= 0:
		return fmt.Errorf("%w: preview dimensions must be positive, got %dx%d",
			ErrInvalidConfig, c.PreviewWidth, c.PreviewHeight)
	case c.PreviewPadding < 0:
		return fmt.Errorf("%w: preview_padding must not be negative", ErrInvalidConfig)
	}
	if _, err := c.HistogramBuckets(); err != nil {
		return err
	}
	return nil
}

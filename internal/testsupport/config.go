package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"scanstation/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories exist, the API binds an ephemeral loopback port, and scan
// timing is short enough for wall-clock tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Station.Name = "test-station"
	cfgVal.Station.ScanSeconds = 0.05
	cfgVal.Station.CooldownSeconds = 0.02
	cfgVal.Station.TickIntervalMS = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithScanTiming overrides scan and cooldown durations.
func WithScanTiming(scan, cooldown time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Station.ScanSeconds = scan.Seconds()
		b.cfg.Station.CooldownSeconds = cooldown.Seconds()
	}
}

// WithoutAPI disables the HTTP API.
func WithoutAPI() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = ""
	}
}

// WithAPIToken requires a bearer token on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithHistory toggles the history store.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithDisposal toggles the disposal zone.
func WithDisposal(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Disposal.Enabled = enabled
	}
}

// WithNtfyTopic points notifications at topic, usually an httptest server URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

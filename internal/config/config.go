package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"scanstation/internal/scanqueue"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on HTTP API calls.
	APIToken string `toml:"api_token"`
}

// Station contains scan timing for the single service slot.
type Station struct {
	Name            string  `toml:"name"`
	ScanSeconds     float64 `toml:"scan_seconds"`
	CooldownSeconds float64 `toml:"cooldown_seconds"`
	TickIntervalMS  int     `toml:"tick_interval_ms"`
}

// Presence selects where enter/exit events come from.
type Presence struct {
	// Source is "manual" (IPC/HTTP triggers only) or "netlink" (udev events).
	Source    string            `toml:"source"`
	Subsystem string            `toml:"subsystem"`
	MatchEnv  map[string]string `toml:"match_env"`
	HandleKey string            `toml:"handle_key"`
}

// Disposal toggles the disposal zone.
type Disposal struct {
	Enabled bool `toml:"enabled"`
}

// History configures the scan outcome log.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Notifications configures ntfy delivery of station milestones.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	Served                bool   `toml:"served"`
	Disposed              bool   `toml:"disposed"`
	Preempted             bool   `toml:"preempted"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scanstation.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Station: scan and cooldown durations, tick rate
//   - Presence: manual or udev netlink enter/exit source
//   - Disposal: disposal zone toggle
//   - History: sqlite outcome log and its retention
//   - Notifications: ntfy topic and which milestones to send
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Station       Station       `toml:"station"`
	Presence      Presence      `toml:"presence"`
	Disposal      Disposal      `toml:"disposal"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides (including those from an optional ./.env) are applied after the
// file is decoded. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env if present. Variables already set in the process
// environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scanstation.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ScanQueue converts station timing into engine configuration.
func (c *Config) ScanQueue() scanqueue.Config {
	return scanqueue.Config{
		ScanDuration:     secondsToDuration(c.Station.ScanSeconds),
		CooldownDuration: secondsToDuration(c.Station.CooldownSeconds),
	}
}

// TickInterval returns the station tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Station.TickIntervalMS) * time.Millisecond
}

// HistoryPath is the sqlite file holding scan outcomes.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// SocketPath is the JSON-RPC unix socket the daemon listens on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "scanstation.sock")
}

// LockPath guards against a second daemon on the same state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "scanstationd.lock")
}

// PIDPath records the running daemon's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "scanstationd.pid")
}

// LogPath is the stable daemon log location. The daemon points it at the
// current run's file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "scanstation.log")
}

// APIBaseURL is the HTTP root of the daemon API.
func (c *Config) APIBaseURL() string {
	bind := c.Paths.APIBind
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

// NotifyTimeout bounds a single ntfy request.
func (c *Config) NotifyTimeout() time.Duration {
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return defaultNotifyTimeoutSeconds * time.Second
	}
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

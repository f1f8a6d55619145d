package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables that override file values.
const (
	EnvAPIBind     = "SCANSTATION_API_BIND"
	EnvAPIToken    = "SCANSTATION_API_TOKEN"
	EnvNtfyTopic   = "SCANSTATION_NTFY_TOPIC"
	EnvLogLevel    = "SCANSTATION_LOG_LEVEL"
	EnvScanSeconds = "SCANSTATION_SCAN_SECONDS"
	EnvStateDir    = "SCANSTATION_STATE_DIR"
)

func (c *Config) applyEnv() error {
	if value, ok := lookupEnv(EnvAPIBind); ok {
		c.Paths.APIBind = value
	}
	if value, ok := lookupEnv(EnvAPIToken); ok {
		c.Paths.APIToken = value
	}
	if value, ok := lookupEnv(EnvNtfyTopic); ok {
		c.Notifications.NtfyTopic = value
	}
	if value, ok := lookupEnv(EnvStateDir); ok {
		c.Paths.StateDir = value
	}
	if value, ok := lookupEnv(EnvLogLevel); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupEnv(EnvScanSeconds); ok {
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScanSeconds, err)
		}
		c.Station.ScanSeconds = seconds
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStation()
	c.normalizePresence()
	c.normalizeLogging()
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	switch strings.ToLower(c.Paths.APIBind) {
	case "":
		c.Paths.APIBind = defaultAPIBind
	case APIBindDisabled, "none", "disabled":
		c.Paths.APIBind = ""
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeStation() {
	c.Station.Name = strings.TrimSpace(c.Station.Name)
	if c.Station.Name == "" {
		c.Station.Name = defaultStationName
	}
	if c.Station.TickIntervalMS == 0 {
		c.Station.TickIntervalMS = defaultTickIntervalMS
	}
}

func (c *Config) normalizePresence() {
	c.Presence.Source = strings.ToLower(strings.TrimSpace(c.Presence.Source))
	if c.Presence.Source == "" {
		c.Presence.Source = defaultPresenceSource
	}
	c.Presence.Subsystem = strings.TrimSpace(c.Presence.Subsystem)
	c.Presence.HandleKey = strings.TrimSpace(c.Presence.HandleKey)
	if c.Presence.HandleKey == "" {
		c.Presence.HandleKey = defaultPresenceHandleKey
	}
	if len(c.Presence.MatchEnv) > 0 {
		cleaned := make(map[string]string, len(c.Presence.MatchEnv))
		for key, value := range c.Presence.MatchEnv {
			key = strings.ToUpper(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			cleaned[key] = strings.TrimSpace(value)
		}
		c.Presence.MatchEnv = cleaned
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

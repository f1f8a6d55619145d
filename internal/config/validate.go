package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStation(); err != nil {
		return err
	}
	if err := c.validatePresence(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateStation() error {
	if c.Station.ScanSeconds < 0 {
		return errors.New("station.scan_seconds must be >= 0")
	}
	if c.Station.CooldownSeconds < 0 {
		return errors.New("station.cooldown_seconds must be >= 0")
	}
	if c.Station.TickIntervalMS <= 0 {
		return errors.New("station.tick_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validatePresence() error {
	switch c.Presence.Source {
	case PresenceManual:
		return nil
	case PresenceNetlink:
		if c.Presence.Subsystem == "" && len(c.Presence.MatchEnv) == 0 {
			return errors.New("presence.subsystem or presence.match_env must be set when presence.source is netlink")
		}
		return nil
	default:
		return fmt.Errorf("presence.source must be %q or %q, got %q", PresenceManual, PresenceNetlink, c.Presence.Source)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

package config

const (
	defaultConfigPath           = "~/.config/scanstation/config.toml"
	defaultStateDir             = "~/.local/share/scanstation"
	defaultLogDir               = "~/.local/share/scanstation/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultStationName          = "station"
	defaultScanSeconds          = 2.0
	defaultCooldownSeconds      = 1.0
	defaultTickIntervalMS       = 16
	defaultPresenceSource       = PresenceManual
	defaultPresenceSubsystem    = "usb"
	defaultPresenceHandleKey    = "DEVPATH"
	defaultHistoryRetention     = 30
	defaultNotifyTimeoutSeconds = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
)

// APIBindDisabled as paths.api_bind turns the HTTP API off.
const APIBindDisabled = "off"

// Presence source names.
const (
	PresenceManual  = "manual"
	PresenceNetlink = "netlink"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Station: Station{
			Name:            defaultStationName,
			ScanSeconds:     defaultScanSeconds,
			CooldownSeconds: defaultCooldownSeconds,
			TickIntervalMS:  defaultTickIntervalMS,
		},
		Presence: Presence{
			Source:    defaultPresenceSource,
			Subsystem: defaultPresenceSubsystem,
			HandleKey: defaultPresenceHandleKey,
		},
		Disposal: Disposal{Enabled: true},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			Served:                true,
			Disposed:              true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

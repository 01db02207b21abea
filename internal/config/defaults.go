package config

const (
	defaultConfigPath            = "~/.config/classaudio/config.toml"
	defaultDataDir               = "~/.local/share/classaudio"
	defaultLogDir                = "~/.local/share/classaudio/logs"
	defaultBackendURL            = "http://localhost:8000"
	defaultStreamURL             = "ws://localhost:8000/ws/captions"
	defaultRequestTimeout        = 30
	defaultQATimeout             = 120
	defaultPollIntervalMS        = 5000
	defaultMaxReconnectAttempts  = 5
	defaultReconnectBaseMS       = 1000
	defaultReconnectMaxMS        = 10000
	defaultHeartbeatStaleMS      = 60000
	defaultRedisPrefix           = "classaudio:"
	defaultNotifyRequestTimeout  = 10
	defaultNotifyDedupWindowSecs = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 20
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 30
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendURL,
			StreamURL:      defaultStreamURL,
			RequestTimeout: defaultRequestTimeout,
			QATimeout:      defaultQATimeout,
		},
		Session: Session{
			PollIntervalMS:       defaultPollIntervalMS,
			MaxReconnectAttempts: defaultMaxReconnectAttempts,
			ReconnectBaseMS:      defaultReconnectBaseMS,
			ReconnectMaxMS:       defaultReconnectMaxMS,
			HeartbeatStaleMS:     defaultHeartbeatStaleMS,
		},
		Store: Store{
			Backend:     StoreSQLite,
			RedisPrefix: defaultRedisPrefix,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			DedupWindowSeconds: defaultNotifyDedupWindowSecs,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}

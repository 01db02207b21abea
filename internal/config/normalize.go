package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides recognised by Load.
const (
	EnvBackendURL = "CLASSAUDIO_BACKEND_URL"
	EnvStreamURL  = "CLASSAUDIO_STREAM_URL"
	EnvNtfyTopic  = "CLASSAUDIO_NTFY_TOPIC"
	EnvRedisURL   = "CLASSAUDIO_REDIS_URL"
)

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load(".env")
}

func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvBackendURL); ok {
		c.Backend.BaseURL = value
	}
	if value, ok := lookupEnv(EnvStreamURL); ok {
		c.Backend.StreamURL = value
	}
	if value, ok := lookupEnv(EnvNtfyTopic); ok {
		c.Notifications.NtfyTopic = value
	}
	if value, ok := lookupEnv(EnvRedisURL); ok {
		c.Store.RedisURL = value
	}
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
	c.normalizeBackend()
	c.normalizeSession()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	c.Backend.StreamURL = strings.TrimSpace(c.Backend.StreamURL)
	if c.Backend.StreamURL == "" {
		c.Backend.StreamURL = deriveStreamURL(c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
	if c.Backend.QATimeout <= 0 {
		c.Backend.QATimeout = defaultQATimeout
	}
}

// deriveStreamURL maps http(s)://host to ws(s)://host/ws/captions.
func deriveStreamURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws/captions"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws/captions"
	default:
		return defaultStreamURL
	}
}

func (c *Config) normalizeSession() {
	if c.Session.PollIntervalMS <= 0 {
		c.Session.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Session.MaxReconnectAttempts <= 0 {
		c.Session.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if c.Session.ReconnectBaseMS <= 0 {
		c.Session.ReconnectBaseMS = defaultReconnectBaseMS
	}
	if c.Session.ReconnectMaxMS <= 0 {
		c.Session.ReconnectMaxMS = defaultReconnectMaxMS
	}
	if c.Session.HeartbeatStaleMS <= 0 {
		c.Session.HeartbeatStaleMS = defaultHeartbeatStaleMS
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = StoreSQLite
	}
	var err error
	if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.RedisURL = strings.TrimSpace(c.Store.RedisURL)
	if strings.TrimSpace(c.Store.RedisPrefix) == "" {
		c.Store.RedisPrefix = defaultRedisPrefix
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
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
	if c.Logging.MaxSizeMB < 0 {
		c.Logging.MaxSizeMB = 0
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

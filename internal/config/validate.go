package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if err := requireScheme("backend.base_url", c.Backend.BaseURL, "http", "https"); err != nil {
		return err
	}
	if err := requireScheme("backend.stream_url", c.Backend.StreamURL, "ws", "wss"); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"backend.request_timeout": c.Backend.RequestTimeout,
		"backend.qa_timeout":      c.Backend.QATimeout,
	})
}

func (c *Config) validateSession() error {
	if err := ensurePositiveMap(map[string]int{
		"session.poll_interval_ms":       c.Session.PollIntervalMS,
		"session.max_reconnect_attempts": c.Session.MaxReconnectAttempts,
		"session.reconnect_base_ms":      c.Session.ReconnectBaseMS,
		"session.reconnect_max_ms":       c.Session.ReconnectMaxMS,
		"session.heartbeat_stale_ms":     c.Session.HeartbeatStaleMS,
	}); err != nil {
		return err
	}
	if c.Session.ReconnectMaxMS < c.Session.ReconnectBaseMS {
		return errors.New("session.reconnect_max_ms must be >= session.reconnect_base_ms")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreSQLite, StoreFile:
		return nil
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url must be set when store.backend is redis (or set %s)", EnvRedisURL)
		}
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want sqlite, file or redis)", c.Store.Backend)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func requireScheme(key, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) && parsed.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"classaudio/internal/backend"
	"classaudio/internal/cache"
	"classaudio/internal/config"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/session"
	"classaudio/internal/stream"
	"classaudio/internal/view"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	clientID string
	closers  []func()
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		clientID:   uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// log returns the process logger. Without --verbose stderr only shows
// warnings; the rotated log file always records the configured level.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		consoleLevel := "warn"
		if c.verbose != nil && *c.verbose {
			consoleLevel = ""
		}
		logger, err := logging.NewFromConfig(c.configValue(), consoleLevel)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger.With(logging.String(logging.FieldClientID, c.clientID))
	})
	return c.logger
}

func (c *commandContext) backendClient() *backend.Client {
	return backend.NewFromConfig(c.configValue(), c.clientID, c.log())
}

// openStore opens the configured cache store. With lock set it first takes
// the single-writer lock; a held lock fails the command.
func (c *commandContext) openStore(ctx context.Context, lock bool) (cache.Store, error) {
	cfg := c.configValue()
	if lock {
		l, err := cache.AcquireLock(cfg.LockPath())
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				return nil, fmt.Errorf("data directory %s: %w", cfg.Paths.DataDir, err)
			}
			return nil, err
		}
		c.onClose(func() { _ = l.Release() })
	}
	store, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	c.onClose(func() { _ = store.Close() })
	return store, nil
}

func (c *commandContext) openCache(ctx context.Context, lock bool) (*cache.Cache, error) {
	store, err := c.openStore(ctx, lock)
	if err != nil {
		return nil, err
	}
	return cache.New(ctx, store, c.log()), nil
}

// openCacheOrMemory behaves like openCache but falls back to an in-memory
// store when the configured one cannot be opened. A held lock still fails.
func (c *commandContext) openCacheOrMemory(ctx context.Context) (*cache.Cache, error) {
	store, err := c.openStore(ctx, true)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			return nil, err
		}
		logging.WarnWithContext(c.log(), "cache store unavailable, using memory", "store_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run classaudio doctor to check the store"),
			logging.String(logging.FieldImpact, "session records will not survive a restart"))
		store = cache.NewMemoryStore()
	}
	return cache.New(ctx, store, c.log()), nil
}

// newManager wires a session manager for cfg. Notices go to errOut, live
// updates to v.
func (c *commandContext) newManager(store *cache.Cache, errOut io.Writer, v view.View) (*session.Manager, notify.Notifier) {
	cfg := c.configValue()
	logger := c.log()
	notifier := notify.FromConfig(cfg, notify.NewConsole(errOut), logger)
	header := http.Header{}
	header.Set("X-Client-ID", c.clientID)
	m := session.New(session.Options{
		Backend:   c.backendClient(),
		Cache:     store,
		StreamURL: cfg.Backend.StreamURL,
		Dialer:    stream.WebsocketDialer{Header: header},
		Policy: stream.Policy{
			MaxAttempts:    cfg.Session.MaxReconnectAttempts,
			BaseDelay:      cfg.ReconnectBase(),
			MaxDelay:       cfg.ReconnectMax(),
			HeartbeatStale: cfg.HeartbeatStale(),
		},
		PollInterval: cfg.PollInterval(),
		Notifier:     notifier,
		View:         v,
		Logger:       logger,
	})
	c.onClose(func() {
		m.Shutdown()
		if !notify.Flush(notifier, 5*time.Second) {
			logger.Warn("notifications still pending at exit")
		}
	})
	return m, notifier
}

func (c *commandContext) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

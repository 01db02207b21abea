package cache

import (
	"context"
	"fmt"

	"classaudio/internal/config"
)

// Storage keys. The values are JSON blobs, except the session id which is
// stored as the raw string.
const (
	KeyCaptions  = "classaudio_accurate_captions"
	KeyQA        = "classaudio_qa_history"
	KeyNotes     = "classaudio_llm_notes"
	KeySessionID = "classaudio_session_id"
)

// Keys lists every storage key in a stable order.
var Keys = []string{KeyCaptions, KeyQA, KeyNotes, KeySessionID}

// Store is a durable string key-value backend.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a single key.
	Set(ctx context.Context, key, value string) error
	// SetMany writes all pairs so that either every key or none is updated.
	SetMany(ctx context.Context, values map[string]string) error
	// Name identifies the backend in logs and status output.
	Name() string
	Close() error
}

// Open constructs the store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open cache store: nil config")
	}
	switch cfg.Store.Backend {
	case config.StoreFile:
		return OpenFile(cfg.StorePath())
	case config.StoreRedis:
		return OpenRedis(ctx, cfg.Store.RedisURL, cfg.Store.RedisPrefix)
	case config.StoreSQLite, "":
		return OpenSQLite(ctx, cfg.StorePath())
	default:
		return nil, fmt.Errorf("open cache store: unsupported backend %q", cfg.Store.Backend)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"classaudio/internal/logging"
	"classaudio/internal/record"
)

// Ticket identifies a pending question. It becomes stale when the record sets
// are wiped before the answer arrives.
type Ticket struct {
	generation uint64
	index      int
}

// Summary counts the cached records.
type Summary struct {
	SessionID string
	Captions  int
	QA        int
	Batches   int
	Store     string
}

// Cache holds the session records in memory and mirrors every change into a
// Store. Reads never touch the store.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu         sync.RWMutex
	captions   []record.Caption // newest first
	qa         []record.QA      // ask order
	notes      record.Notes
	notesJSON  []byte
	sessionID  string
	generation uint64

	errMu   sync.Mutex
	lastErr error
}

// New loads the cached records from store. Keys that cannot be read or decoded
// are logged and start empty.
func New(ctx context.Context, store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:  store,
		logger: logging.NewComponentLogger(logger, "cache"),
	}
	c.load(ctx)
	return c
}

func (c *Cache) load(ctx context.Context) {
	c.captions = loadJSON[[]record.Caption](ctx, c, KeyCaptions)
	c.qa = loadJSON[[]record.QA](ctx, c, KeyQA)
	c.notes = loadJSON[record.Notes](ctx, c, KeyNotes)
	c.notesJSON = c.serializeNotes(c.notes)

	if value, ok, err := c.store.Get(ctx, KeySessionID); err != nil {
		c.fail(&PersistenceError{Op: "read", Key: KeySessionID, Err: err})
	} else if ok {
		c.sessionID = value
	}

	// Records persisted while loading can only come from a crashed process;
	// they will never be answered.
	for i := range c.qa {
		if c.qa[i].Loading {
			c.qa[i].Loading = false
			c.qa[i].Errored = true
		}
	}

	c.logger.Debug("loaded session cache",
		logging.String("store", c.store.Name()),
		logging.String(logging.FieldSessionID, c.sessionID),
		logging.Int("captions", len(c.captions)),
		logging.Int("qa", len(c.qa)),
		logging.Int("batches", len(c.notes)))
}

func loadJSON[T any](ctx context.Context, c *Cache, key string) T {
	var out T
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.fail(&PersistenceError{Op: "read", Key: key, Err: err})
		return out
	}
	if !ok || raw == "" {
		return out
	}
	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		c.fail(&PersistenceError{Op: "decode", Key: key, Err: err})
		return out
	}
	return decoded
}

// Captions returns the caption log, newest first.
func (c *Cache) Captions() []record.Caption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]record.Caption(nil), c.captions...)
}

// AppendCaption records an accurate caption at the head of the log and
// persists the log.
func (c *Cache) AppendCaption(ctx context.Context, caption record.Caption) {
	c.mu.Lock()
	c.captions = append([]record.Caption{caption}, c.captions...)
	payload := c.encode(c.captions)
	c.mu.Unlock()
	c.persist(ctx, map[string]string{KeyCaptions: payload})
}

// QA returns the question history in ask order.
func (c *Cache) QA() []record.QA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]record.QA(nil), c.qa...)
}

// PendingQuestion reports whether a question is waiting for its answer.
func (c *Cache) PendingQuestion() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.qa {
		if item.Loading {
			return true
		}
	}
	return false
}

// BeginQuestion appends a loading record. Nothing is persisted until the
// question is resolved.
func (c *Cache) BeginQuestion(question, timestamp string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qa = append(c.qa, record.QA{Question: question, Loading: true, Timestamp: timestamp})
	return Ticket{generation: c.generation, index: len(c.qa) - 1}
}

// ResolveQuestion completes the record behind t exactly once and persists the
// history. It reports false when the ticket is stale or already resolved.
func (c *Cache) ResolveQuestion(ctx context.Context, t Ticket, answer string, errored bool) (record.QA, bool) {
	c.mu.Lock()
	if t.generation != c.generation || t.index < 0 || t.index >= len(c.qa) || !c.qa[t.index].Loading {
		c.mu.Unlock()
		return record.QA{}, false
	}
	item := &c.qa[t.index]
	item.Answer = answer
	item.Loading = false
	item.Errored = errored
	resolved := *item
	payload := c.encode(settledQA(c.qa))
	c.mu.Unlock()

	c.persist(ctx, map[string]string{KeyQA: payload})
	return resolved, true
}

func settledQA(items []record.QA) []record.QA {
	out := make([]record.QA, 0, len(items))
	for _, item := range items {
		if !item.Loading {
			out = append(out, item)
		}
	}
	return out
}

// Notes returns a copy of the notes snapshot.
func (c *Cache) Notes() record.Notes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notes.Clone()
}

// ReplaceNotes swaps in a new snapshot when its serialized form differs from
// the cached one. It reports whether anything changed; an identical snapshot
// causes no write.
func (c *Cache) ReplaceNotes(ctx context.Context, notes record.Notes) bool {
	serialized := c.serializeNotes(notes)
	if serialized == nil {
		return false
	}

	c.mu.Lock()
	if string(serialized) == string(c.notesJSON) {
		c.mu.Unlock()
		return false
	}
	c.notes = notes.Clone()
	c.notesJSON = serialized
	c.mu.Unlock()

	c.persist(ctx, map[string]string{KeyNotes: string(serialized)})
	return true
}

// SessionID returns the cached backend session id, or "" when none is known.
func (c *Cache) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// SetSessionID adopts id without touching the record sets.
func (c *Cache) SetSessionID(ctx context.Context, id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
	c.persist(ctx, map[string]string{KeySessionID: id})
}

// Invalidate wipes captions, QA history and notes together and persists id
// as the new session in the same write.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	values := c.wipeLocked()
	c.sessionID = id
	values[KeySessionID] = id
	c.mu.Unlock()
	c.persist(ctx, values)
}

// Clear wipes captions, QA history and notes together. The session id is kept.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	values := c.wipeLocked()
	c.mu.Unlock()
	c.persist(ctx, values)
}

// ClearQA wipes the QA history alone and reports how many records it held. A
// question still waiting for its answer is dropped with the rest.
func (c *Cache) ClearQA(ctx context.Context) int {
	c.mu.Lock()
	count := len(c.qa)
	c.qa = nil
	c.generation++
	c.mu.Unlock()
	c.persist(ctx, map[string]string{KeyQA: "[]"})
	return count
}

func (c *Cache) wipeLocked() map[string]string {
	c.captions = nil
	c.qa = nil
	c.notes = nil
	c.notesJSON = c.serializeNotes(nil)
	c.generation++
	return map[string]string{
		KeyCaptions: "[]",
		KeyQA:       "[]",
		KeyNotes:    string(c.notesJSON),
	}
}

// Summary reports record counts.
func (c *Cache) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Summary{
		SessionID: c.sessionID,
		Captions:  len(c.captions),
		QA:        len(c.qa),
		Batches:   len(c.notes),
		Store:     c.store.Name(),
	}
}

// Err returns the most recent persistence failure, if any.
func (c *Cache) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

func (c *Cache) persist(ctx context.Context, values map[string]string) {
	if err := c.store.SetMany(ctx, values); err != nil {
		key := ""
		if len(values) == 1 {
			for k := range values {
				key = k
			}
		}
		c.fail(&PersistenceError{Op: "write", Key: key, Err: err})
	}
}

func (c *Cache) encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		c.fail(&PersistenceError{Op: "encode", Err: err})
		return "[]"
	}
	return string(data)
}

func (c *Cache) serializeNotes(notes record.Notes) []byte {
	if notes == nil {
		notes = record.Notes{}
	}
	data, err := notes.Serialize()
	if err != nil {
		c.fail(&PersistenceError{Op: "encode", Key: KeyNotes, Err: err})
		return nil
	}
	return data
}

func (c *Cache) fail(err error) {
	var perr *PersistenceError
	key := ""
	if errors.As(err, &perr) {
		key = perr.Key
	}
	logging.WarnWithContext(c.logger, "cache persistence failed", "cache_persistence_failed",
		logging.Error(err),
		logging.String("key", key),
		logging.String(logging.FieldErrorHint, "check the cache store path or connection"),
		logging.String(logging.FieldImpact, "affected records fall back to in-memory state"))
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

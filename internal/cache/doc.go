// Package cache persists the client's session records across restarts.
//
// A Store is a small string key-value backend (SQLite, a JSON file, or
// Redis). Cache layers the typed records on top of it under four keys: the
// newest-first caption log, the QA history, the notes snapshot and the
// session id. Storage failures never escape Cache; they are logged as
// PersistenceError values and the affected record set falls back to its
// empty in-memory default.
//
// The store is single-writer. Commands that mutate it hold the Lock for the
// lifetime of the process.
package cache

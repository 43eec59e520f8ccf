package audit

import (
	"context"
	"log/slog"
)

// Store is the narrow persistence boundary for audit entries. Any engine
// that can put a record by ID, fetch it back and run filtered queries is
// pluggable here without touching the Logger contract.
type Store interface {
	Put(ctx context.Context, id string, entry *Entry) error
	// Get returns (nil, nil) when the entry does not exist.
	Get(ctx context.Context, id string) (*Entry, error)
	// Query returns matching entries ordered by timestamp descending.
	Query(ctx context.Context, filters QueryFilters) ([]*Entry, error)
}

// StoreLogger is the persistent Logger backend. Every Store failure is
// logged and swallowed so that telemetry can never break the request
// being observed.
type StoreLogger struct {
	store Store
}

// NewStoreLogger wraps an injected append-only store.
func NewStoreLogger(store Store) *StoreLogger {
	return &StoreLogger{store: store}
}

func (l *StoreLogger) Log(ctx context.Context, entry *Entry) {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if err := l.store.Put(ctx, entry.ID, entry); err != nil {
		slog.Error("audit: writing entry", "error", err, "action", entry.Action, "id", entry.ID)
	}
}

func (l *StoreLogger) Query(ctx context.Context, filters QueryFilters) []*Entry {
	entries, err := l.store.Query(ctx, filters)
	if err != nil {
		slog.Error("audit: querying entries", "error", err)
		return nil
	}
	return entries
}

func (l *StoreLogger) GetByID(ctx context.Context, id string) *Entry {
	entry, err := l.store.Get(ctx, id)
	if err != nil {
		slog.Error("audit: fetching entry", "error", err, "id", id)
		return nil
	}
	return entry
}

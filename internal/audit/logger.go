package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger is the audit emission contract. It is fail-open by design: a
// broken sink must never become an outage for the request being audited,
// so none of the methods return an error. Backend failures are logged
// and swallowed.
type Logger interface {
	// Log records a single entry. Best effort.
	Log(ctx context.Context, entry *Entry)
	// Query returns matching entries, newest first. Advisory: backend
	// errors yield an empty slice.
	Query(ctx context.Context, filters QueryFilters) []*Entry
	// GetByID returns the entry with the given ID, or nil when it does
	// not exist or the backend failed. Callers cannot distinguish the two.
	GetByID(ctx context.Context, id string) *Entry
}

// ConsoleLogger writes audit lines to a console writer. Query and GetByID
// are no-ops that only log the request. Used in development where no
// persistent store is required.
type ConsoleLogger struct {
	out io.Writer
}

// NewConsoleLogger returns a ConsoleLogger writing to w, or stdout when
// w is nil.
func NewConsoleLogger(w io.Writer) *ConsoleLogger {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleLogger{out: w}
}

func (l *ConsoleLogger) Log(_ context.Context, entry *Entry) {
	fmt.Fprintf(l.out, "[AUDIT] %s\n", formatEntry(entry))
}

func (l *ConsoleLogger) Query(_ context.Context, filters QueryFilters) []*Entry {
	fmt.Fprintf(l.out, "[AUDIT QUERY] action=%s userId=%s resource=%s limit=%d offset=%d\n",
		filters.Action, filters.UserID, filters.Resource, filters.Limit, filters.Offset)
	return nil
}

func (l *ConsoleLogger) GetByID(_ context.Context, id string) *Entry {
	fmt.Fprintf(l.out, "[AUDIT GET] id=%s\n", id)
	return nil
}

// formatEntry renders an entry as a single greppable line with an
// ISO-8601 timestamp.
func formatEntry(e *Entry) string {
	var b strings.Builder
	b.WriteString(e.Time().UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, " id=%s action=%s method=%s endpoint=%s", e.ID, e.Action, e.Method, e.Endpoint)
	if e.UserID != "" {
		fmt.Fprintf(&b, " user=%s", e.UserID)
	}
	if e.IP != "" {
		fmt.Fprintf(&b, " ip=%s", e.IP)
	}
	if e.ResponseStatus != 0 {
		fmt.Fprintf(&b, " status=%d", e.ResponseStatus)
	}
	if e.ResponseTime != 0 {
		fmt.Fprintf(&b, " time=%dms", e.ResponseTime)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	if sev, ok := e.Metadata["severity"].(string); ok {
		fmt.Fprintf(&b, " severity=%s", sev)
	}
	return b.String()
}

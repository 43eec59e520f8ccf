package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tripforge/tripforge/internal/audit"
	"github.com/tripforge/tripforge/internal/metrics"
	"github.com/tripforge/tripforge/internal/security"
)

const slowResponseThreshold = 10 * time.Second

// SecurityState is the slice of the security service the audit
// middlewares need. Satisfied by *security.Service.
type SecurityState interface {
	Initialized() bool
	AuditLogger() audit.Logger
}

var _ SecurityState = (*security.Service)(nil)

// AuditDetails carries the per-request values the caller knows and the
// request itself does not.
type AuditDetails struct {
	UserID         string
	SessionID      string
	Resource       string
	ResourceID     string
	RequestBody    map[string]any
	ResponseStatus int
	ResponseTime   int64 // milliseconds
	Err            error
	Metadata       map[string]any
}

// SecurityEvent describes a security-grade occurrence layered on top of
// a plain audit event.
type SecurityEvent struct {
	Severity    string
	Description string
	Metadata    map[string]any
}

// Recorder emits audit and security events for HTTP requests. It reads
// the security service state on every call, so events sent before Init
// completes are dropped with a warning instead of failing the request.
type Recorder struct {
	state      SecurityState
	escalation io.Writer
	slowAfter  time.Duration
}

// NewRecorder builds a Recorder. escalation receives the out-of-band
// critical event lines and defaults to stderr.
func NewRecorder(state SecurityState, escalation io.Writer) *Recorder {
	if escalation == nil {
		escalation = os.Stderr
	}
	return &Recorder{state: state, escalation: escalation, slowAfter: slowResponseThreshold}
}

// LogAuditEvent emits one audit entry for the request. Fail-open: it
// never returns an error and never panics into the caller's path.
func (rec *Recorder) LogAuditEvent(ctx context.Context, action audit.Action, r *http.Request, details AuditDetails) {
	if !rec.state.Initialized() {
		slog.Warn("audit event dropped: security system not initialized",
			"action", action, "method", r.Method, "path", r.URL.Path)
		return
	}
	logger := rec.state.AuditLogger()
	if logger == nil {
		// Audit logging disabled by feature flag.
		return
	}

	entry := &audit.Entry{
		ID:             audit.NewID(),
		Timestamp:      time.Now().UnixMilli(),
		UserID:         details.UserID,
		SessionID:      details.SessionID,
		Action:         action,
		Resource:       details.Resource,
		ResourceID:     details.ResourceID,
		Method:         r.Method,
		Endpoint:       r.URL.Path,
		IP:             security.ClientIP(r),
		UserAgent:      r.UserAgent(),
		RequestBody:    details.RequestBody,
		ResponseStatus: details.ResponseStatus,
		ResponseTime:   details.ResponseTime,
		Metadata:       details.Metadata,
	}
	if details.Err != nil {
		entry.Error = details.Err.Error()
	}

	metrics.AuditEventsTotal.WithLabelValues(string(action)).Inc()
	logger.Log(ctx, entry)
}

// LogSecurityEvent emits a security-grade audit entry, tagging the
// metadata with severity, description and securityEvent. Critical events
// additionally write a synchronous escalation line independent of the
// configured audit backend.
func (rec *Recorder) LogSecurityEvent(ctx context.Context, action audit.Action, r *http.Request, ev SecurityEvent) {
	meta := make(map[string]any, len(ev.Metadata)+3)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["severity"] = ev.Severity
	meta["description"] = ev.Description
	meta["securityEvent"] = true

	metrics.SecurityEventsTotal.WithLabelValues(ev.Severity).Inc()

	if ev.Severity == audit.SeverityCritical {
		fmt.Fprintf(rec.escalation, "[CRITICAL SECURITY EVENT] %s %s %s: %s\n",
			action, r.Method, r.URL.Path, ev.Description)
	}

	rec.LogAuditEvent(ctx, action, r, AuditDetails{Metadata: meta})
}

// WithAuditLogging wraps a handler so that exactly one audit entry is
// emitted per request, on both normal completion and panic. A panic is
// recorded into the entry and re-raised unchanged; the middleware
// observes business failures but never swallows them.
func (rec *Recorder) WithAuditLogging(action audit.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				details := AuditDetails{
					ResponseStatus: ww.status,
					ResponseTime:   time.Since(start).Milliseconds(),
				}
				if p := recover(); p != nil {
					details.Err = panicError(p)
					details.ResponseStatus = http.StatusInternalServerError
					rec.LogAuditEvent(r.Context(), action, r, details)
					panic(p)
				}
				rec.LogAuditEvent(r.Context(), action, r, details)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// WithSecurityAudit layers heuristic security-event detection over the
// request: automated-client user agents and pathologically slow
// responses on the success path, and a high-severity system error on
// panic (re-raised unchanged).
func (rec *Recorder) WithSecurityAudit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				elapsed := time.Since(start)
				if p := recover(); p != nil {
					rec.LogSecurityEvent(r.Context(), audit.ActionSystemError, r, SecurityEvent{
						Severity:    audit.SeverityHigh,
						Description: "unhandled error while processing request",
						Metadata: map[string]any{
							"error":        panicError(p).Error(),
							"responseTime": elapsed.Milliseconds(),
						},
					})
					panic(p)
				}

				if ua := r.UserAgent(); security.IsBotRequest(ua) {
					rec.LogSecurityEvent(r.Context(), audit.ActionSuspiciousActivity, r, SecurityEvent{
						Severity:    audit.SeverityMedium,
						Description: "automated client detected",
						Metadata:    map[string]any{"userAgent": ua},
					})
				}
				if elapsed > rec.slowAfter {
					rec.LogSecurityEvent(r.Context(), audit.ActionSuspiciousActivity, r, SecurityEvent{
						Severity:    audit.SeverityLow,
						Description: "slow response",
						Metadata:    map[string]any{"responseTime": elapsed.Milliseconds()},
					})
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("%v", p)
}

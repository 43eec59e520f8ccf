package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/tripforge/internal/audit"
)

type captureLogger struct {
	entries []*audit.Entry
}

func (l *captureLogger) Log(_ context.Context, e *audit.Entry) { l.entries = append(l.entries, e) }
func (l *captureLogger) Query(context.Context, audit.QueryFilters) []*audit.Entry {
	return nil
}
func (l *captureLogger) GetByID(context.Context, string) *audit.Entry { return nil }

type fakeState struct {
	initialized bool
	logger      audit.Logger
}

func (s *fakeState) Initialized() bool         { return s.initialized }
func (s *fakeState) AuditLogger() audit.Logger { return s.logger }

func newTestRecorder() (*Recorder, *captureLogger, *bytes.Buffer) {
	logger := &captureLogger{}
	var escalation bytes.Buffer
	rec := NewRecorder(&fakeState{initialized: true, logger: logger}, &escalation)
	return rec, logger, &escalation
}

func TestWithAuditLogging_Success(t *testing.T) {
	rec, logger, _ := newTestRecorder()

	h := rec.WithAuditLogging(audit.ActionAPICall)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/v1/itineraries", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	req.Header.Set("User-Agent", "Mozilla/5.0")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Len(t, logger.entries, 1)
	e := logger.entries[0]
	assert.Equal(t, audit.ActionAPICall, e.Action)
	assert.Equal(t, "POST", e.Method)
	assert.Equal(t, "/api/v1/itineraries", e.Endpoint)
	assert.Equal(t, "203.0.113.9", e.IP)
	assert.Equal(t, http.StatusCreated, e.ResponseStatus)
	assert.GreaterOrEqual(t, e.ResponseTime, int64(0))
	assert.Empty(t, e.Error)
	assert.NotEmpty(t, e.ID)
}

func TestWithAuditLogging_PanicLogsOnceAndRethrows(t *testing.T) {
	rec, logger, _ := newTestRecorder()

	h := rec.WithAuditLogging(audit.ActionAPICall)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("itinerary storage exploded")
	}))

	req := httptest.NewRequest("GET", "/api/v1/itineraries", nil)
	assert.PanicsWithValue(t, "itinerary storage exploded", func() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}, "the original panic passes through unchanged")

	require.Len(t, logger.entries, 1, "exactly one entry per call")
	e := logger.entries[0]
	assert.Equal(t, "itinerary storage exploded", e.Error)
	assert.Equal(t, http.StatusInternalServerError, e.ResponseStatus)
}

func TestLogAuditEvent_BeforeInitDropsWithoutPanicking(t *testing.T) {
	logger := &captureLogger{}
	rec := NewRecorder(&fakeState{initialized: false, logger: logger}, nil)

	req := httptest.NewRequest("GET", "/api/v1/itineraries", nil)
	assert.NotPanics(t, func() {
		rec.LogAuditEvent(context.Background(), audit.ActionAPICall, req, AuditDetails{})
	})
	assert.Empty(t, logger.entries, "events before init are dropped")
}

func TestLogAuditEvent_DisabledFeatureIsSilentNoOp(t *testing.T) {
	rec := NewRecorder(&fakeState{initialized: true, logger: nil}, nil)

	req := httptest.NewRequest("GET", "/", nil)
	assert.NotPanics(t, func() {
		rec.LogAuditEvent(context.Background(), audit.ActionAPICall, req, AuditDetails{})
	})
}

func TestWithSecurityAudit_BotUserAgent(t *testing.T) {
	rec, logger, _ := newTestRecorder()

	h := rec.WithSecurityAudit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	req.Header.Set("User-Agent", "python-requests/2.31.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, logger.entries, 1)
	e := logger.entries[0]
	assert.Equal(t, audit.ActionSuspiciousActivity, e.Action)
	assert.Equal(t, audit.SeverityMedium, e.Metadata["severity"])
	assert.Equal(t, true, e.Metadata["securityEvent"])
	assert.Equal(t, "python-requests/2.31.0", e.Metadata["userAgent"])
}

func TestWithSecurityAudit_BrowserEmitsNothing(t *testing.T) {
	rec, logger, _ := newTestRecorder()

	h := rec.WithSecurityAudit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh) AppleWebKit/537.36")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, logger.entries)
}

func TestWithSecurityAudit_SlowResponse(t *testing.T) {
	rec, logger, _ := newTestRecorder()
	rec.slowAfter = time.Millisecond

	h := rec.WithSecurityAudit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/itineraries", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, logger.entries, 1)
	e := logger.entries[0]
	assert.Equal(t, audit.ActionSuspiciousActivity, e.Action)
	assert.Equal(t, audit.SeverityLow, e.Metadata["severity"])
	assert.Equal(t, "slow response", e.Metadata["description"])
	assert.GreaterOrEqual(t, e.Metadata["responseTime"], int64(1))
}

func TestWithSecurityAudit_FastResponseEmitsNothing(t *testing.T) {
	rec, logger, _ := newTestRecorder()
	rec.slowAfter = time.Second

	h := rec.WithSecurityAudit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/itineraries", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, logger.entries)
}

func TestWithSecurityAudit_PanicEmitsHighSeverityAndRethrows(t *testing.T) {
	rec, logger, _ := newTestRecorder()

	h := rec.WithSecurityAudit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/api/v1/chat", nil)
	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	})

	require.Len(t, logger.entries, 1)
	e := logger.entries[0]
	assert.Equal(t, audit.ActionSystemError, e.Action)
	assert.Equal(t, audit.SeverityHigh, e.Metadata["severity"])
	assert.Equal(t, "boom", e.Metadata["error"])
}

func TestLogSecurityEvent_CriticalEscalates(t *testing.T) {
	rec, logger, escalation := newTestRecorder()

	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	rec.LogSecurityEvent(context.Background(), audit.ActionDataBreachAttempt, req, SecurityEvent{
		Severity:    audit.SeverityCritical,
		Description: "bulk itinerary export from untrusted network",
	})

	require.Len(t, logger.entries, 1)
	line := escalation.String()
	assert.Contains(t, line, "[CRITICAL SECURITY EVENT] ")
	assert.Contains(t, line, "data_breach_attempt")
	assert.Contains(t, line, "bulk itinerary export from untrusted network")
}

func TestLogSecurityEvent_NonCriticalDoesNotEscalate(t *testing.T) {
	rec, _, escalation := newTestRecorder()

	req := httptest.NewRequest("GET", "/", nil)
	rec.LogSecurityEvent(context.Background(), audit.ActionSuspiciousActivity, req, SecurityEvent{
		Severity:    audit.SeverityLow,
		Description: "slow response",
	})

	assert.Empty(t, escalation.String())
}

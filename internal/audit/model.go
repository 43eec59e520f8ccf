package audit

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of auditable event types.
type Action string

const (
	// Authentication
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionLoginFailed   Action = "login_failed"
	ActionPasswordReset Action = "password_reset"
	ActionAccountLocked Action = "account_locked"

	// User management
	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"

	// Itinerary management
	ActionItineraryCreated Action = "itinerary_created"
	ActionItineraryUpdated Action = "itinerary_updated"
	ActionItineraryDeleted Action = "itinerary_deleted"
	ActionItineraryShared  Action = "itinerary_shared"

	// Chat
	ActionChatMessageSent Action = "chat_message_sent"
	ActionChatSessionEnd  Action = "chat_session_end"

	// API usage
	ActionAPICall           Action = "api_call"
	ActionAPIError          Action = "api_error"
	ActionRateLimitExceeded Action = "rate_limit_exceeded"

	// Security
	ActionSuspiciousActivity Action = "suspicious_activity"
	ActionUnauthorizedAccess Action = "unauthorized_access"
	ActionDataBreachAttempt  Action = "data_breach_attempt"
	ActionMaliciousRequest   Action = "malicious_request"

	// System
	ActionSystemError         Action = "system_error"
	ActionConfigurationChange Action = "configuration_change"
	ActionBackupCreated       Action = "backup_created"
	ActionMaintenanceMode     Action = "maintenance_mode"
)

// Severity levels carried in Entry.Metadata for security-grade events.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Entry is a single append-only audit record. Once written it is never
// updated; new occurrences always produce new entries.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      int64          `json:"timestamp"` // epoch milliseconds
	UserID         string         `json:"userId,omitempty"`
	SessionID      string         `json:"sessionId,omitempty"`
	Action         Action         `json:"action"`
	Resource       string         `json:"resource,omitempty"`
	ResourceID     string         `json:"resourceId,omitempty"`
	Method         string         `json:"method"`
	Endpoint       string         `json:"endpoint"`
	IP             string         `json:"ip,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	RequestBody    map[string]any `json:"requestBody,omitempty"`
	ResponseStatus int            `json:"responseStatus,omitempty"`
	ResponseTime   int64          `json:"responseTime,omitempty"` // milliseconds
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Time returns the entry timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// QueryFilters narrows a Query call. Zero values mean "no constraint".
type QueryFilters struct {
	UserID    string
	Action    Action
	Resource  string
	StartDate *time.Time
	EndDate   *time.Time
	Level     string
	IP        string
	Limit     int
	Offset    int
}

// NewID generates an audit record ID: epoch millis plus a random suffix.
// Uniqueness is best-effort, which is fine for telemetry but makes these
// IDs unsuitable as idempotency keys.
func NewID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

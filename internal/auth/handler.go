package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tripforge/tripforge/internal/api"
	"github.com/tripforge/tripforge/internal/audit"
	"github.com/tripforge/tripforge/internal/metrics"
	"github.com/tripforge/tripforge/internal/middleware"
	"github.com/tripforge/tripforge/internal/security"
	"github.com/tripforge/tripforge/internal/users"
	"github.com/tripforge/tripforge/internal/validate"
)

// Handler serves registration and login. Password policy and session
// lifetime come from the merged security configuration, so the same
// binary behaves differently per environment preset.
type Handler struct {
	repo     users.Repository
	tokens   *TokenManager
	sec      *security.Service
	rec      *middleware.Recorder
	validate *validator.Validate
}

func NewHandler(repo users.Repository, tokens *TokenManager, sec *security.Service, rec *middleware.Recorder) *Handler {
	return &Handler{
		repo:     repo,
		tokens:   tokens,
		sec:      sec,
		rec:      rec,
		validate: validate.New(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input validate.UserRegistration
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	result := validate.ValidateAndSanitize(h.validate, input)
	if !result.Success {
		metrics.ValidationFailuresTotal.WithLabelValues("userRegistration").Inc()
		api.JSONValidationErrors(w, result.Errors)
		return
	}
	input = result.Data

	if errs := h.checkPasswordPolicy(input.Password); len(errs) > 0 {
		metrics.ValidationFailuresTotal.WithLabelValues("userRegistration").Inc()
		api.JSONValidationErrors(w, errs)
		return
	}

	exists, err := h.repo.ExistsByEmail(r.Context(), input.Email)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if exists {
		api.HandleError(w, api.ErrEmailAlreadyExists)
		return
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		api.HandleError(w, fmt.Errorf("hashing password: %w", err))
		return
	}

	now := time.Now()
	user := &users.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         string(security.RoleTraveler),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.repo.Create(r.Context(), user); err != nil {
		api.HandleError(w, err)
		return
	}

	h.rec.LogAuditEvent(r.Context(), audit.ActionUserCreated, r, middleware.AuditDetails{
		UserID:         user.ID.String(),
		Resource:       "user",
		ResourceID:     user.ID.String(),
		ResponseStatus: http.StatusCreated,
	})

	token, err := h.tokens.Issue(user.ID.String(), user.Email, user.Role, h.sessionTTL())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if !validate.ValidateEmail(req.Email) || req.Password == "" {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	guard := h.sec.LoginGuard()
	if guard != nil && guard.IsLocked(r.Context(), req.Email) {
		h.rec.LogAuditEvent(r.Context(), audit.ActionLoginFailed, r, middleware.AuditDetails{
			ResponseStatus: http.StatusTooManyRequests,
			Metadata:       map[string]any{"email": req.Email, "locked": true},
		})
		api.HandleError(w, api.ErrAccountLocked)
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if user == nil || ComparePassword(user.PasswordHash, req.Password) != nil {
		h.recordFailedLogin(w, r, req.Email)
		return
	}

	if guard != nil {
		guard.Reset(r.Context(), req.Email)
	}

	token, err := h.tokens.Issue(user.ID.String(), user.Email, user.Role, h.sessionTTL())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	h.rec.LogAuditEvent(r.Context(), audit.ActionLogin, r, middleware.AuditDetails{
		UserID:         user.ID.String(),
		ResponseStatus: http.StatusOK,
	})
	api.JSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

func (h *Handler) recordFailedLogin(w http.ResponseWriter, r *http.Request, email string) {
	guard := h.sec.LoginGuard()
	if guard != nil && guard.RecordFailure(r.Context(), email) {
		h.rec.LogSecurityEvent(r.Context(), audit.ActionAccountLocked, r, middleware.SecurityEvent{
			Severity:    audit.SeverityHigh,
			Description: "account locked after repeated failed logins",
			Metadata:    map[string]any{"email": email},
		})
		api.HandleError(w, api.ErrAccountLocked)
		return
	}

	h.rec.LogAuditEvent(r.Context(), audit.ActionLoginFailed, r, middleware.AuditDetails{
		ResponseStatus: http.StatusUnauthorized,
		Metadata:       map[string]any{"email": email},
	})
	api.HandleError(w, api.ErrInvalidCredentials)
}

// checkPasswordPolicy applies the merged security settings on top of the
// schema-level checks.
func (h *Handler) checkPasswordPolicy(password string) []string {
	settings := h.sec.Config().Settings

	var errs []string
	if len(password) < settings.PasswordMinLength {
		errs = append(errs, fmt.Sprintf("password: must be at least %d characters", settings.PasswordMinLength))
	}
	if settings.RequireStrongPasswords {
		if ok, unmet := validate.ValidatePassword(password); !ok {
			for _, rule := range unmet {
				errs = append(errs, "password: "+rule)
			}
		}
	}
	return errs
}

func (h *Handler) sessionTTL() time.Duration {
	return h.sec.Config().Settings.SessionTimeout
}

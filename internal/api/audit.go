package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tripforge/tripforge/internal/audit"
	"github.com/tripforge/tripforge/internal/security"
)

// AuditHandler exposes the audit trail over HTTP. Reads go through the
// same Logger the write path uses, so the console backend answers with
// empty results and only the persistent backend serves real queries.
type AuditHandler struct {
	sec *security.Service
}

func NewAuditHandler(sec *security.Service) *AuditHandler {
	return &AuditHandler{sec: sec}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := h.sec.AuditLogger()
	if logger == nil {
		JSON(w, http.StatusOK, []*audit.Entry{})
		return
	}

	filters, err := parseQueryFilters(r)
	if err != nil {
		HandleError(w, ErrBadRequest)
		return
	}

	entries := logger.Query(r.Context(), filters)
	if entries == nil {
		entries = []*audit.Entry{}
	}
	JSON(w, http.StatusOK, entries)
}

func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	logger := h.sec.AuditLogger()
	if logger == nil {
		HandleError(w, ErrNotFound)
		return
	}

	entry := logger.GetByID(r.Context(), chi.URLParam(r, "entryID"))
	if entry == nil {
		HandleError(w, ErrNotFound)
		return
	}
	JSON(w, http.StatusOK, entry)
}

func parseQueryFilters(r *http.Request) (audit.QueryFilters, error) {
	q := r.URL.Query()
	filters := audit.QueryFilters{
		UserID:   q.Get("userId"),
		Action:   audit.Action(q.Get("action")),
		Resource: q.Get("resource"),
		Level:    q.Get("level"),
		IP:       q.Get("ip"),
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"startDate", &filters.StartDate},
		{"endDate", &filters.EndDate},
	} {
		if raw := q.Get(p.name); raw != "" {
			ts, err := parseDate(raw)
			if err != nil {
				return filters, err
			}
			*p.dst = &ts
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.Offset = offset
	}
	return filters, nil
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

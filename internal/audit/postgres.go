package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists audit entries in the audit_logs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const entryColumns = `id, ts, user_id, session_id, action, resource, resource_id,
	method, endpoint, ip, user_agent, request_body, response_status, response_time,
	error, metadata`

func (s *PostgresStore) Put(ctx context.Context, id string, entry *Entry) error {
	requestBody, err := marshalBag(entry.RequestBody)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	metadata, err := marshalBag(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_logs (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id, entry.Timestamp, nullable(entry.UserID), nullable(entry.SessionID),
		string(entry.Action), nullable(entry.Resource), nullable(entry.ResourceID),
		entry.Method, entry.Endpoint, nullable(entry.IP), nullable(entry.UserAgent),
		requestBody, zeroNull(entry.ResponseStatus), zeroNull64(entry.ResponseTime),
		nullable(entry.Error), metadata)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM audit_logs WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying audit log by id: %w", err)
	}
	return entry, nil
}

// Query applies filters in a fixed order (userId, action, resource,
// startDate, endDate) then limit/offset, newest first.
func (s *PostgresStore) Query(ctx context.Context, filters QueryFilters) ([]*Entry, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filters.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, filters.UserID)
		argIdx++
	}
	if filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, string(filters.Action))
		argIdx++
	}
	if filters.Resource != "" {
		conditions = append(conditions, fmt.Sprintf("resource = $%d", argIdx))
		args = append(args, filters.Resource)
		argIdx++
	}
	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("ts >= $%d", argIdx))
		args = append(args, filters.StartDate.UnixMilli())
		argIdx++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("ts <= $%d", argIdx))
		args = append(args, filters.EndDate.UnixMilli())
		argIdx++
	}

	query := `SELECT ` + entryColumns + ` FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts DESC"

	limit := filters.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e              Entry
		userID         *string
		sessionID      *string
		action         string
		resource       *string
		resourceID     *string
		ip             *string
		userAgent      *string
		requestBody    []byte
		responseStatus *int
		responseTime   *int64
		errMsg         *string
		metadata       []byte
	)

	if err := row.Scan(&e.ID, &e.Timestamp, &userID, &sessionID, &action,
		&resource, &resourceID, &e.Method, &e.Endpoint, &ip, &userAgent,
		&requestBody, &responseStatus, &responseTime, &errMsg, &metadata); err != nil {
		return nil, err
	}

	e.Action = Action(action)
	e.UserID = deref(userID)
	e.SessionID = deref(sessionID)
	e.Resource = deref(resource)
	e.ResourceID = deref(resourceID)
	e.IP = deref(ip)
	e.UserAgent = deref(userAgent)
	e.Error = deref(errMsg)
	if responseStatus != nil {
		e.ResponseStatus = *responseStatus
	}
	if responseTime != nil {
		e.ResponseTime = *responseTime
	}
	if len(requestBody) > 0 {
		_ = json.Unmarshal(requestBody, &e.RequestBody)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &e.Metadata)
	}
	return &e, nil
}

func marshalBag(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func zeroNull(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func zeroNull64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

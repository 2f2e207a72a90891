package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

type auditEventsRepo struct {
	q querier
}

// Append is insert-only. Identical events map to distinct rows because the
// caller assigns each one a fresh ULID.
func (r *auditEventsRepo) Append(ctx context.Context, e domain.AuditEvent) error {
	details := sql.NullString{}
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, actor_id, action, resource_type, resource_id,
			description, ip_address, user_agent, request_id, details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), e.ActorID, e.Action,
		mapStringNull(e.ResourceType), mapStringNull(e.ResourceID),
		mapStringNull(e.Description), mapStringNull(e.IPAddress),
		mapStringNull(e.UserAgent), e.RequestID, details,
	)
	return err
}

func (r *auditEventsRepo) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	var (
		conds []string
		args  []any
	)
	if f.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if !f.From.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, f.To.UTC())
	}

	query := `SELECT id, timestamp, actor_id, action, resource_type, resource_id,
		description, ip_address, user_agent, request_id, details
		FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e                            domain.AuditEvent
			ts                           time.Time
			resType, resID, desc, ip, ua sql.NullString
			details                      sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &ts, &e.ActorID, &e.Action, &resType, &resID,
			&desc, &ip, &ua, &e.RequestID, &details,
		); err != nil {
			return nil, err
		}
		e.Timestamp = ts
		e.ResourceType = mapNullString(resType)
		e.ResourceID = mapNullString(resID)
		e.Description = mapNullString(desc)
		e.IPAddress = mapNullString(ip)
		e.UserAgent = mapNullString(ua)
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deanwagman/peregrine/internal/db"
	"github.com/deanwagman/peregrine/internal/domain"
)

// sqlite keeps TIMESTAMP values as text in this layout.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

type invocationRepository struct {
	conn *db.Connection
}

// NewInvocationRepository wires the command audit log.
func NewInvocationRepository(conn *db.Connection) InvocationLog {
	return &invocationRepository{conn: conn}
}

func (r *invocationRepository) Record(ctx context.Context, invocation domain.Invocation) error {
	if r.conn == nil || r.conn.DB == nil {
		return fmt.Errorf("invocation log repository not initialized")
	}

	d := r.conn.Dialect
	_, err := r.conn.DB.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO command_log (id, command, username, status, created_at)
		 VALUES (%s, %s, %s, %s, %s)`,
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5)),
		invocation.ID.String(),
		invocation.Command,
		invocation.Username,
		invocation.Status,
		invocation.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	return nil
}

func (r *invocationRepository) List(ctx context.Context, limit int, offset int) ([]domain.Invocation, error) {
	if r.conn == nil || r.conn.DB == nil {
		return nil, fmt.Errorf("invocation log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	d := r.conn.Dialect
	rows, err := r.conn.DB.QueryContext(
		ctx,
		fmt.Sprintf(`SELECT id, command, username, status, created_at
		 FROM command_log
		 ORDER BY created_at DESC
		 LIMIT %s OFFSET %s`, d.Placeholder(1), d.Placeholder(2)),
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	invocations := []domain.Invocation{}
	for rows.Next() {
		var (
			entry     domain.Invocation
			id        string
			createdAt any
		)
		if scanErr := rows.Scan(
			&id,
			&entry.Command,
			&entry.Username,
			&entry.Status,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", scanErr)
		}

		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse invocation id %q: %w", id, err)
		}
		if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse invocation time: %w", err)
		}

		invocations = append(invocations, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate invocations: %w", rowsErr)
	}

	return invocations, nil
}

func parseTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimestampText(v)
	case []byte:
		return parseTimestampText(string(v))
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", raw)
	}
}

func parseTimestampText(raw string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

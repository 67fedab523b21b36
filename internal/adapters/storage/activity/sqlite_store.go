package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/activity"
)

const logColumns = "id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at"

// SQLiteStore implements the activity Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new activity log store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Log appends an entry. Details are stored as JSON text.
func (s *SQLiteStore) Log(ctx context.Context, entry domain.NewLog) (domain.Log, error) {
	if err := entry.Validate(); err != nil {
		return domain.Log{}, err
	}
	l := fromNew(entry)
	details, err := json.Marshal(l.Details)
	if err != nil {
		return domain.Log{}, fmt.Errorf("encode activity details: %w", err)
	}
	_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO activity_logs ("+logColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.ID, l.UserID, l.Action, string(l.EntityType), l.EntityID, string(details),
		l.IPAddress, l.UserAgent, storage.FormatTime(l.CreatedAt))
	if err != nil {
		return domain.Log{}, err
	}
	return l, nil
}

// List returns one page of entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]domain.Log, error) {
	limit, offset = page(limit, offset)
	return s.query(ctx, "SELECT "+logColumns+" FROM activity_logs ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
}

// ListByUser returns a user's entries, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Log, error) {
	limit, _ = page(limit, 0)
	return s.query(ctx, "SELECT "+logColumns+" FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?", userID, limit)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Log, error) {
	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.Log{}
	for rows.Next() {
		l, err := scanLog(rows.Scan)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// scanLog extracts a Log from a row scanner function.
func scanLog(scan func(dest ...interface{}) error) (domain.Log, error) {
	var l domain.Log
	var entityType, details, createdAt string
	if err := scan(&l.ID, &l.UserID, &l.Action, &entityType, &l.EntityID, &details, &l.IPAddress, &l.UserAgent, &createdAt); err != nil {
		return domain.Log{}, err
	}
	l.EntityType = domain.EntityType(entityType)
	l.Details = map[string]any{}
	if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
		return domain.Log{}, fmt.Errorf("decode activity details: %w", err)
	}
	l.CreatedAt, _ = storage.ParseTime(createdAt)
	return l, nil
}

// fromNew assigns identity and timestamp to an entry about to be stored.
func fromNew(n domain.NewLog) domain.Log {
	details := n.Details
	if details == nil {
		details = map[string]any{}
	}
	ip := n.IPAddress
	if ip == "" {
		ip = domain.UnknownIP
	}
	return domain.Log{
		ID:         uuid.NewString(),
		UserID:     n.UserID,
		Action:     n.Action,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		Details:    details,
		IPAddress:  ip,
		UserAgent:  n.UserAgent,
		CreatedAt:  time.Now().UTC(),
	}
}

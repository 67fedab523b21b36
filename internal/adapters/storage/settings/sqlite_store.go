package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/settings"
)

const settingColumns = "id, key, value, description, updated_by, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new settings store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns every setting, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Setting, error) {
	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, "SELECT "+settingColumns+" FROM admin_settings ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Setting{}
	for rows.Next() {
		st, err := scanSetting(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Upsert sets key to value. The description of an existing setting is kept.
func (s *SQLiteStore) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (domain.Setting, error) {
	if err := domain.ValidateUpsert(key, value); err != nil {
		return domain.Setting{}, err
	}
	now := storage.FormatTime(time.Now().UTC())
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO admin_settings (id, key, value, updated_by, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_by=excluded.updated_by, updated_at=excluded.updated_at
		 RETURNING `+settingColumns,
		uuid.NewString(), key, string(value), updatedBy, now)
	return scanSetting(row.Scan)
}

// scanSetting extracts a Setting from a row scanner function.
func scanSetting(scan func(dest ...interface{}) error) (domain.Setting, error) {
	var st domain.Setting
	var value, updatedAt string
	if err := scan(&st.ID, &st.Key, &value, &st.Description, &st.UpdatedBy, &updatedAt); err != nil {
		return domain.Setting{}, err
	}
	st.Value = json.RawMessage(value)
	st.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return st, nil
}

package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"aph/internal/adapters/storage"
	"aph/internal/domain/identity"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new credential store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a credential.
func (s *SQLiteStore) Create(ctx context.Context, c Credential) error {
	if c.Metadata == nil {
		c.Metadata = identity.Metadata{}
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode user metadata: %w", err)
	}
	_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO credentials (id, email, password_hash, user_metadata, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Email, c.PasswordHash, string(meta), storage.FormatTime(c.CreatedAt))
	return storage.FromSQLite(err)
}

// GetByID retrieves a Credential, or nil if not found.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Credential, error) {
	return s.get(ctx, "id", id)
}

// GetByEmail retrieves a Credential by email, or nil if not found.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	return s.get(ctx, "email", email)
}

func (s *SQLiteStore) get(ctx context.Context, column, value string) (*Credential, error) {
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx,
		"SELECT id, email, password_hash, user_metadata, created_at FROM credentials WHERE "+column+" = ?", value)
	c, err := scanCredential(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdatePassword replaces the stored hash.
// POST: Returns storage.ErrNotFound if id does not exist
func (s *SQLiteStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"UPDATE credentials SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// SaveResetToken stores a new reset token.
func (s *SQLiteStore) SaveResetToken(ctx context.Context, t ResetToken) error {
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO password_reset_tokens (token, credential_id, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?)",
		t.Token, t.CredentialID, storage.FormatTime(t.ExpiresAt), storage.BoolInt(t.Used), storage.FormatTime(t.CreatedAt))
	return err
}

// GetResetToken retrieves a reset token, or nil if not found.
func (s *SQLiteStore) GetResetToken(ctx context.Context, token string) (*ResetToken, error) {
	var t ResetToken
	var expiresAt, createdAt string
	var used int
	err := storage.Conn(ctx, s.db).QueryRowContext(ctx,
		"SELECT token, credential_id, expires_at, used, created_at FROM password_reset_tokens WHERE token = ?", token).
		Scan(&t.Token, &t.CredentialID, &expiresAt, &used, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Used = used != 0
	t.ExpiresAt, _ = storage.ParseTime(expiresAt)
	t.CreatedAt, _ = storage.ParseTime(createdAt)
	return &t, nil
}

// MarkResetTokenUsed flips the used flag once.
func (s *SQLiteStore) MarkResetTokenUsed(ctx context.Context, token string) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"UPDATE password_reset_tokens SET used = 1 WHERE token = ? AND used = 0", token)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanCredential extracts a Credential from a row scanner function.
func scanCredential(scan func(dest ...interface{}) error) (Credential, error) {
	var c Credential
	var meta, createdAt string
	if err := scan(&c.ID, &c.Email, &c.PasswordHash, &meta, &createdAt); err != nil {
		return Credential{}, err
	}
	c.Metadata = identity.Metadata{}
	if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
		return Credential{}, fmt.Errorf("decode user metadata: %w", err)
	}
	c.CreatedAt, _ = storage.ParseTime(createdAt)
	return c, nil
}

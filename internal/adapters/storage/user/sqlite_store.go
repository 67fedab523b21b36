package user

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/user"
)

const userColumns = "id, email, name, phone, role, is_active, created_at, updated_at, last_login"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new user store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a user.
// PRE: n.Email is unique
// POST: Returns the stored user with timestamps set
func (s *SQLiteStore) Create(ctx context.Context, n domain.NewUser) (domain.User, error) {
	n, err := prepare(n)
	if err != nil {
		return domain.User{}, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u := domain.User{
		ID: n.ID, Email: n.Email, Name: n.Name, Phone: n.Phone, Role: n.Role,
		IsActive: n.IsActive, CreatedAt: now, UpdatedAt: now,
	}
	_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)",
		u.ID, u.Email, u.Name, u.Phone, string(u.Role), storage.BoolInt(u.IsActive),
		storage.FormatTime(now), storage.FormatTime(now),
	)
	if err != nil {
		return domain.User{}, storage.FromSQLite(err)
	}
	return u, nil
}

// GetByID retrieves a User by its ID.
// PRE: id is non-empty
// POST: Returns the entity, or nil if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a User by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity, or nil if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", domain.NormalizeEmail(email))
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx, query, arg)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies patch to the user with id.
// PRE: patch is non-empty
// POST: Returns the updated user; UpdatedAt is refreshed
func (s *SQLiteStore) Update(ctx context.Context, id string, patch domain.Patch) (domain.User, error) {
	if err := patch.Validate(); err != nil {
		return domain.User{}, err
	}
	if patch.Email != nil {
		e := domain.NormalizeEmail(*patch.Email)
		patch.Email = &e
	}
	var out domain.User
	err := storage.WithTx(ctx, s.db, func(ctx context.Context) error {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return storage.ErrNotFound
		}
		patch.Apply(current)
		current.UpdatedAt = time.Now().UTC()
		_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
			`UPDATE users SET email = ?, name = ?, phone = ?, role = ?, is_active = ?, updated_at = ?, last_login = ?
			 WHERE id = ?`,
			current.Email, current.Name, current.Phone, string(current.Role), storage.BoolInt(current.IsActive),
			storage.FormatTime(current.UpdatedAt), storage.FormatNullTime(current.LastLogin), id,
		)
		if err != nil {
			return storage.FromSQLite(err)
		}
		out = *current
		return nil
	})
	return out, err
}

// Delete removes a User.
// POST: Returns true if a row was removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List retrieves all users, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// TouchLastLogin stamps the last sign-in time.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?",
		storage.FormatTime(at), storage.FormatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanUser extracts a User from a row scanner function.
func scanUser(scan func(dest ...interface{}) error) (domain.User, error) {
	var u domain.User
	var role, createdAt, updatedAt string
	var isActive int
	var lastLogin sql.NullString
	if err := scan(&u.ID, &u.Email, &u.Name, &u.Phone, &role, &isActive, &createdAt, &updatedAt, &lastLogin); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.IsActive = isActive != 0
	u.CreatedAt, _ = storage.ParseTime(createdAt)
	u.UpdatedAt, _ = storage.ParseTime(updatedAt)
	u.LastLogin, _ = storage.ParseNullTime(lastLogin)
	return u, nil
}

package enrollment

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/enrollment"
)

const enrollmentColumns = "id, user_id, program_id, payment_id, status, start_date, end_date, created_at, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new enrollment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts an enrollment.
// PRE: the referenced user, program and payment exist
// POST: Returns the stored enrollment
func (s *SQLiteStore) Create(ctx context.Context, n domain.NewEnrollment) (domain.Enrollment, error) {
	e := n.Enrollment()
	if err := e.Validate(); err != nil {
		return domain.Enrollment{}, err
	}
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO enrollments ("+enrollmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.UserID, e.ProgramID, e.PaymentID, string(e.Status),
		storage.FormatTime(e.StartDate), storage.FormatTime(e.EndDate),
		storage.FormatTime(e.CreatedAt), storage.FormatTime(e.UpdatedAt),
	)
	if err != nil {
		return domain.Enrollment{}, storage.FromSQLite(err)
	}
	return e, nil
}

// GetByID retrieves an Enrollment, or nil if not found.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = ?", id)
	e, err := scanEnrollment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns a user's enrollments, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	return s.list(ctx, "SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// List returns all enrollments, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Enrollment, error) {
	return s.list(ctx, "SELECT "+enrollmentColumns+" FROM enrollments ORDER BY created_at DESC")
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Enrollment, error) {
	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// UpdateStatus checks the transition and stores the new status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Enrollment, error) {
	var out domain.Enrollment
	err := storage.WithTx(ctx, s.db, func(ctx context.Context) error {
		e, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return storage.ErrNotFound
		}
		if err := e.TransitionTo(status); err != nil {
			return err
		}
		e.UpdatedAt = time.Now().UTC()
		if _, err := storage.Conn(ctx, s.db).ExecContext(ctx,
			"UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ?",
			string(e.Status), storage.FormatTime(e.UpdatedAt), id); err != nil {
			return err
		}
		out = *e
		return nil
	})
	return out, err
}

// Delete removes an Enrollment.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM enrollments WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// scanEnrollment extracts an Enrollment from a row scanner function.
func scanEnrollment(scan func(dest ...interface{}) error) (domain.Enrollment, error) {
	var e domain.Enrollment
	var status, start, end, createdAt, updatedAt string
	if err := scan(&e.ID, &e.UserID, &e.ProgramID, &e.PaymentID, &status, &start, &end, &createdAt, &updatedAt); err != nil {
		return domain.Enrollment{}, err
	}
	e.Status = domain.Status(status)
	e.StartDate, _ = storage.ParseTime(start)
	e.EndDate, _ = storage.ParseTime(end)
	e.CreatedAt, _ = storage.ParseTime(createdAt)
	e.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return e, nil
}

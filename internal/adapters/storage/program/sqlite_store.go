package program

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/program"
)

const programColumns = "id, name, description, price, age_group, duration, max_participants, current_participants, is_active, created_at, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new program store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a program.
// PRE: n describes a valid program
// POST: Returns the stored program with id and timestamps set
func (s *SQLiteStore) Create(ctx context.Context, n domain.NewProgram) (domain.Program, error) {
	p := n.Program()
	if err := p.Validate(); err != nil {
		return domain.Program{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO programs ("+programColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Description, p.Price, p.AgeGroup, p.Duration, p.MaxParticipants,
		p.CurrentParticipants, storage.BoolInt(p.IsActive),
		storage.FormatTime(p.CreatedAt), storage.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return domain.Program{}, storage.FromSQLite(err)
	}
	return p, nil
}

// GetByID retrieves a Program by its ID.
// PRE: id is non-empty
// POST: Returns the entity, or nil if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx, "SELECT "+programColumns+" FROM programs WHERE id = ?", id)
	p, err := scanProgram(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List retrieves programs, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Program, error) {
	query := "SELECT " + programColumns + " FROM programs"
	if filter.ActiveOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Program{}
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// Update applies patch and re-validates the result.
// POST: Returns the updated program or the first violated invariant
func (s *SQLiteStore) Update(ctx context.Context, id string, patch domain.Patch) (domain.Program, error) {
	var out domain.Program
	err := storage.WithTx(ctx, s.db, func(ctx context.Context) error {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return storage.ErrNotFound
		}
		patch.Apply(current)
		if err := current.Validate(); err != nil {
			return err
		}
		current.UpdatedAt = time.Now().UTC()
		_, err = storage.Conn(ctx, s.db).ExecContext(ctx,
			`UPDATE programs SET name = ?, description = ?, price = ?, age_group = ?, duration = ?,
			 max_participants = ?, current_participants = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			current.Name, current.Description, current.Price, current.AgeGroup, current.Duration,
			current.MaxParticipants, current.CurrentParticipants, storage.BoolInt(current.IsActive),
			storage.FormatTime(current.UpdatedAt), id,
		)
		if err != nil {
			return err
		}
		out = *current
		return nil
	})
	return out, err
}

// Delete removes a Program.
// POST: Returns true if a row was removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AdjustParticipants moves current_participants by delta in one statement.
// INVARIANT: 0 <= current_participants <= max_participants
func (s *SQLiteStore) AdjustParticipants(ctx context.Context, id string, delta int) (domain.Program, error) {
	var out domain.Program
	err := storage.WithTx(ctx, s.db, func(ctx context.Context) error {
		res, err := storage.Conn(ctx, s.db).ExecContext(ctx,
			`UPDATE programs SET current_participants = current_participants + ?, updated_at = ?
			 WHERE id = ? AND current_participants + ? BETWEEN 0 AND max_participants`,
			delta, storage.FormatTime(time.Now()), id, delta)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return storage.ErrNotFound
		}
		if n == 0 {
			return capacityError(delta)
		}
		out = *p
		return nil
	})
	return out, err
}

// scanProgram extracts a Program from a row scanner function.
func scanProgram(scan func(dest ...interface{}) error) (domain.Program, error) {
	var p domain.Program
	var isActive int
	var createdAt, updatedAt string
	err := scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.AgeGroup, &p.Duration,
		&p.MaxParticipants, &p.CurrentParticipants, &isActive, &createdAt, &updatedAt)
	if err != nil {
		return domain.Program{}, err
	}
	p.IsActive = isActive != 0
	p.CreatedAt, _ = storage.ParseTime(createdAt)
	p.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return p, nil
}

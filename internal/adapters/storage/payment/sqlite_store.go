package payment

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/payment"
)

const paymentColumns = "id, user_id, program_id, amount, currency, payment_method, card_last_four, status, transaction_id, payment_date, notes, created_at, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new payment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a payment.
// PRE: TransactionID is unique
// POST: Returns the stored payment; PaymentDate defaults to now
func (s *SQLiteStore) Create(ctx context.Context, n domain.NewPayment) (domain.Payment, error) {
	p := n.Payment()
	if err := p.Validate(); err != nil {
		return domain.Payment{}, err
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.PaymentDate.IsZero() {
		p.PaymentDate = now
	}
	_, err := storage.Conn(ctx, s.db).ExecContext(ctx,
		"INSERT INTO payments ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.UserID, p.ProgramID, p.Amount, p.Currency, string(p.PaymentMethod), p.CardLastFour,
		string(p.Status), p.TransactionID, storage.FormatTime(p.PaymentDate), p.Notes,
		storage.FormatTime(p.CreatedAt), storage.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return domain.Payment{}, storage.FromSQLite(err)
	}
	return p, nil
}

// GetByID retrieves a Payment, or nil if not found.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := storage.Conn(ctx, s.db).QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	p, err := scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns a user's payments, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.list(ctx, "SELECT "+paymentColumns+" FROM payments WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// List returns all payments, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Payment, error) {
	return s.list(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY created_at DESC")
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := storage.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// UpdateStatus checks the transition and stores the new status.
// POST: Returns the updated payment, or an error and no change
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Payment, error) {
	var out domain.Payment
	err := storage.WithTx(ctx, s.db, func(ctx context.Context) error {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return storage.ErrNotFound
		}
		if err := p.TransitionTo(status); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		if _, err := storage.Conn(ctx, s.db).ExecContext(ctx,
			"UPDATE payments SET status = ?, updated_at = ? WHERE id = ?",
			string(p.Status), storage.FormatTime(p.UpdatedAt), id); err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// Delete removes a Payment.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := storage.Conn(ctx, s.db).ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// scanPayment extracts a Payment from a row scanner function.
func scanPayment(scan func(dest ...interface{}) error) (domain.Payment, error) {
	var p domain.Payment
	var method, status, paymentDate, createdAt, updatedAt string
	err := scan(&p.ID, &p.UserID, &p.ProgramID, &p.Amount, &p.Currency, &method, &p.CardLastFour,
		&status, &p.TransactionID, &paymentDate, &p.Notes, &createdAt, &updatedAt)
	if err != nil {
		return domain.Payment{}, err
	}
	p.PaymentMethod = domain.Method(method)
	p.Status = domain.Status(status)
	p.PaymentDate, _ = storage.ParseTime(paymentDate)
	p.CreatedAt, _ = storage.ParseTime(createdAt)
	p.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return p, nil
}

package analytics

import (
	"context"
	"time"

	"aph/internal/adapters/storage"
	domain "aph/internal/domain/analytics"
)

// SQLiteStore aggregates in SQL so only counters leave the database.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new analytics store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Payments summarizes payments in [from, to].
func (s *SQLiteStore) Payments(ctx context.Context, from, to time.Time) (domain.PaymentSummary, error) {
	q := storage.Conn(ctx, s.db)
	lo, hi := storage.FormatTime(from), storage.FormatTime(to)
	sum := domain.PaymentSummary{PaymentsByStatus: map[string]int{}}

	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM payments WHERE payment_date BETWEEN ? AND ?",
		lo, hi).Scan(&sum.TotalRevenue, &sum.TotalPayments)
	if err != nil {
		return domain.PaymentSummary{}, err
	}
	sum.AveragePayment = domain.Average(sum.TotalRevenue, sum.TotalPayments)

	if err := groupCount(ctx, q, sum.PaymentsByStatus,
		"SELECT status, COUNT(*) FROM payments WHERE payment_date BETWEEN ? AND ? GROUP BY status", lo, hi); err != nil {
		return domain.PaymentSummary{}, err
	}
	return sum, nil
}

// Users summarizes the user table.
func (s *SQLiteStore) Users(ctx context.Context, now time.Time) (domain.UserSummary, error) {
	q := storage.Conn(ctx, s.db)
	start, end := domain.MonthBounds(now)
	sum := domain.UserSummary{UsersByRole: map[string]int{}}

	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_active), 0),
		        COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0)
		 FROM users`,
		storage.FormatTime(start), storage.FormatTime(end)).
		Scan(&sum.TotalUsers, &sum.ActiveUsers, &sum.NewUsersThisMonth)
	if err != nil {
		return domain.UserSummary{}, err
	}
	if err := groupCount(ctx, q, sum.UsersByRole, "SELECT role, COUNT(*) FROM users GROUP BY role"); err != nil {
		return domain.UserSummary{}, err
	}
	return sum, nil
}

// Programs summarizes programs and enrollments.
func (s *SQLiteStore) Programs(ctx context.Context) (domain.ProgramSummary, error) {
	q := storage.Conn(ctx, s.db)
	sum := domain.ProgramSummary{EnrollmentsByProgram: map[string]int{}}

	err := q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM programs),
		        (SELECT COUNT(*) FROM programs WHERE is_active = 1),
		        (SELECT COUNT(*) FROM enrollments)`).
		Scan(&sum.TotalPrograms, &sum.ActivePrograms, &sum.TotalEnrollments)
	if err != nil {
		return domain.ProgramSummary{}, err
	}
	if err := groupCount(ctx, q, sum.EnrollmentsByProgram,
		"SELECT program_id, COUNT(*) FROM enrollments GROUP BY program_id"); err != nil {
		return domain.ProgramSummary{}, err
	}
	return sum, nil
}

// groupCount fills dst from a two-column (key, count) query.
func groupCount(ctx context.Context, q storage.Querier, dst map[string]int, query string, args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

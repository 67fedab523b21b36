// Package analytics holds the dashboard summaries and the pure reducers
// that build them from raw rows.
package analytics

import "time"

// PaymentSummary aggregates payments whose payment date falls in a range.
type PaymentSummary struct {
	TotalRevenue     float64        `json:"totalRevenue"`
	TotalPayments    int            `json:"totalPayments"`
	AveragePayment   float64        `json:"averagePayment"`
	PaymentsByStatus map[string]int `json:"paymentsByStatus"`
}

// UserSummary aggregates the user table.
type UserSummary struct {
	TotalUsers        int            `json:"totalUsers"`
	UsersByRole       map[string]int `json:"usersByRole"`
	ActiveUsers       int            `json:"activeUsers"`
	NewUsersThisMonth int            `json:"newUsersThisMonth"`
}

// ProgramSummary aggregates programs and enrollments.
type ProgramSummary struct {
	TotalPrograms        int            `json:"totalPrograms"`
	ActivePrograms       int            `json:"activePrograms"`
	TotalEnrollments     int            `json:"totalEnrollments"`
	EnrollmentsByProgram map[string]int `json:"enrollmentsByProgram"`
}

// PaymentRow is the projection of a payment needed for PaymentSummary.
type PaymentRow struct {
	Amount float64
	Status string
}

// UserRow is the projection of a user needed for UserSummary.
type UserRow struct {
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

// SummarizePayments reduces payment rows.
// POST: AveragePayment is 0 when rows is empty
func SummarizePayments(rows []PaymentRow) PaymentSummary {
	s := PaymentSummary{PaymentsByStatus: map[string]int{}}
	for _, r := range rows {
		s.TotalRevenue += r.Amount
		s.PaymentsByStatus[r.Status]++
	}
	s.TotalPayments = len(rows)
	s.AveragePayment = Average(s.TotalRevenue, s.TotalPayments)
	return s
}

// SummarizeUsers reduces user rows. A user is new this month when its
// creation time shares year and month with now, in now's location.
func SummarizeUsers(rows []UserRow, now time.Time) UserSummary {
	s := UserSummary{UsersByRole: map[string]int{}}
	for _, r := range rows {
		s.UsersByRole[r.Role]++
		if r.IsActive {
			s.ActiveUsers++
		}
		if SameMonth(r.CreatedAt, now) {
			s.NewUsersThisMonth++
		}
	}
	s.TotalUsers = len(rows)
	return s
}

// SummarizePrograms reduces program activity flags and enrollment program ids.
func SummarizePrograms(programActive []bool, enrollmentProgramIDs []string) ProgramSummary {
	s := ProgramSummary{EnrollmentsByProgram: map[string]int{}}
	for _, active := range programActive {
		if active {
			s.ActivePrograms++
		}
	}
	for _, id := range enrollmentProgramIDs {
		s.EnrollmentsByProgram[id]++
	}
	s.TotalPrograms = len(programActive)
	s.TotalEnrollments = len(enrollmentProgramIDs)
	return s
}

// Average divides without panicking on an empty set.
func Average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// MonthBounds returns the first instant of now's month and of the next one.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// SameMonth reports whether t falls in the calendar month of now.
func SameMonth(t, now time.Time) bool {
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.Month() == now.Month()
}

package analytics_test

import (
	"testing"
	"time"

	"aph/internal/domain/analytics"
)

func TestSummarizePayments_Empty(t *testing.T) {
	s := analytics.SummarizePayments(nil)
	if s.TotalRevenue != 0 || s.TotalPayments != 0 || s.AveragePayment != 0 {
		t.Errorf("empty summary = %+v, want zeros", s)
	}
	if s.PaymentsByStatus == nil {
		t.Error("PaymentsByStatus should be an empty map, not nil")
	}
}

func TestSummarizePayments(t *testing.T) {
	s := analytics.SummarizePayments([]analytics.PaymentRow{
		{Amount: 100, Status: "completed"},
		{Amount: 200, Status: "completed"},
		{Amount: 60, Status: "refunded"},
	})
	if s.TotalRevenue != 360 || s.TotalPayments != 3 || s.AveragePayment != 120 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.PaymentsByStatus["completed"] != 2 || s.PaymentsByStatus["refunded"] != 1 {
		t.Errorf("unexpected status counts %v", s.PaymentsByStatus)
	}
}

func TestSummarizeUsers(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rows := []analytics.UserRow{
		{Role: "admin", IsActive: true, CreatedAt: time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC)},
		{Role: "student", IsActive: true, CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{Role: "student", IsActive: false, CreatedAt: time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC)},
		{Role: "coach", IsActive: true, CreatedAt: time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)},
	}
	s := analytics.SummarizeUsers(rows, now)
	if s.TotalUsers != 4 || s.ActiveUsers != 3 || s.NewUsersThisMonth != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.UsersByRole["student"] != 2 || s.UsersByRole["admin"] != 1 {
		t.Errorf("unexpected role counts %v", s.UsersByRole)
	}
}

func TestSummarizePrograms(t *testing.T) {
	s := analytics.SummarizePrograms([]bool{true, false, true}, []string{"a", "a", "b"})
	if s.TotalPrograms != 3 || s.ActivePrograms != 2 || s.TotalEnrollments != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.EnrollmentsByProgram["a"] != 2 || s.EnrollmentsByProgram["b"] != 1 {
		t.Errorf("unexpected program counts %v", s.EnrollmentsByProgram)
	}
}

func TestMonthBounds(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)
	start, end := analytics.MonthBounds(now)
	if !start.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

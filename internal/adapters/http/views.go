package web

import (
	"time"

	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
	"aph/internal/domain/user"
)

type userView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Role      user.Role  `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func toUserView(u user.User) userView {
	return userView{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: u.Role,
		IsActive: u.IsActive, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt, LastLogin: u.LastLogin,
	}
}

type programView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Price               float64   `json:"price"`
	AgeGroup            string    `json:"ageGroup"`
	Duration            string    `json:"duration"`
	MaxParticipants     int       `json:"maxParticipants"`
	CurrentParticipants int       `json:"currentParticipants"`
	SpotsLeft           int       `json:"spotsLeft"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func toProgramView(p program.Program) programView {
	return programView{
		ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price,
		AgeGroup: p.AgeGroup, Duration: p.Duration,
		MaxParticipants: p.MaxParticipants, CurrentParticipants: p.CurrentParticipants,
		SpotsLeft: p.SpotsLeft(), IsActive: p.IsActive,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// programInput is the body of program create and update requests. Nil
// fields are left untouched on update.
type programInput struct {
	Name                *string  `json:"name"`
	Description         *string  `json:"description"`
	Price               *float64 `json:"price"`
	AgeGroup            *string  `json:"ageGroup"`
	Duration            *string  `json:"duration"`
	MaxParticipants     *int     `json:"maxParticipants"`
	CurrentParticipants *int     `json:"currentParticipants"`
	IsActive            *bool    `json:"isActive"`
}

func (in programInput) patch() program.Patch {
	return program.Patch{
		Name: in.Name, Description: in.Description, Price: in.Price,
		AgeGroup: in.AgeGroup, Duration: in.Duration,
		MaxParticipants: in.MaxParticipants, CurrentParticipants: in.CurrentParticipants,
		IsActive: in.IsActive,
	}
}

// newProgram builds a create request. A program is active unless the
// body says otherwise.
func (in programInput) newProgram() program.NewProgram {
	p := program.Program{IsActive: true}
	patch := in.patch()
	patch.Apply(&p)
	return program.NewProgram{
		Name: p.Name, Description: p.Description, Price: p.Price,
		AgeGroup: p.AgeGroup, Duration: p.Duration,
		MaxParticipants: p.MaxParticipants, CurrentParticipants: p.CurrentParticipants,
		IsActive: p.IsActive,
	}
}

type paymentView struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	ProgramID     string         `json:"programId"`
	Amount        float64        `json:"amount"`
	Currency      string         `json:"currency"`
	PaymentMethod payment.Method `json:"paymentMethod"`
	CardLastFour  string         `json:"cardLastFour"`
	Status        payment.Status `json:"status"`
	TransactionID string         `json:"transactionId"`
	PaymentDate   time.Time      `json:"paymentDate"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toPaymentView(p payment.Payment) paymentView {
	return paymentView{
		ID: p.ID, UserID: p.UserID, ProgramID: p.ProgramID, Amount: p.Amount, Currency: p.Currency,
		PaymentMethod: p.PaymentMethod, CardLastFour: p.CardLastFour, Status: p.Status,
		TransactionID: p.TransactionID, PaymentDate: p.PaymentDate, Notes: p.Notes,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

type enrollmentView struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	ProgramID string            `json:"programId"`
	PaymentID string            `json:"paymentId"`
	Status    enrollment.Status `json:"status"`
	StartDate time.Time         `json:"startDate"`
	EndDate   time.Time         `json:"endDate"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func toEnrollmentView(e enrollment.Enrollment) enrollmentView {
	return enrollmentView{
		ID: e.ID, UserID: e.UserID, ProgramID: e.ProgramID, PaymentID: e.PaymentID, Status: e.Status,
		StartDate: e.StartDate, EndDate: e.EndDate, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func mapSlice[T, V any](in []T, f func(T) V) []V {
	out := make([]V, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

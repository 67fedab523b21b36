package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aph/internal/adapters/http/middleware"
	"aph/internal/application/forms"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
)

type checkoutView struct {
	Payment    paymentView    `json:"payment"`
	Enrollment enrollmentView `json:"enrollment"`
	Program    programView    `json:"program"`
	UserID     string         `json:"userId"`
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var f forms.Payment
	if !strictDecode(w, r, &f) {
		return
	}
	res, err := orchestrators.ExecuteSubmitPayment(r.Context(), orchestrators.SubmitPaymentInput{
		Form:      f,
		Payer:     middleware.UserFromContext(r.Context()),
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}, orchestrators.SubmitPaymentDeps{
		Users:       s.stores.Users,
		Programs:    s.stores.Programs,
		Payments:    s.stores.Payments,
		Enrollments: s.stores.Enrollments,
		Activity:    s.stores.Activity,
		Tx:          s.stores.Tx,
		Receipts:    s.receipts,
		Now:         s.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutView{
		Payment:    toPaymentView(res.Payment),
		Enrollment: toEnrollmentView(res.Enrollment),
		Program:    toProgramView(res.Program),
		UserID:     res.Payer.ID,
	})
}

func (s *Server) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	payments, err := s.stores.Payments.ListByUser(r.Context(), u.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(payments, toPaymentView))
}

func (s *Server) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	enrollments, err := s.stores.Enrollments.ListByUser(r.Context(), u.ID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(enrollments, toEnrollmentView))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.stores.Payments.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(payments, toPaymentView))
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := s.stores.Enrollments.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(enrollments, toEnrollmentView))
}

type statusInput struct {
	Status string `json:"status"`
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !strictDecode(w, r, &in) {
		return
	}
	p, err := orchestrators.ExecuteChangePaymentStatus(r.Context(), actor(r), chi.URLParam(r, "id"), payment.Status(in.Status),
		orchestrators.ChangePaymentStatusDeps{Payments: s.stores.Payments, Activity: s.stores.Activity})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (s *Server) handleEnrollmentStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !strictDecode(w, r, &in) {
		return
	}
	e, err := orchestrators.ExecuteChangeEnrollmentStatus(r.Context(), actor(r), chi.URLParam(r, "id"), enrollment.Status(in.Status),
		orchestrators.ChangeEnrollmentStatusDeps{Enrollments: s.stores.Enrollments, Activity: s.stores.Activity})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentView(e))
}

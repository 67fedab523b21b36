package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"aph/internal/adapters/storage"
	"aph/internal/application/auth"
	"aph/internal/application/forms"
	"aph/internal/application/orchestrators"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
	"aph/internal/domain/settings"
	"aph/internal/domain/user"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// badInput lists domain errors whose message is safe and useful to show.
var badInput = []error{
	program.ErrEmptyName, program.ErrNegativePrice, program.ErrNegativeCapacity,
	program.ErrNegativeEnrollment, program.ErrOverCapacity,
	user.ErrEmptyEmail, user.ErrInvalidEmail, user.ErrEmailTooLong, user.ErrNameTooLong, user.ErrInvalidRole,
	payment.ErrInvalidStatus, enrollment.ErrInvalidStatus,
	settings.ErrEmptyKey, settings.ErrInvalidValue,
}

// stateConflicts lists domain errors caused by the record's current state.
var stateConflicts = []error{
	program.ErrFull, program.ErrInactive,
	storage.ErrConflict, storage.ErrConcurrentUpdate,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps err to a status code. Unknown errors are logged and
// answered with a generic 500 so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	var fe forms.Errors
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fe})
		return
	}
	var payTransition payment.ErrInvalidTransition
	var enrTransition enrollment.ErrInvalidTransition
	if errors.As(err, &payTransition) || errors.As(err, &enrTransition) {
		writeMessage(w, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, orchestrators.ErrProgramNotFound) {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	for _, target := range stateConflicts {
		if errors.Is(err, target) {
			writeMessage(w, http.StatusConflict, target.Error())
			return
		}
	}
	for _, target := range badInput {
		if errors.Is(err, target) {
			writeMessage(w, http.StatusBadRequest, target.Error())
			return
		}
	}
	if auth.IsAuthError(err) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	internalError(w, err)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

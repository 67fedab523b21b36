package supabase

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrNoRows is returned by single-row queries that matched nothing.
var ErrNoRows = errors.New("supabase: no rows in result set")

// codeNoRows is PostgREST's code for a singular response with zero or
// many rows.
const codeNoRows = "PGRST116"

// APIError is a non-2xx response from either API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Error returns the provider's message unchanged.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// IsConflict reports a unique constraint violation.
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict || e.Code == "23505"
}

// wireError covers the PostgREST shape and the GoTrue shapes, which
// disagree on field names across versions.
type wireError struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func decodeError(status int, raw []byte) error {
	var w wireError
	_ = json.Unmarshal(raw, &w)

	code := w.ErrorCode
	if code == "" {
		var s string
		if json.Unmarshal(w.Code, &s) == nil {
			code = s
		}
	}
	if code == "" {
		code = w.Error
	}
	if status == http.StatusNotAcceptable && code == codeNoRows {
		return ErrNoRows
	}

	msg := firstNonEmpty(w.Message, w.Msg, w.ErrorDescription, w.Error)
	return &APIError{Status: status, Code: code, Message: msg, Details: w.Details, Hint: w.Hint}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

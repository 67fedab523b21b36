package settings

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyKey     = errors.New("setting key cannot be empty")
	ErrInvalidValue = errors.New("setting value must be valid JSON")
)

// Setting is one admin-editable key/value pair. Value is arbitrary JSON.
type Setting struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
	UpdatedBy   string          `json:"updatedBy"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ValidateUpsert checks the arguments of an upsert.
// PRE: none
// POST: Returns nil if key is set and value is JSON
func ValidateUpsert(key string, value json.RawMessage) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if len(value) == 0 || !json.Valid(value) {
		return ErrInvalidValue
	}
	return nil
}

// Encode turns any Go value into a setting value.
func Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

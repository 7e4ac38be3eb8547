// Package services implements the per-resource operations. Every operation
// takes the acting access.Principal explicitly and scopes its storage calls
// with access.Scope.
package services

import (
	"errors"
	"sort"
	"spendsage-server/src/store"
	"strings"
)

var (
	// ErrNotFound covers both missing rows and rows owned by someone else.
	ErrNotFound = store.ErrNotFound
	// ErrTaskIDCollision means a freshly minted task id was already taken.
	ErrTaskIDCollision = errors.New("task id collision")
	// ErrDispatch means the task was recorded but could not be queued; it
	// has been marked FAILED.
	ErrDispatch           = errors.New("task could not be queued")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPlaidUnavailable   = errors.New("plaid is not configured")
)

// ValidationError itemizes rejected input per field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Err returns e as an error, or nil when nothing was added.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

const (
	nonFieldErrors = "non_field_errors"

	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgNull     = "This field may not be null."
)

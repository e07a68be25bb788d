package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingAPIKey means the data-provider credential is unset; the
	// pipeline refuses to run until it is configured.
	ErrMissingAPIKey = errors.New("METEOFRANCE_APIKEY is not set in environment")

	// ErrNotFound marks an unknown station or plant reference.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an external code already taken by another row.
	ErrConflict = errors.New("already exists")
)

// ValidationError rejects malformed input before any I/O.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a *ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ProtocolError is an unexpected response from the external data provider:
// a non-success order status or a payload shape the client does not know.
// It carries the request context and a snippet of the raw response.
type ProtocolError struct {
	StationCode string
	WindowStart time.Time
	WindowEnd   time.Time
	Status      int
	Body        string
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider order failed (%d) for station %q window [%s, %s): %s",
			e.Status, e.StationCode,
			e.WindowStart.Format(time.RFC3339), e.WindowEnd.Format(time.RFC3339), e.Body)
	}
	return fmt.Sprintf("unexpected provider response for station %q: %s", e.StationCode, e.Body)
}

// SchemaError means the tabular payload had no recognizable column layout.
type SchemaError struct {
	Reason  string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s; columns: %v", e.Reason, e.Columns)
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrForbidden         = errors.New("seller cannot buy own item")
	ErrAlreadySold       = errors.New("item already sold")
	ErrOrderConflict     = errors.New("order already exists for item")
	ErrStoreUnavailable  = errors.New("order store unavailable")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOrderParty     = errors.New("order belongs to another user")
)

// FieldError describes one rejected checkout field.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

// FieldErrors is keyed by field name; at most one error is kept per field.
type FieldErrors map[string]FieldError

func (fe FieldErrors) add(field, code, msg string) {
	if _, exists := fe[field]; exists {
		return
	}
	fe[field] = FieldError{Field: field, Code: code, Message: msg}
}

// Fields returns the rejected field names in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError wraps the full set of field errors for a checkout request.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.Fields.Fields() {
		parts = append(parts, name+": "+e.Fields[name].Code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// PaymentError is returned when the gateway did not capture a charge.
// Reason is safe to show to the buyer; Cause keeps the gateway detail for logs.
type PaymentError struct {
	Reason    string
	Transient bool
	Cause     error
}

func (e *PaymentError) Error() string {
	if e.Transient {
		return "payment failed: transient"
	}
	return "payment failed: " + e.Reason
}

func (e *PaymentError) Unwrap() error { return e.Cause }

// UncommittedChargeError reports a captured charge whose order could not be
// persisted. It must be escalated; resubmitting would charge the buyer again.
type UncommittedChargeError struct {
	ItemID   string
	BuyerID  string
	ChargeID string
	Err      error
}

func (e *UncommittedChargeError) Error() string {
	return fmt.Sprintf("charge %s captured for item %s but order not committed: %v", e.ChargeID, e.ItemID, e.Err)
}

func (e *UncommittedChargeError) Unwrap() error { return e.Err }

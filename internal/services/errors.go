package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain error taxonomy. Handlers map these onto HTTP envelopes; tenant
// ownership failures surface as not-found so cross-tenant existence never
// leaks through a 403.

// ValidationError reports malformed or out-of-range input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError covers both missing entities and entities owned by another
// tenant.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFoundError(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// ConflictError reports a duplicate unique key or a lost activation race.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ComponentShortage details one short component in an insufficiency error.
type ComponentShortage struct {
	ComponentID   uuid.UUID `json:"componentId"`
	ComponentCode string    `json:"componentCode,omitempty"`
	Required      int       `json:"required"`
	Available     int       `json:"available"`
	Shortage      int       `json:"shortage"`
}

// InsufficientInventoryError carries the full shortage detail so the caller
// can decide whether to block or warn.
type InsufficientInventoryError struct {
	Shortages []ComponentShortage
}

func (e *InsufficientInventoryError) Error() string {
	if len(e.Shortages) == 1 {
		s := e.Shortages[0]
		return fmt.Sprintf("insufficient inventory: component %s short %d (required %d, available %d)",
			s.ComponentID, s.Shortage, s.Required, s.Available)
	}
	return fmt.Sprintf("insufficient inventory: %d components short", len(e.Shortages))
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsInsufficientInventory extracts an InsufficientInventoryError if present.
func AsInsufficientInventory(err error) (*InsufficientInventoryError, bool) {
	var ie *InsufficientInventoryError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

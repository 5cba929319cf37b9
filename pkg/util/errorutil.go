package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewCafeteriaClosed rejects ticket creation while a cafeteria is not serving.
func NewCafeteriaClosed(state string) error {
	return NewDomainError("CAFETERIA_CLOSED", "cafeteria is not open", http.StatusConflict, map[string]any{"state": state})
}

// NewActivePenalty rejects ticket creation for a penalized owner.
func NewActivePenalty(penaltyID string) error {
	return NewDomainError("ACTIVE_PENALTY", "owner has an active penalty", http.StatusForbidden, map[string]any{"penalty_id": penaltyID})
}

// NewDuplicateTicket rejects a second active ticket for the same day.
func NewDuplicateTicket() error {
	return NewDomainError("DUPLICATE_TICKET", "owner already has a ticket for today", http.StatusConflict, nil)
}

// NewInvalidState rejects a transition not allowed from the ticket's state.
func NewInvalidState(current string) error {
	return NewDomainError("INVALID_STATE", "operation not valid for current ticket state", http.StatusConflict, map[string]any{"state": current})
}

// NewUnavailable marks infrastructure failure, distinct from business-rule
// rejections.
func NewUnavailable(err error) error {
	return &DomainError{
		Code:       "UNAVAILABLE",
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

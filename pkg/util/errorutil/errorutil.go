package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Error codes surfaced to API callers.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidEnumValue = "INVALID_ENUM_VALUE"
	CodeInvalidPriority  = "INVALID_PRIORITY"
	CodeEmptyNote        = "EMPTY_NOTE"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks; any DomainError with the same code matches.
var (
	ErrInvalidEnumValue = &DomainError{Code: CodeInvalidEnumValue, Message: "invalid value", HTTPStatus: http.StatusBadRequest}
	ErrInvalidPriority  = &DomainError{Code: CodeInvalidPriority, Message: "invalid priority", HTTPStatus: http.StatusBadRequest}
	ErrEmptyNote        = &DomainError{Code: CodeEmptyNote, Message: "note text required", HTTPStatus: http.StatusBadRequest}
	ErrPermissionDenied = &DomainError{Code: CodePermissionDenied, Message: "permission denied", HTTPStatus: http.StatusForbidden}
	ErrNotFound         = &DomainError{Code: CodeNotFound, Message: "not found", HTTPStatus: http.StatusNotFound}
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

// Is reports whether target carries the same error code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidEnumValue reports a value outside the allowed set for field.
func NewInvalidEnumValue(field, value string, allowed []string) error {
	return NewDomainError(CodeInvalidEnumValue,
		fmt.Sprintf("invalid %s %q", field, value),
		http.StatusBadRequest,
		map[string]any{"field": field, "value": value, "allowed": allowed})
}

// NewInvalidPriority reports an SLA lookup miss.
func NewInvalidPriority(priority string) error {
	return NewDomainError(CodeInvalidPriority,
		fmt.Sprintf("no SLA offset for priority %q", priority),
		http.StatusBadRequest,
		map[string]any{"priority": priority})
}

func NewEmptyNote() error {
	return NewDomainError(CodeEmptyNote, "note text required", http.StatusBadRequest, nil)
}

func NewPermissionDenied(message string, details map[string]any) error {
	return NewDomainError(CodePermissionDenied, message, http.StatusForbidden, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsNoRows reports whether err signals a missing row from either driver.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
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
	if IsNoRows(err) {
		return &DomainError{
			Code:       CodeNotFound,
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	}
	if IsUniqueViolation(err) {
		return &DomainError{
			Code:       CodeConflict,
			Message:    "resource already exists",
			HTTPStatus: http.StatusConflict,
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError normalizes any error into a DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

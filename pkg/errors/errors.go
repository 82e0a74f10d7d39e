package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches AppErrors by code so that copies made by WithInternal still
// compare equal to the sentinel they were derived from.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *AppError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Generic errors.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrCSRFInvalid = &AppError{
		Code:       "CSRF_TOKEN_INVALID",
		Message:    "Invalid CSRF token",
		StatusCode: http.StatusForbidden,
	}

	ErrUpstreamUnavailable = &AppError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    "The facility service is currently unavailable",
		StatusCode: http.StatusBadGateway,
	}
)

// Session errors.
var (
	ErrInvalidCredentials = &AppError{
		Code:       "auth.invalid_credentials",
		Message:    "Invalid username or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrLoginFailed = &AppError{
		Code:       "auth.login_failed",
		Message:    "Login failed, please try again later",
		StatusCode: http.StatusBadGateway,
	}
)

// Locker flow errors.
var (
	ErrAcknowledgementRequired = &AppError{
		Code:       "locker.acknowledgement_required",
		Message:    "Please confirm the notice before registering",
		StatusCode: http.StatusBadRequest,
	}

	ErrLockerNotSelectable = &AppError{
		Code:       "locker.not_selectable",
		Message:    "The selected locker is not available",
		StatusCode: http.StatusConflict,
	}

	ErrCooldown = &AppError{
		Code:       "locker.cooldown",
		Message:    "Please wait a moment before submitting again",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrCommitFailed = &AppError{
		Code:       "locker.commit_failed",
		Message:    "Locker registration failed, please try again",
		StatusCode: http.StatusBadGateway,
	}
)

// Admin action errors.
var (
	ErrWrongPassword = &AppError{
		Code:       "admin.wrong_password",
		Message:    "The password is incorrect",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotAuthenticated = &AppError{
		Code:       "admin.not_authenticated",
		Message:    "You are not signed in",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAdminActionFailed = &AppError{
		Code:       "admin.action_failed",
		Message:    "The operation failed, please try again later",
		StatusCode: http.StatusBadGateway,
	}

	ErrPasswordRequired = &AppError{
		Code:       "admin.password_required",
		Message:    "Please enter the password",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidWindow = &AppError{
		Code:       "admin.invalid_window",
		Message:    "The start must be before the end",
		StatusCode: http.StatusBadRequest,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

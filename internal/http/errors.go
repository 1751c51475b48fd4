package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/addrbook/addrbook/internal/service"
	"github.com/addrbook/addrbook/pkg/httpx"
)

// APIError is the JSON error envelope every handler returns. It implements
// the error interface and knows how to write itself.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g. "invalid_credentials")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	// ErrInvalidRequest covers malformed bodies and missing parameters.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials deliberately does not say whether the username
	// or the password was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Description: "incorrect username or password",
	}

	ErrEmailNotConfirmed = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "email_not_confirmed",
		Description: "email address has not been confirmed",
	}

	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "unauthorized",
		Description: "missing or invalid access token",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        "email_taken",
		Description: "an account with this email already exists",
	}

	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        "username_taken",
		Description: "an account with this username already exists",
	}

	// ErrVerification covers every confirmation-token failure with one
	// message so the response never reveals which check failed.
	ErrVerification = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "verification_failed",
		Description: "the confirmation link is invalid or has expired, request a new one",
	}

	ErrInvalidResetToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_reset_token",
		Description: "the reset link is no longer valid",
	}

	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        "user_not_found",
		Description: "no account with this email",
	}

	ErrContactNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        "contact_not_found",
		Description: "no such contact",
	}

	ErrContactExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        "contact_exists",
		Description: "a contact with this email already exists",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "something went wrong, try again later",
	}
)

// writeServiceError maps service sentinels onto API errors. Anything
// unrecognized is an internal failure: logged, reported as a bare 500.
func writeServiceError(w http.ResponseWriter, l *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrEmailNotConfirmed):
		ErrEmailNotConfirmed.WriteError(w)
	case errors.Is(err, service.ErrEmailTaken):
		ErrEmailTaken.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		ErrUsernameTaken.WriteError(w)
	case errors.Is(err, service.ErrVerification):
		ErrVerification.WriteError(w)
	case errors.Is(err, service.ErrInvalidResetToken):
		ErrInvalidResetToken.WriteError(w)
	case errors.Is(err, service.ErrUserNotFound):
		ErrUserNotFound.WriteError(w)
	case errors.Is(err, service.ErrUnauthorized):
		ErrUnauthorized.WriteError(w)
	case errors.Is(err, service.ErrContactNotFound):
		ErrContactNotFound.WriteError(w)
	case errors.Is(err, service.ErrContactExists):
		ErrContactExists.WriteError(w)
	default:
		l.Error("unhandled service error", slog.String("error", err.Error()))
		ErrServerError.WriteError(w)
	}
}

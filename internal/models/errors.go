package models

import (
	"errors"
	"fmt"
)

// AuthErrorKind classifies authentication failures.
type AuthErrorKind int

const (
	AuthInvalidCredentials AuthErrorKind = iota + 1
	AuthNetworkFailure
	AuthProfileFetchFailed
	AuthNotAuthenticated
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthInvalidCredentials:
		return "invalid credentials"
	case AuthNetworkFailure:
		return "network failure"
	case AuthProfileFetchFailed:
		return "profile fetch failed"
	case AuthNotAuthenticated:
		return "not authenticated"
	default:
		return "auth error"
	}
}

// Sentinels for errors.Is against an *AuthError of the same kind.
var (
	ErrInvalidCredentials = &AuthError{Kind: AuthInvalidCredentials}
	ErrNetworkFailure     = &AuthError{Kind: AuthNetworkFailure}
	ErrProfileFetchFailed = &AuthError{Kind: AuthProfileFetchFailed}
	ErrNotAuthenticated   = &AuthError{Kind: AuthNotAuthenticated}
)

// AuthError is returned by session operations.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError with the same Kind.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewAuthError wraps err with the given kind.
func NewAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// ValidationError is a client-side form check failure raised before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DataError reports a malformed field in a fetched record.
type DataError struct {
	Field   string
	Value   string
	AssetID int64
	Err     error
}

func (e *DataError) Error() string {
	if e.AssetID != 0 {
		return fmt.Sprintf("malformed %s %q in asset %d: %v", e.Field, e.Value, e.AssetID, e.Err)
	}
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

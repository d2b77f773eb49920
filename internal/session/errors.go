package session

import "errors"

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailInUse indicates sign-up with an email that has an account.
	ErrEmailInUse = errors.New("email already in use")

	// ErrWeakPassword indicates a password shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password too weak")

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidToken indicates a session token that failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)

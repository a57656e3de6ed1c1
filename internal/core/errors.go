package core

import "errors"

var (
	// ErrEmptyHeader is returned when no header text was submitted
	ErrEmptyHeader = errors.New("no header provided")
	// ErrMissingFields is returned when a required registration or login field is empty
	ErrMissingFields = errors.New("all fields are required")
	// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	// ErrAnalysisFailed is returned when the pipeline fails unexpectedly
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrUserExists is returned when registering an email that is already taken
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned when the email or password does not match
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned by repositories when a lookup matches nothing
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken is returned when a bearer token fails verification or has expired
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the principal lacks the required role
	ErrForbidden = errors.New("forbidden")
	// ErrNoDMARCRecord is returned by a DMARCResolver when the domain publishes no record
	ErrNoDMARCRecord = errors.New("no DMARC record")
)

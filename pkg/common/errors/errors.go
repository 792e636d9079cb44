package errors

import "fmt"

var (
	// ErrNotFound will be used when a resource is missing on the storage backend
	// (e.g a user that doesn't exist on Supabase).
	ErrNotFound = fmt.Errorf("resource not found")

	// ErrRequired will be used when a required value is missing.
	ErrRequired = fmt.Errorf("required value is missing")

	// ErrNotValid will be used when a received value or spec is invalid.
	ErrNotValid = fmt.Errorf("not valid")

	// ErrAuthentication will be used when the request credentials are missing,
	// invalid or expired.
	ErrAuthentication = fmt.Errorf("invalid authentication")
)

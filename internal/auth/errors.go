package auth

import "fmt"

// Error kinds distinguish why authentication was refused. Anything that is
// not an *Error — a connection failure, a timeout — is returned unchanged
// by the service so infrastructure faults are never disguised as bad
// credentials.
const (
	KindCredentialsSignin = "CredentialsSignin"
	KindAccountDisabled   = "AccountDisabled"
)

// Error is a classified authentication failure.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return "auth: " + e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

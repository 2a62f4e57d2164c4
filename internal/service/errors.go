package service

import "errors"

// MethodError is a rejection returned to the caller of a task or account method.
type MethodError struct {
	Code    string
	Message string
}

func (e *MethodError) Error() string {
	return e.Message
}

var (
	ErrNotAuthorized      = &MethodError{Code: "not-authorized", Message: "Not authorized."}
	ErrAccessDenied       = &MethodError{Code: "access-denied", Message: "Access denied."}
	ErrTextRequired       = &MethodError{Code: "validation", Message: "Task text is required."}
	ErrCredentialsMissing = &MethodError{Code: "validation", Message: "Username and password are required."}
	ErrInvalidCredentials = &MethodError{Code: "invalid-credentials", Message: "Invalid username or password."}
	ErrUsernameTaken      = &MethodError{Code: "username-taken", Message: "Username already exists."}
)

// AsMethodError reports whether err carries a MethodError and returns it.
func AsMethodError(err error) (*MethodError, bool) {
	var me *MethodError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// Package launcherr defines the launcher error taxonomy.
//
// Errors carry a machine-readable Code so callers can decide between
// degrading silently (advisory failures) and surfacing a notice.
package launcherr

import "errors"

// Code identifies a class of launcher failure.
type Code string

const (
	CodeNetwork                 Code = "NETWORK_ERROR"
	CodeSignatureInvalid        Code = "SIGNATURE_INVALID"
	CodeParse                   Code = "PARSE_ERROR"
	CodeProcessAttachmentFailed Code = "PROCESS_ATTACHMENT_FAILED"
	CodeSettingsLoad            Code = "SETTINGS_LOAD_ERROR"
	CodeConfigRefreshRequired   Code = "CONFIG_REFRESH_REQUIRED"
	CodeUpdaterLaunch           Code = "UPDATER_LAUNCH_ERROR"
	CodeInvalidConfig           Code = "INVALID_CONFIG"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrNetwork                 = &Error{Code: CodeNetwork}
	ErrSignatureInvalid        = &Error{Code: CodeSignatureInvalid}
	ErrParse                   = &Error{Code: CodeParse}
	ErrProcessAttachmentFailed = &Error{Code: CodeProcessAttachmentFailed}
	ErrSettingsLoad            = &Error{Code: CodeSettingsLoad}
	ErrConfigRefreshRequired   = &Error{Code: CodeConfigRefreshRequired}
	ErrUpdaterLaunch           = &Error{Code: CodeUpdaterLaunch}
	ErrInvalidConfig           = &Error{Code: CodeInvalidConfig}
)

// Error is a launcher error with a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		if e.Cause != nil {
			return string(e.Code) + ": " + e.Cause.Error()
		}
		return string(e.Code)
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Advisory reports whether err belongs to a class that degrades silently:
// background checks fall back to a safe default instead of interrupting the user.
func Advisory(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeSignatureInvalid, CodeParse:
		return true
	default:
		return false
	}
}

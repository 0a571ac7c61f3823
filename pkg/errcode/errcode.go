package errcode

import "fmt"

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Is matches business errors by code, so a wrapped error still compares
// equal to its sentinel under errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam    = New(1001, "invalid parameter")
	ErrInternalServer  = New(1002, "internal server error")
	ErrUnauthorized    = New(1003, "unauthorized")
	ErrForbidden       = New(1004, "forbidden")
	ErrNotFound        = New(1005, "not found")
	ErrTooManyRequests = New(1006, "too many requests")

	// Auth errors (2xxx)
	ErrTokenInvalid  = New(2001, "token invalid")
	ErrTokenExpired  = New(2002, "token expired")
	ErrTokenMissing  = New(2003, "token missing")
	ErrLoginFailed   = New(2004, "login failed")
	ErrUserNotFound  = New(2005, "user not found")
	ErrUserExists    = New(2006, "user already exists")
	ErrPasswordWrong = New(2007, "password wrong")
	ErrApiKeyInvalid = New(2008, "api key invalid")
	ErrApiKeyExpired = New(2009, "api key expired")
	ErrScopeMissing  = New(2010, "api key scope insufficient")

	// Tenant errors (3xxx)
	ErrTenantNotFound    = New(3001, "tenant not found")
	ErrWebhookTokenWrong = New(3002, "webhook token not recognized")

	// Sync errors (4xxx)
	ErrConvNotFound    = New(4001, "conversation not found")
	ErrSweepInProgress = New(4002, "sweep already in progress for tenant")
	ErrPlatformFailed  = New(4003, "remote platform request failed")
	ErrStageNotFound   = New(4004, "stage not found")
)

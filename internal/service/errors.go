package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindConflict      ErrorKind = "conflict"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindStorage       ErrorKind = "storage"
)

// Error is the typed error every service operation returns. Code is a stable
// machine-readable identifier; Err, when set, is the underlying cause.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Code so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrAlreadyCheckedIn  = &Error{Kind: KindConflict, Code: "ALREADY_CHECKED_IN", Message: "an attendance session is already open"}
	ErrNoOpenSession     = &Error{Kind: KindConflict, Code: "NO_OPEN_SESSION", Message: "no open attendance session"}
	ErrAdminOnly         = &Error{Kind: KindAuthorization, Code: "ADMIN_ONLY", Message: "admin role required"}
	ErrUnauthenticated   = &Error{Kind: KindAuthorization, Code: "UNAUTHENTICATED", Message: "authenticated user required"}
	ErrMonthYearRequired = &Error{Kind: KindValidation, Code: "MONTH_YEAR_REQUIRED", Message: "month and year are required"}
	ErrInvalidPeriod     = &Error{Kind: KindValidation, Code: "INVALID_PERIOD", Message: "month or year out of range"}
	ErrInvalidLocation   = &Error{Kind: KindValidation, Code: "INVALID_LOCATION", Message: "latitude must be within [-90,90] and longitude within [-180,180]"}
	ErrInvalidDateRange  = &Error{Kind: KindValidation, Code: "INVALID_DATE_RANGE", Message: "range start must not be after its end"}
	ErrInvalidThreshold  = &Error{Kind: KindValidation, Code: "INVALID_THRESHOLD", Message: "auto-checkout threshold must be positive"}
	ErrInvalidLeave      = &Error{Kind: KindValidation, Code: "INVALID_LEAVE", Message: "leave end date must not be before its start date"}
	ErrInvalidLeaveState = &Error{Kind: KindValidation, Code: "INVALID_LEAVE_STATUS", Message: "status must be approved or rejected"}
	ErrLeaveNotFound     = &Error{Kind: KindNotFound, Code: "LEAVE_NOT_FOUND", Message: "leave request not found"}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
)

func storageError(op string, err error) error {
	return &Error{Kind: KindStorage, Code: "STORAGE_UNAVAILABLE", Message: op + " failed", Err: err}
}

func validationError(code, message string, err error) error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Err: err}
}

// KindOf reports the kind of err, treating anything untyped as a storage
// failure.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorage
}

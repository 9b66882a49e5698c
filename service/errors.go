package service

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindChecksum
	KindAmountMismatch
	KindAlreadyProcessed
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindChecksum:
		return "checksum"
	case KindAmountMismatch:
		return "amount_mismatch"
	case KindAlreadyProcessed:
		return "already_processed"
	default:
		return "internal"
	}
}

// Error là lỗi nghiệp vụ trả về cho handler. SeatIds chỉ có với KindConflict.
type Error struct {
	Kind    ErrorKind
	Message string
	SeatIds []uint
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is cho phép errors.Is(err, &Error{Kind: KindConflict}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(what string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found", Err: err}
}

func conflictError(message string, seatIds []uint) *Error {
	return &Error{Kind: KindConflict, Message: message, SeatIds: seatIds}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf trả về KindInternal cho lỗi không thuộc service.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Package yaerrors provides the error type used across the bot engine.
//
// Every Error carries an HTTP-like status code and a traceback that grows as the
// error travels up the call stack through Wrap. The original cause stays
// reachable through Unwrap, so sentinel errors joined into the cause can be
// matched with errors.Is.
package yaerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/YaCodeDev/GoYaTgBot/yalogger"
)

// Error is the structured error returned by every package of the module.
type Error interface {
	error
	Wrap(msg string) Error
	WrapWithLog(msg string, log yalogger.Logger) Error
	Code() int
	Unwrap() error
	UnwrapLastError() string
}

const (
	codeSeparate  = " | "
	errorSeparate = " -> "
)

type yaError struct {
	code      int
	cause     error
	traceback string
}

// FromError builds an Error around an existing cause.
//
// Example usage:
//
//	if err := row.Scan(&id); err != nil {
//	    return yaerrors.FromError(http.StatusInternalServerError, err, "failed to scan user row")
//	}
func FromError(code int, cause error, wrap string) Error {
	return &yaError{
		code:      code,
		cause:     cause,
		traceback: fmt.Sprintf("%s: %v", wrap, cause),
	}
}

// FromErrorWithLog is FromError that also writes the message at error level.
func FromErrorWithLog(code int, cause error, wrap string, log yalogger.Logger) Error {
	msg := fmt.Sprintf("%s: %v", wrap, cause)
	log.Error(msg)

	return &yaError{
		code:      code,
		cause:     cause,
		traceback: msg,
	}
}

// FromString builds an Error from a plain message.
//
// Example usage:
//
//	return yaerrors.FromString(http.StatusBadRequest, "token is empty")
func FromString(code int, msg string) Error {
	return &yaError{
		code:      code,
		cause:     errors.New(msg), //nolint:err113
		traceback: msg,
	}
}

// FromStringWithLog is FromString that also writes the message at error level.
func FromStringWithLog(code int, msg string, log yalogger.Logger) Error {
	log.Error(msg)

	return FromString(code, msg)
}

// As walks the chain of err and returns the first structured Error found.
//
// Example usage:
//
//	if yaErr, ok := yaerrors.As(err); ok && yaErr.Code() == http.StatusTooManyRequests {
//	    // back off
//	}
func As(err error) (Error, bool) {
	var target Error

	if err == nil {
		return nil, false
	}

	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}

// Error returns "<code> | <traceback>".
func (e *yaError) Error() string {
	safetyCheck(&e)

	return fmt.Sprintf("%d%s%s", e.code, codeSeparate, e.traceback)
}

// Unwrap returns the cause the error was built from.
func (e *yaError) Unwrap() error {
	safetyCheck(&e)

	return e.cause
}

// UnwrapLastError returns the outermost message of the traceback.
func (e *yaError) UnwrapLastError() string {
	safetyCheck(&e)

	last, _, found := strings.Cut(e.traceback, errorSeparate)
	if !found {
		return e.traceback
	}

	return last
}

// Wrap prepends msg to the traceback. Call it every time the error is returned
// one level up.
func (e *yaError) Wrap(msg string) Error {
	safetyCheck(&e)

	e.traceback = msg + errorSeparate + e.traceback

	return e
}

// WrapWithLog is Wrap that also writes msg at error level.
func (e *yaError) WrapWithLog(msg string, log yalogger.Logger) Error {
	log.Error(msg)

	return e.Wrap(msg)
}

// Code returns the status code of the error.
func (e *yaError) Code() int {
	safetyCheck(&e)

	return e.code
}

// safetyCheck replaces a nil receiver with ErrTeapot so methods never panic.
func safetyCheck(err **yaError) {
	if *err == nil {
		*err = &yaError{
			code:      http.StatusTeapot,
			cause:     ErrTeapot,
			traceback: ErrTeapot.Error(),
		}
	}
}

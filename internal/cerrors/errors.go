// Package cerrors carries coded errors for the tool-facing surfaces
// (config, history, discovery). The resolve hot path never returns
// errors; failure there degrades to the caller's fallback value.
package cerrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeParseError   Code = "PARSE_ERROR"
	CodeIOError      Code = "IO_ERROR"
	CodeNotSupported Code = "NOT_SUPPORTED"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

package docmodel

import (
	"errors"
	"fmt"
)

// ValueError reports a wire or plain value that a ValueType cannot accept.
type ValueError struct {
	Type  string
	Value any
	Err   error
	Msg   string
}

func valueErrf(typ string, value any, err error, format string, args ...any) error {
	return &ValueError{typ, value, err, fmt.Sprintf(format, args...)}
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v: %T(%v)", e.Type, e.Msg, e.Err, e.Value, e.Value)
	}
	return fmt.Sprintf("%s: %s: %T(%v)", e.Type, e.Msg, e.Value, e.Value)
}

var (
	errNotDocument = errors.New("not a document")
	errNotArray    = errors.New("not an array")
)

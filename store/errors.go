package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
	ErrClosed   = errors.New("store: closed")
)

// DataError reports a stored value that cannot be decoded.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// DocError ties a failure to a document of a collection.
type DocError struct {
	Collection string
	Key        string
	Err        error
}

func docErr(coll, key string, err error) error {
	if err == nil {
		return nil
	}
	return &DocError{coll, key, err}
}

func (e *DocError) Unwrap() error {
	return e.Err
}

func (e *DocError) Error() string {
	return e.Collection + "/" + e.Key + ": " + e.Err.Error()
}

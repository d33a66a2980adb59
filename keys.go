package docmodel

import (
	"errors"
	"strconv"
	"strings"
)

// KeyCodec converts between map keys and document field names.
type KeyCodec[K comparable] struct {
	Parse  func(s string) (K, error)
	Format func(k K) string
}

var (
	errEmptyKey  = errors.New("empty key")
	errDottedKey = errors.New("key contains '.'")
	errDollarKey = errors.New("key starts with '$'")
)

// checkFieldName rejects names that cannot be stored as a single document
// field.
func checkFieldName(s string) error {
	switch {
	case s == "":
		return errEmptyKey
	case strings.Contains(s, "."):
		return errDottedKey
	case s[0] == '$':
		return errDollarKey
	}
	return nil
}

var (
	IntKeys = KeyCodec[int]{
		Parse: func(s string) (int, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			return int(n), err
		},
		Format: strconv.Itoa,
	}

	Int64Keys = KeyCodec[int64]{
		Parse: func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		},
		Format: func(k int64) string {
			return strconv.FormatInt(k, 10)
		},
	}

	StringKeys = KeyCodec[string]{
		Parse: func(s string) (string, error) {
			if err := checkFieldName(s); err != nil {
				return "", err
			}
			return s, nil
		},
		Format: func(k string) string {
			return k
		},
	}
)

// IntKeysOf is IntKeys for named integer key types.
func IntKeysOf[K ~int | ~int32 | ~int64](bitSize int) KeyCodec[K] {
	return KeyCodec[K]{
		Parse: func(s string) (K, error) {
			n, err := strconv.ParseInt(s, 10, bitSize)
			return K(n), err
		},
		Format: func(k K) string {
			return strconv.FormatInt(int64(k), 10)
		},
	}
}

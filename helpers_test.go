package docmodel

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func eq[T comparable](t testing.TB, a, e T) {
	if a != e {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}

func deepEqual(t testing.TB, a, e any) {
	if diff := cmp.Diff(e, a); diff != "" {
		t.Helper()
		t.Errorf("** mismatch (-wanted +got):\n%s", diff)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustPanic(t testing.TB, f func()) (reason any) {
	t.Helper()
	defer func() {
		reason = recover()
		if reason == nil {
			t.Fatalf("** expected a panic")
		}
	}()
	f()
	return nil
}

// captureLog routes the package logger into a buffer for the rest of the test.
func captureLog(t testing.TB) *bytes.Buffer {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

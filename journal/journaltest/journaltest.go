// Package journaltest opens journals with a controllable clock for tests.
package journaltest

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/docmodel/journal"
)

var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type TestJournal struct {
	*journal.Journal

	T   testing.TB
	Dir string

	opt journal.Options
	now time.Time
}

// Writable opens a journal in a temporary directory for writing. Files are
// named "j*.wal".
func Writable(t testing.TB, o journal.Options) *TestJournal {
	j := &TestJournal{
		T:   t,
		Dir: t.TempDir(),
		now: Start,
	}
	o.FileName = "j*.wal"
	o.Now = func() time.Time { return j.now }
	o.Logger = Logger(t)
	o.Verbose = true
	j.opt = o

	j.Journal = journal.New(j.Dir, o)
	ensure(j.StartWriting())
	t.Cleanup(func() {
		if err := j.FinishWriting(); err != nil {
			t.Error(err)
		}
	})
	return j
}

// Reopen closes the journal and opens the same directory again, as a process
// restart would.
func (j *TestJournal) Reopen() {
	ensure(j.FinishWriting())
	j.Journal = journal.New(j.Dir, j.opt)
	ensure(j.StartWriting())
}

// Logger sends log output to t.Log.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
}

func (j *TestJournal) Now() time.Time {
	return j.now
}

func (j *TestJournal) Advance(d time.Duration) {
	j.now = j.now.Add(d)
}

func (j *TestJournal) Names() []string {
	return must(j.FileNames())
}

func (j *TestJournal) Data(fileName string) []byte {
	b, err := os.ReadFile(filepath.Join(j.Dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		j.T.Fatalf("when reading %v: %v", fileName, err)
	}
	return b
}

func (j *TestJournal) Put(fileName string, data []byte) {
	ensure(os.WriteFile(filepath.Join(j.Dir, fileName), data, 0o644))
}

// Records returns the data of all committed records as strings.
func (j *TestJournal) Records() []string {
	var out []string
	ensure(j.Read(func(rec journal.Record) error {
		out = append(out, string(rec.Data))
		return nil
	}))
	return out
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

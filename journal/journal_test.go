package journal_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/andreyvit/docmodel/journal"
	"github.com/andreyvit/docmodel/journal/journaltest"
)

func TestJournal_trivial(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("hello")))
	ensure(j.WriteRecord(0, []byte("w")))
	j.Advance(1000 * time.Second)
	ensure(j.WriteRecord(0, []byte("orld")))
	ensure(j.Commit())

	deepEq(t, j.Names(), []string{"j000000000001-20240101T000000-0000000000000001.wal"})
	deepEq(t, j.Records(), []string{"hello", "w", "orld"})

	var seqs []uint64
	var times []time.Time
	ensure(j.Read(func(rec journal.Record) error {
		seqs = append(seqs, rec.Seq)
		times = append(times, rec.Time)
		return nil
	}))
	deepEq(t, seqs, []uint64{1, 2, 3})
	deepEq(t, times, []time.Time{journaltest.Start, journaltest.Start, journaltest.Start.Add(1000 * time.Second)})
}

func TestJournal_uncommittedRecordsAreTrimmed(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("a")))
	ensure(j.Commit())
	ensure(j.WriteRecord(0, []byte("b")))
	deepEq(t, j.Records(), []string{"a"})

	first := j.Names()[0]
	j.Reopen()
	deepEq(t, len(j.Data(first)), 88+3+8)

	ensure(j.WriteRecord(0, []byte("c")))
	ensure(j.Commit())
	deepEq(t, j.Names(), []string{
		first,
		"j000000000002-20240101T000000-0000000000000002.wal",
	})
	deepEq(t, j.Records(), []string{"a", "c"})
}

func TestJournal_rotation(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{MaxFileSize: 100})
	for _, s := range []string{"first record", "second record", "third"} {
		ensure(j.WriteRecord(0, []byte(s)))
		ensure(j.Commit())
		j.Advance(time.Second)
	}
	deepEq(t, j.Names(), []string{
		"j000000000001-20240101T000000-0000000000000001.wal",
		"j000000000002-20240101T000001-0000000000000002.wal",
		"j000000000003-20240101T000002-0000000000000003.wal",
	})
	deepEq(t, j.Records(), []string{"first record", "second record", "third"})
}

func TestJournal_corruptedCommit(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("x")))
	ensure(j.Commit())
	ensure(j.WriteRecord(0, []byte("y")))
	ensure(j.Commit())

	name := j.Names()[0]
	data := j.Data(name)
	data[len(data)-1] ^= 0xFF
	j.Put(name, data)

	deepEq(t, j.Records(), []string{"x"})
}

func TestJournal_corruptedSegmentIsDeletedOnReopen(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{})
	ensure(j.WriteRecord(0, []byte("x")))
	ensure(j.Commit())

	bad := "j000000000002-20240101T000000-0000000000000002.wal"
	j.Put(bad, []byte(strings.Repeat("garbage!", 4)))
	if err := j.Read(func(journal.Record) error { return nil }); err == nil {
		t.Fatalf("** expected a read error for a corrupted segment")
	}

	j.Reopen()
	deepEq(t, j.Names(), []string{"j000000000001-20240101T000000-0000000000000001.wal"})
	deepEq(t, j.Records(), []string{"x"})
}

func TestJournal_incompatible(t *testing.T) {
	j := journaltest.Writable(t, journal.Options{Invariant: [32]byte{1}})
	ensure(j.WriteRecord(0, []byte("x")))
	ensure(j.Commit())

	other := journal.New(j.Dir, journal.Options{FileName: "j*.wal", Invariant: [32]byte{2}, Logger: journaltest.Logger(t)})
	err := other.Read(func(journal.Record) error { return nil })
	deepEq(t, errors.Is(err, journal.ErrIncompatible), true)
}

func TestJournal_notWritable(t *testing.T) {
	j := journal.New(t.TempDir(), journal.Options{})
	deepEq(t, j.WriteRecord(0, []byte("x")), journal.ErrNotWritable)

	var n int
	ensure(j.Read(func(journal.Record) error { n++; return nil }))
	deepEq(t, n, 0)
}

func deepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
		return false
	}
	return true
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

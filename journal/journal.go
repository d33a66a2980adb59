// Package journal implements append-only segmented log files, used by the
// store to keep a durable trail of committed change events.
//
// A journal is a directory of segment files. Records are appended to the
// newest segment and become durable at Commit; a new segment is started once
// the current one exceeds MaxFileSize.
//
// File format:
//
//   - segment = segmentHeader (record* commit)*
//   - segmentHeader = magic:64 version:8 pad:8 flags:16 pad:32 ordinal:32 timestamp:32 firstRecord:64 invariant:256 reserved:64*2 checksum:64
//   - record = (size<<1):uvarint tsDelta:uvarint bytes*
//   - commit = checksum:64 with the lowest bit of the first byte set
//
// The commit checksum is a running xxhash64 over everything before it in the
// segment. Readers only return records followed by a valid commit, and a
// writer reopening a journal trims the last segment to its last valid commit.
package journal

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrIncompatible       = fmt.Errorf("incompatible journal")
	ErrUnsupportedVersion = fmt.Errorf("unsupported journal version")
	ErrNotWritable        = fmt.Errorf("journal is not open for writing")
	errCorruptedFile      = fmt.Errorf("corrupted journal segment file")
)

type Options struct {
	Context     context.Context
	FileName    string // e.g. "mydb-*.wal"
	MaxFileSize int64  // new segment after this size
	DebugName   string
	Now         func() time.Time
	// Invariant must match between the writer and readers of a journal.
	Invariant [32]byte

	Logger  *slog.Logger
	Verbose bool
}

const DefaultMaxFileSize = 4 * 1024 * 1024

const (
	magic          = 0x54414c4e52554f4a // "JOURNLAT" as little-endian uint64
	version0 uint8 = 0
)

const segmentHeaderSize = 11 * 8

type segmentHeader struct {
	Magic       uint64
	Version     uint8
	_           uint8
	Flags       uint16
	_           uint32
	Ordinal     uint32
	Timestamp   uint32
	FirstRecord uint64
	Invariant   [32]byte
	_           [2]uint64
	Checksum    uint64
}

const (
	recordFlagCommit byte = 1
	recordFlagShift       = 1
	timestampFmt          = "20060102T150405"
	checksumSize          = 8
)

// Record is a committed journal entry.
type Record struct {
	// Seq numbers records from 1 across all segments.
	Seq  uint64
	Time time.Time
	Data []byte
}

// Journal is a set of segment files in one directory.
type Journal struct {
	context        context.Context
	maxFileSize    int64
	fileNamePrefix string
	fileNameSuffix string
	debugName      string
	dir            string
	now            func() time.Time
	logger         *slog.Logger
	verbose        bool
	invariant      [32]byte

	writeLock sync.Mutex
	writable  bool
	writeErr  error
	writeSeg  uint32
	writeRec  uint64
	segWriter *segmentWriter
}

func New(dir string, o Options) *Journal {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.FileName == "" {
		o.FileName = "*"
	}
	prefix, suffix, _ := strings.Cut(o.FileName, "*")
	if o.DebugName == "" {
		o.DebugName = "journal"
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Journal{
		context:        o.Context,
		maxFileSize:    o.MaxFileSize,
		fileNamePrefix: prefix,
		fileNameSuffix: suffix,
		debugName:      o.DebugName,
		dir:            dir,
		now:            o.Now,
		verbose:        o.Verbose,
		invariant:      o.Invariant,
		logger:         o.Logger,
	}
}

func (j *Journal) Now() uint32 {
	v := j.now().Unix()
	if v < 0 {
		panic("time travel disallowed")
	}
	u := uint64(v)
	if u&0xFFFF_FFFF_0000_0000 != 0 {
		panic("time travel disallowed both ways")
	}
	return uint32(u)
}

func (j *Journal) String() string {
	return j.debugName
}

// StartWriting prepares the journal for appending. Corrupted trailing data of
// the last segment is trimmed; new records always go into a fresh segment.
func (j *Journal) StartWriting() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	if j.writable {
		return nil
	}
	if j.writeErr != nil {
		return j.writeErr
	}
	if err := os.MkdirAll(j.dir, 0o777); err != nil {
		return j.fail(err)
	}
	if err := j.prepareToWrite_locked(); err != nil {
		return j.fail(err)
	}
	j.writable = true
	return nil
}

func (j *Journal) prepareToWrite_locked() error {
	for {
		names, err := j.segmentNames()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		lastName := names[len(names)-1]
		seq, _, first, err := parseSegmentName(j.trimName(lastName))
		if err != nil {
			return err
		}

		f, err := j.openFile(lastName, true)
		if err != nil {
			return err
		}
		stat, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}

		sr, err := j.readSegment(f, seq, first, nil)
		if err == errCorruptedFile {
			f.Close()
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: deleting corrupted file", slog.String("jrnl", j.debugName), slog.String("file", lastName), slog.Int64("size", stat.Size()))
			if err := os.Remove(filepath.Join(j.dir, lastName)); err != nil {
				return fmt.Errorf("journal: failed to delete corrupted file: %w", err)
			}
			continue
		} else if err != nil {
			f.Close()
			return err
		}

		if sr.goodSize < stat.Size() {
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: trimming uncommitted data", slog.String("jrnl", j.debugName), slog.String("file", lastName), slog.Int64("size", stat.Size()), slog.Int64("trimmed_size", sr.goodSize))
			if err := f.Truncate(sr.goodSize); err != nil {
				f.Close()
				return err
			}
		}
		f.Close()

		j.writeSeg = seq
		j.writeRec = sr.lastSeq
		return nil
	}
}

// FinishWriting closes the current segment. Records written after the last
// Commit are lost.
func (j *Journal) FinishWriting() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	j.finishWriting_locked()
	return j.writeErr
}

func (j *Journal) finishWriting_locked() {
	j.writable = false
	if j.segWriter != nil {
		j.segWriter.close()
		j.segWriter = nil
	}
}

func (j *Journal) fail(err error) error {
	if err == nil {
		return nil
	}

	j.logger.LogAttrs(j.context, slog.LevelError, "journal: failed", slog.String("jrnl", j.debugName), slog.Any("err", err))

	j.finishWriting_locked()

	if j.writeErr == nil {
		j.writeErr = err
	}
	return err
}

func (j *Journal) openFile(name string, writable bool) (*os.File, error) {
	fn := filepath.Join(j.dir, name)
	if writable {
		return os.OpenFile(fn, os.O_RDWR|os.O_CREATE, 0o666)
	} else {
		return os.Open(fn)
	}
}

// FileNames lists segment files in order.
func (j *Journal) FileNames() ([]string, error) {
	return j.segmentNames()
}

func (j *Journal) segmentNames() ([]string, error) {
	ents, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var names []string
	for _, ent := range ents {
		if err := j.context.Err(); err != nil {
			return nil, err
		}
		if !ent.Type().IsRegular() {
			continue
		}
		name := ent.Name()
		if len(name) < len(j.fileNamePrefix)+len(j.fileNameSuffix) {
			continue
		}
		if !strings.HasPrefix(name, j.fileNamePrefix) || !strings.HasSuffix(name, j.fileNameSuffix) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (j *Journal) trimName(name string) string {
	return name[len(j.fileNamePrefix) : len(name)-len(j.fileNameSuffix)]
}

// WriteRecord appends a record to the journal. A zero timestamp means now.
// The record is not durable until Commit.
func (j *Journal) WriteRecord(timestamp uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	j.writeLock.Lock()
	defer j.writeLock.Unlock()

	if j.writeErr != nil {
		return j.writeErr
	}
	if !j.writable {
		return ErrNotWritable
	}

	if timestamp == 0 {
		timestamp = j.Now()
	}

	j.writeRec++

	if j.segWriter == nil {
		j.writeSeg++

		sw, err := startSegment(j, j.writeSeg, timestamp, j.writeRec)
		if err != nil {
			return j.fail(err)
		}
		j.segWriter = sw
		if j.verbose {
			j.logger.LogAttrs(j.context, slog.LevelDebug, "journal: started segment", slog.String("jrnl", j.debugName), slog.String("file", sw.f.Name()))
		}
	}

	return j.fail(j.segWriter.writeRecord(timestamp, data))
}

// Commit seals the records written so far, syncs the segment and rotates it
// once it has grown past MaxFileSize.
func (j *Journal) Commit() error {
	j.writeLock.Lock()
	defer j.writeLock.Unlock()
	if j.writeErr != nil {
		return j.writeErr
	}
	sw := j.segWriter
	if sw == nil {
		return nil
	}
	if err := sw.commit(); err != nil {
		return j.fail(err)
	}
	if sw.size >= j.maxFileSize {
		sw.close()
		j.segWriter = nil
	}
	return nil
}

// Read calls fn for every committed record in order.
func (j *Journal) Read(fn func(rec Record) error) error {
	names, err := j.segmentNames()
	if err != nil {
		return err
	}
	for i, name := range names {
		seq, _, first, err := parseSegmentName(j.trimName(name))
		if err != nil {
			return err
		}
		f, err := j.openFile(name, false)
		if err != nil {
			return err
		}
		sr, err := j.readSegment(f, seq, first, fn)
		f.Close()
		if err != nil {
			return fmt.Errorf("%v: %s: %w", j.debugName, name, err)
		}
		if sr.truncated && i < len(names)-1 {
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: segment has uncommitted tail", slog.String("jrnl", j.debugName), slog.String("file", name))
		}
	}
	return nil
}

type segmentReadResult struct {
	lastSeq   uint64
	goodSize  int64
	truncated bool
}

// readSegment validates a segment and passes committed records to fn (if not
// nil). A bad header yields errCorruptedFile; a bad or missing commit merely
// ends the segment.
func (j *Journal) readSegment(f *os.File, expectedOrdinal uint32, firstRec uint64, fn func(Record) error) (segmentReadResult, error) {
	var res segmentReadResult
	r := bufio.NewReader(f)

	var h segmentHeader
	var hbuf [segmentHeaderSize]byte
	if err := j.readHeader(r, hbuf[:], &h, expectedOrdinal); err != nil {
		return res, err
	}
	if h.FirstRecord != firstRec {
		return res, errCorruptedFile
	}

	var hash xxhash.Digest
	hash.Reset()
	hash.Write(hbuf[:])

	res.lastSeq = firstRec - 1
	res.goodSize = segmentHeaderSize
	var pending []Record
	off := int64(segmentHeaderSize)
	ts := h.Timestamp
	seq := res.lastSeq

	for {
		b, err := r.Peek(1)
		if err == io.EOF {
			res.truncated = len(pending) > 0
			return res, nil
		} else if err != nil {
			return res, err
		}

		if b[0]&recordFlagCommit != 0 {
			var cbuf [checksumSize]byte
			if _, err := io.ReadFull(r, cbuf[:]); err != nil {
				res.truncated = true
				return res, nil
			}
			var expected [checksumSize]byte
			binary.LittleEndian.PutUint64(expected[:], hash.Sum64())
			expected[0] |= recordFlagCommit
			if cbuf != expected {
				res.truncated = true
				return res, nil
			}
			hash.Write(cbuf[:])
			off += checksumSize
			for _, rec := range pending {
				if fn != nil {
					if err := fn(rec); err != nil {
						return res, err
					}
				}
				res.lastSeq = rec.Seq
			}
			pending = pending[:0]
			res.goodSize = off
			continue
		}

		sizeAndFlags, n1, err := readUvarint(r)
		if err != nil {
			res.truncated = true
			return res, nil
		}
		tsDelta, n2, err := readUvarint(r)
		if err != nil || tsDelta > 0xFFFF_FFFF {
			res.truncated = true
			return res, nil
		}
		size := sizeAndFlags >> recordFlagShift
		if size > uint64(j.maxFileSize)+DefaultMaxFileSize {
			res.truncated = true
			return res, nil
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			res.truncated = true
			return res, nil
		}
		hash.Write(appendRecordHeader(nil, int(size), uint32(tsDelta)))
		hash.Write(data)
		off += int64(n1+n2) + int64(size)

		ts += uint32(tsDelta)
		seq++
		pending = append(pending, Record{
			Seq:  seq,
			Time: time.Unix(int64(ts), 0).UTC(),
			Data: data,
		})
	}
}

func readUvarint(r *bufio.Reader) (uint64, int, error) {
	var n int
	v, err := binary.ReadUvarint(countingByteReader{r, &n})
	return v, n, err
}

type countingByteReader struct {
	r *bufio.Reader
	n *int
}

func (c countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		*c.n++
	}
	return b, err
}

func (j *Journal) readHeader(r io.Reader, buf []byte, h *segmentHeader, expectedOrdinal uint32) error {
	_, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return errCorruptedFile
	} else if err != nil {
		return err
	}
	n, err := binary.Decode(buf, binary.LittleEndian, h)
	if err != nil {
		panic(err)
	}
	if n != len(buf) {
		panic("internal size mismatch")
	}

	if h.Magic != magic {
		return errCorruptedFile
	}
	checksum := xxhash.Sum64(buf[:segmentHeaderSize-checksumSize])
	if checksum != h.Checksum {
		return errCorruptedFile
	}
	if expectedOrdinal != h.Ordinal {
		return errCorruptedFile
	}
	if h.Version > version0 {
		return ErrUnsupportedVersion
	}
	if h.Invariant != j.invariant {
		return ErrIncompatible
	}
	return nil
}

type segmentWriter struct {
	f           *os.File
	seg         uint32
	ts          uint32
	size        int64
	hash        xxhash.Digest
	uncommitted bool
}

func startSegment(j *Journal, seg, ts uint32, rec uint64) (*segmentWriter, error) {
	name := formatSegmentName(j.fileNamePrefix, j.fileNameSuffix, seg, ts, rec)

	f, err := j.openFile(name, true)
	if err != nil {
		return nil, err
	}

	var ok bool
	defer closeAndDeleteUnlessOK(f, &ok)

	sw := &segmentWriter{
		f:    f,
		seg:  seg,
		ts:   ts,
		size: segmentHeaderSize,
	}
	sw.hash.Reset()

	var hbuf [segmentHeaderSize]byte
	fillSegmentHeader(hbuf[:], j, seg, ts, rec)
	sw.hash.Write(hbuf[:])

	_, err = f.Write(hbuf[:])
	if err != nil {
		return nil, err
	}

	ok = true
	return sw, nil
}

const maxRecHeaderLen = binary.MaxVarintLen64 + binary.MaxVarintLen32

func (sw *segmentWriter) writeRecord(ts uint32, data []byte) error {
	var tsDelta uint32
	if ts > sw.ts {
		tsDelta = ts - sw.ts
		sw.ts = ts
	}
	sw.uncommitted = true

	var hbuf [maxRecHeaderLen]byte
	h := appendRecordHeader(hbuf[:0], len(data), tsDelta)

	sw.hash.Write(h)
	_, err := sw.f.Write(h)
	if err != nil {
		return err
	}

	sw.hash.Write(data)
	_, err = sw.f.Write(data)
	if err != nil {
		return err
	}

	sw.size += int64(len(h) + len(data))
	return nil
}

func (sw *segmentWriter) commit() error {
	if !sw.uncommitted {
		return nil
	}
	sw.uncommitted = false

	var buf [checksumSize]byte
	binary.LittleEndian.PutUint64(buf[:], sw.hash.Sum64())
	buf[0] |= recordFlagCommit

	sw.hash.Write(buf[:])
	_, err := sw.f.Write(buf[:])
	if err != nil {
		return err
	}
	sw.size += checksumSize

	return sw.f.Sync()
}

func (sw *segmentWriter) close() {
	if sw.f == nil {
		return
	}
	sw.f.Close()
	sw.f = nil
}

func closeAndDeleteUnlessOK(f *os.File, ok *bool) {
	if *ok {
		return
	}
	f.Close()
	os.Remove(f.Name())
}

func fillSegmentHeader(buf []byte, j *Journal, seg, ts uint32, firstRec uint64) {
	h := segmentHeader{
		Magic:       magic,
		Version:     version0,
		Ordinal:     seg,
		Timestamp:   ts,
		FirstRecord: firstRec,
		Invariant:   j.invariant,
	}

	n, err := binary.Encode(buf, binary.LittleEndian, h)
	if err != nil {
		panic(err)
	}
	if n != len(buf) {
		panic("internal size mismatch")
	}

	binary.LittleEndian.PutUint64(buf[segmentHeaderSize-checksumSize:], xxhash.Sum64(buf[:segmentHeaderSize-checksumSize]))
}

func appendRecordHeader(b []byte, size int, tsDelta uint32) []byte {
	b = binary.AppendUvarint(b, uint64(size)<<recordFlagShift)
	b = binary.AppendUvarint(b, uint64(tsDelta))
	return b
}

func formatSegmentName(prefix, suffix string, seq, ts uint32, id uint64) string {
	t := time.Unix(int64(uint64(ts)), 0).UTC()
	return fmt.Sprintf("%s%012d-%s-%016x%s", prefix, seq, t.Format(timestampFmt), id, suffix)
}

func parseSegmentName(name string) (seq, ts uint32, id uint64, err error) {
	seqStr, rem, ok := strings.Cut(name, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	v, err := strconv.ParseUint(seqStr, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q (invalid segment number)", name)
	}
	seq = uint32(v)

	tsStr, idStr, ok := strings.Cut(rem, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid segment file name %q", name)
	}
	t, err := time.ParseInLocation(timestampFmt, tsStr, time.UTC)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid timestamp)", name)
	}
	ts = uint32(t.Unix())

	id, err = strconv.ParseUint(idStr, 16, 64)
	if err != nil {
		return seq, 0, 0, fmt.Errorf("invalid segment file name %q (invalid record identifier)", name)
	}
	return
}

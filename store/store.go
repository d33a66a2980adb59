// Package store keeps docmodel documents in named collections on top of a
// bbolt file or in memory, applying each flush as an update list.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyvit/docmodel/bsonutil"
	"github.com/andreyvit/docmodel/journal"
	"go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
)

type Options struct {
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool
	MmapSize  int
	// Timeout bounds waiting for the file lock; defaults to 10s.
	Timeout       time.Duration
	EventEncoding Encoding
	// JournalDir, if set, receives every change event as a journal record.
	JournalDir string
}

type Store struct {
	st       storage
	logger   *slog.Logger
	verbose  bool
	encoding Encoding
	journal  *journal.Journal

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64

	// held from a data write through its publish so events go out in
	// commit order
	commitLock sync.Mutex

	subsLock sync.Mutex
	subs     map[int]func(ev *ChangeEvent, encoded func() []byte)
	nextSub  int
}

// Open opens or creates a bbolt-backed store at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s, err := newStore(newBoltStorage(bdb), opt)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory returns a transient store, mostly for tests.
func OpenMemory(opt Options) (*Store, error) {
	return newStore(newMemStorage(), opt)
}

func newStore(st storage, opt Options) (*Store, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		st:       st,
		logger:   logger,
		verbose:  opt.Verbose,
		encoding: opt.EventEncoding,
		subs:     make(map[int]func(*ChangeEvent, func() []byte)),
	}
	if opt.JournalDir != "" {
		s.journal = openJournal(opt)
		if err := s.journal.StartWriting(); err != nil {
			return nil, fmt.Errorf("store: journal: %w", err)
		}
	}
	return s, nil
}

func openJournal(opt Options) *journal.Journal {
	return journal.New(opt.JournalDir, journal.Options{
		FileName:  "events-*.wal",
		DebugName: "store-events",
		Invariant: [32]byte{byte(opt.EventEncoding) + 1},
		Logger:    opt.Logger,
		Verbose:   opt.Verbose,
	})
}

func (s *Store) Close() error {
	var jerr error
	if s.journal != nil {
		jerr = s.journal.FinishWriting()
	}
	if err := s.st.Close(); err != nil {
		return err
	}
	return jerr
}

// ReadJournal replays the change events recorded in the journal configured
// by opt.JournalDir and opt.EventEncoding.
func ReadJournal(opt Options, f func(ev *ChangeEvent) error) error {
	return openJournal(opt).Read(func(rec journal.Record) error {
		ev, err := DecodeEvent(opt.EventEncoding, rec.Data)
		if err != nil {
			return err
		}
		return f(ev)
	})
}

func (s *Store) Collection(name string) *Collection {
	if name == "" {
		panic("store: empty collection name")
	}
	return &Collection{store: s, name: name}
}

// Collections lists the names of collections that have ever been written.
func (s *Store) Collections() ([]string, error) {
	var names []string
	err := s.read(func(tx storageTx) error {
		names = tx.BucketNames()
		return nil
	})
	return names, err
}

// Subscribe calls f after every committed write, on the writing goroutine,
// in commit order. f must not write to the store. The returned func cancels
// the subscription.
func (s *Store) Subscribe(f func(ev *ChangeEvent)) (cancel func()) {
	return s.subscribe(func(ev *ChangeEvent, _ func() []byte) { f(ev) })
}

// SubscribeEncoded is like Subscribe but delivers events encoded with
// Options.EventEncoding, e.g. for forwarding to a message bus.
func (s *Store) SubscribeEncoded(f func(data []byte)) (cancel func()) {
	return s.subscribe(func(_ *ChangeEvent, encoded func() []byte) {
		if data := encoded(); data != nil {
			f(data)
		}
	})
}

func (s *Store) subscribe(f func(*ChangeEvent, func() []byte)) func() {
	s.subsLock.Lock()
	defer s.subsLock.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = f
	return func() {
		s.subsLock.Lock()
		defer s.subsLock.Unlock()
		delete(s.subs, id)
	}
}

// publish journals ev and hands it to subscribers. Callers hold commitLock.
func (s *Store) publish(ev *ChangeEvent) {
	if s.verbose {
		s.logger.Debug("store: committed", "kind", ev.Kind, "collection", ev.Collection, "key", ev.Key, "mod_count", ev.ModCount, "ops", len(ev.Ops))
	}

	s.subsLock.Lock()
	subs := make([]func(*ChangeEvent, func() []byte), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.subsLock.Unlock()
	if len(subs) == 0 && s.journal == nil {
		return
	}

	var encoded []byte
	var encodeOnce sync.Once
	encode := func() []byte {
		encodeOnce.Do(func() {
			var err error
			encoded, err = EncodeEvent(s.encoding, ev)
			if err != nil {
				s.logger.Error("store: cannot encode change event", "collection", ev.Collection, "key", ev.Key, "err", err)
			}
		})
		return encoded
	}
	if s.journal != nil {
		if data := encode(); data != nil {
			err := s.journal.WriteRecord(uint32(ev.Time.Unix()), data)
			if err == nil {
				err = s.journal.Commit()
			}
			if err != nil {
				s.logger.Error("store: cannot journal change event", "collection", ev.Collection, "key", ev.Key, "err", err)
			}
		}
	}
	for _, f := range subs {
		f(ev, encode)
	}
}

func (s *Store) read(f func(tx storageTx) error) error {
	s.ReadCount.Add(1)
	tx, err := s.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return safelyCall(f, tx)
}

func (s *Store) write(f func(tx storageTx) error) error {
	s.WriteCount.Add(1)
	tx, err := s.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = safelyCall(f, tx)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(storageTx) error, tx storageTx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

// Dump writes every stored document as JSON, one per line, grouped by
// collection.
func (s *Store) Dump(w io.Writer) error {
	return s.read(func(tx storageTx) error {
		for _, name := range tx.BucketNames() {
			b := tx.Bucket(name)
			fmt.Fprintln(w, dumpSep1)
			fmt.Fprintf(w, "%s (%d docs)\n", name, b.KeyCount())
			fmt.Fprintln(w, dumpSep2)
			c := b.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				doc, meta, err := decodeDoc(v)
				if err != nil {
					fmt.Fprintf(w, "%s/%s: ** %v\n", name, k, err)
					continue
				}
				raw, err := json.Marshal(bsonutil.ToPlain(doc))
				if err != nil {
					fmt.Fprintf(w, "%s/%s: ** %v\n", name, k, err)
					continue
				}
				fmt.Fprintf(w, "%s/%s @%d: %s\n", name, k, meta.ModCount, raw)
			}
		}
		return nil
	})
}

func decodeDoc(raw []byte) (bson.D, Meta, error) {
	var vle value
	if err := vle.decode(raw); err != nil {
		return nil, Meta{}, err
	}
	var doc bson.D
	if err := bson.Unmarshal(vle.Data, &doc); err != nil {
		return nil, Meta{}, dataErrf(vle.Data, 0, err, "invalid BSON document")
	}
	return doc, vle.Meta(), nil
}

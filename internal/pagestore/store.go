// Package pagestore keeps wiki pages and their revisions in a bbolt file.
package pagestore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketPages = "pages"
	openTimeout = time.Second
)

var (
	// ErrNoPage is returned when a page has never been stored.
	ErrNoPage = errors.New("no such page")
	// ErrNoRevision is returned when a page exists but the revision does not.
	ErrNoRevision = errors.New("no such revision")
	// ErrUnchanged is returned by Put when the text equals the latest revision.
	ErrUnchanged = errors.New("page text unchanged")
	// ErrInvalidName is returned for empty page names.
	ErrInvalidName = errors.New("invalid page name")
)

// Revision is one stored version of a page. Revisions are numbered from 1.
type Revision struct {
	Page  string
	Rev   int
	Saved time.Time
	Text  string
}

// Store is a page store backed by a single bbolt database file.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open page store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPages))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize page store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Put stores text as the next revision of the page and returns its number.
func (s *Store) Put(name, text string) (int, error) {
	if name == "" {
		return 0, ErrInvalidName
	}
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		page, err := tx.Bucket([]byte(bucketPages)).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if _, v := page.Cursor().Last(); v != nil {
			if _, last := unmarshalRecord(v); last == text {
				return ErrUnchanged
			}
		}
		seq, err = page.NextSequence()
		if err != nil {
			return err
		}
		return page.Put(marshalSeq(seq), marshalRecord(s.now(), text))
	})
	return int(seq), err
}

// Get returns a revision of the page. A rev of 0 selects the latest one.
func (s *Store) Get(name string, rev int) (Revision, error) {
	var out Revision
	err := s.db.View(func(tx *bolt.Tx) error {
		page := tx.Bucket([]byte(bucketPages)).Bucket([]byte(name))
		if page == nil {
			return ErrNoPage
		}
		var k, v []byte
		if rev == 0 {
			k, v = page.Cursor().Last()
		} else if rev > 0 {
			k = marshalSeq(uint64(rev))
			v = page.Get(k)
		}
		if v == nil {
			return ErrNoRevision
		}
		out = revisionOf(name, k, v)
		return nil
	})
	return out, err
}

// Revisions lists every revision of the page, oldest first.
func (s *Store) Revisions(name string) ([]Revision, error) {
	var revs []Revision
	err := s.db.View(func(tx *bolt.Tx) error {
		page := tx.Bucket([]byte(bucketPages)).Bucket([]byte(name))
		if page == nil {
			return ErrNoPage
		}
		return page.ForEach(func(k, v []byte) error {
			revs = append(revs, revisionOf(name, k, v))
			return nil
		})
	})
	return revs, err
}

// Pages lists the names of all stored pages in byte order.
func (s *Store) Pages() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketPages)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			// nested buckets have a nil value
			if v == nil {
				names = append(names, string(k))
			}
		}
		return nil
	})
	return names, err
}

func revisionOf(name string, k, v []byte) Revision {
	saved, text := unmarshalRecord(v)
	return Revision{Page: name, Rev: int(unmarshalSeq(k)), Saved: saved, Text: text}
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}

// A record is the save time in Unix nanoseconds followed by the page text.
func marshalRecord(saved time.Time, text string) []byte {
	var buf bytes.Buffer
	buf.Grow(8 + len(text))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(saved.UnixNano()))
	buf.Write(ts[:])
	buf.WriteString(text)
	return buf.Bytes()
}

func unmarshalRecord(v []byte) (time.Time, string) {
	if len(v) < 8 {
		return time.Time{}, string(v)
	}
	nanos := int64(binary.BigEndian.Uint64(v[:8]))
	return time.Unix(0, nanos), string(v[8:])
}

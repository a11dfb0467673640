// Package cache implements the on-disk fingerprint cache: a
// persistent keyed store of (path → {size, mtime, hash}) used to avoid
// rehashing unchanged files across runs. Separate Cache instances back the
// prehash window and the full-file hash, each keyed by the selected hash
// algorithm so that switching algorithms invalidates the cache automatically.
//
// The on-disk format is BoltDB (go.etcd.io/bbolt), using a
// self-cleaning design: a run opens the existing database
// read-only and a brand-new database for writing; only records actually
// used this run (either copied forward from a cache hit, or freshly
// computed) end up in the new database, and Close() atomically renames it
// over the old one. This is what implements "evicted when stale" for
// FingerprintCacheRecord without a separate GC pass.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/scanner"
)

// Kind distinguishes the two independent caches the engine maintains.
type Kind string

const (
	Prehash  Kind = "prehash"
	FullHash Kind = "fullhash"
)

const bucketName = "records"

// Record is a persisted fingerprint cache entry.
type Record struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Hash      string
	Algorithm string
}

// Cache is a persistent keyed store of cached fingerprints for one
// (kind, algorithm) pair. A Cache is single-use: Open, use, Close.
type Cache struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	kind    Kind
	algo    fingerprint.Algorithm
	minSize int64
	enabled bool
}

// Open opens the existing cache file for reading (if present) and a fresh
// one for writing. dir == "" disables the cache entirely (every Lookup
// misses, every Store is a no-op), which is how the engine implements
// use_prehash_cache=false / use_fullhash_cache=false.
//
// minSize is the save-side threshold: records below it are
// never written, because caching tiny files costs more than rehashing them.
func Open(dir string, kind Kind, algo fingerprint.Algorithm, minSize int64) (*Cache, error) {
	if dir == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	// The algorithm is embedded in the filename itself: switching
	// hash_algorithm points the engine at an entirely different file, so
	// there is no need to parse and compare algorithm tags on every record.
	path := filepath.Join(dir, fmt.Sprintf("dupefind.%s.%s.db", kind, algo))

	c := &Cache{path: path, kind: kind, algo: algo, minSize: minSize, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
		if err == nil {
			c.readDB = readDB
		}
		// A failure to open the existing cache is a non-fatal warning:
		// the run proceeds as if the cache were empty.
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache file
// with the freshly written one. Save errors are non-fatal:
// callers should log the returned error as a warning, not fail the run.
func (c *Cache) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.readDB != nil {
		record(c.readDB.Close())
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			record(err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			record(fmt.Errorf("replace cache file: %w", err))
		}
	}
	return firstErr
}

func makeKey(path string) []byte { return []byte(path) }

func encodeRecord(r Record) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, r.Size)
	_ = binary.Write(buf, binary.BigEndian, r.ModTime.UnixNano())
	hashLen := uint32(len(r.Hash))
	_ = binary.Write(buf, binary.BigEndian, hashLen)
	buf.WriteString(r.Hash)
	return buf.Bytes()
}

func decodeRecord(path string, data []byte) (Record, bool) {
	if len(data) < 8+8+4 {
		return Record{}, false
	}
	r := Record{Path: path}
	buf := bytes.NewReader(data)
	_ = binary.Read(buf, binary.BigEndian, &r.Size)
	var modNano int64
	_ = binary.Read(buf, binary.BigEndian, &modNano)
	r.ModTime = time.Unix(0, modNano)
	var hashLen uint32
	_ = binary.Read(buf, binary.BigEndian, &hashLen)
	hashBytes := make([]byte, hashLen)
	if _, err := buf.Read(hashBytes); err != nil {
		return Record{}, false
	}
	r.Hash = string(hashBytes)
	return r, true
}

// Lookup returns the cached hash for a single file if the cache is enabled,
// a matching record exists, and its size+mtime agree with the current
// FileDescriptor. A hit is copied forward into
// the new database (self-cleaning) provided it still clears minSize.
func (c *Cache) Lookup(fd *scanner.FileDescriptor) (string, bool) {
	if !c.enabled || c.readDB == nil {
		return "", false
	}

	var rec Record
	var found bool
	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(makeKey(fd.Path))
		if data == nil {
			return nil
		}
		rec, found = decodeRecord(fd.Path, data)
		return nil
	})
	if !found {
		return "", false
	}
	if rec.Size != fd.Size || !rec.ModTime.Equal(fd.ModTime) {
		return "", false
	}

	if fd.Size >= c.minSize {
		_ = c.store(fd.Path, rec)
	}
	return rec.Hash, true
}

// Store persists a freshly computed hash for fd, subject to the minSize
// threshold.
func (c *Cache) Store(fd *scanner.FileDescriptor, hash string) error {
	if !c.enabled || fd.Size < c.minSize {
		return nil
	}
	return c.store(fd.Path, Record{
		Path:      fd.Path,
		Size:      fd.Size,
		ModTime:   fd.ModTime,
		Hash:      hash,
		Algorithm: c.algo.String(),
	})
}

func (c *Cache) store(path string, rec Record) error {
	if c.writeDB == nil {
		return nil
	}
	return c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(path), encodeRecord(rec))
	})
}

// Load restricts the persisted cache to the given candidates, returning a
// map of path → valid cached Record. deleteOutdated
// additionally purges, from the old read-only database, any record whose
// path matches a candidate but whose size/mtime has since changed — so a
// concurrently-running second instance observes the eviction without
// waiting for this run's Close().
func (c *Cache) Load(candidates []*scanner.FileDescriptor, deleteOutdated bool) map[string]Record {
	valid := make(map[string]Record, len(candidates))
	if !c.enabled || c.readDB == nil {
		return valid
	}

	var staleKeys [][]byte
	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		for _, fd := range candidates {
			data := b.Get(makeKey(fd.Path))
			if data == nil {
				continue
			}
			rec, ok := decodeRecord(fd.Path, data)
			if !ok {
				continue
			}
			if rec.Size == fd.Size && rec.ModTime.Equal(fd.ModTime) {
				valid[fd.Path] = rec
				if fd.Size >= c.minSize {
					_ = c.store(fd.Path, rec)
				}
			} else if deleteOutdated {
				staleKeys = append(staleKeys, makeKey(fd.Path))
			}
		}
		return nil
	})

	if deleteOutdated && len(staleKeys) > 0 {
		// The read-only handle holds a shared file lock that would block the
		// read-write handle purgeFromReadDB needs, so release it first and
		// reopen it afterwards for later Lookups.
		_ = c.readDB.Close()
		c.readDB = nil
		_ = c.purgeFromReadDB(staleKeys)
		if readDB, err := bolt.Open(c.path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second}); err == nil {
			c.readDB = readDB
		}
	}

	return valid
}

// purgeFromReadDB removes stale keys from the existing cache file. It opens
// a short-lived read-write handle because c.readDB itself is opened
// read-only (Load closes c.readDB around this call); failures are swallowed
// as a non-fatal warning,
// since the new database being written by this run will simply omit the
// stale record regardless.
func (c *Cache) purgeFromReadDB(keys [][]byte) error {
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: 200 * time.Millisecond})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

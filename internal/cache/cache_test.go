package cache

import (
	"testing"
	"time"

	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/scanner"
)

func fd(path string, size int64, modTime time.Time) *scanner.FileDescriptor {
	return &scanner.FileDescriptor{Path: path, Size: size, ModTime: modTime}
}

func TestCacheDisabled(t *testing.T) {
	c, err := Open("", Prehash, fingerprint.FastStreaming64, 0)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	f := fd("/test/file", 100, time.Now())
	if err := c.Store(f, "deadbeef"); err != nil {
		t.Errorf("Store on disabled cache returned error: %v", err)
	}
	if _, ok := c.Lookup(f); ok {
		t.Error("Lookup() on disabled cache reported a hit")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	modTime := time.Unix(1609459200, 0)

	c1, err := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	f := fd("/test/file.txt", 1024, modTime)
	if err := c1.Store(f, "abc123"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	c2, err := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	if err != nil {
		t.Fatalf("Open() second time failed: %v", err)
	}
	defer func() { _ = c2.Close() }()

	hash, ok := c2.Lookup(f)
	if !ok || hash != "abc123" {
		t.Errorf("Lookup() = (%q, %v), want (\"abc123\", true)", hash, ok)
	}
}

func TestCacheMissOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	f := fd("/test/file.txt", 1024, time.Unix(1609459200, 0))
	_ = c1.Store(f, "abc123")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c2.Close() }()

	changed := fd(f.Path, f.Size, time.Unix(1609459201, 0))
	if _, ok := c2.Lookup(changed); ok {
		t.Error("Lookup() with different mtime reported a hit")
	}
}

func TestCacheMissOnSizeChange(t *testing.T) {
	dir := t.TempDir()
	modTime := time.Now()
	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	f := fd("/test/file.txt", 1024, modTime)
	_ = c1.Store(f, "abc123")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c2.Close() }()

	changed := fd(f.Path, 2048, modTime)
	if _, ok := c2.Lookup(changed); ok {
		t.Error("Lookup() with different size reported a hit")
	}
}

func TestCacheMissOnPathChange(t *testing.T) {
	dir := t.TempDir()
	modTime := time.Now()
	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	f := fd("/test/original.txt", 1024, modTime)
	_ = c1.Store(f, "abc123")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c2.Close() }()

	renamed := fd("/test/renamed.txt", f.Size, modTime)
	if _, ok := c2.Lookup(renamed); ok {
		t.Error("Lookup() with different path reported a hit")
	}
}

func TestStoreBelowMinSizeIsNoOp(t *testing.T) {
	dir := t.TempDir()
	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 1024)
	f := fd("/test/tiny.txt", 100, time.Now())
	_ = c1.Store(f, "abc123")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 1024)
	defer func() { _ = c2.Close() }()

	if _, ok := c2.Lookup(f); ok {
		t.Error("expected file below minSize to never be persisted")
	}
}

func TestAlgorithmChangeInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	f := fd("/test/file.txt", 1024, time.Now())

	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	_ = c1.Store(f, "abc123")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.Cryptographic, 0)
	defer func() { _ = c2.Close() }()

	if _, ok := c2.Lookup(f); ok {
		t.Error("expected cache keyed to a different algorithm to miss")
	}
}

func TestSelfCleaning(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	a := fd("/a.txt", 100, now)
	b := fd("/b.txt", 200, now)

	c1, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	_ = c1.Store(a, "hash-a")
	_ = c1.Store(b, "hash-b")
	_ = c1.Close()

	c2, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	if _, ok := c2.Lookup(a); !ok {
		t.Fatal("expected hit for a on second run")
	}
	// b is never looked up this run, so it becomes an orphan.
	_ = c2.Close()

	c3, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c3.Close() }()

	if _, ok := c3.Lookup(a); !ok {
		t.Error("a should still exist after self-cleaning")
	}
	if _, ok := c3.Lookup(b); ok {
		t.Error("b should have been dropped by self-cleaning")
	}
}

func TestLoadRestrictsToCandidatesAndValidates(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	a := fd("/a.txt", 100, now)
	b := fd("/b.txt", 200, now)

	c1, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	_ = c1.Store(a, "hash-a")
	_ = c1.Store(b, "hash-b")
	_ = c1.Close()

	c2, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c2.Close() }()

	bChanged := fd(b.Path, 9999, now) // stale: size no longer matches
	records := c2.Load([]*scanner.FileDescriptor{a, bChanged}, false)

	if _, ok := records[a.Path]; !ok {
		t.Error("expected a to load as valid")
	}
	if _, ok := records[bChanged.Path]; ok {
		t.Error("expected stale b record to be excluded")
	}
}

func TestLoadDeleteOutdatedPurgesFromDisk(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	a := fd("/a.txt", 100, now)

	c1, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	_ = c1.Store(a, "hash-a")
	_ = c1.Close()

	c2, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	aChanged := fd(a.Path, 999, now)
	c2.Load([]*scanner.FileDescriptor{aChanged}, true)
	_ = c2.Close()

	c3, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	defer func() { _ = c3.Close() }()
	if _, ok := c3.Lookup(a); ok {
		t.Error("expected purged stale record to stay gone")
	}
}

func TestPrehashAndFullHashAreIndependent(t *testing.T) {
	dir := t.TempDir()
	f := fd("/test/file.txt", 1024, time.Now())

	pre, _ := Open(dir, Prehash, fingerprint.FastStreaming64, 0)
	_ = pre.Store(f, "prehash-value")
	_ = pre.Close()

	full, _ := Open(dir, FullHash, fingerprint.FastStreaming64, 0)
	defer func() { _ = full.Close() }()

	if _, ok := full.Lookup(f); ok {
		t.Error("expected fullhash cache to be independent of prehash cache")
	}
}

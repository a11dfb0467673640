package grouper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dupefind/dupefind/internal/cache"
	"github.com/dupefind/dupefind/internal/fingerprint"
)

// fullHashBuffer is the per-worker scratch buffer size for stage B.
const fullHashBuffer = 2 << 20

// HashConfig parameterizes hash-mode grouping.
type HashConfig struct {
	Algorithm             fingerprint.Algorithm
	PrehashLimit          int64
	Workers               int
	ApplyHardLinkFilter   bool
	TrustDeviceBoundaries bool
	PrehashCache          *cache.Cache  // nil or disabled cache.Cache both behave as "no cache"
	FullHashCache         *cache.Cache
	ErrCh                 chan error
	OnProgress            func(bytes int64) // may be nil
}

func (c HashConfig) sendError(err error) {
	if c.ErrCh != nil {
		c.ErrCh <- err
	}
}

func (c HashConfig) reportProgress(n int64) {
	if c.OnProgress != nil && n > 0 {
		c.OnProgress(n)
	}
}

// sizeUnit is one unit of stage-A work: all surviving entries of one size.
type sizeUnit struct {
	size    int64
	entries []*Entry
}

// stageA computes, per size-group (in parallel), a prehash for every entry
// (cached or freshly computed), subgroup by prehash value
// within the size, and drop subgroups that didn't survive (len < 2).
func stageA(ctx context.Context, bySize map[int64][]*Entry, cfg HashConfig) (map[int64][][]*Entry, error) {
	units := make([]sizeUnit, 0, len(bySize))
	for size, entries := range bySize {
		units = append(units, sizeUnit{size: size, entries: entries})
	}

	var mu sync.Mutex
	result := make(map[int64][][]*Entry)

	bufSize := cfg.PrehashLimit
	if bufSize < fingerprint.MinScratchBuffer {
		bufSize = fingerprint.MinScratchBuffer
	}

	runErr := parallelForEach(ctx, cfg.Workers, units, func(ctx context.Context, u sizeUnit) {
		buf := make([]byte, bufSize)
		byPrehash := make(map[string][]*Entry)

		for _, e := range u.entries {
			h, ok, cancelled := prehashFor(ctx, e, cfg, buf)
			if cancelled {
				return // drop this in-flight group's contribution entirely
			}
			if !ok {
				continue // per-file failure: exclude the file, keep the group
			}
			e.Hash = h
			byPrehash[h] = append(byPrehash[h], e)
		}

		var subgroups [][]*Entry
		for _, es := range byPrehash {
			if len(es) >= 2 {
				subgroups = append(subgroups, es)
			}
		}
		if len(subgroups) == 0 {
			return
		}

		mu.Lock()
		result[u.size] = append(result[u.size], subgroups...)
		mu.Unlock()
	})

	return result, runErr
}

// prehashFor resolves one entry's prehash, preferring the cache. Open
// failures still advance progress by the expected size so overall progress
// stays monotonic; read failures do not.
func prehashFor(ctx context.Context, e *Entry, cfg HashConfig, buf []byte) (hash string, ok bool, cancelled bool) {
	if ctx.Err() != nil {
		return "", false, true
	}

	if cfg.PrehashCache != nil {
		if h, hit := cfg.PrehashCache.Lookup(e.FileDescriptor); hit {
			cfg.reportProgress(min64(cfg.PrehashLimit, e.Size))
			return h, true, false
		}
	}

	f, err := os.Open(e.Path)
	if err != nil {
		cfg.sendError(fmt.Errorf("open %s: %w", e.Path, err))
		cfg.reportProgress(min64(cfg.PrehashLimit, e.Size))
		return "", false, false
	}
	defer func() { _ = f.Close() }()

	h, err := fingerprint.BoundedHash(f, cfg.Algorithm, buf, cfg.PrehashLimit)
	if err != nil {
		cfg.sendError(fmt.Errorf("prehash %s: %w", e.Path, err))
		return "", false, false
	}

	if cfg.PrehashCache != nil {
		_ = cfg.PrehashCache.Store(e.FileDescriptor, h)
	}
	cfg.reportProgress(min64(cfg.PrehashLimit, e.Size))
	return h, true, false
}

// subgroupUnit is one unit of stage-B work: a prehash-confirmed subgroup.
type subgroupUnit struct {
	size    int64
	entries []*Entry
}

// stageB full-file hashes every stage-A
// survivor, subgrouped by size within the prehash bucket, regrouped by the
// full hash, emitting one final Group per surviving (size, hash) bucket.
func stageB(ctx context.Context, bySize map[int64][][]*Entry, cfg HashConfig) ([]Group, error) {
	var units []subgroupUnit
	for size, subgroups := range bySize {
		for _, entries := range subgroups {
			units = append(units, subgroupUnit{size: size, entries: entries})
		}
	}

	var mu sync.Mutex
	var groups []Group

	runErr := parallelForEach(ctx, cfg.Workers, units, func(ctx context.Context, u subgroupUnit) {
		buf := make([]byte, fullHashBuffer)
		byHash := make(map[string][]*Entry)

		for _, e := range u.entries {
			h, ok, cancelled := fullHashFor(ctx, e, cfg, buf)
			if cancelled {
				return
			}
			if !ok {
				continue
			}
			e.Hash = h
			byHash[h] = append(byHash[h], e)
		}

		var local []Group
		for h, es := range byHash {
			if len(es) >= 2 {
				local = append(local, NewGroup(Key{Kind: SizeHashKey, Size: u.size, Hash: h}, es))
			}
		}
		if len(local) == 0 {
			return
		}

		mu.Lock()
		groups = append(groups, local...)
		mu.Unlock()
	})

	sortGroups(groups)
	return groups, runErr
}

func fullHashFor(ctx context.Context, e *Entry, cfg HashConfig, buf []byte) (hash string, ok bool, cancelled bool) {
	if cfg.FullHashCache != nil {
		if h, hit := cfg.FullHashCache.Lookup(e.FileDescriptor); hit {
			cfg.reportProgress(e.Size)
			return h, true, false
		}
	}

	f, err := os.Open(e.Path)
	if err != nil {
		cfg.sendError(fmt.Errorf("open %s: %w", e.Path, err))
		cfg.reportProgress(e.Size)
		return "", false, false
	}
	defer func() { _ = f.Close() }()

	h, err := fingerprint.StreamingHash(ctx, f, cfg.Algorithm, buf, cfg.reportProgress)
	if err != nil {
		var ce *fingerprint.CancelledError
		if errors.As(err, &ce) {
			return "", false, true
		}
		cfg.sendError(fmt.Errorf("full hash %s: %w", e.Path, err))
		return "", false, false
	}

	if cfg.FullHashCache != nil {
		_ = cfg.FullHashCache.Store(e.FileDescriptor, h)
	}
	return h, true, false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

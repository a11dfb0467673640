package progress

import "sync"

// Stage identifies which part of a run a progress Event describes.
type Stage string

const (
	StageScan              Stage = "Scan"
	StageScreen            Stage = "Screen"
	StagePrehashCacheLoad  Stage = "PrehashCacheLoad"
	StagePrehash           Stage = "Prehash"
	StagePrehashCacheSave  Stage = "PrehashCacheSave"
	StageFullHashCacheLoad Stage = "FullHashCacheLoad"
	StageFullHash          Stage = "FullHash"
	StageFullHashCacheSave Stage = "FullHashCacheSave"
	StageReference         Stage = "Reference"
)

// Event is one progress update: stage, items_done, items_total,
// bytes_done, bytes_total.
type Event struct {
	Stage      Stage
	ItemsDone  int64
	ItemsTotal int64
	BytesDone  int64
	BytesTotal int64
}

// Reporter tracks the current stage's progress counters and makes the
// latest Event available to any number of readers — the progress bar and
// the HTTP /api/status endpoint are both just consumers of the same
// Snapshot, backed by two shared integer
// counters read by a dedicated progress-reporter goroutine.
type Reporter struct {
	mu    sync.Mutex
	event Event
}

// NewReporter returns an idle Reporter.
func NewReporter() *Reporter { return &Reporter{} }

// StartStage resets the counters for a new stage with known totals. A
// total of -1 means "unknown ahead of time" (e.g. scanning, whose file
// count isn't known until it finishes).
func (r *Reporter) StartStage(stage Stage, itemsTotal, bytesTotal int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.event = Event{Stage: stage, ItemsTotal: itemsTotal, BytesTotal: bytesTotal}
}

// Advance adds to the current stage's done counters. Safe for concurrent
// use by multiple hashing workers.
func (r *Reporter) Advance(items, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.event.ItemsDone += items
	r.event.BytesDone += bytes
}

// Snapshot returns the current stage's Event.
func (r *Reporter) Snapshot() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.event
}

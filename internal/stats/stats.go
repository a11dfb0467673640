// Package stats computes RunStatistics: per-mode group
// counts, duplicate-file counts, and reclaimable-space totals, recomputed
// once after every mode finishes.
package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/reference"
)

// RunStatistics is the per-run statistics entity: one instance per
// run, written once.
type RunStatistics struct {
	Mode             grouper.Mode
	Groups           int
	DuplicateFiles   int
	ReclaimableBytes int64
	ReferenceGroups  int
	ComputedAt       time.Time
}

// String renders RunStatistics as one
// line, byte counts via humanize.IBytes.
func (s RunStatistics) String() string {
	if s.ReferenceGroups > 0 {
		return fmt.Sprintf("%s mode: %d groups (%d reference), %d duplicate files, %s reclaimable",
			s.Mode, s.Groups, s.ReferenceGroups, s.DuplicateFiles, humanize.IBytes(uint64(s.ReclaimableBytes)))
	}
	return fmt.Sprintf("%s mode: %d groups, %d duplicate files, %s reclaimable",
		s.Mode, s.Groups, s.DuplicateFiles, humanize.IBytes(uint64(s.ReclaimableBytes)))
}

// Compute recomputes group counts, duplicate-file
// counts, and reclaimable-space bytes from a finished mode's output.
// The two reclaimable-bytes formulas — (members-1)*size for ordinary groups,
// members*size for reference groups — are applied per group and summed,
// a single helper shared by every caller to avoid computing the same
// totals twice.
func Compute(mode grouper.Mode, computedAt time.Time, ordinary []grouper.Group, referenced []reference.Group) RunStatistics {
	st := RunStatistics{Mode: mode, ComputedAt: computedAt}

	for _, g := range ordinary {
		st.Groups++
		st.DuplicateFiles += g.Members.Len() - 1
		st.ReclaimableBytes += g.ReclaimableBytes()
	}

	for _, rg := range referenced {
		st.Groups++
		st.ReferenceGroups++
		st.DuplicateFiles += len(rg.Duplicates)
		st.ReclaimableBytes += rg.ReclaimableBytes()
	}

	return st
}

// Package results turns a finished grouper run into an exportable report
//:
// a flattened, size-bounded view of the groups a run produced, with text
// and JSON writers so the same Report backs the CLI's stdout output, the
// persisted store, and the read-only HTTP API.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/reference"
	"github.com/dupefind/dupefind/internal/stats"
)

// DefaultMemberPreview bounds how many member paths a GroupSummary carries
// inline, so a single pathological group (tens of thousands of identical
// empty files is the classic case) cannot blow up a text or JSON report.
const DefaultMemberPreview = 50

// GroupSummary is one row of a Report: a single Group or ReferenceGroup
// flattened into a display-agnostic shape.
type GroupSummary struct {
	Key              string   `json:"key"`
	Reference        string   `json:"reference,omitempty"`
	Members          []string `json:"members"`
	TotalMembers     int      `json:"total_members"`
	TruncatedMembers bool     `json:"truncated_members"`
	Size             int64    `json:"size"`
	ReclaimableBytes int64    `json:"reclaimable_bytes"`
}

// Report is the exportable result of one grouper run.
type Report struct {
	Mode        grouper.Mode           `json:"mode"`
	Algorithm   fingerprint.Algorithm  `json:"algorithm,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
	Stats       stats.RunStatistics    `json:"stats"`
	Groups      []GroupSummary         `json:"groups"`
}

// Build assembles a Report from a finished run's ordinary groups and
// reference-partitioned groups, previewing at most maxMembers paths per
// group. maxMembers <= 0 uses DefaultMemberPreview.
func Build(mode grouper.Mode, algo fingerprint.Algorithm, generatedAt time.Time, st stats.RunStatistics, ordinary []grouper.Group, referenced []reference.Group, maxMembers int) Report {
	if maxMembers <= 0 {
		maxMembers = DefaultMemberPreview
	}

	r := Report{
		Mode:        mode,
		Algorithm:   algo,
		GeneratedAt: generatedAt,
		Stats:       st,
		Groups:      make([]GroupSummary, 0, len(ordinary)+len(referenced)),
	}

	for _, g := range ordinary {
		all := g.Members.Items()
		paths := make([]string, 0, min(len(all), maxMembers))
		for _, e := range all {
			if len(paths) >= maxMembers {
				break
			}
			paths = append(paths, e.Path)
		}
		r.Groups = append(r.Groups, GroupSummary{
			Key:              g.Key.String(),
			Members:          paths,
			TotalMembers:     len(all),
			TruncatedMembers: len(all) > len(paths),
			Size:             g.Size(),
			ReclaimableBytes: g.ReclaimableBytes(),
		})
	}

	for _, rg := range referenced {
		paths := make([]string, 0, min(len(rg.Duplicates), maxMembers))
		for _, e := range rg.Duplicates {
			if len(paths) >= maxMembers {
				break
			}
			paths = append(paths, e.Path)
		}
		r.Groups = append(r.Groups, GroupSummary{
			Key:              rg.Key.String(),
			Reference:        rg.Reference.Path,
			Members:          paths,
			TotalMembers:     len(rg.Duplicates),
			TruncatedMembers: len(rg.Duplicates) > len(paths),
			Size:             rg.Key.Size,
			ReclaimableBytes: rg.ReclaimableBytes(),
		})
	}

	return r
}

// WriteText renders the report as the stats summary, then for each group a
// header line followed by one line per previewed member path (and a
// "... N more" line when the preview is truncated), byte counts via
// humanize.IBytes.
func (r Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintln(w, r.Stats.String()); err != nil {
		return err
	}
	for _, g := range r.Groups {
		ref := ""
		if g.Reference != "" {
			ref = fmt.Sprintf(" ref=%s", g.Reference)
		}
		if _, err := fmt.Fprintf(w, "  %s%s  %d files  %s reclaimable\n",
			g.Key, ref, g.TotalMembers, humanize.IBytes(uint64(g.ReclaimableBytes))); err != nil {
			return err
		}
		for _, p := range g.Members {
			if _, err := fmt.Fprintf(w, "    %s\n", p); err != nil {
				return err
			}
		}
		if g.TruncatedMembers {
			if _, err := fmt.Fprintf(w, "    ... %d more\n", g.TotalMembers-len(g.Members)); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteJSON renders the report via encoding/json. The stdlib encoder is
// used deliberately here rather than a third-party serializer — see
// DESIGN.md for why a flat, one-shot export of an already in-memory struct
// doesn't warrant pulling in another dependency.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Rows returns the flattened group rows, the shape internal/store persists
// and internal/api serves.
func (r Report) Rows() []GroupSummary {
	return r.Groups
}

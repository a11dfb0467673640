//go:build unix && !e2e

package grouper

import (
	"context"
	"strings"
	"testing"

	"github.com/dupefind/dupefind/internal/fingerprint"
	"github.com/dupefind/dupefind/internal/hardlink"
	"github.com/dupefind/dupefind/internal/scanner"
	"github.com/dupefind/dupefind/internal/testfs"
)

// TestEndToEndScanHardlinkGroupPipeline drives a real directory tree through
// scanner.New(...).Run, hardlink.Filter, and the hash-mode Engine together,
// the same sequence cmd/dupefind's pipeline runs, then asserts the tree
// itself was left untouched — none of these stages write anything.
func TestEndToEndScanHardlinkGroupPipeline(t *testing.T) {
	given := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"dup/a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'D', Size: "64"}}},
					{Path: []string{"dup/b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'D', Size: "64"}}},
					{Path: []string{"links/orig.txt", "links/copy.txt"}, Chunks: []testfs.Chunk{{Pattern: 'L', Size: "64"}}},
					{Path: []string{"unique.txt"}, Chunks: []testfs.Chunk{{Pattern: 'U', Size: "64"}}},
				},
			},
		},
	}

	h := testfs.New(t, given)

	files, err := scanner.New([]string{h.Root()}, 0, nil, 2, false, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("expected 5 scanned files, got %d", len(files))
	}

	var linkFiles []*scanner.FileDescriptor
	for _, f := range files {
		if strings.Contains(f.Path, "/links/") {
			linkFiles = append(linkFiles, f)
		}
	}
	if len(linkFiles) != 2 {
		t.Fatalf("expected 2 scanned files under links/, got %d", len(linkFiles))
	}
	if collapsed := hardlink.Filter(linkFiles, false); len(collapsed) != 1 {
		t.Errorf("expected hardlink.Filter to collapse the linked pair to 1 representative, got %d", len(collapsed))
	}

	groups, err := New(Config{
		Mode:                ModeHash,
		Algorithm:           fingerprint.FastStreaming64,
		Workers:             2,
		ApplyHardLinkFilter: true,
	}).Run(context.Background(), files)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group (the hardlinked pair filtered out), got %d: %+v", len(groups), groups)
	}
	got := paths(groups[0])
	if len(got) != 2 || !strings.HasSuffix(got[0], "dup/a.txt") || !strings.HasSuffix(got[1], "dup/b.txt") {
		t.Errorf("expected the dup/a.txt,dup/b.txt group, got %v", got)
	}

	h.Assert(given)
}

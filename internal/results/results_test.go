package results

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/reference"
	"github.com/dupefind/dupefind/internal/scanner"
	"github.com/dupefind/dupefind/internal/stats"
)

func entry(path string, size int64) *grouper.Entry {
	return &grouper.Entry{FileDescriptor: &scanner.FileDescriptor{Path: path, Size: size}}
}

func TestBuildTruncatesMemberPreview(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10}, []*grouper.Entry{
		entry("/a", 10), entry("/b", 10), entry("/c", 10),
	})

	st := stats.Compute(grouper.ModeSize, time.Now(), []grouper.Group{g}, nil)
	r := Build(grouper.ModeSize, 0, time.Now(), st, []grouper.Group{g}, nil, 2)

	if len(r.Groups) != 1 {
		t.Fatalf("expected 1 group summary, got %d", len(r.Groups))
	}
	gs := r.Groups[0]
	if len(gs.Members) != 2 || !gs.TruncatedMembers || gs.TotalMembers != 3 {
		t.Fatalf("expected truncated preview of 2/3, got %+v", gs)
	}
}

func TestBuildReferenceGroupCarriesReference(t *testing.T) {
	rg := reference.Group{
		Key:        grouper.Key{Kind: grouper.SizeHashKey, Size: 1},
		Reference:  entry("/ref/a", 1),
		Duplicates: []*grouper.Entry{entry("/work/b", 1), entry("/work/c", 1)},
	}
	st := stats.Compute(grouper.ModeHash, time.Now(), nil, []reference.Group{rg})
	r := Build(grouper.ModeHash, 0, time.Now(), st, nil, []reference.Group{rg}, 0)

	if len(r.Groups) != 1 || r.Groups[0].Reference != "/ref/a" {
		t.Fatalf("expected reference carried through, got %+v", r.Groups)
	}
	if r.Groups[0].ReclaimableBytes != 2 {
		t.Errorf("expected 2 reclaimable bytes, got %d", r.Groups[0].ReclaimableBytes)
	}
}

func TestWriteTextContainsStatsAndGroups(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10}, []*grouper.Entry{
		entry("/a", 10), entry("/b", 10),
	})
	st := stats.Compute(grouper.ModeSize, time.Now(), []grouper.Group{g}, nil)
	r := Build(grouper.ModeSize, 0, time.Now(), st, []grouper.Group{g}, nil, 0)

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "size mode") || !strings.Contains(out, "/a") || !strings.Contains(out, "/b") {
		t.Errorf("text report missing expected content: %s", out)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10}, []*grouper.Entry{
		entry("/a", 10), entry("/b", 10),
	})
	st := stats.Compute(grouper.ModeSize, time.Now(), []grouper.Group{g}, nil)
	r := Build(grouper.ModeSize, 0, time.Now(), st, []grouper.Group{g}, nil, 0)

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Groups) != 1 || decoded.Groups[0].TotalMembers != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}

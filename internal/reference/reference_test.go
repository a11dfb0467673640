package reference

import (
	"testing"

	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/scanner"
)

func entry(path string, size int64) *grouper.Entry {
	return &grouper.Entry{FileDescriptor: &scanner.FileDescriptor{Path: path, Size: size}}
}

func TestPartitionNoReferenceDirsPassesThrough(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10},
		[]*grouper.Entry{entry("/a/x", 10), entry("/b/x", 10)})

	refGroups, ordinary := Partition([]grouper.Group{g}, nil)
	if len(refGroups) != 0 || len(ordinary) != 1 {
		t.Fatalf("expected pass-through, got ref=%d ordinary=%d", len(refGroups), len(ordinary))
	}
}

func TestPartitionMixedGroupBecomesReferenceGroup(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10},
		[]*grouper.Entry{entry("/ref/x", 10), entry("/other/x", 10)})

	refGroups, ordinary := Partition([]grouper.Group{g}, []string{"/ref"})
	if len(refGroups) != 1 || len(ordinary) != 0 {
		t.Fatalf("expected one reference group, got ref=%d ordinary=%d", len(refGroups), len(ordinary))
	}
	if refGroups[0].Reference.Path != "/ref/x" {
		t.Errorf("reference = %q, want /ref/x", refGroups[0].Reference.Path)
	}
	if len(refGroups[0].Duplicates) != 1 || refGroups[0].Duplicates[0].Path != "/other/x" {
		t.Errorf("unexpected duplicates: %+v", refGroups[0].Duplicates)
	}
}

func TestPartitionEntirelyInsideReferenceIsDiscarded(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10},
		[]*grouper.Entry{entry("/ref/a", 10), entry("/ref/b", 10)})

	refGroups, ordinary := Partition([]grouper.Group{g}, []string{"/ref"})
	if len(refGroups) != 0 || len(ordinary) != 0 {
		t.Fatalf("expected group to be discarded entirely, got ref=%d ordinary=%d", len(refGroups), len(ordinary))
	}
}

func TestPartitionEntirelyOutsideReferenceStaysOrdinary(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10},
		[]*grouper.Entry{entry("/a/x", 10), entry("/b/x", 10)})

	refGroups, ordinary := Partition([]grouper.Group{g}, []string{"/ref"})
	if len(refGroups) != 0 || len(ordinary) != 1 {
		t.Fatalf("expected group to stay ordinary, got ref=%d ordinary=%d", len(refGroups), len(ordinary))
	}
}

func TestPartitionSmallestReferenceCandidateChosen(t *testing.T) {
	g := grouper.NewGroup(grouper.Key{Kind: grouper.SizeKey, Size: 10},
		[]*grouper.Entry{entry("/ref/aaa", 10), entry("/ref/zzz", 10), entry("/other/x", 10)})

	refGroups, _ := Partition([]grouper.Group{g}, []string{"/ref"})
	if len(refGroups) != 1 {
		t.Fatalf("expected one reference group, got %d", len(refGroups))
	}
	// The lexicographically smallest reference-directory path is chosen.
	if refGroups[0].Reference.Path != "/ref/aaa" {
		t.Errorf("reference = %q, want /ref/aaa", refGroups[0].Reference.Path)
	}
}

func TestReclaimableBytesReferenceFormula(t *testing.T) {
	g := Group{
		Reference:  entry("/ref/x", 100),
		Duplicates: []*grouper.Entry{entry("/a/x", 100), entry("/b/x", 100)},
	}
	if got := g.ReclaimableBytes(); got != 200 {
		t.Errorf("ReclaimableBytes() = %d, want 200 (members*size for reference mode)", got)
	}
}

// Package grouper implements the staged group engine: the
// name / (size,name) / size / hash equivalence-class pipeline that narrows
// a flat file list down to duplicate groups.
//
// The size + sibling grouping and the progressive hashing with worker-pool
// concurrency are merged into one staged engine covering all four modes,
// generalized with context.Context cancellation throughout.
package grouper

import (
	"fmt"

	"github.com/dupefind/dupefind/internal/scanner"
	"github.com/dupefind/dupefind/internal/types"
)

// KeyKind identifies which of the four equivalence relations produced a
// Group: a grouping key, one of name string, (size,name), size, or
// (size,hash).
type KeyKind int

const (
	NameKey KeyKind = iota
	SizeNameKey
	SizeKey
	SizeHashKey
)

func (k KeyKind) String() string {
	switch k {
	case NameKey:
		return "name"
	case SizeNameKey:
		return "size+name"
	case SizeKey:
		return "size"
	case SizeHashKey:
		return "hash"
	default:
		return "unknown"
	}
}

// Key is the closed sum type for a Group's grouping key. Only the fields
// relevant to Kind are populated.
type Key struct {
	Kind KeyKind
	Name string // NameKey, SizeNameKey
	Size int64  // SizeNameKey, SizeKey, SizeHashKey
	Hash string // SizeHashKey
}

// String renders a Key deterministically, both for debugging and as the
// sort key used to give final group order a stable, platform-independent
// sequence.
func (k Key) String() string {
	switch k.Kind {
	case NameKey:
		return fmt.Sprintf("name:%s", k.Name)
	case SizeNameKey:
		return fmt.Sprintf("size+name:%020d:%s", k.Size, k.Name)
	case SizeKey:
		return fmt.Sprintf("size:%020d", k.Size)
	case SizeHashKey:
		return fmt.Sprintf("hash:%020d:%s", k.Size, k.Hash)
	default:
		return "invalid"
	}
}

// Entry is a DuplicateEntry: a FileDescriptor plus the hash
// computed for it so far, empty until a hash stage populates it.
type Entry struct {
	*scanner.FileDescriptor
	Hash string
}

// Group is a grouping key plus an ordered, deterministic list of members.
// The minimum-size-2 invariant is enforced by
// every constructor in this package — NewGroup panics rather than silently
// materializing a singleton, since a singleton group reaching a caller is a
// programming error in this package, not a runtime condition.
type Group struct {
	Key     Key
	Members types.Sorted[*Entry, string]
}

func entryPath(e *Entry) string { return e.Path }

// NewGroup builds a Group from an unordered slice of entries, sorting them
// deterministically by path (types.Sorted). Panics if fewer than two
// entries are given — see the Group doc comment.
func NewGroup(key Key, entries []*Entry) Group {
	if len(entries) < 2 {
		panic(fmt.Sprintf("grouper: refusing to materialize singleton group for key %s", key))
	}
	return Group{Key: key, Members: types.NewSorted(entries, entryPath)}
}

// Size returns the common size of every member for size-bearing keys (all
// kinds except NameKey, where members may differ in size).
func (g Group) Size() int64 {
	if g.Key.Kind == NameKey {
		return g.Members.First().Size
	}
	return g.Key.Size
}

// ReclaimableBytes computes, for a non-reference
// group: (members-1) * size. Mixed-size name-mode groups use each member's
// own size rather than a shared one.
func (g Group) ReclaimableBytes() int64 {
	if g.Key.Kind != NameKey {
		return g.Key.Size * int64(g.Members.Len()-1)
	}
	var total int64
	for _, e := range g.Members.Items()[1:] {
		total += e.Size
	}
	return total
}

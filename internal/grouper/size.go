package grouper

import (
	"github.com/dupefind/dupefind/internal/hardlink"
	"github.com/dupefind/dupefind/internal/scanner"
)

// groupBySize implements size mode: group by size, apply
// the hard-link filter if enabled, drop singletons (both before and after
// filtering, since collapsing hardlinks can turn a pair into a singleton).
func groupBySize(files []*scanner.FileDescriptor, applyHardLinkFilter, trustDeviceBoundaries bool) []Group {
	bySize := make(map[int64][]*scanner.FileDescriptor)
	for _, f := range files {
		bySize[f.Size] = append(bySize[f.Size], f)
	}

	var groups []Group
	for size, fds := range bySize {
		if len(fds) < 2 {
			continue
		}
		if applyHardLinkFilter {
			fds = hardlink.Filter(fds, trustDeviceBoundaries)
			if len(fds) < 2 {
				continue
			}
		}
		entries := make([]*Entry, len(fds))
		for i, fd := range fds {
			entries[i] = &Entry{FileDescriptor: fd}
		}
		groups = append(groups, NewGroup(Key{Kind: SizeKey, Size: size}, entries))
	}

	sortGroups(groups)
	return groups
}

// sizeGroupsToEntries flattens the survivors of groupBySize back into
// per-size entry slices, the shape hash mode's stage A consumes: the
// post-size-filter groups as (size -> [entries]).
func sizeGroupsToEntries(groups []Group) map[int64][]*Entry {
	out := make(map[int64][]*Entry, len(groups))
	for _, g := range groups {
		out[g.Key.Size] = g.Members.Items()
	}
	return out
}

package grouper

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dupefind/dupefind/internal/scanner"
)

// groupByName implements name mode: group by the final
// path component, case-folded if requested. Reads no file contents.
func groupByName(files []*scanner.FileDescriptor, caseFold bool) ([]Group, error) {
	buckets := make(map[string][]*Entry)

	for _, f := range files {
		name := filepath.Base(f.Path)
		if name == "." || name == string(filepath.Separator) || name == "" {
			return nil, fmt.Errorf("grouper: empty filename derived from %q (traversal contract violation)", f.Path)
		}
		key := name
		if caseFold {
			key = strings.ToLower(name)
		}
		buckets[key] = append(buckets[key], &Entry{FileDescriptor: f})
	}

	var groups []Group
	for name, entries := range buckets {
		if len(entries) < 2 {
			continue
		}
		groups = append(groups, NewGroup(Key{Kind: NameKey, Name: name}, entries))
	}

	sortGroups(groups)
	return groups, nil
}

// groupBySizeName implements (size,name) mode.
func groupBySizeName(files []*scanner.FileDescriptor, caseFold bool) ([]Group, error) {
	type sizeName struct {
		size int64
		name string
	}
	buckets := make(map[sizeName][]*Entry)

	for _, f := range files {
		name := filepath.Base(f.Path)
		if name == "." || name == string(filepath.Separator) || name == "" {
			return nil, fmt.Errorf("grouper: empty filename derived from %q (traversal contract violation)", f.Path)
		}
		if caseFold {
			name = strings.ToLower(name)
		}
		key := sizeName{size: f.Size, name: name}
		buckets[key] = append(buckets[key], &Entry{FileDescriptor: f})
	}

	var groups []Group
	for key, entries := range buckets {
		if len(entries) < 2 {
			continue
		}
		groups = append(groups, NewGroup(Key{Kind: SizeNameKey, Size: key.size, Name: key.name}, entries))
	}

	sortGroups(groups)
	return groups, nil
}

// sortGroups gives the final group list a stable, deterministic order
// independent of map iteration order.
func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key.String() < groups[j].Key.String()
	})
}

// Package hardlink implements the hard-link filter: given a
// list of files known to share a size, it collapses entries that refer to
// the same underlying storage object down to one representative.
//
// Two paths pointing at the same inode are byte-identical by construction,
// but removing them is not the user's intent — the engine reports only
// distinct storage objects, walking the input in order and keeping the
// first-seen path for each identity.
package hardlink

import "github.com/dupefind/dupefind/internal/scanner"

// identity uniquely identifies a file by device and inode. A file whose
// identity could not be determined at scan time (both fields zero — never
// produced by scanner on POSIX, but possible from other traversal
// collaborators) is always kept, the conservative choice.
type identity struct {
	dev, ino uint64
}

func (id identity) known() bool { return id.dev != 0 || id.ino != 0 }

// Filter walks files in input order and returns at most one representative
// per underlying storage object. When trustDeviceBoundaries is false (the
// default, safe for NFS where the same file can appear under different
// device IDs across mount points), identity is the inode number alone;
// when true, identity is (device, inode), which assumes each device has an
// independent inode namespace.
func Filter(files []*scanner.FileDescriptor, trustDeviceBoundaries bool) []*scanner.FileDescriptor {
	seen := make(map[identity]struct{}, len(files))
	result := make([]*scanner.FileDescriptor, 0, len(files))

	for _, f := range files {
		id := identity{ino: f.Ino}
		if trustDeviceBoundaries {
			id.dev = f.Dev
		}

		if id.known() {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}

		result = append(result, f)
	}

	return result
}

package dentrylock

// LockType mirrors the lower layer's entrylk lock types.
type LockType int

const (
	// RDLCK is taken for read-only operations (lookup).
	RDLCK LockType = iota
	// WRLCK is taken for name-mutating operations.
	WRLCK
	// UNLOCK releases a previously acquired entry-lock.
	UNLOCK
)

func (t LockType) String() string {
	switch t {
	case RDLCK:
		return "RDLCK"
	case WRLCK:
		return "WRLCK"
	case UNLOCK:
		return "UNLOCK"
	default:
		return "UNKNOWN"
	}
}

// EntryKey identifies one entry-lock: a directory (ParentGfid) and,
// optionally, a specific child name within it. A nil Basename locks the
// directory itself; a non-nil Basename locks one name inside it.
type EntryKey struct {
	ParentGfid string
	Basename   *string
}

// NamedKey builds an EntryKey for a specific child name.
func NamedKey(parentGfid, basename string) EntryKey {
	return EntryKey{ParentGfid: parentGfid, Basename: &basename}
}

// DirKey builds an EntryKey for the directory itself, with no child name.
func DirKey(parentGfid string) EntryKey {
	return EntryKey{ParentGfid: parentGfid}
}

// less reports whether a must be acquired before b under the fixed total
// order that prevents deadlock across multi-name operations: compare
// ParentGfid first, then None < Some(name), then lexicographic among
// Some values.
func less(a, b EntryKey) bool {
	if a.ParentGfid != b.ParentGfid {
		return a.ParentGfid < b.ParentGfid
	}
	switch {
	case a.Basename == nil && b.Basename == nil:
		return false
	case a.Basename == nil:
		return true
	case b.Basename == nil:
		return false
	default:
		return *a.Basename < *b.Basename
	}
}

// sortKeys returns keys in acquisition order. It is a small insertion
// sort since callers never pass more than two keys (link, rename).
func sortKeys(keys []EntryKey) []EntryKey {
	sorted := make([]EntryKey, len(keys))
	copy(sorted, keys)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && less(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}

// Package localentrylock provides a standalone in-process
// dentrylock.EntryLocker, for running iocore's dentry serializer
// without an underlying distributed lock manager (e.g. a single-brick
// deployment where no translator below this one already serializes
// entry locks).
package localentrylock

import (
	"context"
	"fmt"
	"sync"

	"github.com/glustercore/iocore/pkg/dentrylock"
)

// Locker implements dentrylock.EntryLocker with one real *sync.Mutex
// per (parentGfid, basename) key, created lazily and kept for the life
// of the process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs an empty Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*sync.Mutex),
	}
}

func keyString(parentGfid string, basename *string) string {
	if basename == nil {
		return parentGfid
	}
	return parentGfid + "/" + *basename
}

func (l *Locker) lockFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Entrylk acquires or releases the mutex for (parentGfid, basename).
// RDLCK and WRLCK both take the same exclusive mutex: this module has
// no reader/writer distinction to offer without a real translator below
// it, so read locks are conservatively serialized too.
func (l *Locker) Entrylk(ctx context.Context, parentGfid string, basename *string, lockType dentrylock.LockType) error {
	key := keyString(parentGfid, basename)

	switch lockType {
	case dentrylock.RDLCK, dentrylock.WRLCK:
		l.lockFor(key).Lock()
		return nil
	case dentrylock.UNLOCK:
		l.lockFor(key).Unlock()
		return nil
	default:
		return fmt.Errorf("localentrylock: unknown lock type %v", lockType)
	}
}

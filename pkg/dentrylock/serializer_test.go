package dentrylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocker is an in-memory EntryLocker: one real mutex per (parentGfid,
// basename) key, so a test deadlocks for real if the serializer's lock
// ordering is wrong, rather than merely asserting call order.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	held  map[string]bool

	failKey string // basename that fails to lock, for partial-failure tests
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{
		locks: make(map[string]*sync.Mutex),
		held:  make(map[string]bool),
	}
}

func keyString(parentGfid string, basename *string) string {
	if basename == nil {
		return parentGfid + "/<dir>"
	}
	return parentGfid + "/" + *basename
}

func (f *fakeLocker) mutexFor(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.locks[key]
	if !ok {
		m = &sync.Mutex{}
		f.locks[key] = m
	}
	return m
}

func (f *fakeLocker) Entrylk(ctx context.Context, parentGfid string, basename *string, lockType LockType) error {
	key := keyString(parentGfid, basename)

	if lockType == UNLOCK {
		f.mutexFor(key).Unlock()
		f.mu.Lock()
		f.held[key] = false
		f.mu.Unlock()
		return nil
	}

	if basename != nil && *basename == f.failKey {
		return errors.New("entrylk refused")
	}

	f.mutexFor(key).Lock()
	f.mu.Lock()
	f.held[key] = true
	f.mu.Unlock()
	return nil
}

func noopOp(ctx context.Context) (any, error) { return "ok", nil }

func TestMkdir_LocksAndUnlocks(t *testing.T) {
	t.Parallel()

	locker := newFakeLocker()
	s := New(locker, nil)

	result, err := s.Mkdir(context.Background(), "gfid-parent", "newdir", noopOp)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, uint64(0), s.ActiveLocks(), "lock must be released once op completes")
}

func TestLookup_UsesReadLock(t *testing.T) {
	t.Parallel()

	var observed LockType
	recorder := &recordingLocker{fakeLocker: newFakeLocker()}
	s := New(recorder, nil)

	_, err := s.Lookup(context.Background(), "gfid-parent", "name", noopOp)
	require.NoError(t, err)
	observed = recorder.lastLockType
	assert.Equal(t, RDLCK, observed)
}

type recordingLocker struct {
	*fakeLocker
	lastLockType LockType
}

func (r *recordingLocker) Entrylk(ctx context.Context, parentGfid string, basename *string, lockType LockType) error {
	if lockType != UNLOCK {
		r.lastLockType = lockType
	}
	return r.fakeLocker.Entrylk(ctx, parentGfid, basename, lockType)
}

func TestRename_AcquiresBothLocksInSortedOrder(t *testing.T) {
	t.Parallel()

	var order []string
	var mu sync.Mutex
	locker := &orderTrackingLocker{fakeLocker: newFakeLocker(), record: func(k string) {
		mu.Lock()
		order = append(order, k)
		mu.Unlock()
	}}
	s := New(locker, nil)

	_, err := s.Rename(context.Background(), "gfid-z", "alpha", "gfid-a", "beta", noopOp)
	require.NoError(t, err)

	// "gfid-a/beta" sorts before "gfid-z/alpha" (parent gfid compared first).
	require.Len(t, order, 2)
	assert.Equal(t, "gfid-a/beta", order[0])
	assert.Equal(t, "gfid-z/alpha", order[1])
}

type orderTrackingLocker struct {
	*fakeLocker
	record func(string)
}

func (o *orderTrackingLocker) Entrylk(ctx context.Context, parentGfid string, basename *string, lockType LockType) error {
	if lockType != UNLOCK {
		o.record(keyString(parentGfid, basename))
	}
	return o.fakeLocker.Entrylk(ctx, parentGfid, basename, lockType)
}

func TestRename_DeadlockFreeUnderOppositeDirectionExchange(t *testing.T) {
	t.Parallel()

	locker := newFakeLocker()
	s := New(locker, nil)

	done := make(chan struct{}, 2)

	go func() {
		_, _ = s.Rename(context.Background(), "gfid-1", "a", "gfid-2", "b", noopOp)
		done <- struct{}{}
	}()
	go func() {
		_, _ = s.Rename(context.Background(), "gfid-2", "b", "gfid-1", "a", noopOp)
		done <- struct{}{}
	}()

	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-timeout:
			t.Fatal("deadlock: two renames exchanging the same parents in opposite directions did not both complete")
		}
	}
}

func TestLink_AcquiresExactlyOneLock(t *testing.T) {
	t.Parallel()

	var count int
	var mu sync.Mutex
	locker := &orderTrackingLocker{fakeLocker: newFakeLocker(), record: func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}}
	s := New(locker, nil)

	_, err := s.Link(context.Background(), "gfid-parent", "newname", noopOp)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "link only locks the new name, not the existing source name")
}

func TestRename_PartialFailureReleasesAlreadyAcquiredLocks(t *testing.T) {
	t.Parallel()

	locker := newFakeLocker()
	locker.failKey = "alpha" // the second lock (by sort order) fails

	s := New(locker, nil)

	_, err := s.Rename(context.Background(), "gfid-z", "alpha", "gfid-a", "beta", noopOp)
	require.Error(t, err)
	assert.True(t, IsLockFailedError(err))
	assert.Equal(t, uint64(0), s.ActiveLocks(), "the first acquired lock must be released on partial failure")
}

func TestRelease_ToleratesPerLockFailureWithoutPropagating(t *testing.T) {
	t.Parallel()

	locker := newFakeLocker()
	var reported []EntryKey

	failingUnlockLocker := &unlockFailingLocker{fakeLocker: locker}
	s := New(failingUnlockLocker, func(key EntryKey, err error) {
		reported = append(reported, key)
	})

	result, err := s.Mkdir(context.Background(), "gfid-parent", "newdir", noopOp)
	require.NoError(t, err, "release failures must not propagate to the caller")
	assert.Equal(t, "ok", result)
	require.Len(t, reported, 1)
	assert.Equal(t, "newdir", *reported[0].Basename)
}

type unlockFailingLocker struct {
	*fakeLocker
}

func (u *unlockFailingLocker) Entrylk(ctx context.Context, parentGfid string, basename *string, lockType LockType) error {
	if lockType == UNLOCK {
		return errors.New("unlock refused")
	}
	return u.fakeLocker.Entrylk(ctx, parentGfid, basename, lockType)
}

func TestOrdering_NoneSortsBeforeSomeName(t *testing.T) {
	t.Parallel()

	name := "name"
	assert.True(t, less(DirKey("gfid-1"), NamedKey("gfid-1", name)))
	assert.False(t, less(NamedKey("gfid-1", name), DirKey("gfid-1")))
}

func TestOrdering_SameParentSortsLexicographically(t *testing.T) {
	t.Parallel()

	assert.True(t, less(NamedKey("gfid-1", "a"), NamedKey("gfid-1", "b")))
	assert.False(t, less(NamedKey("gfid-1", "b"), NamedKey("gfid-1", "a")))
}

func TestOrdering_ComparesParentGfidFirst(t *testing.T) {
	t.Parallel()

	assert.True(t, less(NamedKey("gfid-a", "z"), NamedKey("gfid-b", "a")))
}

package iothreads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityClass_FIFOWithinOneClient(t *testing.T) {
	t.Parallel()

	cls := newPriorityClass(2)
	ctx := newPerClientCtx("client-1")

	s1 := &CallStub{ID: "1"}
	s2 := &CallStub{ID: "2"}
	cls.enqueue(ctx, s1)
	cls.enqueue(ctx, s2)

	got1, ok := cls.dequeue()
	require.True(t, ok)
	assert.Equal(t, "1", got1.ID)

	got2, ok := cls.dequeue()
	require.True(t, ok)
	assert.Equal(t, "2", got2.ID)

	_, ok = cls.dequeue()
	assert.False(t, ok, "queue must be empty after both stubs are drained")
}

func TestPriorityClass_RoundRobinAcrossClients(t *testing.T) {
	t.Parallel()

	cls := newPriorityClass(2)
	a := newPerClientCtx("client-a")
	b := newPerClientCtx("client-b")

	cls.enqueue(a, &CallStub{ID: "a1"})
	cls.enqueue(a, &CallStub{ID: "a2"})
	cls.enqueue(b, &CallStub{ID: "b1"})

	// a is head (enqueued first); after dequeuing a1, a still has a2 so
	// it rotates to the tail, giving b1 a turn before a2.
	got, ok := cls.dequeue()
	require.True(t, ok)
	assert.Equal(t, "a1", got.ID)

	got, ok = cls.dequeue()
	require.True(t, ok)
	assert.Equal(t, "b1", got.ID, "round-robin must give client b a turn before client a's second stub")

	got, ok = cls.dequeue()
	require.True(t, ok)
	assert.Equal(t, "a2", got.ID)
}

func TestPriorityClass_UnlinksWhenDrained(t *testing.T) {
	t.Parallel()

	cls := newPriorityClass(2)
	ctx := newPerClientCtx("client-1")
	cls.enqueue(ctx, &CallStub{ID: "only"})

	_, ok := cls.dequeue()
	require.True(t, ok)

	assert.Empty(t, cls.clients, "context with an empty queue must be unlinked from the ring")
	assert.False(t, ctx.linked)
}

func TestPriorityClass_ReenqueueAfterDrainRelinksOnce(t *testing.T) {
	t.Parallel()

	cls := newPriorityClass(2)
	ctx := newPerClientCtx("client-1")

	cls.enqueue(ctx, &CallStub{ID: "1"})
	_, _ = cls.dequeue()

	cls.enqueue(ctx, &CallStub{ID: "2"})
	assert.Len(t, cls.clients, 1)

	cls.enqueue(ctx, &CallStub{ID: "3"})
	assert.Len(t, cls.clients, 1, "a second enqueue while already linked must not double-link")
}

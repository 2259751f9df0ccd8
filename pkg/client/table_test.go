package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientTable(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)
	assert.Equal(t, uint32(defaultInitialCapacity), tbl.MaxClients())
	assert.True(t, tbl.freeListAcyclic())
}

func TestAllocSlot_AssignsStableIndices(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)

	c1 := newClient("client-1", ClientAuthData{}, "xl", SubdirMount{}, 4)
	c2 := newClient("client-2", ClientAuthData{}, "xl", SubdirMount{}, 4)

	idx1, err := tbl.allocSlot(c1)
	require.NoError(t, err)
	idx2, err := tbl.allocSlot(c2)
	require.NoError(t, err)

	assert.NotEqual(t, idx1, idx2)
	assert.Equal(t, idx1, c1.TblIndex())
	assert.Equal(t, idx2, c2.TblIndex())
	assert.Same(t, c1, tbl.at(idx1))
	assert.Same(t, c2, tbl.at(idx2))
}

func TestGrowth_PreservesExistingIndices(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)
	oldCap := tbl.MaxClients()

	clients := make([]*Client, 0, oldCap)
	indices := make([]int32, 0, oldCap)
	for i := 0; i < int(oldCap); i++ {
		c := newClient("client", ClientAuthData{}, "xl", SubdirMount{}, 1)
		idx, err := tbl.allocSlot(c)
		require.NoError(t, err)
		clients = append(clients, c)
		indices = append(indices, idx)
	}

	// Table is now exhausted; the next allocation must trigger growth.
	overflow := newClient("overflow", ClientAuthData{}, "xl", SubdirMount{}, 1)
	_, err := tbl.allocSlot(overflow)
	require.NoError(t, err)

	assert.Greater(t, tbl.MaxClients(), oldCap)

	for i, c := range clients {
		assert.Same(t, c, tbl.at(indices[i]), "existing client identity must survive growth")
		assert.Equal(t, indices[i], c.TblIndex(), "existing index must be preserved across growth")
	}
}

func TestGrowth_BoundedByMaxCapacity(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(defaultInitialCapacity)
	for i := 0; i < defaultInitialCapacity; i++ {
		_, err := tbl.allocSlot(newClient("client", ClientAuthData{}, "xl", SubdirMount{}, 1))
		require.NoError(t, err)
	}

	_, err := tbl.allocSlot(newClient("overflow", ClientAuthData{}, "xl", SubdirMount{}, 1))
	require.Error(t, err)
	assert.True(t, IsOutOfMemoryError(err))
	assert.Equal(t, uint32(defaultInitialCapacity), tbl.MaxClients(), "table must be left structurally unchanged")
}

func TestFree_RelinksSlotAndPreservesAcyclicFreeList(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)
	c := newClient("client", ClientAuthData{}, "xl", SubdirMount{}, 1)
	idx, err := tbl.allocSlot(c)
	require.NoError(t, err)

	tbl.mu.Lock()
	tbl.free(idx)
	tbl.mu.Unlock()

	assert.Nil(t, tbl.at(idx))
	assert.True(t, tbl.freeListAcyclic())
	assert.Equal(t, idx, tbl.FirstFree(), "freed slot should be handed back out first")
}

func TestAllocSlot_ReusesFreedSlots(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)
	c1 := newClient("client-1", ClientAuthData{}, "xl", SubdirMount{}, 1)
	idx1, err := tbl.allocSlot(c1)
	require.NoError(t, err)

	tbl.mu.Lock()
	tbl.free(idx1)
	tbl.mu.Unlock()

	c2 := newClient("client-2", ClientAuthData{}, "xl", SubdirMount{}, 1)
	idx2, err := tbl.allocSlot(c2)
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2, "freed slot should be the next one allocated")
	assert.Same(t, c2, tbl.at(idx2))
}

func TestAt_OutOfRangeReturnsNil(t *testing.T) {
	t.Parallel()

	tbl := NewClientTable(0)
	assert.Nil(t, tbl.at(-1))
	assert.Nil(t, tbl.at(int32(tbl.MaxClients())+1000))
}

// Package client implements the shared client registry: a refcounted,
// deduplicated table of remote-endpoint handles bound to a translator
// graph, plus the per-translator scratch storage each graph node uses to
// stash its own private state on a Client without knowing about any other
// node's state.
package client

import (
	"strconv"
	"sync"
)

// defaultScratchSlots is the fixed scratch-array size every new Client
// gets, mirroring the source's "one xlator_t slot per graph node" layout.
// It is a constant and is not derived from the translator graph.
const defaultScratchSlots = 16

// Registry is the shared, refcounted table of Clients bound to one
// translator graph. All exported operations are safe for concurrent use.
type Registry struct {
	table *ClientTable

	mu       sync.Mutex
	byUID    map[string]int32 // dedupKey(ClientUID, Auth) -> table index, for dedup on reconnect
	scratchN int
}

// NewRegistry constructs an empty Registry. maxCapacity bounds the
// backing ClientTable's growth; 0 means unbounded.
func NewRegistry(maxCapacity uint32) *Registry {
	return &Registry{
		table:    NewClientTable(maxCapacity),
		byUID:    make(map[string]int32),
		scratchN: defaultScratchSlots,
	}
}

// Get returns the Client for (clientUID, auth), creating one bound to
// boundXL if none matches yet. A second Get for the same clientUID
// returns the existing Client with bind_count incremented rather than
// allocating a new one, provided auth also matches the existing Client's
// credential — this is the registry's dedup-on-reconnect behavior. A UID
// match with a different auth is treated as a distinct client and gets
// its own table slot, matching the source's gf_client_get requirement
// that client_uid and auth flavour/data both match before an entry is
// reused.
//
// subdir optionally anchors the Client to a subtree of the exported
// volume rather than its root; it is only applied when a new Client is
// created; an existing Client's subdir anchor is never changed in place.
func (r *Registry) Get(boundXL, clientUID string, auth ClientAuthData, subdir SubdirMount) (*Client, error) {
	if clientUID == "" {
		return nil, NewInvalidArgumentError("client UID must not be empty")
	}
	if len(auth.Data) > maxAuthDataLen {
		return nil, NewInvalidArgumentError("auth data exceeds maximum length")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := dedupKey(clientUID, auth)
	if idx, ok := r.byUID[key]; ok {
		c := r.table.at(idx)
		if c != nil {
			c.bindCount.Add(1)
			c.refcount.Add(1)
			return c, nil
		}
		// Stale mapping: the slot was freed without the map entry being
		// cleaned up. Fall through and allocate fresh.
		delete(r.byUID, key)
	}

	c := newClient(clientUID, auth, boundXL, subdir, r.scratchN)

	r.table.mu.Lock()
	idx, err := r.table.allocSlot(c)
	r.table.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.byUID[key] = idx
	return c, nil
}

// dedupKey folds (clientUID, auth) into the map key the dedup table is
// keyed by, so a reconnect with a changed credential misses and
// allocates a distinct Client instead of reusing the old one.
func dedupKey(clientUID string, auth ClientAuthData) string {
	return clientUID + "\x00" + strconv.FormatInt(int64(auth.Flavour), 10) + "\x00" + string(auth.Data)
}

// Ref increments c's refcount and returns c, matching the source's
// "return what you were given" ref idiom so callers can write
// `x.client = Ref(c)` inline. Issuing a new Ref against a client whose
// bind_count has already reached zero is rejected: a caller that already
// held a ref across the disconnect keeps it and is unaffected, but no new
// operation may be issued against a detached client.
func (r *Registry) Ref(c *Client) (*Client, error) {
	if c == nil {
		return nil, NewInvalidArgumentError("client must not be nil")
	}
	if c.BindCount() == 0 {
		return nil, NewNotConnectedError("client " + c.ClientUID + " has no active bindings")
	}
	c.refcount.Add(1)
	return c, nil
}

// Unref decrements c's refcount. When it reaches zero, c's table slot is
// relinked into the free list and its destroyers run, in that order, so a
// concurrent Get can never observe a half-destroyed Client at a reused
// index. Destruction happens exactly once even under concurrent Unref
// calls racing to zero.
func (r *Registry) Unref(c *Client) error {
	if c == nil {
		return NewInvalidArgumentError("client must not be nil")
	}

	prior := c.refcount.FetchSub(1)
	if prior != 1 {
		if prior == 0 {
			// Defensive: a caller double-released. Restore the floor so the
			// cell doesn't wrap and look alive again.
			c.refcount.Store(0)
		}
		return nil
	}

	r.mu.Lock()
	idx := c.tblIndex
	delete(r.byUID, dedupKey(c.ClientUID, c.Auth))
	r.table.mu.Lock()
	r.table.free(idx)
	r.table.mu.Unlock()
	r.mu.Unlock()

	c.destroy()
	return nil
}

// Put releases one binding of c. bind_count reaching zero marks the
// client disconnected and drops the registry's own reference via Unref;
// detached reports whether this call was the one that reached zero. A
// Put against a client whose bind_count has already reached zero is
// itself an operation issued on a disconnected client, so it is rejected
// with NotConnected rather than silently clamped.
func (r *Registry) Put(c *Client) (detached bool, err error) {
	if c == nil {
		return false, NewInvalidArgumentError("client must not be nil")
	}

	if c.BindCount() == 0 {
		return false, NewNotConnectedError("client " + c.ClientUID + " has no active bindings")
	}

	prior := c.bindCount.FetchSub(1)
	if prior != 1 {
		if prior == 0 {
			c.bindCount.Store(0)
		}
		return false, nil
	}

	if err := r.Unref(c); err != nil {
		return false, err
	}
	return true, nil
}

// CtxSet stores value in c's scratch slot owned by translatorID, reusing
// an existing slot for that identity if one is already present. Returns
// OutOfMemory if every slot is occupied by a different identity.
func (r *Registry) CtxSet(c *Client, translatorID string, value any) error {
	if c == nil {
		return NewInvalidArgumentError("client must not be nil")
	}

	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()

	firstFree := -1
	for i := range c.scratch {
		if c.scratch[i].Used && c.scratch[i].Key == translatorID {
			c.scratch[i].Value = value
			return nil
		}
		if !c.scratch[i].Used && firstFree == -1 {
			firstFree = i
		}
	}

	if firstFree == -1 {
		return NewOutOfMemoryError("client scratch storage exhausted")
	}

	c.scratch[firstFree] = scratchSlot{Used: true, Key: translatorID, Value: value}
	return nil
}

// CtxGet returns the value stored in c's scratch slot owned by
// translatorID, or NotFound if no such slot exists.
func (r *Registry) CtxGet(c *Client, translatorID string) (any, error) {
	if c == nil {
		return nil, NewInvalidArgumentError("client must not be nil")
	}

	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()

	for i := range c.scratch {
		if c.scratch[i].Used && c.scratch[i].Key == translatorID {
			return c.scratch[i].Value, nil
		}
	}
	return nil, NewNotFoundError("no scratch slot for translator " + translatorID)
}

// CtxDel clears c's scratch slot owned by translatorID, or returns
// NotFound if no such slot exists.
func (r *Registry) CtxDel(c *Client, translatorID string) error {
	if c == nil {
		return NewInvalidArgumentError("client must not be nil")
	}

	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()

	for i := range c.scratch {
		if c.scratch[i].Used && c.scratch[i].Key == translatorID {
			c.scratch[i] = scratchSlot{}
			return nil
		}
	}
	return NewNotFoundError("no scratch slot for translator " + translatorID)
}

// ClientSummary is one row of a statedump: a point-in-time snapshot of a
// live Client. Statedump holds the registry and table locks for the whole
// walk, so every allocated Client is reported; no Client is skipped.
type ClientSummary struct {
	TblIndex     int32
	ClientUID    string
	BoundXL      string
	Refcount     uint32
	BindCount    uint32
	FDCount      uint64
	ConnIndex    int32
	Disconnected bool
}

// Statedump returns a snapshot of every live Client in the registry.
// Disconnected is true for Clients whose bind_count has reached zero but
// whose refcount (held by some other subsystem, e.g. a pending fop) keeps
// them from being destroyed yet.
func (r *Registry) Statedump() []ClientSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.table.mu.Lock()
	defer r.table.mu.Unlock()

	out := make([]ClientSummary, 0, len(r.byUID))
	for idx, slot := range r.table.entries {
		if slot.state != slotAllocated {
			continue
		}
		c := slot.client
		out = append(out, ClientSummary{
			TblIndex:     int32(idx),
			ClientUID:    c.ClientUID,
			BoundXL:      c.BoundXL,
			Refcount:     c.Refcount(),
			BindCount:    c.BindCount(),
			FDCount:      c.FDCount(),
			ConnIndex:    int32(idx),
			Disconnected: c.BindCount() == 0,
		})
	}
	return out
}

package client

import (
	"bytes"
	"sync"

	ioatomic "github.com/glustercore/iocore/pkg/atomic"
)

// maxAuthDataLen bounds ClientAuthData.Data the way the source's
// gf_auth_data_t bounds the auth payload.
const maxAuthDataLen = 400

// ClientAuthData identifies the credential presented by a remote endpoint.
// Equality is defined by Flavour and byte-equal Data.
type ClientAuthData struct {
	Flavour int32
	Data    []byte
}

// SubdirMount anchors a Client to a subtree of the exported volume rather
// than its root. All three fields are optional and travel together: a
// caller that has resolved a subdir_mount path to its gfid/inode passes
// the full anchor to Registry.Get; a Client with no subdir anchor has
// SubdirMount == SubdirMount{}.
type SubdirMount struct {
	Mount string
	Gfid  string
	Inode string
}

// Equal reports whether two ClientAuthData values represent the same
// credential.
func (a ClientAuthData) Equal(other ClientAuthData) bool {
	return a.Flavour == other.Flavour && bytes.Equal(a.Data, other.Data)
}

// scratchSlot is one entry of a Client's per-translator scratch array.
// A slot is either unused (Used == false) or owned by exactly one
// translator identity. Writing nil to Value and flipping Used off in the
// same assignment keeps delete and erase the same operation, unlike the
// source's separate "zero the key" path.
type scratchSlot struct {
	Used  bool
	Key   string
	Value any
}

// Client is a live, refcounted handle describing one remote endpoint bound
// to a translator graph. See ClientTable and Registry for the
// surrounding lifecycle.
type Client struct {
	tblIndex int32

	ClientUID string
	Auth      ClientAuthData
	BoundXL   string

	SubdirMount string
	SubdirGfid  string
	SubdirInode string

	bindCount *ioatomic.Cell[uint32]
	refcount  *ioatomic.Cell[uint32]
	fdCount   *ioatomic.Cell[uint64]

	scratchMu sync.Mutex
	scratch   []scratchSlot

	// destroyers is populated in acquisition order (uid string, auth
	// buffer, lock table, fd table) and run back-to-front on destroy, so
	// destruction happens in the mirror order: fd table, lock table, auth
	// buffer, uid string.
	destroyers []func()
}

// newClient allocates a Client with scratchSlots scratch-array capacity;
// the registry passes its fixed defaultScratchSlots.
func newClient(clientUID string, auth ClientAuthData, boundXL string, subdir SubdirMount, scratchSlots int) *Client {
	c := &Client{
		ClientUID:   clientUID,
		Auth:        auth,
		BoundXL:     boundXL,
		SubdirMount: subdir.Mount,
		SubdirGfid:  subdir.Gfid,
		SubdirInode: subdir.Inode,
		bindCount:   ioatomic.New[uint32](1),
		refcount:    ioatomic.New[uint32](1),
		fdCount:     ioatomic.New[uint64](0),
		scratch:     make([]scratchSlot, scratchSlots),
	}

	// Registered in acquisition order; destroy() runs this LIFO.
	c.destroyers = append(c.destroyers,
		func() { c.ClientUID = "" },                    // uid string
		func() { c.Auth = ClientAuthData{} },            // auth buffer
		func() { /* lock table handle released by the owning translator */ },
		func() { /* fd table handle released by the owning translator */ },
	)

	return c
}

// TblIndex returns the Client's stable ClientTable slot index.
func (c *Client) TblIndex() int32 { return c.tblIndex }

// Refcount returns the current refcount snapshot.
func (c *Client) Refcount() uint32 { return c.refcount.Load() }

// BindCount returns the current bind_count snapshot.
func (c *Client) BindCount() uint32 { return c.bindCount.Load() }

// FDCount returns the current fd_count snapshot.
func (c *Client) FDCount() uint64 { return c.fdCount.Load() }

// IncFDCount/DecFDCount adjust the client's attributed open file
// descriptor count.
func (c *Client) IncFDCount() uint64 { return c.fdCount.Add(1) }
func (c *Client) DecFDCount() uint64 { return c.fdCount.Sub(1) }

// destroy runs the registered destroyers in reverse (LIFO) order. Callers
// must not be holding the owning ClientTable's lock when calling destroy.
func (c *Client) destroy() {
	for i := len(c.destroyers) - 1; i >= 0; i-- {
		c.destroyers[i]()
	}
}

/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package blob implements the card's virtual file-system overlay: a
// tree of synthesized Data Object blobs and a lazy loader that fetches
// their contents on demand.
//
// Nodes live in a flat arena and reference each other by index rather
// than by pointer: Parent, FirstChild and NextSibling are indices into
// Tree.nodes, with -1 standing in for "none". This sidesteps Go's lack
// of a borrow checker without resorting to fragile back-pointers.
package blob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
	"github.com/nydus-snapshotter/openpgp-card/internal/log"
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
	"github.com/nydus-snapshotter/openpgp-card/pkg/metrics/data"
	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
	"github.com/nydus-snapshotter/openpgp-card/pkg/tlv"
)

// noIndex marks an absent, non-owning arena reference.
const noIndex = -1

// Kind is a blob's synthesised file-system kind.
type Kind int

const (
	KindLeafFile Kind = iota
	KindDirectory
)

// RootID is the synthesised root blob's id.
const RootID uint16 = 0x3F00

// cacheState is a sticky three-state load cache: NotLoaded, Loaded
// (with bytes), or Failed (with a sticky error), rather than nullable
// fields guarded by a side flag.
type cacheState int

const (
	cacheNotLoaded cacheState = iota
	cacheLoaded
	cacheFailed
)

// Node is one blob.
type Node struct {
	ID   uint16
	Kind Kind
	Info *registry.Row // nil if discovered by TLV expansion

	state     cacheState
	data      []byte
	lastError error // sticky; valid only when state == cacheFailed

	Parent      int
	FirstChild  int
	NextSibling int

	Path []uint16 // ids from root to this node, for the synthesized file view
}

// Len reports the cached byte length, 0 if not loaded.
func (n *Node) Len() int {
	return len(n.data)
}

// Data returns the cached bytes, or nil if not loaded.
func (n *Node) Data() []byte {
	return n.data
}

// LastError returns the sticky load failure, or nil.
func (n *Node) LastError() error {
	if n.state == cacheFailed {
		return n.lastError
	}
	return nil
}

// Loaded reports whether the blob's bytes are present in the cache.
func (n *Node) Loaded() bool {
	return n.state == cacheLoaded
}

// Tree is the arena holding every live blob.
type Tree struct {
	nodes []Node
	root  int
}

// NewTree allocates a tree with just the root blob: a Directory blob
// with id 0x3F00. Caller must then call Seed to populate the registry
// children.
func NewTree() *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, Node{
		ID:          RootID,
		Kind:        KindDirectory,
		Parent:      noIndex,
		FirstChild:  noIndex,
		NextSibling: noIndex,
		Path:        []uint16{RootID},
	})
	t.root = 0
	return t
}

// Root returns the index of the root blob.
func (t *Tree) Root() int { return t.root }

// Node returns a pointer to the node at idx. Panics on an out-of-range
// index, which would indicate a driver bug (arena indices are never
// exposed to callers outside pkg/card).
func (t *Tree) Node(idx int) *Node {
	return &t.nodes[idx]
}

// Seed allocates one child blob per registry row, in table order,
// under parent. Directory-vs-LeafFile is determined by the row's
// Constructed bit.
func (t *Tree) Seed(parent int, rows []registry.Row) {
	parentPath := t.nodes[parent].Path
	for i := range rows {
		row := rows[i]
		kind := KindLeafFile
		if row.Constructed {
			kind = KindDirectory
		}
		t.appendChild(parent, Node{
			ID:          row.Tag,
			Kind:        kind,
			Info:        &rows[i],
			Parent:      parent,
			FirstChild:  noIndex,
			NextSibling: noIndex,
			Path:        append(append([]uint16{}, parentPath...), row.Tag),
		})
	}
}

// appendChild adds child to the end of parent's ordered child list.
// It does not check whether a sibling with the same id already exists;
// a TLV buffer that repeats a tag yields repeated ids, and FindChild
// then returns the first of them.
func (t *Tree) appendChild(parent int, child Node) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, child)

	p := &t.nodes[parent]
	if p.FirstChild == noIndex {
		p.FirstChild = idx
		return idx
	}
	last := p.FirstChild
	for t.nodes[last].NextSibling != noIndex {
		last = t.nodes[last].NextSibling
	}
	t.nodes[last].NextSibling = idx
	return idx
}

// SetContent installs data as idx's cached bytes: drops the prior
// buffer, copies data, and clears any sticky error.
func (t *Tree) SetContent(idx int, data []byte) {
	n := &t.nodes[idx]
	if len(data) == 0 {
		n.data = nil
	} else {
		n.data = append([]byte(nil), data...)
	}
	n.state = cacheLoaded
	n.lastError = nil
}

// setFailed marks idx's load as having failed with err. The failure is
// sticky for the rest of the session: it is never retried.
func (t *Tree) setFailed(idx int, err error) {
	n := &t.nodes[idx]
	n.data = nil
	n.state = cacheFailed
	n.lastError = err
}

// MarkFailed is the exported form of setFailed, for callers (pkg/card)
// that resolve a blob's bytes through a path other than Load/Expand —
// e.g. the PEM-style pubkey getter, which composes several lazy reads
// of its own.
func (t *Tree) MarkFailed(idx int, err error) {
	t.setFailed(idx, err)
}

// Children returns the arena indices of idx's direct children, in
// order.
func (t *Tree) Children(idx int) []int {
	var out []int
	for c := t.nodes[idx].FirstChild; c != noIndex; c = t.nodes[c].NextSibling {
		out = append(out, c)
	}
	return out
}

// FindChild linearly searches idx's ordered children for id, returning
// its index and true, or noIndex and false.
func (t *Tree) FindChild(idx int, id uint16) (int, bool) {
	for c := t.nodes[idx].FirstChild; c != noIndex; c = t.nodes[c].NextSibling {
		if t.nodes[c].ID == id {
			return c, true
		}
	}
	return noIndex, false
}

// Loader carries the per-card settings Load and Expand use: ExtendedAPDU
// selects the fetch buffer size. The bytes themselves come from the
// fetch callback passed to Load/Expand; nothing in this package calls
// Transmitter directly.
type Loader struct {
	Transmitter  apdu.Transmitter
	ExtendedAPDU bool
}

// bufferSize picks the larger of 256 bytes and, if the card advertises
// extended APDU capability, 2048 bytes.
func (l *Loader) bufferSize() int {
	if l.ExtendedAPDU {
		return 2048
	}
	return 256
}

// Load lazily fetches the node at idx: succeeds immediately if cached;
// returns the sticky error if previously failed; otherwise invokes the
// registry getter and caches the result.
func (t *Tree) Load(l *Loader, fetch func(row *registry.Row, bufLen int) ([]byte, error), idx int) error {
	n := &t.nodes[idx]

	if n.state == cacheLoaded {
		return nil
	}
	if n.state == cacheFailed {
		return n.lastError
	}
	if n.Info == nil {
		// Content was set at creation time (TLV-expansion child); it
		// never needs reloading, and state will already be cacheLoaded
		// if any bytes (even zero-length) were set. Reaching here with
		// state == cacheNotLoaded and no info means the blob was
		// created but never given content, which the tree construction
		// code never does.
		return nil
	}

	raw, err := fetch(n.Info, l.bufferSize())
	if err != nil {
		t.setFailed(idx, err)
		data.BlobLoadFailuresTotal.WithLabelValues(tagLabel(n.ID), "load").Inc()
		return err
	}
	t.SetContent(idx, raw)
	return nil
}

func tagLabel(id uint16) string {
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{
		hexDigits[(id>>12)&0xF], hexDigits[(id>>8)&0xF],
		hexDigits[(id>>4)&0xF], hexDigits[id&0xF],
	})
}

// Expand turns the Directory blob at idx's TLV-encoded bytes into
// children: idempotent if already expanded; lazy-reads the blob, then
// walks its buffer with pkg/tlv, creating one child per element with
// content set immediately. A parse failure leaves Children empty —
// expansion either completes fully or not at all.
func (t *Tree) Expand(ctx context.Context, l *Loader, fetch func(row *registry.Row, bufLen int) ([]byte, error), idx int) error {
	n := &t.nodes[idx]
	if n.FirstChild != noIndex {
		return nil
	}

	if err := t.Load(l, fetch, idx); err != nil {
		return err
	}

	elems, err := tlv.Parse(t.nodes[idx].Data())
	if err != nil {
		log.G(ctx).WithField("blob", t.nodes[idx].ID).WithError(err).Warn("TLV expansion failed")
		data.BlobLoadFailuresTotal.WithLabelValues(tagLabel(t.nodes[idx].ID), "expand").Inc()
		return errors.Wrap(errdefs.ErrObjectInvalid, err.Error())
	}

	parentPath := t.nodes[idx].Path
	for _, el := range elems {
		kind := KindLeafFile
		if el.Constructed {
			kind = KindDirectory
		}
		id := uint16(el.Tag)
		childIdx := t.appendChild(idx, Node{
			ID:          id,
			Kind:        kind,
			Parent:      idx,
			FirstChild:  noIndex,
			NextSibling: noIndex,
			Path:        append(append([]uint16{}, parentPath...), id),
		})
		t.SetContent(childIdx, el.Value)
	}
	return nil
}

// FreeAll releases the tree's contents. An arena-backed tree frees as
// a single slice drop, but we still walk depth-first, bounded at 99
// levels, to give callers (e.g. metrics) a chance to hook per-node
// teardown before the drop.
func (t *Tree) FreeAll(onFree func(idx int)) {
	if onFree == nil {
		t.nodes = nil
		return
	}
	t.walkPostOrder(t.root, 99, onFree)
	t.nodes = nil
}

func (t *Tree) walkPostOrder(idx, depthLeft int, visit func(int)) {
	if idx == noIndex {
		return
	}
	if depthLeft > 0 {
		children := t.Children(idx)
		for _, c := range children {
			t.walkPostOrder(c, depthLeft-1, visit)
		}
	}
	visit(idx)
}

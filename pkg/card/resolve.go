/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package card

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
	"github.com/nydus-snapshotter/openpgp-card/pkg/blob"
	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
)

func (c *Card) loader() *blob.Loader {
	return &blob.Loader{Transmitter: c.transmitter, ExtendedAPDU: c.extendedAPDU}
}

// loadBlob lazily reads idx. Every registry getter kind except
// GetterPubkeyEncoded is handled by pkg/blob's generic Load; the
// PEM-style getter composes several further tree lookups of its own,
// so it is resolved here instead.
func (c *Card) loadBlob(ctx context.Context, idx int) error {
	n := c.tree.Node(idx)
	if n.Loaded() {
		return nil
	}
	if err := n.LastError(); err != nil {
		return err
	}
	if n.Info != nil && n.Info.Get == registry.GetterPubkeyEncoded {
		data, err := c.resolvePubkeyEncoded(ctx, n.ID)
		if err != nil {
			c.tree.MarkFailed(idx, err)
			return err
		}
		c.tree.SetContent(idx, data)
		return nil
	}
	return c.tree.Load(c.loader(), rowFetch(c.transmitter, c.extendedAPDU), idx)
}

// expandBlob TLV-expands the Directory blob at idx.
func (c *Card) expandBlob(ctx context.Context, idx int) error {
	return c.tree.Expand(ctx, c.loader(), rowFetch(c.transmitter, c.extendedAPDU), idx)
}

// childWithLoad ensures parent is TLV-expanded, linearly searches its
// ordered children for id, and lazy-reads the match if found.
func (c *Card) childWithLoad(ctx context.Context, parent int, id uint16) (int, error) {
	if err := c.expandBlob(ctx, parent); err != nil {
		return 0, err
	}
	child, ok := c.tree.FindChild(parent, id)
	if !ok {
		return 0, errors.Wrapf(errdefs.ErrFileNotFound, "no child with id %04X", id)
	}
	// A failed lazy-read of the child is not itself a resolution
	// failure: resolution succeeds to the blob even if its own content
	// later fails to load; callers that need the bytes will see the
	// sticky error when they read.
	_ = c.loadBlob(ctx, child)
	return child, nil
}

// SelectPath resolves a sequence of 2-byte file identifiers, with a
// leading 3F00 stripped (the root is implicit). On success `current`
// becomes the resolved blob and its file view is returned.
func (c *Card) SelectPath(ctx context.Context, ids []uint16) (FileView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(ids) == 0 {
		return FileView{}, errors.Wrap(errdefs.ErrInvalidArguments, "empty path")
	}

	path := ids
	if path[0] == blob.RootID {
		path = path[1:]
	}

	idx := c.tree.Root()
	for _, id := range path {
		next, err := c.childWithLoad(ctx, idx, id)
		if err != nil {
			c.current = -1
			return FileView{}, err
		}
		idx = next
	}

	c.current = idx
	return c.fileViewLocked(idx), nil
}

// SelectApplication performs DF-name selection, delegated entirely to
// the ISO collaborator and not tracked in the local tree. aid must
// equal ApplicationAID; anything else is the host framework's concern,
// not this driver's.
func (c *Card) SelectApplication(ctx context.Context, selectFile SelectFile, aid []byte) (FileView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := selectFile(aid)
	if err != nil {
		return FileView{}, err
	}
	c.captureSerial(resp)
	// current is intentionally left unchanged: DF-name selection is not
	// tracked in the local tree.
	return c.fileViewLocked(c.current), nil
}

func (c *Card) fileViewLocked(idx int) FileView {
	if idx < 0 {
		return FileView{}
	}
	n := c.tree.Node(idx)
	return FileView{
		Path: append([]uint16(nil), n.Path...),
		Kind: n.Kind,
		Size: n.Len(),
	}
}

// ListFiles requires current to be a Directory; it is expanded if
// needed, and each child's id is written as a big-endian pair into
// buf, stopping when buf would overflow. Returns the number of bytes
// written.
func (c *Card) ListFiles(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := currentOrErr(c)
	if err != nil {
		return 0, err
	}
	if c.tree.Node(idx).Kind != blob.KindDirectory {
		return 0, errors.Wrap(errdefs.ErrObjectInvalid, "current selection is not a directory")
	}
	if err := c.expandBlob(ctx, idx); err != nil {
		return 0, err
	}

	k := 0
	for _, child := range c.tree.Children(idx) {
		if k+2 > len(buf) {
			break
		}
		id := c.tree.Node(child).ID
		buf[k] = byte(id >> 8)
		buf[k+1] = byte(id)
		k += 2
	}
	return k, nil
}

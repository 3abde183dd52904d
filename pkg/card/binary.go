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
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
	"github.com/nydus-snapshotter/openpgp-card/pkg/blob"
	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
)

// ReadBinary requires current to be a LeafFile; lazy-reads it, clamps
// count to len-offset (failing IncorrectParameters if offset > len),
// and returns the slice.
func (c *Card) ReadBinary(ctx context.Context, offset, count int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := currentOrErr(c)
	if err != nil {
		return nil, err
	}
	if c.tree.Node(idx).Kind != blob.KindLeafFile {
		return nil, errors.Wrap(errdefs.ErrFileNotFound, "current selection is not a file")
	}
	if err := c.loadBlob(ctx, idx); err != nil {
		return nil, err
	}

	n := c.tree.Node(idx)
	if offset > n.Len() {
		return nil, errors.Wrap(errdefs.ErrIncorrectParameters, "offset beyond end of file")
	}
	if offset+count > n.Len() {
		count = n.Len() - offset
	}
	out := make([]byte, count)
	copy(out, n.Data()[offset:offset+count])
	return out, nil
}

// WriteBinary always fails: this driver never writes DOs back to the
// card.
func (c *Card) WriteBinary(context.Context, int, []byte) (int, error) {
	return 0, apdu.WrapNotSupported("write_binary")
}

// GetData issues a raw GET DATA for tag outside of the blob tree,
// using the same Le sizing rule as every other read.
func (c *Card) GetData(_ context.Context, tag uint16, bufLen int) ([]byte, error) {
	return registry.GenericGetData(c.transmitter, tag, bufLen, c.extendedAPDU)
}

// PutData always fails: this driver rejects PUT DATA outright.
func (c *Card) PutData(context.Context, uint16, []byte) error {
	return apdu.WrapNotSupported("put_data")
}

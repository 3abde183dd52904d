/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package blob

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
)

func TestNewTreeSeedsRoot(t *testing.T) {
	tr := NewTree()
	root := tr.Node(tr.Root())
	require.Equal(t, RootID, root.ID)
	require.Equal(t, KindDirectory, root.Kind)
	require.False(t, root.Loaded())
}

func TestSeedAppendsOrderedChildren(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)

	children := tr.Children(tr.Root())
	require.Len(t, children, len(registry.Table))
	for i, c := range children {
		require.Equal(t, registry.Table[i].Tag, tr.Node(c).ID)
	}
}

func TestFindChildLinearSearch(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)

	idx, ok := tr.FindChild(tr.Root(), registry.TagApplicationRelated)
	require.True(t, ok)
	require.Equal(t, registry.TagApplicationRelated, tr.Node(idx).ID)

	_, ok = tr.FindChild(tr.Root(), 0xDEAD)
	require.False(t, ok)
}

func TestLoadCachesSuccess(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagAID)

	calls := 0
	fetch := func(row *registry.Row, bufLen int) ([]byte, error) {
		calls++
		return []byte{0x01, 0x02}, nil
	}

	require.NoError(t, tr.Load(&Loader{}, fetch, idx))
	require.True(t, tr.Node(idx).Loaded())
	require.Equal(t, []byte{0x01, 0x02}, tr.Node(idx).Data())

	// A second Load must not call fetch again: it should succeed
	// immediately from the cache.
	require.NoError(t, tr.Load(&Loader{}, fetch, idx))
	require.Equal(t, 1, calls)
}

func TestLoadStickyError(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagAID)

	calls := 0
	wantErr := errors.New("card unplugged")
	fetch := func(row *registry.Row, bufLen int) ([]byte, error) {
		calls++
		return nil, wantErr
	}

	err := tr.Load(&Loader{}, fetch, idx)
	require.Error(t, err)
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, wantErr, tr.Node(idx).LastError())

	// A second Load must return the sticky error without calling fetch
	// again.
	err = tr.Load(&Loader{}, fetch, idx)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestExpandCreatesTLVChildren(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagApplicationRelated)

	// A constructed DO containing two short-form primitive TLV children.
	raw := []byte{0x81, 0x01, 0x0A, 0x82, 0x02, 0x0B, 0x0C}
	fetch := func(row *registry.Row, bufLen int) ([]byte, error) {
		return raw, nil
	}

	require.NoError(t, tr.Expand(context.Background(), &Loader{}, fetch, idx))
	children := tr.Children(idx)
	require.Len(t, children, 2)
	require.Equal(t, uint16(0x81), tr.Node(children[0]).ID)
	require.Equal(t, uint16(0x82), tr.Node(children[1]).ID)
	require.Equal(t, []byte{0x0A}, tr.Node(children[0]).Data())
	require.True(t, tr.Node(children[0]).Loaded())
}

func TestExpandIsIdempotent(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagApplicationRelated)

	calls := 0
	fetch := func(row *registry.Row, bufLen int) ([]byte, error) {
		calls++
		return []byte{0x81, 0x01, 0x0A}, nil
	}

	require.NoError(t, tr.Expand(context.Background(), &Loader{}, fetch, idx))
	require.NoError(t, tr.Expand(context.Background(), &Loader{}, fetch, idx))
	require.Equal(t, 1, calls)
}

func TestExpandLeavesChildrenEmptyOnParseFailure(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagApplicationRelated)

	fetch := func(row *registry.Row, bufLen int) ([]byte, error) {
		return []byte{0x81}, nil // truncated TLV
	}

	err := tr.Expand(context.Background(), &Loader{}, fetch, idx)
	require.Error(t, err)
	require.Empty(t, tr.Children(idx))
}

func TestFreeAllVisitsPostOrder(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)

	var visited []int
	tr.FreeAll(func(idx int) {
		visited = append(visited, idx)
	})

	// The root (index 0) must be visited last in a post-order walk.
	require.Equal(t, 0, visited[len(visited)-1])
	require.Len(t, visited, 1+len(registry.Table))
}

func TestMarkFailedIsSticky(t *testing.T) {
	tr := NewTree()
	tr.Seed(tr.Root(), registry.Table)
	idx, _ := tr.FindChild(tr.Root(), registry.TagAID)

	wantErr := errors.New("resolution failed")
	tr.MarkFailed(idx, wantErr)
	require.Equal(t, wantErr, tr.Node(idx).LastError())
	require.False(t, tr.Node(idx).Loaded())
}

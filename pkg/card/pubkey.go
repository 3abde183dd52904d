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
)

// KeySlot identifies which of the three RSA keys a pubkey-export
// request is about.
type KeySlot int

const (
	KeySlotSign KeySlot = iota
	KeySlotDecrypt
	KeySlotAuth
)

func rawTagFor(slot KeySlot) (uint16, error) {
	switch slot {
	case KeySlotSign:
		return 0xB600, nil
	case KeySlotDecrypt:
		return 0xB800, nil
	case KeySlotAuth:
		return 0xA400, nil
	default:
		return 0, errors.Wrap(errdefs.ErrInvalidArguments, "unknown key slot")
	}
}

// ExportPublicKey resolves the PEM-encoded public key for a given key
// slot end to end: it is the PEM-style getter's caller-facing
// counterpart, usable without going through SelectPath first.
// Internally it is identical to selecting .../B601 (or .../B801,
// .../A401) and reading it back.
func (c *Card) ExportPublicKey(ctx context.Context, slot KeySlot) ([]byte, error) {
	rawTag, err := rawTagFor(slot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolvePubkeyEncoded(ctx, rawTag|0x0001)
}

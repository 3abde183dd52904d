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
)

// ComputeSignature requires an env whose operation is Sign; key ref
// 0x00 issues PSO COMPUTE DIGITAL SIGNATURE, key ref 0x02 issues
// INTERNAL AUTHENTICATE, key ref 0x01 is rejected as a decipher-only
// key.
func (c *Card) ComputeSignature(_ context.Context, data []byte, outLen int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sec.Operation != OperationSign {
		return nil, errors.Wrap(errdefs.ErrInvalidArguments, "security environment is not set for signing")
	}

	var ins, p1, p2 byte
	switch c.sec.KeyRef {
	case 0x00:
		ins, p1, p2 = 0x2A, 0x9E, 0x9A // PSO COMPUTE DIGITAL SIGNATURE
	case 0x02:
		ins, p1, p2 = 0x88, 0x00, 0x00 // INTERNAL AUTHENTICATE
	case 0x01:
		return nil, errors.Wrap(errdefs.ErrInvalidArguments, "decipher only key")
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArguments, "invalid key reference 0x%02x", c.sec.KeyRef)
	}

	resp, err := apdu.Transmit(c.transmitter, apdu.Command{
		CLA:  0x00,
		INS:  ins,
		P1:   p1,
		P2:   p2,
		Data: data,
		Le:   apdu.LeFor(outLen, c.extendedAPDU),
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Decipher requires an env whose operation is Decipher and key ref
// 0x01; prepends a single 0x00 padding indicator byte to in before
// framing the PSO DECIPHER APDU.
func (c *Card) Decipher(_ context.Context, in []byte, outLen int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sec.Operation != OperationDecipher {
		return nil, errors.Wrap(errdefs.ErrInvalidArguments, "security environment is not set for decipherment")
	}

	switch c.sec.KeyRef {
	case 0x01:
		// PSO DECIPHER, fall through below.
	case 0x00, 0x02:
		return nil, errors.Wrap(errdefs.ErrInvalidArguments, "invalid key reference (signature only key)")
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArguments, "invalid key reference 0x%02x", c.sec.KeyRef)
	}

	// Transient padding-indicator buffer, released on every exit path
	// by simply letting it go out of scope — no slice reference outlives
	// this call.
	padded := make([]byte, len(in)+1)
	padded[0] = 0x00
	copy(padded[1:], in)

	resp, err := apdu.Transmit(c.transmitter, apdu.Command{
		CLA:  0x00,
		INS:  0x2A,
		P1:   0x80,
		P2:   0x86,
		Data: padded,
		Le:   apdu.LeFor(outLen, c.extendedAPDU),
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package card is the OpenPGP card driver proper: it wires the DO
// Registry (pkg/registry), Blob Tree and Lazy Loader (pkg/blob), ATR
// matching (pkg/atr) and APDU transport (pkg/apdu) into the driver's
// exposed operations: path resolution, binary reads, pubkey export,
// security-environment gating, crypto ops, and session lifecycle.
package card

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
	"github.com/nydus-snapshotter/openpgp-card/pkg/atr"
	"github.com/nydus-snapshotter/openpgp-card/pkg/blob"
	"github.com/nydus-snapshotter/openpgp-card/pkg/pkenc"
	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
)

// ApplicationAID is the OpenPGP application's DF name.
var ApplicationAID = []byte{0xD2, 0x76, 0x00, 0x01, 0x24, 0x01}

// Operation is the security-environment operation kind.
type Operation int

const (
	OperationNone Operation = iota
	OperationSign
	OperationDecipher
)

// SecurityEnv is the per-session security-environment snapshot: which
// operation is armed, for which key reference.
type SecurityEnv struct {
	Operation Operation
	KeyRef    byte
	HasAlg    bool
}

// FileView is the synthesised file-system view of a selected blob.
type FileView struct {
	Path []uint16
	Kind blob.Kind
	Size int
}

// Card is a single OpenPGP card session. One Card must not be driven
// by two callers concurrently.
type Card struct {
	mu sync.Mutex

	transmitter  apdu.Transmitter
	extendedAPDU bool

	tree    *blob.Tree
	current int // arena index, or -1 if no selection

	sec SecurityEnv

	serial    [6]byte
	hasSerial bool
	cardName  string
	cardType  atr.CardType
}

// SelectFile is the host framework's ISO file-selection delegate used
// at init to select the OpenPGP application; it returns the raw
// DF-name response so the driver can extract the serial number (bytes
// [8..14] of a 16-byte application identifier).
type SelectFile func(aid []byte) (dfNameResponse []byte, err error)

// New constructs a Card bound to transmitter for APDU I/O. It does not
// talk to the card; call Init to do that.
func New(transmitter apdu.Transmitter) *Card {
	return &Card{
		transmitter: transmitter,
		current:     -1,
	}
}

func currentOrErr(c *Card) (int, error) {
	if c.current < 0 {
		return 0, errors.Wrap(errdefs.ErrFileNotFound, "no file selected")
	}
	return c.current, nil
}

func rowFetch(t apdu.Transmitter, extendedAPDU bool) func(row *registry.Row, bufLen int) ([]byte, error) {
	return func(row *registry.Row, bufLen int) ([]byte, error) {
		switch row.Get {
		case registry.GetterGenericData:
			return registry.GenericGetData(t, row.Tag, bufLen, extendedAPDU)
		case registry.GetterPubkeyAPDU:
			return getPubkeyRaw(t, row.Tag, bufLen, extendedAPDU)
		case registry.GetterPubkeyEncoded:
			return nil, errors.New("pubkey-encoded getter must be resolved via resolvePubkeyEncoded, not the generic loader")
		default:
			return nil, errors.Errorf("unknown getter kind %d", row.Get)
		}
	}
}

// getPubkeyRaw builds and sends the GET PUBLIC KEY APDU: case 4,
// CLA=0, INS=0x47, P1=0x81, P2=0, data = the two-byte key-slot tag.
func getPubkeyRaw(t apdu.Transmitter, tag uint16, bufLen int, extendedAPDU bool) ([]byte, error) {
	resp, err := apdu.Transmit(t, apdu.Command{
		CLA:  0x00,
		INS:  0x47,
		P1:   0x81,
		P2:   0x00,
		Data: []byte{byte(tag >> 8), byte(tag)},
		Le:   apdu.LeFor(bufLen, extendedAPDU),
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// pubkeyEncodedTagToRaw maps a PEM-style tag (...601/...801/...401) to
// its raw-APDU sibling (...600/...800/...400) by clearing the low bit.
func pubkeyEncodedTagToRaw(tag uint16) uint16 {
	return tag & 0xFFFE
}

// resolvePubkeyEncoded resolves the PEM-style pubkey getter: walk
// through the tree to /raw_tag/0x7F49/0x0081 (modulus) and
// /raw_tag/0x7F49/0x0082 (public exponent), lazy-read both, and hand
// the pair to pkg/pkenc.
func (c *Card) resolvePubkeyEncoded(ctx context.Context, tag uint16) ([]byte, error) {
	rawTag := pubkeyEncodedTagToRaw(tag)

	rawIdx, err := c.childWithLoad(ctx, c.tree.Root(), rawTag)
	if err != nil {
		return nil, err
	}
	tmplIdx, err := c.childWithLoad(ctx, rawIdx, registry.TagPublicKeyTemplate)
	if err != nil {
		return nil, err
	}
	modIdx, err := c.childWithLoad(ctx, tmplIdx, registry.TagModulus)
	if err != nil {
		return nil, err
	}
	expIdx, err := c.childWithLoad(ctx, tmplIdx, registry.TagExponent)
	if err != nil {
		return nil, err
	}

	return pkenc.EncodePEM(pkenc.PublicKey{
		Algorithm: pkenc.AlgorithmRSA,
		Modulus:   c.tree.Node(modIdx).Data(),
		Exponent:  c.tree.Node(expIdx).Data(),
	})
}

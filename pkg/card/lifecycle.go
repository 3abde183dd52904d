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
	"github.com/nydus-snapshotter/openpgp-card/internal/log"
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
	"github.com/nydus-snapshotter/openpgp-card/pkg/atr"
	"github.com/nydus-snapshotter/openpgp-card/pkg/blob"
	"github.com/nydus-snapshotter/openpgp-card/pkg/registry"
)

// AlgorithmCapability is the RSA algorithm advertisement for a given
// key size: RAW | PAD_PKCS1 | HASH_NONE.
type AlgorithmCapability struct {
	KeySizeBits int
	RawRSA      bool
	PKCS1Pad    bool
	NoHash      bool
}

// Capabilities collects everything Init derives from the card and ATR
// that the host framework's algorithm registration needs.
type Capabilities struct {
	CardType     atr.CardType
	CardName     string
	Algorithms   []AlgorithmCapability
	ExtendedAPDU bool
}

// Init declares RSA capability at {512,768,1024} (+2048 for v2.0 cards),
// selects the OpenPGP application, captures the serial number from a
// 16-byte DF-name response, seeds the root and registry children, and
// detects extended-APDU support from the ATR's historical bytes.
func (c *Card) Init(ctx context.Context, cardATR []byte, selectFile SelectFile) (Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, matched := atr.Match(cardATR, atr.Table)
	if matched {
		c.cardType = entry.Type
		c.cardName = entry.Name
	}
	c.extendedAPDU = atr.SupportsExtendedAPDU(atr.HistoricalBytes(cardATR))

	algorithms := []AlgorithmCapability{
		rsaCapability(512),
		rsaCapability(768),
		rsaCapability(1024),
	}
	if c.cardType == atr.CardTypeV2 {
		algorithms = append(algorithms, rsaCapability(2048))
	}

	resp, err := selectFile(ApplicationAID)
	if err != nil {
		log.G(ctx).WithError(err).Warn("select OpenPGP application failed")
		return Capabilities{}, err
	}
	c.captureSerial(resp)

	tree := blob.NewTree()
	tree.Seed(tree.Root(), registry.Table)
	c.tree = tree
	c.current = tree.Root()

	return Capabilities{
		CardType:     c.cardType,
		CardName:     c.cardName,
		Algorithms:   algorithms,
		ExtendedAPDU: c.extendedAPDU,
	}, nil
}

func rsaCapability(bits int) AlgorithmCapability {
	return AlgorithmCapability{KeySizeBits: bits, RawRSA: true, PKCS1Pad: true, NoHash: true}
}

// captureSerial extracts the 6-byte card serial from bytes [8..14] of
// the AID select response, when that response carries a full 16-byte
// application identifier.
func (c *Card) captureSerial(dfNameResponse []byte) {
	if len(dfNameResponse) != 16 {
		return
	}
	copy(c.serial[:], dfNameResponse[8:14])
	c.hasSerial = true
}

// Finish releases the blob tree as a single arena drop (no per-node
// visit) and then resets the session state: selection and security
// environment.
func (c *Card) Finish(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tree != nil {
		c.tree.FreeAll(nil)
	}
	c.tree = nil
	c.current = -1
	c.sec = SecurityEnv{}
}

// PinCmdRequest mirrors the subset of the ISO pin_cmd argument the
// driver inspects before delegating.
type PinCmdRequest struct {
	PinType      PinType
	PinReference byte
}

// PinType distinguishes the kinds of PIN-verification the host
// framework can request.
type PinType int

const (
	PinTypeCHV PinType = iota
	PinTypeOther
)

// PinCmd requires pin_type == CHV, ORs 0x80 into the pin reference
// (the OpenPGP card CHV numbering convention), and forwards to the ISO
// collaborator.
func (c *Card) PinCmd(ctx context.Context, req PinCmdRequest, delegate func(PinCmdRequest) error) error {
	if req.PinType != PinTypeCHV {
		return errors.Wrap(errdefs.ErrInvalidArguments, "pin_cmd requires CHV pin type")
	}
	req.PinReference |= 0x80
	return delegate(req)
}

// CardCtlCommand identifies a card_ctl request.
type CardCtlCommand int

const (
	CardCtlGetSerialNr CardCtlCommand = iota
	CardCtlOther
)

// CardCtl only handles GET_SERIAL_NR, copying the cached 6-byte serial
// into out; everything else is NotSupported.
func (c *Card) CardCtl(_ context.Context, cmd CardCtlCommand, out []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cmd != CardCtlGetSerialNr {
		return 0, apdu.WrapNotSupported("card_ctl")
	}
	if !c.hasSerial {
		return 0, errors.Wrap(errdefs.ErrFileNotFound, "no serial number captured")
	}
	n := copy(out, c.serial[:])
	return n, nil
}

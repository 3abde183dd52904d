/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package pcsc implements pkg/apdu.Transmitter over a real smartcard
// reader via github.com/ebfe/scard. It follows the Reader/APDUResponse/
// HasMoreData/GetResponse idioms common to GlobalPlatform secure-channel
// implementations, generalized down to plain, unwrapped APDUs.
package pcsc

import (
	"github.com/ebfe/scard"
	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
)

// Reader owns one PC/SC card handle and implements apdu.Transmitter by
// transmitting raw APDUs and chaining GET RESPONSE on SW1==0x61.
type Reader struct {
	ctx  *scard.Context
	card *scard.Card
	name string
}

// ListReaders enumerates the PC/SC reader names the host's resource
// manager knows about, for a caller (e.g. cmd/pgpcardctl) to present a
// "--reader" selection to the user.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, errors.Wrap(err, "establish PC/SC context")
	}
	defer ctx.Release()

	names, err := ctx.ListReaders()
	if err != nil {
		return nil, errors.Wrap(err, "list PC/SC readers")
	}
	return names, nil
}

// Connect opens a shared, T=0-or-T=1 connection to the named reader
// and reads the card's status (no reset is issued), returning both the
// Reader and the raw ATR bytes
// the caller needs to pass into pkg/card's Init.
func Connect(readerName string) (*Reader, []byte, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, errors.Wrap(err, "establish PC/SC context")
	}

	card, err := ctx.Connect(readerName, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, nil, errors.Wrapf(err, "connect to reader %q", readerName)
	}

	status, err := card.Status()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		ctx.Release()
		return nil, nil, errors.Wrap(err, "read card status")
	}

	return &Reader{ctx: ctx, card: card, name: readerName}, status.Atr, nil
}

// Close releases the card handle and PC/SC context.
func (r *Reader) Close() error {
	var err error
	if r.card != nil {
		err = r.card.Disconnect(scard.LeaveCard)
	}
	if r.ctx != nil {
		if relErr := r.ctx.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}
	return err
}

// encode serializes a Command to wire bytes: a case-4 APDU if Data is
// non-empty and Le > 0, a case-3 APDU if only Data is present, a case-2
// APDU if only Le is wanted, or a bare case-1 header otherwise.
func encode(cmd apdu.Command) []byte {
	out := []byte{cmd.CLA, cmd.INS, cmd.P1, cmd.P2}
	if len(cmd.Data) > 0 {
		out = append(out, lcBytes(len(cmd.Data))...)
		out = append(out, cmd.Data...)
	}
	if cmd.Le > 0 {
		out = append(out, leBytes(cmd.Le)...)
	}
	return out
}

// lcBytes encodes Lc, using the extended 3-byte form (0x00 hi lo) once
// the data length no longer fits a single byte.
func lcBytes(n int) []byte {
	if n <= 255 {
		return []byte{byte(n)}
	}
	return []byte{0x00, byte(n >> 8), byte(n)}
}

// leBytes mirrors lcBytes for the expected response length.
func leBytes(n int) []byte {
	if n <= 256 {
		if n == 256 {
			return []byte{0x00}
		}
		return []byte{byte(n)}
	}
	if n >= 65536 {
		n = 65535
	}
	return []byte{0x00, byte(n >> 8), byte(n)}
}

func decode(raw []byte) (*apdu.Response, error) {
	if len(raw) < 2 {
		return nil, errors.Wrap(errdefs.ErrObjectInvalid, "APDU response shorter than SW1SW2")
	}
	n := len(raw)
	return &apdu.Response{
		Data: append([]byte(nil), raw[:n-2]...),
		SW1:  raw[n-2],
		SW2:  raw[n-1],
	}, nil
}

// getResponse issues GET RESPONSE (CLA=00, INS=C0) for n more bytes,
// per the 61xx response-chaining idiom.
func (r *Reader) getResponse(n byte) (*apdu.Response, error) {
	raw, err := r.card.Transmit(encode(apdu.Command{CLA: 0x00, INS: 0xC0, Le: int(n)}))
	if err != nil {
		return nil, errors.Wrap(err, "GET RESPONSE transmit")
	}
	return decode(raw)
}

// Transmit implements apdu.Transmitter: send cmd, and if the card
// replies 61xx ("more data available"), chain GET RESPONSE calls until
// the final status word arrives, stitching the accumulated bytes
// together as a single response body.
func (r *Reader) Transmit(cmd apdu.Command) (*apdu.Response, error) {
	raw, err := r.card.Transmit(encode(cmd))
	if err != nil {
		return nil, errors.Wrap(err, "APDU transmit")
	}
	resp, err := decode(raw)
	if err != nil {
		return nil, err
	}

	var data []byte
	data = append(data, resp.Data...)
	for resp.HasMoreData() {
		resp, err = r.getResponse(resp.SW2)
		if err != nil {
			return nil, err
		}
		data = append(data, resp.Data...)
	}
	resp.Data = data
	return resp, nil
}

/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package apdu defines ISO 7816-4 command/response framing: APDU
// building, transmission, and SW1SW2-to-error mapping. The card driver
// (pkg/card) consumes a Transmitter; it never frames bytes on its own
// beyond picking CLA/INS/P1/P2/data/Le.
package apdu

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
	"github.com/nydus-snapshotter/openpgp-card/pkg/metrics/data"
)

// Command is a case-4 (or case-2) APDU: header, optional data, and an
// expected response length (Le). Le == 0 with empty Data means
// "no response data expected" (case 1/3); callers that want a response
// always set Le explicitly.
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	Le               int
}

// Response is a decoded APDU response: body plus status bytes.
type Response struct {
	Data     []byte
	SW1, SW2 byte
}

// SW returns the two status bytes as a single 16-bit word.
func (r *Response) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// IsOK reports whether SW1SW2 is the normal-ending status word 0x9000.
func (r *Response) IsOK() bool {
	return r.SW1 == 0x90 && r.SW2 == 0x00
}

// HasMoreData reports whether SW1 is 0x61, meaning GET RESPONSE must
// be issued for SW2 more bytes (short-APDU response chaining).
func (r *Response) HasMoreData() bool {
	return r.SW1 == 0x61
}

// Transmitter is the ISO 7816-4 transport collaborator: it knows how
// to turn a Command into bytes on the wire and decode the response.
// Implementations (e.g. pkg/transport/pcsc) own reader selection,
// protocol negotiation, and GET RESPONSE chaining.
type Transmitter interface {
	Transmit(cmd Command) (*Response, error)
}

// CheckSW maps a response's status word to an error, or nil on
// SW1SW2 == 0x9000. Non-9000 but otherwise well-formed status words
// are surfaced as a wrapped, card-specific error so the caller can
// still inspect SW() if they need to (e.g. 0x6982 security status not
// satisfied after a wrong PIN attempt).
func CheckSW(r *Response) error {
	if r.IsOK() {
		return nil
	}
	return errors.Wrapf(fmt.Errorf("card returned SW=%04X", r.SW()), "APDU transmit failed")
}

// Transmit sends cmd via t and maps a transport-level failure or a
// non-9000 status word to the driver's error taxonomy. Every call is
// observed under the instruction byte, win or lose.
func Transmit(t Transmitter, cmd Command) (*Response, error) {
	ins := fmt.Sprintf("%02X", cmd.INS)
	start := time.Now()
	resp, err := t.Transmit(cmd)
	data.APDUTransmitDuration.WithLabelValues(ins).Observe(time.Since(start).Seconds())
	if err != nil {
		data.APDUTransmitTotal.WithLabelValues(ins, "error").Inc()
		return nil, errors.Wrap(err, "APDU transmit failed")
	}
	if err := CheckSW(resp); err != nil {
		data.APDUTransmitTotal.WithLabelValues(ins, "error").Inc()
		return resp, err
	}
	data.APDUTransmitTotal.WithLabelValues(ins, "ok").Inc()
	return resp, nil
}

// LeFor computes the Le byte/extended-Le the driver should request for
// a response buffer of the given capacity: min(bufLen, 256) unless the
// card advertises extended APDU, in which case the full buffer length
// is requested.
func LeFor(bufLen int, extendedAPDU bool) int {
	if extendedAPDU {
		return bufLen
	}
	if bufLen > 256 {
		return 256
	}
	return bufLen
}

// WrapNotSupported is a convenience for operations the driver
// unconditionally refuses (write_binary, put_data).
func WrapNotSupported(what string) error {
	return errors.Wrapf(errdefs.ErrNotSupported, "%s", what)
}

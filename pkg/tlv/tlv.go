/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package tlv implements a BER-TLV parse primitive: it yields a
// sequence of (tag, constructed, value) elements from a byte range.
// The tag/length walk follows GnuPG's common/tlv.c do_find_tlv;
// OpenPGP DO tags are at most two raw bytes, so only that shape is
// supported.
package tlv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
)

// Element is one decoded BER-TLV object. Tag is the reconstructed
// 16-bit DO tag: ASN.1's split of tag and class is undone by shifting
// the class byte into the high byte and OR-ing with the second tag
// byte.
type Element struct {
	Tag         uint32
	Constructed bool
	Value       []byte // slice into the original buffer, not a copy
}

// Parse decodes every TLV element in data, in order, failing with
// ErrObjectInvalid on any truncation or malformed element — partial
// results are never returned.
func Parse(data []byte) ([]Element, error) {
	var elems []Element
	o, n := 0, len(data)

	for n > 0 {
		if n < 2 {
			return nil, errors.Wrap(errdefs.ErrObjectInvalid, "truncated TLV: no room for tag+length")
		}

		if data[o] == 0x00 || data[o] == 0xFF {
			o++
			n--
			continue
		}

		constructed := data[o]&0x20 != 0

		var tag uint32
		if data[o]&0x1F == 0x1F {
			if n < 3 {
				return nil, errors.Wrap(errdefs.ErrObjectInvalid, "truncated multi-byte tag")
			}
			if data[o+1]&0x1F == 0x1F {
				return nil, errors.Wrap(errdefs.ErrObjectInvalid, "tags longer than two bytes are not supported")
			}
			tag = uint32(binary.BigEndian.Uint16([]byte{data[o], data[o+1] & 0x7F}))
			o += 2
			n -= 2
		} else {
			tag = uint32(data[o])
			o++
			n--
		}

		if n < 1 {
			return nil, errors.Wrap(errdefs.ErrObjectInvalid, "truncated TLV: no length byte")
		}

		lengthByte := data[o]
		o++
		n--

		var length int
		switch {
		case lengthByte < 0x80:
			length = int(lengthByte)
		case lengthByte == 0x81:
			if n < 1 {
				return nil, errors.Wrap(errdefs.ErrObjectInvalid, "truncated 1-byte length")
			}
			length = int(data[o])
			o++
			n--
		case lengthByte == 0x82:
			if n < 2 {
				return nil, errors.Wrap(errdefs.ErrObjectInvalid, "truncated 2-byte length")
			}
			length = int(data[o])<<8 | int(data[o+1])
			o += 2
			n -= 2
		default:
			return nil, errors.Wrap(errdefs.ErrObjectInvalid, "unsupported length encoding")
		}

		if length > n {
			return nil, errors.Wrap(errdefs.ErrObjectInvalid, "value runs past end of buffer")
		}

		elems = append(elems, Element{
			Tag:         tag,
			Constructed: constructed,
			Value:       data[o : o+length],
		})
		o += length
		n -= length
	}

	return elems, nil
}

/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package atr implements ATR matching: an (atr -> card_type, name)
// table lookup, plus the historical-bytes inspection used to detect
// extended APDU support.
package atr

import (
	"encoding/hex"
	"strings"
)

// CardType distinguishes the two OpenPGP card generations this driver
// supports.
type CardType int

const (
	CardTypeUnknown CardType = iota
	CardTypeV1                // v1.0 / v1.1
	CardTypeV2                // v2.0 (incl. CryptoStick v1.2)
)

// Entry is one row of the ATR matching table, grounded on the
// `pgp_atrs[]` table in card-openpgp.c.
type Entry struct {
	ATR  string // colon-separated hex bytes, e.g. "3b:fa:13:00:ff:..."
	Name string
	Type CardType
}

// Table is the built-in ATR matching table, copied verbatim from the
// original driver's pgp_atrs[].
var Table = []Entry{
	{
		ATR:  "3b:fa:13:00:ff:81:31:80:45:00:31:c1:73:c0:01:00:00:90:00:b1",
		Name: "OpenPGP card v1.0/1.1",
		Type: CardTypeV1,
	},
	{
		ATR:  "3b:da:18:ff:81:b1:fe:75:1f:03:00:31:c5:73:c0:01:40:00:90:00:0c",
		Name: "CryptoStick v1.2 (OpenPGP v2.0)",
		Type: CardTypeV2,
	},
}

func normalize(atr []byte) string {
	return strings.ToLower(hex.EncodeToString(atr))
}

func entryBytes(e Entry) string {
	return strings.ReplaceAll(strings.ToLower(e.ATR), ":", "")
}

// Match looks up atr (raw bytes from a card reset) against table,
// returning the matching entry and true, or the zero Entry and false.
func Match(atr []byte, table []Entry) (Entry, bool) {
	got := normalize(atr)
	for _, e := range table {
		if entryBytes(e) == got {
			return e, true
		}
	}
	return Entry{}, false
}

// compactTLVTag73Offset locates the compact-TLV tag 0x73 (card
// capabilities) within the ATR's historical bytes, returning the index
// of the first 0x73 byte and whether one was found. The capability bit
// itself is checked by SupportsExtendedAPDU.
func compactTLVTag73Offset(historicalBytes []byte) (int, bool) {
	for i := 0; i < len(historicalBytes); i++ {
		if historicalBytes[i] == 0x73 {
			return i, true
		}
	}
	return 0, false
}

// SupportsExtendedAPDU scans historicalBytes for tag 0x73: if the byte
// at offset+3 exists and has bit 0x40 set, the card supports extended
// APDUs.
func SupportsExtendedAPDU(historicalBytes []byte) bool {
	i, found := compactTLVTag73Offset(historicalBytes)
	if !found {
		return false
	}
	if len(historicalBytes) <= i+3 {
		return false
	}
	return historicalBytes[i+3]&0x40 != 0
}

// HistoricalBytes walks the ISO/IEC 7816-3 ATR structure (TS, T0, the
// chain of interface bytes TAi/TBi/TCi/TDi, then K historical bytes)
// to slice out just the historical-bytes portion. Returns nil if atr
// is too short to contain a valid T0.
func HistoricalBytes(rawATR []byte) []byte {
	if len(rawATR) < 2 {
		return nil
	}
	t0 := rawATR[1]
	k := int(t0 & 0x0F)
	y := t0 & 0xF0

	off := 2
	for {
		if y&0x10 != 0 { // TAi present
			off++
		}
		if y&0x20 != 0 { // TBi present
			off++
		}
		if y&0x40 != 0 { // TCi present
			off++
		}
		if y&0x80 == 0 { // no TDi, chain ends
			break
		}
		if off >= len(rawATR) {
			return nil
		}
		td := rawATR[off]
		off++
		y = td & 0xF0
	}

	if off+k > len(rawATR) {
		return nil
	}
	return rawATR[off : off+k]
}

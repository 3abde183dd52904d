/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package atr

import (
	"encoding/hex"
	"strings"
	"testing"
)

func atrBytes(t *testing.T, colonHex string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(strings.ReplaceAll(colonHex, ":", ""))
	if err != nil {
		t.Fatalf("bad test ATR literal: %v", err)
	}
	return raw
}

func TestMatchV1(t *testing.T) {
	raw := atrBytes(t, Table[0].ATR)
	entry, ok := Match(raw, Table)
	if !ok {
		t.Fatalf("expected a match")
	}
	if entry.Type != CardTypeV1 {
		t.Errorf("expected CardTypeV1, got %v", entry.Type)
	}
}

func TestMatchV2(t *testing.T) {
	raw := atrBytes(t, Table[1].ATR)
	entry, ok := Match(raw, Table)
	if !ok {
		t.Fatalf("expected a match")
	}
	if entry.Type != CardTypeV2 {
		t.Errorf("expected CardTypeV2, got %v", entry.Type)
	}
}

func TestMatchUnknown(t *testing.T) {
	_, ok := Match([]byte{0x3B, 0x00}, Table)
	if ok {
		t.Errorf("expected no match for an unlisted ATR")
	}
}

func TestSupportsExtendedAPDU(t *testing.T) {
	// compact-TLV tag 0x73 at index 1, its 3rd data byte (index 1+3)
	// carries the extended Lc/Le capability bit 0x40.
	withFlag := []byte{0x00, 0x73, 0x00, 0x00, 0x40}
	if !SupportsExtendedAPDU(withFlag) {
		t.Errorf("expected extended APDU support to be detected")
	}

	withoutFlag := []byte{0x00, 0x73, 0x00, 0x00, 0x00}
	if SupportsExtendedAPDU(withoutFlag) {
		t.Errorf("expected no extended APDU support")
	}

	noTag := []byte{0x00, 0x01, 0x02}
	if SupportsExtendedAPDU(noTag) {
		t.Errorf("expected no extended APDU support when tag 0x73 is absent")
	}
}

func TestHistoricalBytes(t *testing.T) {
	// TS=3B, T0=0x80 (Y=0x80 -> TD1 present, K=0), TD1=0x01 (Y=0, protocol T=1, no more TDi)
	// then 0 historical bytes.
	raw := []byte{0x3B, 0x80, 0x01}
	hb := HistoricalBytes(raw)
	if len(hb) != 0 {
		t.Errorf("expected zero historical bytes, got %x", hb)
	}

	// TS=3B, T0=0x03 (no interface bytes, K=3 historical bytes)
	raw2 := []byte{0x3B, 0x03, 0xAA, 0xBB, 0xCC}
	hb2 := HistoricalBytes(raw2)
	if string(hb2) != "\xAA\xBB\xCC" {
		t.Errorf("unexpected historical bytes %x", hb2)
	}
}

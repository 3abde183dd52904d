/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package tlv

import "testing"

func TestParseSingleByteTagShortForm(t *testing.T) {
	// tag 0x81, length 2, value {0x01, 0x02}
	data := []byte{0x81, 0x02, 0x01, 0x02}
	elems, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elems))
	}
	if elems[0].Tag != 0x81 || elems[0].Constructed {
		t.Errorf("unexpected element: %+v", elems[0])
	}
	if string(elems[0].Value) != "\x01\x02" {
		t.Errorf("unexpected value %x", elems[0].Value)
	}
}

func TestParseMultiByteTagAndConstructed(t *testing.T) {
	// tag 0x7F49 (constructed: 0x7F has bit 0x20 set), length 4, value
	// {0x81, 0x02, 0xAB, 0xCD} (a nested short-form TLV as the value).
	data := []byte{0x7F, 0x49, 0x04, 0x81, 0x02, 0xAB, 0xCD}
	elems, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elems))
	}
	if elems[0].Tag != 0x7F49 {
		t.Errorf("expected tag 0x7F49, got %04X", elems[0].Tag)
	}
	if !elems[0].Constructed {
		t.Errorf("expected constructed element")
	}
}

func TestParseExtendedLengths(t *testing.T) {
	value := make([]byte, 200)
	for i := range value {
		value[i] = byte(i)
	}
	data := append([]byte{0x81, 0x81, byte(len(value))}, value...)
	elems, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems) != 1 || len(elems[0].Value) != len(value) {
		t.Fatalf("unexpected parse result: %+v", elems)
	}

	value2 := make([]byte, 300)
	data2 := append([]byte{0x81, 0x82, byte(len(value2) >> 8), byte(len(value2))}, value2...)
	elems2, err := Parse(data2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems2) != 1 || len(elems2[0].Value) != len(value2) {
		t.Fatalf("unexpected parse result: %+v", elems2)
	}
}

func TestParseSkipsFillerBytes(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x81, 0x01, 0x05}
	elems, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems) != 1 || elems[0].Tag != 0x81 || len(elems[0].Value) != 1 || elems[0].Value[0] != 0x05 {
		t.Fatalf("unexpected parse result: %+v", elems)
	}
}

func TestParseSequenceOfElements(t *testing.T) {
	data := []byte{
		0x81, 0x01, 0x0A,
		0x82, 0x02, 0x0B, 0x0C,
	}
	elems, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elems))
	}
	if elems[0].Tag != 0x81 || elems[1].Tag != 0x82 {
		t.Fatalf("unexpected tags: %04X %04X", elems[0].Tag, elems[1].Tag)
	}
}

func TestParseRejectsTruncatedBuffer(t *testing.T) {
	cases := [][]byte{
		{0x81},
		{0x81, 0x05, 0x01},
		{0x7F},
		{0x7F, 0x49},
		{0x81, 0x81},
		{0x81, 0x82, 0x00},
	}
	for _, data := range cases {
		if _, err := Parse(data); err == nil {
			t.Errorf("expected error for truncated input %x", data)
		}
	}
}

func TestParseRejectsThreeByteTags(t *testing.T) {
	data := []byte{0x7F, 0x9F, 0x49, 0x01, 0x00}
	if _, err := Parse(data); err == nil {
		t.Errorf("expected error for a 3-byte tag")
	}
}

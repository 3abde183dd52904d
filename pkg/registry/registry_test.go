/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package registry

import (
	"testing"

	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
)

func TestLookupFindsSeededRows(t *testing.T) {
	row, ok := Lookup(TagApplicationRelated)
	if !ok {
		t.Fatalf("expected to find %04X", TagApplicationRelated)
	}
	if !row.Constructed {
		t.Errorf("expected application-related data to be constructed")
	}
	if row.Get != GetterGenericData {
		t.Errorf("expected GetterGenericData, got %v", row.Get)
	}
}

func TestLookupMissing(t *testing.T) {
	if _, ok := Lookup(0xDEAD); ok {
		t.Errorf("expected no row for an unregistered tag")
	}
}

func TestTableOrderMatchesOriginalDriver(t *testing.T) {
	want := []uint16{
		TagAID, TagLoginData, TagCardholderRelated, TagApplicationRelated,
		TagSecuritySupport, TagPWStatus, TagPrivateDO1, TagPrivateDO2,
		TagURL, TagHistoricalBytes, TagCardholderCert,
		TagSignPubkeyRaw, TagEncPubkeyRaw, TagAuthPubkeyRaw,
		TagSignPubkeyEncoded, TagEncPubkeyEncoded, TagAuthPubkeyEncoded,
	}
	if len(Table) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(Table))
	}
	for i, tag := range want {
		if Table[i].Tag != tag {
			t.Errorf("row %d: expected tag %04X, got %04X", i, tag, Table[i].Tag)
		}
	}
}

type fakeTransmitter struct {
	resp *apdu.Response
	err  error
	got  apdu.Command
}

func (f *fakeTransmitter) Transmit(cmd apdu.Command) (*apdu.Response, error) {
	f.got = cmd
	return f.resp, f.err
}

func TestGenericGetDataBuildsExpectedAPDU(t *testing.T) {
	ft := &fakeTransmitter{resp: &apdu.Response{Data: []byte{0xAB}, SW1: 0x90, SW2: 0x00}}
	out, err := GenericGetData(ft, 0x006E, 256, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "\xAB" {
		t.Errorf("unexpected response data %x", out)
	}
	if ft.got.CLA != 0x00 || ft.got.INS != 0xCA || ft.got.P1 != 0x00 || ft.got.P2 != 0x6E {
		t.Errorf("unexpected command %+v", ft.got)
	}
}

func TestGenericPutDataAlwaysFails(t *testing.T) {
	if err := GenericPutData(TagLoginData, []byte("x")); err == nil {
		t.Errorf("expected PUT DATA to always fail")
	}
}

/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package registry holds the static, process-lifetime table of known
// OpenPGP Data Object tags. It does not itself talk to a card; getters
// and putters are dispatched by pkg/card against a concrete
// apdu.Transmitter.
package registry

import (
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
)

// Getter kind distinguishes how a DO's bytes are fetched, modeled as a
// closed enum rather than a bare function pointer so dispatch stays
// exhaustive and type-checked.
type Getter int

const (
	// GetterGenericData issues a plain GET DATA APDU for the row's tag.
	GetterGenericData Getter = iota
	// GetterPubkeyAPDU issues a raw GET PUBLIC KEY APDU.
	GetterPubkeyAPDU
	// GetterPubkeyEncoded resolves the modulus/exponent DOs under the
	// corresponding raw-pubkey tag and hands them to pkg/pkenc for
	// PEM encoding.
	GetterPubkeyEncoded
)

// Putter kind distinguishes how a DO is written back, if at all.
type Putter int

const (
	// PutterGenericData issues a plain PUT DATA APDU (never reached:
	// the driver rejects all writes).
	PutterGenericData Putter = iota
	// PutterRefused means there is no putter: any PUT DATA against
	// this tag fails NotSupported.
	PutterRefused
)

// Row is one entry of the DO Registry.
type Row struct {
	Tag         uint16
	Constructed bool
	Get         Getter
	Put         Putter
}

// Tags of the Data Objects this driver knows about.
const (
	TagAID                 uint16 = 0x004F
	TagLoginData           uint16 = 0x005E
	TagCardholderRelated   uint16 = 0x0065
	TagApplicationRelated  uint16 = 0x006E
	TagSecuritySupport     uint16 = 0x007A
	TagPWStatus            uint16 = 0x00C4
	TagPrivateDO1          uint16 = 0x0101
	TagPrivateDO2          uint16 = 0x0102
	TagURL                 uint16 = 0x5F50
	TagHistoricalBytes     uint16 = 0x5F52
	TagCardholderCert      uint16 = 0x7F21
	TagSignPubkeyRaw       uint16 = 0xB600
	TagEncPubkeyRaw        uint16 = 0xB800
	TagAuthPubkeyRaw       uint16 = 0xA400
	TagSignPubkeyEncoded   uint16 = 0xB601
	TagEncPubkeyEncoded    uint16 = 0xB801
	TagAuthPubkeyEncoded   uint16 = 0xA401
	TagPublicKeyTemplate   uint16 = 0x7F49
	TagModulus             uint16 = 0x0081
	TagExponent            uint16 = 0x0082
)

// Table is the seed set used at init, in the exact order the original
// driver's pgp_objects[] lists them — init seeds one child blob per
// row, in table order, and ListFiles reports them back in that same
// order.
var Table = []Row{
	{Tag: TagAID, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagLoginData, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagCardholderRelated, Constructed: true, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagApplicationRelated, Constructed: true, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagSecuritySupport, Constructed: true, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagPWStatus, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagPrivateDO1, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagPrivateDO2, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagURL, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagHistoricalBytes, Constructed: false, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagCardholderCert, Constructed: true, Get: GetterGenericData, Put: PutterGenericData},
	{Tag: TagSignPubkeyRaw, Constructed: true, Get: GetterPubkeyAPDU, Put: PutterRefused},
	{Tag: TagEncPubkeyRaw, Constructed: true, Get: GetterPubkeyAPDU, Put: PutterRefused},
	{Tag: TagAuthPubkeyRaw, Constructed: true, Get: GetterPubkeyAPDU, Put: PutterRefused},
	{Tag: TagSignPubkeyEncoded, Constructed: false, Get: GetterPubkeyEncoded, Put: PutterRefused},
	{Tag: TagEncPubkeyEncoded, Constructed: false, Get: GetterPubkeyEncoded, Put: PutterRefused},
	{Tag: TagAuthPubkeyEncoded, Constructed: false, Get: GetterPubkeyEncoded, Put: PutterRefused},
}

// Lookup finds the registry row for tag, if any.
func Lookup(tag uint16) (Row, bool) {
	for _, row := range Table {
		if row.Tag == tag {
			return row, true
		}
	}
	return Row{}, false
}

// GenericGetData builds and sends a plain GET DATA APDU for tag,
// mirroring the original driver's sc_get_data.
func GenericGetData(t apdu.Transmitter, tag uint16, bufLen int, extendedAPDU bool) ([]byte, error) {
	resp, err := apdu.Transmit(t, apdu.Command{
		CLA: 0x00,
		INS: 0xCA,
		P1:  byte(tag >> 8),
		P2:  byte(tag),
		Le:  apdu.LeFor(bufLen, extendedAPDU),
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GenericPutData always fails: the driver never writes DOs back.
func GenericPutData(uint16, []byte) error {
	return apdu.WrapNotSupported("put_data")
}

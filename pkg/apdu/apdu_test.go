/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package apdu

import (
	"errors"
	"testing"
)

type fakeTransmitter struct {
	resp *Response
	err  error
}

func (f *fakeTransmitter) Transmit(Command) (*Response, error) {
	return f.resp, f.err
}

func TestLeForShortAPDU(t *testing.T) {
	if got := LeFor(128, false); got != 128 {
		t.Errorf("expected 128, got %d", got)
	}
	if got := LeFor(1024, false); got != 256 {
		t.Errorf("expected clamp to 256, got %d", got)
	}
}

func TestLeForExtendedAPDU(t *testing.T) {
	if got := LeFor(2048, true); got != 2048 {
		t.Errorf("expected 2048, got %d", got)
	}
}

func TestTransmitSuccess(t *testing.T) {
	ft := &fakeTransmitter{resp: &Response{Data: []byte{1, 2, 3}, SW1: 0x90, SW2: 0x00}}
	resp, err := Transmit(ft, Command{INS: 0xCA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsOK() {
		t.Errorf("expected IsOK")
	}
}

func TestTransmitNonOKStatusWord(t *testing.T) {
	ft := &fakeTransmitter{resp: &Response{SW1: 0x6A, SW2: 0x88}}
	_, err := Transmit(ft, Command{INS: 0xCA})
	if err == nil {
		t.Errorf("expected an error for a non-9000 status word")
	}
}

func TestTransmitTransportFailure(t *testing.T) {
	ft := &fakeTransmitter{err: errors.New("reader unplugged")}
	_, err := Transmit(ft, Command{INS: 0xCA})
	if err == nil {
		t.Errorf("expected an error when the transport fails")
	}
}

func TestResponseHasMoreData(t *testing.T) {
	r := Response{SW1: 0x61, SW2: 0x10}
	if !r.HasMoreData() {
		t.Errorf("expected HasMoreData for SW1=0x61")
	}
	ok := Response{SW1: 0x90, SW2: 0x00}
	if ok.HasMoreData() {
		t.Errorf("did not expect HasMoreData for SW=9000")
	}
}

func TestWrapNotSupported(t *testing.T) {
	if err := WrapNotSupported("put_data"); err == nil {
		t.Errorf("expected a non-nil error")
	}
}

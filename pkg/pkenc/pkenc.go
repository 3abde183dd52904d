/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package pkenc turns an {algorithm, modulus, exponent} descriptor
// into an owned byte buffer: the minimal RSA-only DER
// SubjectPublicKeyInfo + PEM wrapping the PEM-style pubkey getter
// hands its bytes to.
package pkenc

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"

	"github.com/pkg/errors"
)

// Algorithm identifies the key algorithm being encoded. The driver
// only ever produces RSA.
type Algorithm int

const (
	AlgorithmRSA Algorithm = iota
)

// PublicKey is the {algorithm, modulus, exponent} descriptor assembled
// from the card's 0x0081/0x0082 DOs.
type PublicKey struct {
	Algorithm Algorithm
	Modulus   []byte
	Exponent  []byte
}

// EncodePEM renders a PublicKey as a PEM-wrapped PKIX
// SubjectPublicKeyInfo block, the canonical encoded form callers
// exporting a public key expect.
func EncodePEM(pk PublicKey) ([]byte, error) {
	if pk.Algorithm != AlgorithmRSA {
		return nil, errors.New("pkenc: only RSA public keys are supported")
	}
	if len(pk.Modulus) == 0 || len(pk.Exponent) == 0 {
		return nil, errors.New("pkenc: empty modulus or exponent")
	}

	e := new(big.Int).SetBytes(pk.Exponent)
	if !e.IsInt64() || e.Int64() == 0 || e.Int64() > int64(^uint32(0)) {
		return nil, errors.New("pkenc: exponent out of range")
	}

	rsaKey := &rsa.PublicKey{
		N: new(big.Int).SetBytes(pk.Modulus),
		E: int(e.Int64()),
	}

	der, err := x509.MarshalPKIXPublicKey(rsaKey)
	if err != nil {
		return nil, errors.Wrap(err, "marshal public key")
	}

	block := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}
	return pem.EncodeToMemory(block), nil
}

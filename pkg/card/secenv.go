/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package card

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nydus-snapshotter/openpgp-card/internal/errdefs"
)

// SecurityEnvRequest is the caller-supplied security-environment
// selection that SetSecurityEnv validates.
type SecurityEnvRequest struct {
	Operation  Operation
	Algorithm  *Algorithm // nil if unspecified
	KeyRef     []byte     // must be exactly one byte if present
	HasKeyRef  bool
	HasFileRef bool // file references are never allowed
}

// Algorithm identifies a requested crypto algorithm. The driver only
// ever accepts RSA.
type Algorithm int

const (
	AlgorithmRSA Algorithm = iota
)

// SetSecurityEnv validates the request and, on success, snapshots it
// into the session for the next ComputeSignature/Decipher call to
// consult.
func (c *Card) SetSecurityEnv(_ context.Context, req SecurityEnvRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Algorithm != nil && *req.Algorithm != AlgorithmRSA {
		return errors.Wrap(errdefs.ErrInvalidArguments, "only RSA is supported")
	}
	if !req.HasKeyRef || len(req.KeyRef) != 1 {
		return errors.Wrap(errdefs.ErrInvalidArguments, "exactly one key reference byte is required")
	}
	if req.HasFileRef {
		return errors.Wrap(errdefs.ErrInvalidArguments, "file references are not supported")
	}

	keyRef := req.KeyRef[0]
	switch req.Operation {
	case OperationSign:
		if keyRef != 0x00 && keyRef != 0x02 {
			return errors.Wrap(errdefs.ErrNotSupported, "key reference not compatible with signing")
		}
	case OperationDecipher:
		if keyRef != 0x01 {
			return errors.Wrap(errdefs.ErrNotSupported, "key reference not compatible with decipherment")
		}
	default:
		return errors.Wrap(errdefs.ErrInvalidArguments, "unknown security operation")
	}

	c.sec = SecurityEnv{
		Operation: req.Operation,
		KeyRef:    keyRef,
		HasAlg:    req.Algorithm != nil,
	}
	return nil
}

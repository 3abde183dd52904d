/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package errdefs defines the card driver's error kinds and
// classification helpers, independent of how the host framework maps
// them to its own status codes.
package errdefs

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is the out-of-memory error kind. No function in
	// this module returns it: blob-tree allocation in Init has no
	// failure path.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrFileNotFound is returned when path resolution can't find an id.
	ErrFileNotFound = errors.New("file not found")
	// ErrObjectInvalid is returned on malformed or truncated BER-TLV.
	ErrObjectInvalid = errors.New("object invalid")
	// ErrInvalidArguments is returned for malformed security-env requests
	// and key-reference/operation mismatches that are caller errors.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrIncorrectParameters is returned when a read offset exceeds the blob length.
	ErrIncorrectParameters = errors.New("incorrect parameters")
	// ErrNotSupported is returned for writes, PUT DATA, and unhandled card_ctl commands.
	ErrNotSupported = errors.New("not supported")
)

// IsOutOfMemory returns true if err is (or wraps) ErrOutOfMemory.
func IsOutOfMemory(err error) bool { return errors.Is(err, ErrOutOfMemory) }

// IsFileNotFound returns true if err is (or wraps) ErrFileNotFound.
func IsFileNotFound(err error) bool { return errors.Is(err, ErrFileNotFound) }

// IsObjectInvalid returns true if err is (or wraps) ErrObjectInvalid.
func IsObjectInvalid(err error) bool { return errors.Is(err, ErrObjectInvalid) }

// IsInvalidArguments returns true if err is (or wraps) ErrInvalidArguments.
func IsInvalidArguments(err error) bool { return errors.Is(err, ErrInvalidArguments) }

// IsIncorrectParameters returns true if err is (or wraps) ErrIncorrectParameters.
func IsIncorrectParameters(err error) bool { return errors.Is(err, ErrIncorrectParameters) }

// IsNotSupported returns true if err is (or wraps) ErrNotSupported.
func IsNotSupported(err error) bool { return errors.Is(err, ErrNotSupported) }

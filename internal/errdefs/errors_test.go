/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package errdefs

import (
	"testing"

	"github.com/pkg/errors"
)

func TestIsPredicatesMatchWrappedErrors(t *testing.T) {
	wrapped := errors.Wrap(ErrFileNotFound, "no such Data Object")
	if !IsFileNotFound(wrapped) {
		t.Errorf("expected IsFileNotFound to match a wrapped ErrFileNotFound")
	}
	if IsObjectInvalid(wrapped) {
		t.Errorf("did not expect IsObjectInvalid to match ErrFileNotFound")
	}
}

func TestIsPredicatesRejectUnrelatedErrors(t *testing.T) {
	other := errors.New("some other failure")
	if IsFileNotFound(other) || IsObjectInvalid(other) || IsNotSupported(other) {
		t.Errorf("did not expect any predicate to match an unrelated error")
	}
}

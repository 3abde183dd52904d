/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetUpRejectsBadLevel(t *testing.T) {
	if err := SetUp("not-a-level", true, ""); err == nil {
		t.Errorf("expected an error for an invalid log level")
	}
}

func TestSetUpAcceptsStdout(t *testing.T) {
	if err := SetUp("info", true, ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGFallsBackToStandardLogger(t *testing.T) {
	entry := G(context.Background())
	if entry == nil {
		t.Fatalf("expected a non-nil entry")
	}
}

func TestWithLoggerRoundTrips(t *testing.T) {
	custom := logrus.NewEntry(logrus.New())
	ctx := WithLogger(WithContext(), custom)
	if G(ctx) != custom {
		t.Errorf("expected G to return the attached entry")
	}
}

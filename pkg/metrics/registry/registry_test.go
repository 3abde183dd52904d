/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package registry

import "testing"

func TestRegistryGathersWithoutError(t *testing.T) {
	if _, err := Registry.Gather(); err != nil {
		t.Errorf("unexpected error gathering metrics: %v", err)
	}
}

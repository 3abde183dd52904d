/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nydus-snapshotter/openpgp-card/pkg/metrics/data"
)

// Registry is the process-lifetime Prometheus registry every collector
// in pkg/metrics/data is registered against.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		data.APDUTransmitTotal,
		data.APDUTransmitDuration,
		data.BlobLoadFailuresTotal,
	)
}

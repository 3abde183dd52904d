/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package data declares the Prometheus collectors the driver exports,
// grouped by concern.
package data

import "github.com/prometheus/client_golang/prometheus"

var (
	insLabel  = "ins"
	tagLabel  = "tag"
	kindLabel = "kind"
)

var (
	// APDUTransmitTotal counts every APDU sent, by instruction byte and
	// outcome ("ok" or "error").
	APDUTransmitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openpgp_card_apdu_transmit_total",
			Help: "Number of APDUs transmitted, by instruction byte and outcome.",
		},
		[]string{insLabel, "outcome"},
	)

	// APDUTransmitDuration observes wall-clock transmit latency.
	APDUTransmitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openpgp_card_apdu_transmit_duration_seconds",
			Help:    "APDU transmit latency in seconds, by instruction byte.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{insLabel},
	)

	// BlobLoadFailuresTotal counts lazy-load failures by DO tag and the
	// failing step ("load" or "expand").
	BlobLoadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openpgp_card_blob_load_failures_total",
			Help: "Number of lazy blob load/expand failures, by tag and step.",
		},
		[]string{tagLabel, kindLabel},
	)
)

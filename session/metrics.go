/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	metrics.go: session counters.
*/
package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnsshub_frames_total",
		Help: "Verified frames extracted from the byte stream.",
	}, []string{"protocol"})

	metricFramingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gnsshub_framing_errors_total",
		Help: "Sync-matched spans that failed length or checksum validation.",
	})

	metricDiscardedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gnsshub_discarded_bytes_total",
		Help: "Stream bytes dropped during resynchronization.",
	})

	metricDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnsshub_decode_errors_total",
		Help: "Verified frames whose payload could not be decoded.",
	}, []string{"kind"})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnsshub_commands_total",
		Help: "Outbound command resolutions by outcome.",
	}, []string{"outcome"})

	metricConsumerDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gnsshub_consumer_drops_total",
		Help: "Messages dropped because a consumer channel was full.",
	})
)

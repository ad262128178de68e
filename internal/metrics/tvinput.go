// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the TV input service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No session ids or channel uris in labels.
var (
	// Channel directory
	DirectoryRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_directory_rebuilds_total",
		Help: "Channel directory rebuilds, by outcome.",
	}, []string{"outcome"}) // outcome=ok|error

	DirectoryChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvinput_directory_channels",
		Help: "Number of channels in the directory after the last rebuild.",
	})

	// Tuning
	TunesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_tunes_total",
		Help: "Tune requests, by result.",
	}, []string{"result"}) // result=ok|bind_failed|unknown_channel|released|error

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvinput_active_sessions",
		Help: "Current number of open tuning sessions.",
	})

	// Program scheduler
	ScheduledSlotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_scheduled_slots_total",
		Help: "Synthetic program slots considered by the scheduler, by outcome.",
	}, []string{"outcome"}) // outcome=inserted|exists|error

	// Banner
	IconCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_icon_cache_lookups_total",
		Help: "Input icon cache lookups, by result.",
	}, []string{"result"}) // result=hit|miss

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvinput_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"breaker"})

	CircuitBreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_circuit_breaker_trips_total",
		Help: "Transitions into the open state, by reason.",
	}, []string{"breaker", "reason"})

	// Recordings
	RecordingWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvinput_recording_writes_total",
		Help: "Recorded program writes, by operation.",
	}, []string{"op"}) // op=insert|update|delete
)

// RecordDirectoryRebuild records one directory rebuild and the resulting size.
func RecordDirectoryRebuild(err error, channels int) {
	if err != nil {
		DirectoryRebuildsTotal.WithLabelValues("error").Inc()
		return
	}
	DirectoryRebuildsTotal.WithLabelValues("ok").Inc()
	DirectoryChannels.Set(float64(channels))
}

// RecordTune increments the tune counter.
func RecordTune(result string) {
	TunesTotal.WithLabelValues(result).Inc()
}

// IncActiveSessions increments the open session gauge.
func IncActiveSessions() { ActiveSessions.Inc() }

// DecActiveSessions decrements the open session gauge.
func DecActiveSessions() { ActiveSessions.Dec() }

// RecordScheduledSlot increments the scheduler slot counter.
func RecordScheduledSlot(outcome string) {
	ScheduledSlotsTotal.WithLabelValues(outcome).Inc()
}

// RecordIconCacheLookup increments the icon cache lookup counter.
func RecordIconCacheLookup(hit bool) {
	if hit {
		IconCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	IconCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordRecordingWrite increments the recording write counter.
func RecordRecordingWrite(op string) {
	RecordingWritesTotal.WithLabelValues(op).Inc()
}

// SetCircuitBreakerState publishes the state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(breaker).Set(v)
}

// RecordCircuitBreakerTrip counts one trip of breaker.
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTripsTotal.WithLabelValues(breaker, reason).Inc()
}

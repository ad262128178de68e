// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span the daemon emits.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	ChannelNumberKey = "tv.channel.number"
	ChannelURIKey    = "tv.channel.uri"
	ChannelCountKey  = "tv.channel.count"

	SessionIDKey    = "tv.session.id"
	TuneSourceKey   = "tv.tune.source"
	TuneResultKey   = "tv.tune.result"
	TuneLoopingKey  = "tv.tune.looping"
	ScheduleSlotKey = "tv.schedule.slots"
	InsertedKey     = "tv.schedule.inserted"

	RecordingIDKey = "tv.recording.id"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ChannelAttributes describes the channel a span operates on. Empty values are omitted.
func ChannelAttributes(number, uri string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if number != "" {
		attrs = append(attrs, attribute.String(ChannelNumberKey, number))
	}
	if uri != "" {
		attrs = append(attrs, attribute.String(ChannelURIKey, uri))
	}
	return attrs
}

// TuneAttributes describes a tune attempt.
func TuneAttributes(sessionID, source string, looping, ok bool) []attribute.KeyValue {
	result := "failed"
	if ok {
		result = "ok"
	}
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(TuneSourceKey, source),
		attribute.Bool(TuneLoopingKey, looping),
		attribute.String(TuneResultKey, result),
	}
}

// ScheduleAttributes describes one scheduler run.
func ScheduleAttributes(slots, inserted int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ScheduleSlotKey, slots),
		attribute.Int(InsertedKey, inserted),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

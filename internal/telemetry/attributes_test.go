// SPDX-License-Identifier: MIT

package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func find(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestChannelAttributes_OmitsEmpty(t *testing.T) {
	attrs := ChannelAttributes("1-1", "")
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if v, _ := find(attrs, ChannelNumberKey); v.AsString() != "1-1" {
		t.Errorf("channel number = %q", v.AsString())
	}
	if len(ChannelAttributes("", "")) != 0 {
		t.Error("expected no attributes for empty channel")
	}
}

func TestTuneAttributes(t *testing.T) {
	attrs := TuneAttributes("abc", "resource", true, false)
	if v, _ := find(attrs, TuneResultKey); v.AsString() != "failed" {
		t.Errorf("result = %q, want failed", v.AsString())
	}
	if v, _ := find(attrs, TuneLoopingKey); !v.AsBool() {
		t.Error("looping should be true")
	}
}

func TestScheduleAndErrorAttributes(t *testing.T) {
	attrs := ScheduleAttributes(24, 3)
	if v, _ := find(attrs, InsertedKey); v.AsInt64() != 3 {
		t.Errorf("inserted = %d", v.AsInt64())
	}
	attrs = ErrorAttributes(errors.New("x"), "unknown_channel")
	if v, _ := find(attrs, ErrorTypeKey); v.AsString() != "unknown_channel" {
		t.Errorf("error.type = %q", v.AsString())
	}
	attrs = HTTPAttributes("GET", "/api/channels", 200)
	if v, _ := find(attrs, HTTPStatusCodeKey); v.AsInt64() != 200 {
		t.Errorf("status = %d", v.AsInt64())
	}
}

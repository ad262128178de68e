// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"sync"
	"time"
)

// PerformanceMonitor measures startup.
type PerformanceMonitor struct {
	now func() time.Time

	mu      sync.Mutex
	loaded  time.Time
	created time.Time
}

// NewPerformanceMonitor starts measuring at construction time.
func NewPerformanceMonitor(now func() time.Time) *PerformanceMonitor {
	if now == nil {
		now = time.Now
	}
	return &PerformanceMonitor{now: now, loaded: now()}
}

// MarkCreated records the end of startup. Later calls are ignored.
func (p *PerformanceMonitor) MarkCreated() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.created.IsZero() {
		p.created = p.now()
	}
}

// StartupDuration is the time between construction and MarkCreated, or zero
// while startup is still running.
func (p *PerformanceMonitor) StartupDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.created.IsZero() {
		return 0
	}
	return p.created.Sub(p.loaded)
}

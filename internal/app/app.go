// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package app holds the process-wide collaborators of the TV input daemon.
// Everything is constructed once and handed out explicitly; nothing here
// reaches for globals.
package app

import (
	"sync"
	"time"

	"github.com/ManuGH/tvinput/internal/config"
)

// BuildType identifies the flavour of the build.
type BuildType string

// BuildTypeAOSP is the open-source build.
const BuildTypeAOSP BuildType = "AOSP"

// TunerSetup describes how a client launches setup for the embedded input.
type TunerSetup struct {
	InputID string `json:"input_id"`
	// AfterCompletion names the screen opened once setup finishes.
	AfterCompletion string `json:"after_completion"`
}

// Singletons is the composition root of the daemon's shared services.
// Accessors that build lazily are safe for concurrent use.
type Singletons struct {
	cfg     config.AppConfig
	epg     EpgSource
	perf    *PerformanceMonitor
	knobs   BackendKnobs
	cloud   CloudEpgFlags
	dvrPlay ConcurrentDvrPlaybackFlags

	analyticsOnce sync.Once
	analytics     Analytics
	trackerOnce   sync.Once
	tracker       Tracker
	accountOnce   sync.Once
	accounts      *AccountHelper
}

// New builds the singletons. epg backs the EPG reader.
func New(cfg config.AppConfig, epg EpgSource, perf *PerformanceMonitor) *Singletons {
	if perf == nil {
		perf = NewPerformanceMonitor(time.Now)
	}
	return &Singletons{
		cfg:     cfg,
		epg:     epg,
		perf:    perf,
		knobs:   BackendKnobsFrom(cfg.Flags),
		cloud:   CloudEpgFlagsFrom(cfg.Flags),
		dvrPlay: ConcurrentDvrPlaybackFlagsFrom(cfg.Flags),
	}
}

// Analytics returns the analytics service.
func (s *Singletons) Analytics() Analytics {
	s.analyticsOnce.Do(func() { s.analytics = NewStubAnalytics() })
	return s.analytics
}

// Tracker returns the default tracker.
func (s *Singletons) Tracker() Tracker {
	s.trackerOnce.Do(func() { s.tracker = s.Analytics().DefaultTracker() })
	return s.tracker
}

// EpgReader returns a fresh reader over the provider.
func (s *Singletons) EpgReader() EpgReader {
	return NewStubEpgReader(s.epg, s.cfg.InputID)
}

// AccountHelper returns the account helper.
func (s *Singletons) AccountHelper() *AccountHelper {
	s.accountOnce.Do(func() { s.accounts = &AccountHelper{} })
	return s.accounts
}

func (s *Singletons) PerformanceMonitor() *PerformanceMonitor                { return s.perf }
func (s *Singletons) BackendKnobs() BackendKnobs                             { return s.knobs }
func (s *Singletons) CloudEpgFlags() CloudEpgFlags                           { return s.cloud }
func (s *Singletons) ConcurrentDvrPlaybackFlags() ConcurrentDvrPlaybackFlags { return s.dvrPlay }
func (s *Singletons) BuildType() BuildType                                   { return BuildTypeAOSP }

// BuiltInTunerManager reports whether the build carries a hardware tuner.
// It never does.
func (s *Singletons) BuiltInTunerManager() (any, bool) { return nil, false }

// TunerSetup returns the setup descriptor of the embedded input.
func (s *Singletons) TunerSetup() TunerSetup {
	return TunerSetup{InputID: s.cfg.InputID, AfterCompletion: "tv"}
}

// Info is a serializable summary of the singletons.
type Info struct {
	Version               string                     `json:"version"`
	BuildType             BuildType                  `json:"build_type"`
	TunerSetup            TunerSetup                 `json:"tuner_setup"`
	BackendKnobs          BackendKnobs               `json:"backend_knobs"`
	CloudEpg              CloudEpgFlags              `json:"cloud_epg"`
	ConcurrentDvrPlayback ConcurrentDvrPlaybackFlags `json:"concurrent_dvr_playback"`
	Accounts              int                        `json:"accounts"`
	StartupMillis         int64                      `json:"startup_ms"`
}

// Info summarizes the running configuration.
func (s *Singletons) Info() Info {
	return Info{
		Version:               s.cfg.Version,
		BuildType:             s.BuildType(),
		TunerSetup:            s.TunerSetup(),
		BackendKnobs:          s.knobs,
		CloudEpg:              s.cloud,
		ConcurrentDvrPlayback: s.dvrPlay,
		Accounts:              len(s.AccountHelper().Accounts()),
		StartupMillis:         s.perf.StartupDuration().Milliseconds(),
	}
}

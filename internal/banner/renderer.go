// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package banner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/provider"
)

// ProgramSource finds the program airing on a channel.
type ProgramSource interface {
	CurrentProgram(ctx context.Context, channelID, nowMillis int64) (provider.ProgramRow, error)
}

// Options configure a Renderer.
type Options struct {
	Programs ProgramSource
	// InputIcons caches the TV input logo, keyed by input id.
	InputIcons   *IconCache
	InputIconURL string
	// ChannelLogos caches channel logos, keyed by logo URI.
	ChannelLogos *IconCache
	// TimeFormat is a time layout for the program window. Defaults to "15:04".
	TimeFormat string
	Location   *time.Location
	// TitleWidthPx is the measurable width of the program title. Zero means
	// layout has not happened yet.
	TitleWidthPx int
	Bus          bus.Bus
	Now          func() time.Time
	// RefreshRate caps program refreshes per second while the guide is being
	// filled. Changes arriving in between are coalesced.
	RefreshRate rate.Limit
}

// DefaultRefreshRate is the RefreshRate used when none is set.
const DefaultRefreshRate rate.Limit = 4

// Renderer owns the banners of all sessions and keeps them current as the
// guide changes.
type Renderer struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	banners map[string]*Banner
}

// NewRenderer returns a renderer with defaults applied.
func NewRenderer(opts Options) *Renderer {
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = DefaultRefreshRate
	}
	return &Renderer{
		opts:    opts,
		logger:  log.WithComponent("banner"),
		banners: make(map[string]*Banner),
	}
}

// Banner returns the banner of a session, creating it on first use.
func (r *Renderer) Banner(sessionID string) *Banner {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.banners[sessionID]
	if !ok {
		b = &Banner{opts: &r.opts, width: r.opts.TitleWidthPx}
		r.banners[sessionID] = b
	}
	return b
}

// Drop forgets a session's banner.
func (r *Renderer) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.banners, sessionID)
}

func (r *Renderer) all() []*Banner {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Banner, 0, len(r.banners))
	for _, b := range r.banners {
		out = append(out, b)
	}
	return out
}

// Watch re-renders the program section of every banner whenever programs
// change in the provider. It returns when ctx is done.
func (r *Renderer) Watch(ctx context.Context) error {
	if r.opts.Bus == nil {
		return errors.New("banner: no bus configured")
	}
	sub, err := provider.Subscribe(ctx, r.opts.Bus, provider.TablePrograms)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	limiter := rate.NewLimiter(r.opts.RefreshRate, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			if change, ok := msg.(provider.Change); ok {
				r.logger.Debug().Str("uri", change.URI).Msg("program change, refreshing banners")
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			open := drain(sub.C())
			r.refreshPrograms(ctx)
			if !open {
				return nil
			}
		}
	}
}

func (r *Renderer) refreshPrograms(ctx context.Context) {
	for _, b := range r.all() {
		b.UpdateProgram(ctx)
	}
}

// drain discards queued notifications and reports whether c is still open.
func drain(c <-chan bus.Message) bool {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// Banner is the banner of one session.
type Banner struct {
	opts *Options

	mu           sync.Mutex
	state        ChannelState
	hasState     bool
	view         View
	width        int
	retryPending bool
}

// View returns the last rendered view.
func (b *Banner) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Update renders the whole banner for a new channel or stream state.
func (b *Banner) Update(ctx context.Context, state ChannelState, stream StreamInfo) View {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = state
	b.hasState = true
	v := &b.view

	v.InputLogo = Image{}
	if b.opts.InputIcons != nil && state.InputID != "" {
		v.InputLogo = imageOf(b.opts.InputIcons.Get(ctx, state.InputID, b.opts.InputIconURL))
	}

	v.ClosedCaption = Text{}
	if stream.HasClosedCaption {
		v.ClosedCaption = shown("CC")
	}
	v.Resolution = shown(ResolutionLabel(stream.DefinitionLevel))
	v.AspectRatio = shown(AspectRatioLabel(stream.VideoWidth, stream.VideoHeight))
	v.AudioChannel = shown(AudioChannelLabel(stream.AudioChannels))

	size := ChannelNumberSize(state.DisplayNumber)
	v.ChannelNumber = Text{Text: state.DisplayNumber, Visible: true, Size: size, TopMargin: size}
	v.ChannelName = Text{Text: state.DisplayName, Visible: true}

	v.ChannelLogo = Image{}
	if b.opts.ChannelLogos != nil && state.LogoURI != "" {
		v.ChannelLogo = imageOf(b.opts.ChannelLogos.Get(ctx, state.LogoURI, state.LogoURI))
	}

	b.updateProgramLocked(ctx)
	return b.view
}

// UpdateProgram re-renders only the program section.
func (b *Banner) UpdateProgram(ctx context.Context) View {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updateProgramLocked(ctx)
	return b.view
}

// OnLayout reports the measured title width. A title update that was waiting
// for it runs once.
func (b *Banner) OnLayout(ctx context.Context, widthPx int) View {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = widthPx
	if b.retryPending {
		b.retryPending = false
		b.updateProgramLocked(ctx)
	}
	return b.view
}

func (b *Banner) updateProgramLocked(ctx context.Context) {
	v := &b.view
	v.Deferred = false

	if !b.hasState || b.state.ChannelURI == "" {
		b.noProgramLocked()
		return
	}
	channelID, err := provider.ParseID(b.state.ChannelURI)
	if err != nil {
		b.noProgramLocked()
		return
	}
	now := b.opts.Now()
	var program provider.ProgramRow
	if b.opts.Programs != nil {
		program, err = b.opts.Programs.CurrentProgram(ctx, channelID, now.UnixMilli())
	} else {
		err = provider.ErrNotFound
	}
	if err != nil {
		if !errors.Is(err, provider.ErrNotFound) {
			logger := log.WithComponent("banner")
			logger.Warn().Err(err).Str(log.FieldChannelURI, b.state.ChannelURI).Msg("current program lookup failed")
		}
		b.noProgramLocked()
		return
	}

	if program.Title == "" {
		v.ProgramTitle = Text{Text: NoProgramInformation, Visible: true}
		v.ProgramTime = Text{}
		v.RemainingTime = Progress{}
	} else {
		b.layoutTitleLocked(program.Title)
		start, end := program.StartTimeUTCMillis, program.EndTimeUTCMillis
		if start > 0 && end > 0 {
			v.ProgramTime = shown(FormatTimeRange(start, end, b.opts.TimeFormat, b.opts.Location))
			v.RemainingTime = Progress{Visible: true, Percent: RemainingPercent(start, end, now.UnixMilli())}
		} else {
			v.ProgramTime = Text{}
			v.RemainingTime = Progress{}
		}
	}
	v.Description = shown(program.ShortDescription)
}

// layoutTitleLocked picks the title size and anchor. Without a known width
// the title is laid out large on one line and the update is retried once
// layout completes.
func (b *Banner) layoutTitleLocked(title string) {
	v := &b.view
	if b.width <= 0 {
		b.retryPending = true
		v.Deferred = true
	}

	size, oneLine := SizeLarge, true
	if EstimateLineCount(title, programLargePx, b.width) > 1 {
		size = SizeMedium
		if EstimateLineCount(title, programMediumPx, b.width) > 1 {
			oneLine = false
		}
	}
	v.ProgramTitle = Text{Text: title, Visible: true, Size: size, TopMargin: size}
	v.Anchor = AnchorTwoLine
	if oneLine {
		v.Anchor = AnchorOneLine
	}
}

func (b *Banner) noProgramLocked() {
	v := &b.view
	v.ProgramTitle = Text{Text: NoProgramInformation, Visible: true}
	v.ProgramTime = Text{}
	v.RemainingTime = Progress{}
	v.Description = Text{}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/media/ffmpeg/watchdog"
	"github.com/ManuGH/tvinput/internal/procgroup"
)

const (
	defaultStartTimeout = 15 * time.Second
	defaultStallTimeout = 10 * time.Second
)

type playerState int

const (
	stateIdle playerState = iota
	stateInitialized
	statePreparing
	statePrepared
	stateStarted
	stateReleased
)

// FFmpegPlayer plays a source by running ffmpeg in real time into the bound
// surface. Preparation probes the input with ffprobe.
type FFmpegPlayer struct {
	FFmpegBin  string
	FFprobeBin string
	Logger     zerolog.Logger
	// StartTimeout and StallTimeout bound how long the process may go
	// without progress. Zero uses the defaults.
	StartTimeout time.Duration
	StallTimeout time.Duration

	mu        sync.Mutex
	state     playerState
	src       Source
	looping   bool
	surface   string
	volume    float64
	probe     ProbeResult
	offset    time.Duration
	startedAt time.Time
	cmd       *exec.Cmd
	stopCh    chan struct{}
	exited    chan struct{}
	gen       int

	onPrepared func()
	onSize     func(int, int)
	onError    func(error)
}

// NewFFmpegPlayer returns an idle player.
func NewFFmpegPlayer(ffmpegBin, ffprobeBin string, logger zerolog.Logger) *FFmpegPlayer {
	return &FFmpegPlayer{
		FFmpegBin:  ffmpegBin,
		FFprobeBin: ffprobeBin,
		Logger:     logger,
		volume:     1.0,
	}
}

// SetDataSource binds src. URLs must be absolute; files must exist.
func (p *FFmpegPlayer) SetDataSource(src Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != stateIdle {
		return fmt.Errorf("%w: set data source in state %d", ErrIllegalState, p.state)
	}
	switch {
	case src.URL != "":
		u, err := url.Parse(src.URL)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSource, src.URL)
		}
	case src.Path != "":
		if _, err := os.Stat(src.Path); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
	default:
		return fmt.Errorf("%w: empty source", ErrInvalidSource)
	}
	p.src = src
	p.state = stateInitialized
	return nil
}

func (p *FFmpegPlayer) SetLooping(loop bool) {
	p.mu.Lock()
	p.looping = loop
	p.mu.Unlock()
}

func (p *FFmpegPlayer) OnPrepared(fn func()) {
	p.mu.Lock()
	p.onPrepared = fn
	p.mu.Unlock()
}

func (p *FFmpegPlayer) OnVideoSizeChanged(fn func(int, int)) {
	p.mu.Lock()
	p.onSize = fn
	p.mu.Unlock()
}

func (p *FFmpegPlayer) OnError(fn func(error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// PrepareAsync probes the source in the background and fires the size and
// prepared callbacks when done. No timeout is applied beyond ctx.
func (p *FFmpegPlayer) PrepareAsync(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateInitialized {
		p.mu.Unlock()
		return fmt.Errorf("%w: prepare in state %d", ErrIllegalState, p.state)
	}
	p.state = statePreparing
	gen := p.gen
	input := p.src.Input()
	p.mu.Unlock()

	go func() {
		res, err := Probe(ctx, p.FFprobeBin, input)

		p.mu.Lock()
		if p.gen != gen || p.state != statePreparing {
			p.mu.Unlock()
			return
		}
		if err != nil {
			p.state = stateIdle
			onError := p.onError
			p.mu.Unlock()
			p.Logger.Warn().Err(err).Str("input", input).Msg("prepare failed")
			if onError != nil {
				onError(err)
			}
			return
		}
		p.probe = res
		p.state = statePrepared
		onSize, onPrepared := p.onSize, p.onPrepared
		p.mu.Unlock()

		if onSize != nil && res.Width > 0 && res.Height > 0 {
			onSize(res.Width, res.Height)
		}
		if onPrepared != nil {
			onPrepared()
		}
	}()
	return nil
}

func (p *FFmpegPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateStarted
}

func (p *FFmpegPlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probe.Duration
}

// SeekTo moves the playback position, restarting the process when playing.
func (p *FFmpegPlayer) SeekTo(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != statePrepared && p.state != stateStarted {
		return fmt.Errorf("%w: seek in state %d", ErrIllegalState, p.state)
	}
	p.offset = pos
	if p.state == stateStarted {
		return p.restartLocked()
	}
	return nil
}

// Start launches ffmpeg at the current offset.
func (p *FFmpegPlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case stateStarted:
		return nil
	case statePrepared:
	default:
		return fmt.Errorf("%w: start in state %d", ErrIllegalState, p.state)
	}
	if err := p.spawnLocked(); err != nil {
		return err
	}
	p.state = stateStarted
	return nil
}

func (p *FFmpegPlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v == p.volume {
		return
	}
	p.volume = v
	if p.state == stateStarted {
		p.offset = p.positionLocked()
		_ = p.restartLocked()
	}
}

func (p *FFmpegPlayer) SetSurface(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target == p.surface {
		return
	}
	p.surface = target
	if p.state == stateStarted {
		p.offset = p.positionLocked()
		_ = p.restartLocked()
	}
}

// Reset stops playback and returns to idle.
func (p *FFmpegPlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateReleased {
		return
	}
	p.stopLocked()
	p.gen++
	p.src = Source{}
	p.probe = ProbeResult{}
	p.offset = 0
	p.looping = false
	p.state = stateIdle
}

// Release stops playback for good. Callbacks are dropped.
func (p *FFmpegPlayer) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateReleased {
		return
	}
	p.stopLocked()
	p.gen++
	p.onPrepared, p.onSize, p.onError = nil, nil, nil
	p.state = stateReleased
}

func (p *FFmpegPlayer) positionLocked() time.Duration {
	pos := p.offset + time.Since(p.startedAt)
	if p.looping && p.probe.Duration > 0 {
		pos %= p.probe.Duration
	}
	return pos
}

func (p *FFmpegPlayer) restartLocked() error {
	p.stopLocked()
	return p.spawnLocked()
}

// Args returns the ffmpeg command line for the current state.
func (p *FFmpegPlayer) Args() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.argsLocked()
}

func (p *FFmpegPlayer) argsLocked() []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-nostats", "-progress", "pipe:1", "-re"}
	if p.looping {
		args = append(args, "-stream_loop", "-1")
	}
	if p.offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(p.offset.Seconds(), 'f', 3, 64))
	}
	args = append(args, "-i", p.src.Input())
	args = append(args, "-af", "volume="+strconv.FormatFloat(p.volume, 'f', 2, 64))
	if p.surface == "" {
		return append(args, "-f", "null", "-")
	}
	return append(args, "-c:v", "copy", "-c:a", "aac", "-f", "mpegts", p.surface)
}

func (p *FFmpegPlayer) spawnLocked() error {
	bin := p.FFmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.Command(bin, p.argsLocked()...) // #nosec G204
	progress, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg progress pipe: %w", err)
	}
	cmd.Stderr = nil
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start failed: %w", err)
	}
	stop := make(chan struct{})
	exited := make(chan struct{})
	p.cmd = cmd
	p.stopCh = stop
	p.exited = exited
	p.startedAt = time.Now()

	p.Logger.Info().
		Int("pid", cmd.Process.Pid).
		Str("input", p.src.Input()).
		Dur("offset", p.offset).
		Bool("looping", p.looping).
		Msg("started media process")

	wd := watchdog.New(orDefault(p.StartTimeout, defaultStartTimeout), orDefault(p.StallTimeout, defaultStallTimeout))
	wdCtx, wdCancel := context.WithCancel(context.Background())
	stalled := make(chan error, 1)
	go func() {
		if err := wd.Run(wdCtx); err != nil {
			stalled <- err
			_ = procgroup.Kill(cmd)
		}
	}()

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		sc := bufio.NewScanner(progress)
		for sc.Scan() {
			wd.Observe(sc.Text())
		}
	}()

	go func() {
		<-scanned
		err := cmd.Wait()
		wdCancel()
		close(exited)
		select {
		case werr := <-stalled:
			err = werr
		default:
		}
		select {
		case <-stop:
			return
		default:
		}
		p.mu.Lock()
		if p.cmd != cmd {
			p.mu.Unlock()
			return
		}
		p.cmd = nil
		p.state = statePrepared
		onError := p.onError
		p.mu.Unlock()
		if err != nil {
			p.Logger.Warn().Err(err).Str("watchdog", wd.State().String()).Msg("media process exited")
			if onError != nil {
				onError(err)
			}
		}
	}()
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// stopLocked interrupts the running process and kills it if it lingers.
func (p *FFmpegPlayer) stopLocked() {
	if p.cmd == nil {
		return
	}
	close(p.stopCh)
	cmd, exited := p.cmd, p.exited
	p.cmd = nil
	_ = procgroup.Interrupt(cmd)
	go func() {
		select {
		case <-exited:
		case <-time.After(5 * time.Second):
			_ = procgroup.Kill(cmd)
		}
	}()
	if p.state == stateStarted {
		p.state = statePrepared
	}
}

var _ Player = (*FFmpegPlayer)(nil)

// Package beep implements the OutputDriver interface on gopxl/beep: local
// files are decoded by extension and played through the system speaker.
package beep

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/chorus-audio/chorus/internal/domain"
	"github.com/chorus-audio/chorus/internal/ports"
)

// speakerSampleRate is the fixed mixer rate; every source is resampled to it.
const speakerSampleRate = beep.SampleRate(44100)

// resampleQuality trades CPU for interpolation quality (1..64).
const resampleQuality = 4

var speakerOnce sync.Once

// Driver plays local audio files through gopxl/beep. One session is open
// at a time; opening a new locator replaces the previous session.
//
// Thread-safety: the driver mutex guards session bookkeeping; streamer
// state shared with the mixer goroutine is touched under speaker.Lock.
type Driver struct {
	logger *slog.Logger

	mu  sync.Mutex
	cb  ports.OutputCallbacks
	gen uint64 // session generation, for ignoring stale finish callbacks

	file      *os.File
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volumeFx  *effects.Volume

	volume  float64
	rate    float64
	drained bool // session played to its end and left the mixer
}

// NewDriver creates a beep driver and initializes the speaker. The logger
// may be nil.
func NewDriver(logger *slog.Logger) (*Driver, error) {
	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return nil, fmt.Errorf("speaker init: %w", initErr)
	}

	return &Driver{
		logger: logger,
		volume: 1.0,
		rate:   1.0,
	}, nil
}

// SetCallbacks implements ports.OutputDriver.
func (d *Driver) SetCallbacks(cb ports.OutputCallbacks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// Open implements ports.OutputDriver. The locator is a local file path;
// the decoder is chosen by extension.
func (d *Driver) Open(locator string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeSessionLocked()

	f, err := os.Open(locator)
	if err != nil {
		return fmt.Errorf("open %s: %w", locator, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	switch strings.ToLower(filepath.Ext(locator)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("unsupported format: %s", filepath.Ext(locator))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", locator, err)
	}

	d.file = f
	d.streamer = streamer
	d.format = format
	d.gen++
	d.drained = false

	d.buildChainLocked(true)

	if d.logger != nil {
		d.logger.Debug("session opened",
			slog.String("locator", locator),
			slog.Int("sample_rate", int(format.SampleRate)))
	}
	return nil
}

// buildChainLocked assembles ctrl → resampler → volume around d.streamer
// and hands the chain to the speaker, paused or running. Caller must hold
// d.mu.
func (d *Driver) buildChainLocked(paused bool) {
	d.ctrl = &beep.Ctrl{Streamer: d.streamer, Paused: paused}
	d.resampler = beep.ResampleRatio(resampleQuality, d.ratio(), d.ctrl)
	d.volumeFx = &effects.Volume{
		Streamer: d.resampler,
		Base:     2,
		Volume:   math.Log2(math.Max(d.volume, 1e-4)),
		Silent:   d.volume <= 0,
	}

	gen := d.gen
	speaker.Play(beep.Seq(d.volumeFx, beep.Callback(func() {
		d.sessionFinished(gen)
	})))
}

// ratio is the resampling ratio combining source-rate conversion with the
// playback rate.
func (d *Driver) ratio() float64 {
	return float64(d.format.SampleRate) / float64(speakerSampleRate) * d.rate
}

// sessionFinished is scheduled when a chain drains. The beep callback runs
// on the mixer goroutine with the speaker locked, so all work is pushed to
// a fresh goroutine to keep lock ordering one-way (d.mu before speaker).
func (d *Driver) sessionFinished(gen uint64) {
	go func() {
		d.mu.Lock()
		if gen != d.gen {
			// A newer session replaced this one; its callback is stale.
			d.mu.Unlock()
			return
		}
		d.drained = true
		cb := d.cb
		d.mu.Unlock()

		if cb != nil {
			cb.OnFinished(true)
		}
	}()
}

// Start implements ports.OutputDriver.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return domain.ErrNoSession
	}

	if d.drained {
		// The chain left the mixer when it played to the end; rewind
		// and hand a fresh chain to the speaker.
		speaker.Lock()
		err := d.streamer.Seek(0)
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
		d.gen++
		d.drained = false
		d.buildChainLocked(false)
		return nil
	}

	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause implements ports.OutputDriver.
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return domain.ErrNoSession
	}
	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop implements ports.OutputDriver. The session stays open, paused at
// position zero.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return domain.ErrNoSession
	}

	speaker.Lock()
	if d.ctrl != nil {
		d.ctrl.Paused = true
	}
	err := d.streamer.Seek(0)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// Seek implements ports.OutputDriver.
func (d *Driver) Seek(position time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return domain.ErrNoSession
	}

	n := d.format.SampleRate.N(position)
	speaker.Lock()
	if n > d.streamer.Len() {
		n = d.streamer.Len()
	}
	err := d.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// SetVolume implements ports.OutputDriver.
func (d *Driver) SetVolume(volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.volume = volume
	if d.volumeFx == nil {
		return nil
	}

	speaker.Lock()
	d.volumeFx.Silent = volume <= 0
	if volume > 0 {
		d.volumeFx.Volume = math.Log2(volume)
	}
	speaker.Unlock()
	return nil
}

// SetRate implements ports.OutputDriver.
func (d *Driver) SetRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rate = rate
	if d.resampler == nil {
		return nil
	}

	speaker.Lock()
	d.resampler.SetRatio(d.ratio())
	speaker.Unlock()
	return nil
}

// Position implements ports.OutputDriver.
func (d *Driver) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	speaker.Lock()
	n := d.streamer.Position()
	speaker.Unlock()
	return d.format.SampleRate.D(n)
}

// Duration implements ports.OutputDriver.
func (d *Driver) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	return d.format.SampleRate.D(d.streamer.Len())
}

// Close implements ports.OutputDriver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeSessionLocked()
	return nil
}

// closeSessionLocked removes the session from the mixer and releases its
// resources. Caller must hold d.mu.
func (d *Driver) closeSessionLocked() {
	if d.streamer == nil {
		return
	}

	speaker.Clear()

	if err := d.streamer.Close(); err != nil && d.logger != nil {
		d.logger.Debug("close streamer", slog.Any("error", err))
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && d.logger != nil {
			d.logger.Debug("close file", slog.Any("error", err))
		}
	}

	d.file = nil
	d.streamer = nil
	d.ctrl = nil
	d.resampler = nil
	d.volumeFx = nil
	d.drained = false
	d.gen++
}

// Verify that Driver implements the OutputDriver interface
var _ ports.OutputDriver = (*Driver)(nil)

package audio

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jbonatakis/carfinder/internal/config"
	"github.com/jbonatakis/carfinder/internal/logging"
)

var (
	ErrBusy         = errors.New("audio capture unavailable while busy")
	ErrNotRecording = errors.New("not recording")
	ErrEmptyClip    = errors.New("recording captured no audio")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseTranscribing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

type Options struct {
	Device         Device
	Window         int
	SampleInterval time.Duration
	// InFlight reports whether a generation round excludes recording.
	InFlight func() bool
	Logger   *slog.Logger
}

// Capture drives one recording at a time: Idle -> Recording -> Transcribing -> Idle.
type Capture struct {
	device   Device
	levels   *LevelBuffer
	interval time.Duration
	inFlight func() bool
	logger   *slog.Logger

	phase  Phase
	gen    uint64
	stream Stream
}

func NewCapture(opts Options) *Capture {
	window := opts.Window
	if window <= 0 {
		window = config.DefaultAudioLevelWindow
	}
	interval := opts.SampleInterval
	if interval <= 0 {
		interval = time.Duration(config.DefaultAudioSampleIntervalMs) * time.Millisecond
	}
	return &Capture{
		device:   opts.Device,
		levels:   NewLevelBuffer(window),
		interval: interval,
		inFlight: opts.InFlight,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// SetInFlight installs the exclusion check consulted by Start.
func (c *Capture) SetInFlight(inFlight func() bool) { c.inFlight = inFlight }

func (c *Capture) Phase() Phase { return c.phase }

// Busy reports whether recording or transcription is under way.
func (c *Capture) Busy() bool { return c.phase != PhaseIdle }

func (c *Capture) Recording() bool { return c.phase == PhaseRecording }

func (c *Capture) Generation() uint64 { return c.gen }

func (c *Capture) Interval() time.Duration { return c.interval }

// Levels returns the sampled levels, oldest first.
func (c *Capture) Levels() []float64 { return c.levels.Values() }

// Start opens the device and begins a recording. On failure nothing is held.
func (c *Capture) Start(ctx context.Context) (uint64, error) {
	if c.phase != PhaseIdle {
		return 0, ErrBusy
	}
	if c.inFlight != nil && c.inFlight() {
		return 0, ErrBusy
	}
	if c.device == nil {
		return 0, &PermissionError{Device: "none", Err: errors.New("no audio device configured")}
	}
	stream, err := c.device.Open(ctx)
	if err != nil {
		c.logger.Warn("audio device open failed", "err", err)
		return 0, err
	}
	c.gen++
	c.stream = stream
	c.levels.Reset()
	c.phase = PhaseRecording
	c.logger.Info("recording started", "generation", c.gen)
	return c.gen, nil
}

// Sample appends one level reading. Ticks from an earlier recording are refused.
func (c *Capture) Sample(gen uint64) bool {
	if gen != c.gen || c.phase != PhaseRecording || c.stream == nil {
		return false
	}
	c.levels.Push(c.stream.Level())
	return true
}

// Stop ends the recording and returns the clip with the generation its
// transcription result must present to Transcribed. The stream is released
// whether or not finishing succeeds.
func (c *Capture) Stop() (uint64, Clip, error) {
	if c.phase != PhaseRecording {
		return 0, Clip{}, ErrNotRecording
	}
	c.gen++
	stream := c.stream
	c.stream = nil

	clip, err := stream.Finish()
	if closeErr := stream.Close(); closeErr != nil {
		c.logger.Warn("audio stream close failed", "err", closeErr)
	}
	if err != nil {
		c.phase = PhaseIdle
		return 0, Clip{}, err
	}
	if clip.Empty() {
		c.phase = PhaseIdle
		return 0, Clip{}, ErrEmptyClip
	}
	c.phase = PhaseTranscribing
	c.logger.Info("recording stopped", "generation", c.gen, "bytes", len(clip.Data), "duration", clip.Duration)
	return c.gen, clip, nil
}

// Transcribed finishes the transcription phase started by Stop. The text is
// appended to existing input; on failure existing is returned untouched.
// A result from a transcription abandoned by Close or a later recording is
// dropped and leaves both the input and the phase alone.
func (c *Capture) Transcribed(gen uint64, existing string, text string, err error) (string, error) {
	if gen != c.gen || c.phase != PhaseTranscribing {
		c.logger.Debug("stale transcription dropped", "generation", gen, "current", c.gen)
		return existing, nil
	}
	c.phase = PhaseIdle
	if err != nil {
		c.logger.Warn("transcription failed", "err", err)
		return existing, err
	}
	return AppendTranscript(existing, text), nil
}

// Close releases any live stream and invalidates outstanding sample ticks
// and any pending transcription.
func (c *Capture) Close() {
	c.gen++
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			c.logger.Warn("audio stream close failed", "err", err)
		}
		c.stream = nil
	}
	c.phase = PhaseIdle
}

// AppendTranscript joins text onto existing input with a single space.
func AppendTranscript(existing string, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return existing
	}
	head := strings.TrimRight(existing, " \t\r\n")
	if head == "" {
		return text
	}
	return head + " " + text
}

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jbonatakis/carfinder/internal/logging"
)

const (
	defaultStartupGrace = 150 * time.Millisecond
	stopTimeout         = 2 * time.Second
	levelWindow         = 100 * time.Millisecond
	maxRecording        = 10 * time.Minute
	clipFilename        = "recording.wav"
)

// CommandDevice records by running an external program that writes raw
// signed 16-bit little-endian mono PCM to stdout, such as arecord.
type CommandDevice struct {
	Argv         []string
	SampleRate   int
	StartupGrace time.Duration
	Logger       *slog.Logger
}

func (d CommandDevice) Open(ctx context.Context) (Stream, error) {
	if len(d.Argv) == 0 {
		return nil, &PermissionError{Device: "recorder", Err: errors.New("no recorder command configured")}
	}
	name := d.Argv[0]
	if d.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", d.SampleRate)
	}
	if _, err := exec.LookPath(name); err != nil {
		return nil, &PermissionError{Device: name, Err: err}
	}

	cmd := exec.Command(name, d.Argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, &PermissionError{Device: name, Err: err}
	}

	s := &commandStream{
		cmd:        cmd,
		name:       name,
		sampleRate: d.SampleRate,
		started:    time.Now(),
		done:       make(chan struct{}),
		logger:     logging.OrDiscard(d.Logger),
	}
	go s.read(stdout)

	grace := d.StartupGrace
	if grace <= 0 {
		grace = defaultStartupGrace
	}
	select {
	case <-s.done:
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "recorder exited immediately"
		}
		return nil, &PermissionError{Device: name, Err: errors.New(msg)}
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	case <-time.After(grace):
	}
	return s, nil
}

type commandStream struct {
	cmd        *exec.Cmd
	name       string
	sampleRate int
	started    time.Time
	logger     *slog.Logger

	mu   sync.Mutex
	pcm  []byte
	done chan struct{}

	closeOnce sync.Once
}

func (s *commandStream) read(r io.Reader) {
	limit := s.bytesFor(maxRecording)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			if len(s.pcm) < limit {
				s.pcm = append(s.pcm, chunk[:n]...)
			}
			s.mu.Unlock()
		}
		if err != nil {
			break
		}
	}
	if err := s.cmd.Wait(); err != nil {
		s.logger.Debug("recorder exited", "recorder", s.name, "err", err)
	}
	close(s.done)
}

func (s *commandStream) bytesFor(d time.Duration) int {
	n := int(d.Seconds()*float64(s.sampleRate)) * 2
	if n < 2 {
		n = 2
	}
	return n
}

func (s *commandStream) Level() float64 {
	window := s.bytesFor(levelWindow)
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := s.pcm
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}
	if len(tail)%2 == 1 {
		tail = tail[1:]
	}
	return RMSLevel(tail)
}

func (s *commandStream) Finish() (Clip, error) {
	s.stop()
	s.mu.Lock()
	pcm := append([]byte(nil), s.pcm...)
	s.mu.Unlock()

	return Clip{
		Data:     EncodeWAV(pcm, s.sampleRate),
		MIMEType: WAVMIMEType,
		Filename: clipFilename,
		Duration: time.Duration(len(pcm)/2) * time.Second / time.Duration(s.sampleRate),
	}, nil
}

func (s *commandStream) Close() error {
	s.stop()
	return nil
}

// stop interrupts the recorder so it flushes, then kills it if it lingers.
func (s *commandStream) stop() {
	s.closeOnce.Do(func() {
		select {
		case <-s.done:
			return
		default:
		}
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}
		select {
		case <-s.done:
		case <-time.After(stopTimeout):
			s.logger.Warn("recorder did not exit on interrupt; killing", "recorder", s.name)
			_ = s.cmd.Process.Kill()
			<-s.done
		}
		s.logger.Debug("recorder stopped", "recorder", s.name, "elapsed", time.Since(s.started))
	})
}

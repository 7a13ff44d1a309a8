// Package audiotest provides scripted audio devices for tests.
package audiotest

import (
	"context"
	"sync"

	"github.com/jbonatakis/carfinder/internal/audio"
)

// Device hands out Streams that replay Levels and finish with a fixed clip.
type Device struct {
	mu sync.Mutex

	OpenErr   error
	FinishErr error
	Levels    []float64
	PCM       []byte

	opened  int
	streams []*Stream
}

func NewDevice() *Device {
	return &Device{PCM: make([]byte, 3200)}
}

func (d *Device) Open(context.Context) (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opened++
	s := &Stream{levels: append([]float64(nil), d.Levels...), pcm: d.PCM, finishErr: d.FinishErr}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *Device) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Live counts streams that were opened and not yet closed.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		if !s.Closed() {
			n++
		}
	}
	return n
}

type Stream struct {
	mu        sync.Mutex
	levels    []float64
	next      int
	pcm       []byte
	finishErr error
	closed    bool
}

func (s *Stream) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.levels) == 0 {
		return 0
	}
	v := s.levels[s.next%len(s.levels)]
	s.next++
	return v
}

func (s *Stream) Finish() (audio.Clip, error) {
	if s.finishErr != nil {
		return audio.Clip{}, s.finishErr
	}
	return audio.Clip{
		Data:     audio.EncodeWAV(s.pcm, 16000),
		MIMEType: audio.WAVMIMEType,
		Filename: "recording.wav",
	}, nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Package audio captures microphone input for speech transcription: a
// recording device, periodic level sampling for the meter, and the encoded
// clip handed to the transcription service.
package audio

import (
	"context"
	"fmt"
	"time"
)

// Clip is a finished recording ready for upload.
type Clip struct {
	Data     []byte
	MIMEType string
	Filename string
	Duration time.Duration
}

func (c Clip) Empty() bool { return len(c.Data) <= wavHeaderLength }

// Device opens live input streams.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one live recording. Close must be safe to call after Finish.
type Stream interface {
	// Level reports the current input level in [0,1].
	Level() float64
	// Finish stops recording and returns the encoded clip.
	Finish() (Clip, error)
	Close() error
}

// PermissionError reports that the input device could not be opened.
type PermissionError struct {
	Device string
	Err    error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone unavailable (%s): %v", e.Device, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

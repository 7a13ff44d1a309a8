package audio

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("recorder commands need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandDeviceMissingBinary(t *testing.T) {
	dev := CommandDevice{Argv: []string{"carfinder-no-such-recorder"}, SampleRate: 16000}
	_, err := dev.Open(context.Background())
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("err = %v, want PermissionError", err)
	}
}

func TestCommandDeviceImmediateExit(t *testing.T) {
	requireShell(t)
	dev := CommandDevice{
		Argv:         []string{"sh", "-c", "echo 'audio open error: Permission denied' >&2; exit 1"},
		SampleRate:   16000,
		StartupGrace: time.Second,
	}
	_, err := dev.Open(context.Background())
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("err = %v, want PermissionError", err)
	}
	if perm.Err.Error() != "audio open error: Permission denied" {
		t.Fatalf("message = %q", perm.Err.Error())
	}
}

func TestCommandDeviceRecordsPCM(t *testing.T) {
	requireShell(t)
	dev := CommandDevice{
		Argv:         []string{"sh", "-c", "head -c 3200 /dev/zero; exec sleep 30"},
		SampleRate:   16000,
		StartupGrace: 50 * time.Millisecond,
	}
	stream, err := dev.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		cs := stream.(*commandStream)
		cs.mu.Lock()
		n := len(cs.pcm)
		cs.mu.Unlock()
		if n >= 3200 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if lvl := stream.Level(); lvl != 0 {
		t.Fatalf("silence level = %v", lvl)
	}

	clip, err := stream.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(clip.Data) != wavHeaderLength+3200 {
		t.Fatalf("clip bytes = %d", len(clip.Data))
	}
	if clip.Duration != 100*time.Millisecond {
		t.Fatalf("duration = %v", clip.Duration)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close after Finish: %v", err)
	}
}

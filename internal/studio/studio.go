// Package studio is the single active design session. It owns the genome
// history, its persistence, the round orchestrator and audio capture, and
// keeps recording and round submission mutually exclusive.
//
// Methods that mutate state must be called from one goroutine (the UI
// loop). The network helpers (SendFeedback, FetchStatus, Transcribe) touch
// no session state and may run concurrently.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jbonatakis/carfinder/internal/audio"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"
	"github.com/jbonatakis/carfinder/internal/orchestrator"
	"github.com/jbonatakis/carfinder/internal/session"
)

// Service is the remote generation and transcription boundary.
type Service interface {
	SubmitFeedback(ctx context.Context, feedback string, state genome.DesignGenome) (string, error)
	TaskStatus(ctx context.Context, taskID string) (genome.Task, error)
	Transcribe(ctx context.Context, filename string, contentType string, data []byte) (string, error)
}

type Options struct {
	Store          session.Store
	Service        Service
	Device         audio.Device
	PollInterval   time.Duration
	SampleInterval time.Duration
	LevelWindow    int
	SaveTimeout    time.Duration
	Logger         *slog.Logger
}

type Session struct {
	history *genome.History
	store   session.Store
	service Service
	orch    *orchestrator.Orchestrator
	capture *audio.Capture
	logger  *slog.Logger

	saveTimeout time.Duration
	resumeGen   uint64
}

// Open loads the persisted session. Load never fails; unreadable slots
// start from their zero values.
func Open(ctx context.Context, opts Options) *Session {
	logger := logging.OrDiscard(opts.Logger)
	state := genome.ZeroState()
	if opts.Store != nil {
		if loaded, ok := opts.Store.Load(ctx); ok {
			state = loaded
		}
	}

	s := &Session{
		store:       opts.Store,
		service:     opts.Service,
		logger:      logger,
		saveTimeout: opts.SaveTimeout,
	}
	if s.saveTimeout <= 0 {
		s.saveTimeout = 5 * time.Second
	}
	s.orch = orchestrator.New(orchestrator.Options{PollInterval: opts.PollInterval, Logger: logger})
	s.capture = audio.NewCapture(audio.Options{
		Device:         opts.Device,
		Window:         opts.LevelWindow,
		SampleInterval: opts.SampleInterval,
		Logger:         logger,
	})
	s.orch.SetBusy(s.capture.Busy)
	s.capture.SetInFlight(s.orch.InFlight)

	if last := state.LastStatus; last != nil && !last.Status.IsTerminal() {
		if gen, ok := s.orch.Resume(*last); ok {
			s.resumeGen = gen
		} else {
			// An optimistic placeholder whose submission never returned a task id.
			logger.Info("dropping unfinished placeholder status", "status", string(last.Status))
			state.LastStatus = nil
		}
	}
	s.history = genome.NewHistory(state)
	return s
}

// Resumed returns the poll generation for a task carried over from an
// earlier run, if any.
func (s *Session) Resumed() (uint64, bool) {
	if s.resumeGen == 0 || !s.orch.Polling(s.resumeGen) {
		return 0, false
	}
	return s.resumeGen, true
}

func (s *Session) Genome() genome.DesignGenome { return s.history.Genome() }

func (s *Session) LastStatus() *genome.Task { return s.history.LastStatus() }

func (s *Session) CurrentRound() int { return s.history.CurrentRound() }

func (s *Session) HistoryLen() int { return s.history.Len() }

func (s *Session) Entries() []genome.Entry { return s.history.Entries() }

func (s *Session) View(sel genome.ViewSelector) genome.View { return s.history.Resolve(sel) }

func (s *Session) State() genome.SessionState { return s.history.State() }

func (s *Session) InFlight() bool { return s.orch.InFlight() }

func (s *Session) Polling(gen uint64) bool { return s.orch.Polling(gen) }

func (s *Session) TaskID() string { return s.orch.TaskID() }

func (s *Session) PollInterval() time.Duration { return s.orch.Interval() }

func (s *Session) Recording() bool { return s.capture.Recording() }

func (s *Session) Transcribing() bool { return s.capture.Phase() == audio.PhaseTranscribing }

func (s *Session) AudioBusy() bool { return s.capture.Busy() }

func (s *Session) Levels() []float64 { return s.capture.Levels() }

func (s *Session) SampleInterval() time.Duration { return s.capture.Interval() }

// Submit starts a round with the live genome. The optimistic queued status
// is recorded and persisted immediately.
func (s *Session) Submit(feedback string) (orchestrator.Ticket, error) {
	ticket, err := s.orch.Submit(feedback, s.history.Genome())
	if err != nil {
		return orchestrator.Ticket{}, err
	}
	s.history.SetLastStatus(s.orch.LastStatus())
	s.save()
	return ticket, nil
}

// SendFeedback performs the submission request for ticket.
func (s *Session) SendFeedback(ctx context.Context, ticket orchestrator.Ticket) (string, error) {
	if s.service == nil {
		return "", errors.New("no generation service configured")
	}
	return s.service.SubmitFeedback(ctx, ticket.Feedback, ticket.Genome)
}

func (s *Session) Accepted(gen uint64, taskID string) bool {
	if !s.orch.Accepted(gen, taskID) {
		return false
	}
	s.history.SetLastStatus(s.orch.LastStatus())
	s.save()
	return true
}

func (s *Session) Rejected(gen uint64, err error) bool {
	if !s.orch.Rejected(gen, err) {
		return false
	}
	s.history.SetLastStatus(s.orch.LastStatus())
	s.save()
	return true
}

// FetchStatus performs one status request for the task being polled under gen.
func (s *Session) FetchStatus(ctx context.Context, taskID string) (genome.Task, error) {
	if s.service == nil {
		return genome.Task{}, errors.New("no generation service configured")
	}
	return s.service.TaskStatus(ctx, taskID)
}

// Observe applies a status response. Completed rounds are archived and
// replace the live genome when the service sent one.
func (s *Session) Observe(gen uint64, task genome.Task) orchestrator.Outcome {
	out := s.orch.Observe(gen, task)
	if out == orchestrator.OutcomeStale {
		return out
	}
	last := s.orch.LastStatus()
	s.history.SetLastStatus(last)
	if out == orchestrator.OutcomeCompleted {
		if err := s.history.Append(*last); err != nil {
			s.logger.Error("archive completed round", "task_id", last.ID, "err", err)
		}
		if last.UpdatedState != nil {
			s.history.SetGenome(*last.UpdatedState)
		}
	}
	s.save()
	return out
}

func (s *Session) PollError(gen uint64, err error) bool { return s.orch.PollError(gen, err) }

func (s *Session) StartRecording(ctx context.Context) (uint64, error) {
	if s.orch.InFlight() {
		return 0, audio.ErrBusy
	}
	return s.capture.Start(ctx)
}

func (s *Session) Sample(gen uint64) bool { return s.capture.Sample(gen) }

func (s *Session) StopRecording() (uint64, audio.Clip, error) { return s.capture.Stop() }

// Transcribe uploads clip to the speech service.
func (s *Session) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if s.service == nil {
		return "", errors.New("no transcription service configured")
	}
	return s.service.Transcribe(ctx, clip.Filename, clip.MIMEType, clip.Data)
}

// Transcribed applies the result of the transcription issued under gen.
func (s *Session) Transcribed(gen uint64, existing string, text string, err error) (string, error) {
	return s.capture.Transcribed(gen, existing, text, err)
}

// Reset abandons any in-flight work and clears history and storage.
func (s *Session) Reset(ctx context.Context) error {
	s.orch.Reset()
	s.capture.Close()
	s.history.Reset()
	s.resumeGen = 0
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("clear session store", "err", err)
		return err
	}
	return nil
}

// Cancel stops polling and releases the microphone. Pending timers and
// responses become stale. The session stays usable.
func (s *Session) Cancel() {
	s.orch.Cancel()
	s.capture.Close()
}

// Close cancels outstanding work and closes the store.
func (s *Session) Close() error {
	s.Cancel()
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Session) save() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.store.Save(ctx, s.history.State()); err != nil {
		s.logger.Error("save session", "err", err)
	}
}

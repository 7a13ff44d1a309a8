package studio

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jbonatakis/carfinder/internal/api"
	"github.com/jbonatakis/carfinder/internal/apitest"
	"github.com/jbonatakis/carfinder/internal/audio"
	"github.com/jbonatakis/carfinder/internal/audio/audiotest"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/orchestrator"
	"github.com/jbonatakis/carfinder/internal/session"
)

type fixture struct {
	svc    *apitest.Service
	client *api.Client
	dir    string
	device *audiotest.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc, srv := apitest.NewServer(t)
	client, err := api.New(api.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return &fixture{svc: svc, client: client, dir: t.TempDir(), device: audiotest.NewDevice()}
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s := Open(context.Background(), Options{
		Store:   session.NewFileStore(f.dir, nil),
		Service: f.client,
		Device:  f.device,
	})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// runRound submits feedback and polls until the round ends.
func runRound(t *testing.T, s *Session, feedback string) orchestrator.Outcome {
	t.Helper()
	ctx := context.Background()
	ticket, err := s.Submit(feedback)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	taskID, err := s.SendFeedback(ctx, ticket)
	if err != nil {
		s.Rejected(ticket.Generation, err)
		t.Fatalf("SendFeedback: %v", err)
	}
	if !s.Accepted(ticket.Generation, taskID) {
		t.Fatalf("Accepted returned false")
	}
	for i := 0; i < 10; i++ {
		task, err := s.FetchStatus(ctx, taskID)
		if err != nil {
			s.PollError(ticket.Generation, err)
			continue
		}
		if out := s.Observe(ticket.Generation, task); out.Terminal() {
			return out
		}
	}
	t.Fatalf("round did not finish")
	return orchestrator.OutcomeStale
}

func completedStep(round int) genome.Task {
	g := genome.ZeroGenome()
	g.Round = round
	g.DesignSummary = "wide low coupes"
	return genome.Task{
		Status:       genome.StatusCompleted,
		Round:        round,
		Images:       []genome.Image{{URL: "/api/images/r.png", Name: "Coupe", Type: "exploration"}},
		UpdatedState: &g,
	}
}

func TestWarmupRoundCompletes(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(genome.Task{Status: genome.StatusQueued, Round: 1}, genome.Task{Status: "Generating designs...", Round: 1}, completedStep(1))
	s := f.open(t)

	if out := runRound(t, s, ""); out != orchestrator.OutcomeCompleted {
		t.Fatalf("outcome = %v", out)
	}
	if s.HistoryLen() != 1 {
		t.Fatalf("history len = %d, want 1", s.HistoryLen())
	}
	if s.Genome().Round != 1 {
		t.Fatalf("genome round = %d, want 1", s.Genome().Round)
	}
	if s.InFlight() {
		t.Fatalf("round should be finished")
	}
	calls := f.svc.FeedbackCalls()
	if len(calls) != 1 || calls[0].Feedback != orchestrator.DefaultWarmupFeedback {
		t.Fatalf("feedback calls = %+v", calls)
	}

	reopened := Open(context.Background(), Options{Store: session.NewFileStore(f.dir, nil)})
	if reopened.HistoryLen() != 1 || reopened.Genome().DesignSummary != "wide low coupes" {
		t.Fatalf("persisted state = %+v", reopened.State())
	}
	if last := reopened.LastStatus(); last == nil || last.Status != genome.StatusCompleted {
		t.Fatalf("persisted last status = %+v", last)
	}
}

func TestFailedRoundNeverArchives(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(genome.Task{Status: genome.StatusFailed, Round: 1, Error: "model overloaded"})
	s := f.open(t)

	if out := runRound(t, s, "boxy"); out != orchestrator.OutcomeFailed {
		t.Fatalf("outcome = %v", out)
	}
	if s.HistoryLen() != 0 {
		t.Fatalf("history len = %d, want 0", s.HistoryLen())
	}
	if s.Genome().Round != 0 {
		t.Fatalf("genome changed on failure")
	}
	if last := s.LastStatus(); last == nil || last.Error != "model overloaded" {
		t.Fatalf("last status = %+v", last)
	}
}

func TestHistoryGrowsPerCompletedRound(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(completedStep(1))
	f.svc.Script(genome.Task{Status: genome.StatusFailed, Round: 2})
	f.svc.Script(completedStep(2))
	s := f.open(t)

	runRound(t, s, "")
	runRound(t, s, "lower")
	runRound(t, s, "lower")
	if s.HistoryLen() != 2 {
		t.Fatalf("history len = %d, want 2", s.HistoryLen())
	}
	first := s.View(genome.Archived(0))
	if first.Result == nil || first.Result.Round != 1 || first.Genome.Round != 1 {
		t.Fatalf("archived view = %+v", first)
	}
}

func TestSubmitRequiresFeedbackAfterWarmup(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(completedStep(1))
	s := f.open(t)
	runRound(t, s, "")

	if _, err := s.Submit("   "); !errors.Is(err, orchestrator.ErrEmptyFeedback) {
		t.Fatalf("err = %v, want ErrEmptyFeedback", err)
	}
}

func TestRecordingAndSubmissionExcludeEachOther(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()

	if _, err := s.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := s.Submit("anything"); !errors.Is(err, orchestrator.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	if len(f.svc.FeedbackCalls()) != 0 {
		t.Fatalf("blocked submit reached the service")
	}

	tgen, clip, err := s.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if _, err := s.Submit("anything"); !errors.Is(err, orchestrator.ErrBlocked) {
		t.Fatalf("submit during transcription: err = %v, want ErrBlocked", err)
	}
	text, err := s.Transcribe(ctx, clip)
	text, err = s.Transcribed(tgen, "existing", text, err)
	if err != nil {
		t.Fatalf("Transcribed: %v", err)
	}
	if text != "existing make it lower" {
		t.Fatalf("text = %q", text)
	}
	if f.svc.Uploads()[0].ContentType != audio.WAVMIMEType {
		t.Fatalf("upload = %+v", f.svc.Uploads()[0])
	}

	ticket, err := s.Submit(text)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := s.StartRecording(ctx); !errors.Is(err, audio.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if f.device.Opened() != 1 {
		t.Fatalf("device opened %d times", f.device.Opened())
	}
	s.Rejected(ticket.Generation, errors.New("abandon"))
}

func TestTranscriptionFailurePreservesInput(t *testing.T) {
	f := newFixture(t)
	f.svc.FailTranscribe(http.StatusInternalServerError)
	s := f.open(t)
	ctx := context.Background()

	if _, err := s.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	tgen, clip, err := s.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	text, err := s.Transcribe(ctx, clip)
	text, err = s.Transcribed(tgen, "typed so far", text, err)
	if err == nil {
		t.Fatalf("expected transcription error")
	}
	if text != "typed so far" {
		t.Fatalf("text = %q", text)
	}
	if s.AudioBusy() || f.device.Live() != 0 {
		t.Fatalf("microphone must be released")
	}
}

func TestSubmissionFailureLeavesNoTask(t *testing.T) {
	f := newFixture(t)
	f.svc.FailFeedback(http.StatusServiceUnavailable)
	s := f.open(t)

	ticket, err := s.Submit("")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if last := s.LastStatus(); last == nil || last.Status != genome.StatusQueued {
		t.Fatalf("optimistic status missing: %+v", last)
	}
	_, err = s.SendFeedback(context.Background(), ticket)
	var se *api.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if !s.Rejected(ticket.Generation, err) {
		t.Fatalf("Rejected returned false")
	}
	if s.InFlight() || s.LastStatus() != nil || s.HistoryLen() != 0 {
		t.Fatalf("failed submission left state behind")
	}
}

func TestTransientPollErrorKeepsPolling(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(genome.Task{Status: "planning", Round: 1})
	s := f.open(t)
	ctx := context.Background()

	ticket, err := s.Submit("")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	taskID, err := s.SendFeedback(ctx, ticket)
	if err != nil {
		t.Fatalf("SendFeedback: %v", err)
	}
	s.Accepted(ticket.Generation, taskID)
	f.svc.Forget(taskID)

	_, err = s.FetchStatus(ctx, taskID)
	if !api.IsNotFound(err) {
		t.Fatalf("err = %v, want 404", err)
	}
	if !s.PollError(ticket.Generation, err) || !s.Polling(ticket.Generation) {
		t.Fatalf("404 should be transient")
	}
}

func TestResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(completedStep(1))
	s := f.open(t)
	runRound(t, s, "")

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("second Reset: %v", err)
	}
	if s.HistoryLen() != 0 || s.LastStatus() != nil || s.Genome().Round != 0 {
		t.Fatalf("reset left state: %+v", s.State())
	}
	if _, ok := session.NewFileStore(f.dir, nil).Load(context.Background()); ok {
		t.Fatalf("store still has slots after reset")
	}
}

func TestResumeUnfinishedRoundAfterRestart(t *testing.T) {
	f := newFixture(t)
	f.svc.Script(genome.Task{Status: "planning", Round: 1}, completedStep(1))
	first := f.open(t)
	ctx := context.Background()

	ticket, err := first.Submit("")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	taskID, err := first.SendFeedback(ctx, ticket)
	if err != nil {
		t.Fatalf("SendFeedback: %v", err)
	}
	first.Accepted(ticket.Generation, taskID)
	_ = first.Close()

	second := f.open(t)
	gen, ok := second.Resumed()
	if !ok || second.TaskID() != taskID {
		t.Fatalf("expected resumed polling of %s", taskID)
	}
	for i := 0; i < 5; i++ {
		task, err := second.FetchStatus(ctx, taskID)
		if err != nil {
			t.Fatalf("FetchStatus: %v", err)
		}
		if second.Observe(gen, task).Terminal() {
			break
		}
	}
	if second.HistoryLen() != 1 || second.Genome().Round != 1 {
		t.Fatalf("resumed round not applied: %+v", second.State())
	}
}

func TestUnacceptedPlaceholderDroppedOnOpen(t *testing.T) {
	f := newFixture(t)
	first := f.open(t)
	if _, err := first.Submit(""); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_ = first.Close()

	second := f.open(t)
	if _, ok := second.Resumed(); ok {
		t.Fatalf("placeholder without task id must not resume")
	}
	if second.LastStatus() != nil || second.InFlight() {
		t.Fatalf("placeholder should be dropped")
	}
}

func TestResetAbandonsPendingTranscription(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()

	if _, err := s.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	tgen, clip, err := s.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	text, err := s.Transcribe(ctx, clip)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.AudioBusy() {
		t.Fatalf("reset must leave audio idle")
	}

	got, err := s.Transcribed(tgen, "", text, nil)
	if err != nil || got != "" {
		t.Fatalf("Transcribed after reset = %q, %v", got, err)
	}
	if _, err := s.StartRecording(ctx); err != nil {
		t.Fatalf("recording after reset: %v", err)
	}
	if got, _ := s.Transcribed(tgen, "", text, nil); got != "" || !s.Recording() {
		t.Fatalf("late result touched the new recording: %q recording=%v", got, s.Recording())
	}
}

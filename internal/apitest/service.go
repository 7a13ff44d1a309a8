// Package apitest provides an in-process stand-in for the generation
// service, with scripted status sequences per submitted task.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jbonatakis/carfinder/internal/api"
	"github.com/jbonatakis/carfinder/internal/genome"
)

// FeedbackCall records one POST /api/feedback body.
type FeedbackCall struct {
	Feedback  string
	State     genome.DesignGenome
	RequestID string
}

// Upload records one POST /api/transcribe request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int
	RequestID   string
}

type Service struct {
	mu sync.Mutex

	router chi.Router

	scripts map[string][]genome.Task
	queued  [][]genome.Task
	polls   map[string]int

	feedback []FeedbackCall
	uploads  []Upload

	feedbackStatus   int
	transcribeStatus int
	transcript       string
}

func New() *Service {
	s := &Service{
		scripts:    map[string][]genome.Task{},
		polls:      map[string]int{},
		transcript: "make it lower",
	}
	r := chi.NewRouter()
	r.Post("/api/feedback", s.handleFeedback)
	r.Get("/api/status/{taskID}", s.handleStatus)
	r.Post("/api/transcribe", s.handleTranscribe)
	s.router = r
	return s
}

// NewServer starts the service on a loopback listener closed at test cleanup.
func NewServer(t testing.TB) (*Service, *httptest.Server) {
	t.Helper()
	s := New()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *Service) Handler() http.Handler {
	return s.router
}

// Script queues the status sequence served for the next submitted task.
// Each poll consumes one step; the final step repeats.
func (s *Service) Script(steps ...genome.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, append([]genome.Task(nil), steps...))
}

// FailFeedback makes subsequent submissions answer with code. Zero restores success.
func (s *Service) FailFeedback(code int) {
	s.mu.Lock()
	s.feedbackStatus = code
	s.mu.Unlock()
}

func (s *Service) FailTranscribe(code int) {
	s.mu.Lock()
	s.transcribeStatus = code
	s.mu.Unlock()
}

func (s *Service) SetTranscript(text string) {
	s.mu.Lock()
	s.transcript = text
	s.mu.Unlock()
}

// Forget drops a task so later polls answer 404, as after a service restart.
func (s *Service) Forget(taskID string) {
	s.mu.Lock()
	delete(s.scripts, taskID)
	s.mu.Unlock()
}

func (s *Service) FeedbackCalls() []FeedbackCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FeedbackCall(nil), s.feedback...)
}

func (s *Service) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Polls returns how many status requests taskID has received.
func (s *Service) Polls(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[taskID]
}

func (s *Service) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Feedback string              `json:"feedback"`
		State    genome.DesignGenome `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, FeedbackCall{
		Feedback:  body.Feedback,
		State:     body.State,
		RequestID: r.Header.Get(api.RequestIDHeader),
	})
	if s.feedbackStatus != 0 {
		http.Error(w, "feedback rejected", s.feedbackStatus)
		return
	}

	id := uuid.NewString()
	var steps []genome.Task
	if len(s.queued) > 0 {
		steps = s.queued[0]
		s.queued = s.queued[1:]
	}
	if len(steps) == 0 {
		steps = []genome.Task{{Status: genome.StatusQueued, Round: body.State.Round + 1}}
	}
	s.scripts[id] = steps
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[id]++
	steps, ok := s.scripts[id]
	if !ok {
		http.Error(w, `{"detail":"Task not found"}`, http.StatusNotFound)
		return
	}
	step := steps[0]
	if len(steps) > 1 {
		s.scripts[id] = steps[1:]
	}
	step.ID = id
	writeJSON(w, http.StatusOK, step)
}

func (s *Service) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile(api.TranscribeField)
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        len(data),
		RequestID:   r.Header.Get(api.RequestIDHeader),
	})
	if s.transcribeStatus != 0 {
		http.Error(w, "transcription failed", s.transcribeStatus)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": strings.TrimSpace(s.transcript)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

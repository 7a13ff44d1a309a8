// Package orchestrator tracks the lifecycle of one generation round:
// submission, polling, and the terminal observation that ends it.
//
// The orchestrator performs no I/O. Callers run the network requests and
// timers and report back with the generation number the work was issued
// under; anything carrying an older generation is ignored.
package orchestrator

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jbonatakis/carfinder/internal/config"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"
)

// DefaultWarmupFeedback is sent when the first round is requested without input.
const DefaultWarmupFeedback = "Start the initial warm-up round with diverse archetypes."

var (
	ErrInFlight      = errors.New("a generation round is already in flight")
	ErrEmptyFeedback = errors.New("feedback is required after the warm-up round")
	ErrBlocked       = errors.New("submission blocked while audio capture is active")
)

type State int

const (
	Idle State = iota
	Queued
	Polling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Polling:
		return "polling"
	default:
		return "unknown"
	}
}

type Outcome int

const (
	OutcomeStale Outcome = iota
	OutcomeProgress
	OutcomeCompleted
	OutcomeFailed
)

func (o Outcome) Terminal() bool {
	return o == OutcomeCompleted || o == OutcomeFailed
}

// Ticket describes an accepted submission. The caller sends Feedback and
// Genome to the service and reports the result with Generation.
type Ticket struct {
	Generation  uint64
	Feedback    string
	Genome      genome.DesignGenome
	Placeholder genome.Task
}

type Options struct {
	// Busy reports whether another activity (audio capture) excludes submission.
	Busy         func() bool
	PollInterval time.Duration
	Logger       *slog.Logger
}

type Orchestrator struct {
	state    State
	gen      uint64
	taskID   string
	last     *genome.Task
	prevLast *genome.Task

	busy     func() bool
	interval time.Duration
	logger   *slog.Logger
}

func New(opts Options) *Orchestrator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Duration(config.DefaultPollIntervalMs) * time.Millisecond
	}
	return &Orchestrator{
		busy:     opts.Busy,
		interval: interval,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// SetBusy installs the exclusion check consulted by Submit.
func (o *Orchestrator) SetBusy(busy func() bool) { o.busy = busy }

func (o *Orchestrator) State() State { return o.state }

// InFlight reports whether a round has been submitted and not yet finished.
func (o *Orchestrator) InFlight() bool { return o.state != Idle }

func (o *Orchestrator) Generation() uint64 { return o.gen }

func (o *Orchestrator) TaskID() string { return o.taskID }

func (o *Orchestrator) Interval() time.Duration { return o.interval }

// LastStatus is the most recent status of the current cycle: the optimistic
// placeholder after Submit, then each observed server status.
func (o *Orchestrator) LastStatus() *genome.Task {
	if o.last == nil {
		return nil
	}
	t := genome.CloneTask(*o.last)
	return &t
}

// Submit begins a new round. Empty feedback is only allowed for the
// warm-up round, where the default warm-up prompt is substituted.
func (o *Orchestrator) Submit(feedback string, g genome.DesignGenome) (Ticket, error) {
	if o.state != Idle {
		return Ticket{}, ErrInFlight
	}
	if o.busy != nil && o.busy() {
		return Ticket{}, ErrBlocked
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		if g.Round > 0 {
			return Ticket{}, ErrEmptyFeedback
		}
		feedback = DefaultWarmupFeedback
	}

	o.gen++
	o.state = Queued
	o.taskID = ""
	o.prevLast = o.last
	placeholder := genome.Task{Status: genome.StatusQueued, Round: g.Round + 1}
	o.last = &placeholder

	o.logger.Info("round submitted", "generation", o.gen, "round", g.Round+1)
	return Ticket{
		Generation:  o.gen,
		Feedback:    feedback,
		Genome:      genome.CloneGenome(g),
		Placeholder: placeholder,
	}, nil
}

// Accepted records the task id returned by the service and starts polling.
func (o *Orchestrator) Accepted(gen uint64, taskID string) bool {
	if gen != o.gen || o.state != Queued {
		o.logger.Debug("stale submission result dropped", "generation", gen, "task_id", taskID)
		return false
	}
	o.state = Polling
	o.taskID = taskID
	if o.last != nil {
		o.last.ID = taskID
	}
	o.logger.Info("polling started", "generation", gen, "task_id", taskID)
	return true
}

// Rejected records a failed submission. No task exists, so the previous
// status is restored and the orchestrator returns to Idle.
func (o *Orchestrator) Rejected(gen uint64, err error) bool {
	if gen != o.gen || o.state != Queued {
		return false
	}
	o.state = Idle
	o.taskID = ""
	o.last = o.prevLast
	o.prevLast = nil
	o.logger.Warn("submission failed", "generation", gen, "err", err)
	return true
}

// Resume continues polling a task left unfinished by an earlier run.
// Only non-terminal tasks with a known id can be resumed.
func (o *Orchestrator) Resume(task genome.Task) (uint64, bool) {
	if o.state != Idle || task.ID == "" || task.Status.IsTerminal() {
		return 0, false
	}
	o.gen++
	o.state = Polling
	o.taskID = task.ID
	resumed := genome.CloneTask(task)
	o.last = &resumed
	o.prevLast = nil
	o.logger.Info("polling resumed", "generation", o.gen, "task_id", task.ID)
	return o.gen, true
}

// Polling reports whether a poll tick issued under gen may still act.
func (o *Orchestrator) Polling(gen uint64) bool {
	return gen == o.gen && o.state == Polling
}

// Observe applies one status response. A terminal status stops polling
// before the outcome is returned, so a late tick cannot apply it twice.
func (o *Orchestrator) Observe(gen uint64, task genome.Task) Outcome {
	if !o.Polling(gen) {
		o.logger.Debug("stale status dropped", "generation", gen, "task_id", task.ID)
		return OutcomeStale
	}
	if task.ID != "" && task.ID != o.taskID {
		o.logger.Debug("status for another task dropped", "generation", gen, "task_id", task.ID)
		return OutcomeStale
	}
	if task.ID == "" {
		task.ID = o.taskID
	}
	observed := genome.CloneTask(task)
	o.last = &observed

	if !task.Status.IsTerminal() {
		return OutcomeProgress
	}

	o.stop()
	if task.Status == genome.StatusCompleted {
		o.logger.Info("round completed", "generation", gen, "task_id", task.ID, "round", task.Round)
		return OutcomeCompleted
	}
	o.logger.Warn("round failed", "generation", gen, "task_id", task.ID, "error", task.Error)
	return OutcomeFailed
}

// PollError records a transient fetch failure. Polling continues.
func (o *Orchestrator) PollError(gen uint64, err error) bool {
	if !o.Polling(gen) {
		return false
	}
	o.logger.Warn("status poll failed", "generation", gen, "task_id", o.taskID, "err", err)
	return true
}

// Cancel abandons any in-flight round. Pending ticks become stale.
func (o *Orchestrator) Cancel() {
	if o.state != Idle {
		o.logger.Info("round cancelled", "generation", o.gen, "task_id", o.taskID)
	}
	o.stop()
}

// Reset cancels and forgets the last status.
func (o *Orchestrator) Reset() {
	o.Cancel()
	o.last = nil
	o.prevLast = nil
}

func (o *Orchestrator) stop() {
	o.gen++
	o.state = Idle
	o.taskID = ""
	o.prevLast = nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbonatakis/carfinder/internal/config"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/session"
	"github.com/jbonatakis/carfinder/internal/studio"
	"github.com/jbonatakis/carfinder/internal/tui"
)

// setupProject points the CLI at a fresh project directory and an empty
// home directory, and captures stdout.
func setupProject(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	home := t.TempDir()

	restoreHome := config.SetUserHomeDirForTest(func() (string, error) { return home, nil })
	restoreEnv := config.SetLookupEnvForTest(func(string) (string, bool) { return "", false })
	origWD, origOut := getwd, stdout
	buf := &bytes.Buffer{}
	getwd = func() (string, error) { return root, nil }
	stdout = buf
	t.Cleanup(func() {
		restoreHome()
		restoreEnv()
		getwd, stdout = origWD, origOut
	})
	return root, buf
}

func seedSession(t *testing.T, root string) {
	t.Helper()
	g := genome.ZeroGenome()
	g.Round = 1
	g.DesignSummary = "long hood, short deck"
	g.ConfirmedLikes = []string{"fastback"}
	g.ExplorationHistory = []json.RawMessage{json.RawMessage(`{"round":1,"axis":"roofline"}`)}
	task := genome.Task{
		ID:           "task-1",
		Status:       genome.StatusCompleted,
		Round:        1,
		Images:       []genome.Image{{URL: "/api/images/a.png", Name: "A"}},
		UpdatedState: &g,
	}
	state := genome.SessionState{Genome: g, History: []genome.HistoryEntry{task}, LastStatus: &task}
	store := session.NewFileStore(session.Dir(root), nil)
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestRunHelpCommand(t *testing.T) {
	_, out := setupProject(t)
	if err := Run([]string{"help"}); err != nil {
		t.Fatalf("Run(help): %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("expected usage text, got %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	setupProject(t)
	err := Run([]string{"bogus"})
	var ue UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestRunZeroArgsStartsInteractiveClient(t *testing.T) {
	root, _ := setupProject(t)
	seedSession(t, root)

	var gotRound int
	var resolved string
	orig := startTUI
	startTUI = func(s *studio.Session, opts tui.Options) error {
		gotRound = s.Genome().Round
		resolved = opts.ResolveURL("/api/images/a.png")
		return nil
	}
	t.Cleanup(func() { startTUI = orig })

	if err := Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotRound != 1 {
		t.Fatalf("session not loaded: round %d", gotRound)
	}
	if resolved != config.DefaultAPIBaseURL+"/api/images/a.png" {
		t.Fatalf("resolved url = %q", resolved)
	}
	if _, err := os.Stat(filepath.Join(root, config.DirName, "logs", "carfinder.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestHistoryTable(t *testing.T) {
	root, out := setupProject(t)
	seedSession(t, root)

	if err := Run([]string{"history"}); err != nil {
		t.Fatalf("Run(history): %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Current Round 1") || !strings.Contains(text, "completed") {
		t.Fatalf("unexpected history output: %q", text)
	}
	if strings.Contains(text, "Round 1 Archive") {
		t.Fatalf("current round must not be listed twice: %q", text)
	}
}

func TestHistoryYAML(t *testing.T) {
	root, out := setupProject(t)
	seedSession(t, root)

	if err := Run([]string{"history", "--yaml"}); err != nil {
		t.Fatalf("Run(history --yaml): %v", err)
	}
	if !strings.Contains(out.String(), "task_id: task-1") {
		t.Fatalf("unexpected yaml: %q", out.String())
	}
}

func TestGenomeOutputs(t *testing.T) {
	root, out := setupProject(t)
	seedSession(t, root)

	if err := Run([]string{"genome"}); err != nil {
		t.Fatalf("Run(genome): %v", err)
	}
	var g genome.DesignGenome
	if err := json.Unmarshal(out.Bytes(), &g); err != nil {
		t.Fatalf("genome output is not JSON: %v", err)
	}
	if g.Round != 1 || g.DesignSummary != "long hood, short deck" {
		t.Fatalf("genome = %+v", g)
	}

	out.Reset()
	if err := Run([]string{"genome", "--yaml"}); err != nil {
		t.Fatalf("Run(genome --yaml): %v", err)
	}
	text := out.String()
	for _, want := range []string{"design_summary: long hood, short deck", "- fastback", "axis: roofline"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in yaml output: %q", want, text)
		}
	}
}

func TestGenomeWithoutSessionPrintsZeroState(t *testing.T) {
	_, out := setupProject(t)
	if err := Run([]string{"genome"}); err != nil {
		t.Fatalf("Run(genome): %v", err)
	}
	if !strings.Contains(out.String(), `"confirmed_likes": []`) {
		t.Fatalf("expected zero genome, got %q", out.String())
	}
}

func TestResetRequiresYes(t *testing.T) {
	root, _ := setupProject(t)
	seedSession(t, root)

	var ue UsageError
	if err := Run([]string{"reset"}); !errors.As(err, &ue) {
		t.Fatalf("expected UsageError without --yes, got %v", err)
	}
	if err := Run([]string{"reset", "--yes"}); err != nil {
		t.Fatalf("Run(reset --yes): %v", err)
	}
	store := session.NewFileStore(session.Dir(root), nil)
	if _, ok := store.Load(context.Background()); ok {
		t.Fatalf("session still present after reset")
	}
}

func TestConfigSetShowUnset(t *testing.T) {
	root, out := setupProject(t)

	if err := Run([]string{"config", "set", "poll.intervalMs", "1500"}); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, config.DirName, "config.json")); err != nil {
		t.Fatalf("expected project config file: %v", err)
	}

	out.Reset()
	if err := Run([]string{"config"}); err != nil {
		t.Fatalf("config: %v", err)
	}
	var cfg config.ResolvedConfig
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("config output is not JSON: %v", err)
	}
	if cfg.Poll.IntervalMs != 1500 {
		t.Fatalf("poll interval = %d", cfg.Poll.IntervalMs)
	}

	if err := Run([]string{"config", "unset", "poll.intervalMs"}); err != nil {
		t.Fatalf("config unset: %v", err)
	}
	out.Reset()
	if err := Run([]string{"config", "show"}); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("config output is not JSON: %v", err)
	}
	if cfg.Poll.IntervalMs != config.DefaultPollIntervalMs {
		t.Fatalf("poll interval = %d after unset", cfg.Poll.IntervalMs)
	}
}

func TestConfigSetGlobalAndUsageErrors(t *testing.T) {
	setupProject(t)

	if err := Run([]string{"config", "set", "session.backend", "SQLite", "--global"}); err != nil {
		t.Fatalf("config set --global: %v", err)
	}
	path, _ := config.GlobalConfigPath()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read global config: %v", err)
	}
	if !strings.Contains(string(b), `"sqlite"`) {
		t.Fatalf("global config = %s", b)
	}

	var ue UsageError
	if err := Run([]string{"config", "set", "poll.intervalMs"}); !errors.As(err, &ue) {
		t.Fatalf("expected UsageError, got %v", err)
	}
	if err := Run([]string{"config", "set", "nope.key", "1"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

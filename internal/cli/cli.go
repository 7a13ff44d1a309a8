package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jbonatakis/carfinder/internal/api"
	"github.com/jbonatakis/carfinder/internal/audio"
	"github.com/jbonatakis/carfinder/internal/config"
	"github.com/jbonatakis/carfinder/internal/logging"
	"github.com/jbonatakis/carfinder/internal/session"
	"github.com/jbonatakis/carfinder/internal/studio"
	"github.com/jbonatakis/carfinder/internal/tui"
)

type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }

func Usage() string {
	return `carfinder: iterative car design discovery

Usage:
  carfinder                      start the interactive client
  carfinder history [--yaml]     list archived rounds
  carfinder genome [--yaml]      print the current design genome
  carfinder reset --yes          discard history, genome and last status
  carfinder config               print the resolved configuration
  carfinder config set <key> <value> [--global]
  carfinder config unset <key> [--global]
  carfinder config keys          list settable keys

Environment:
  CARFINDER_API_URL              overrides api.baseUrl
`
}

var (
	stdout io.Writer = os.Stdout
	getwd            = os.Getwd
	startTUI         = tui.Start
)

func Run(args []string) error {
	if len(args) == 0 {
		return runInteractive()
	}

	switch args[0] {
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, Usage())
		return nil
	case "history":
		return runHistory(args[1:])
	case "genome":
		return runGenome(args[1:])
	case "reset":
		return runReset(args[1:])
	case "config":
		return runConfig(args[1:])
	default:
		return UsageError{Message: fmt.Sprintf("unknown command: %q", args[0])}
	}
}

func projectRoot() (string, error) {
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}

func runInteractive() error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	logger, closer, err := logging.Open(root, slog.LevelInfo)
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := api.New(api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.APITimeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	store, err := session.Open(root, cfg.Session.Backend, logger)
	if err != nil {
		return err
	}

	s := studio.Open(context.Background(), studio.Options{
		Store:   store,
		Service: client,
		Device: audio.CommandDevice{
			Argv:       cfg.Audio.Recorder,
			SampleRate: cfg.Audio.SampleRateHz,
			Logger:     logger,
		},
		PollInterval:   cfg.PollInterval(),
		SampleInterval: cfg.SampleInterval(),
		LevelWindow:    cfg.Audio.LevelWindow,
		Logger:         logger,
	})
	defer s.Close()

	logger.Info("session started", "api", cfg.API.BaseURL, "backend", cfg.Session.Backend, "round", s.Genome().Round)
	return startTUI(s, tui.Options{ResolveURL: client.ResolveURL})
}

// openStore opens the configured session store for the non-interactive commands.
func openStore() (session.Store, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	return session.Open(root, cfg.Session.Backend, nil)
}

package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/jbonatakis/carfinder/internal/genome"
)

type historyRow struct {
	Round  int    `yaml:"round"`
	Status string `yaml:"status"`
	Images int    `yaml:"images"`
	TaskID string `yaml:"task_id,omitempty"`
	View   string `yaml:"view"`
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asYAML := fs.Bool("yaml", false, "print as YAML")
	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 0 {
		return UsageError{Message: "history takes only flags (no positional args)"}
	}

	state, err := loadState()
	if err != nil {
		return err
	}
	h := genome.NewHistory(state)

	var rows []historyRow
	for _, e := range h.Entries() {
		view := h.Resolve(e.Selector)
		row := historyRow{Round: e.Round, View: e.Label}
		if view.Result != nil {
			row.Status = string(view.Result.Status)
			row.Images = len(view.Result.Images)
			row.TaskID = view.Result.ID
		}
		rows = append(rows, row)
	}

	if *asYAML {
		out, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		_, err = stdout.Write(out)
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "VIEW\tROUND\tSTATUS\tIMAGES\tTASK")
	for _, r := range rows {
		status := r.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", r.View, r.Round, status, r.Images, r.TaskID)
	}
	return w.Flush()
}

func runGenome(args []string) error {
	fs := flag.NewFlagSet("genome", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asYAML := fs.Bool("yaml", false, "print as YAML")
	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 0 {
		return UsageError{Message: "genome takes only flags (no positional args)"}
	}

	state, err := loadState()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(state.Genome, "", "  ")
	if err != nil {
		return fmt.Errorf("encode genome: %w", err)
	}
	if !*asYAML {
		_, err = fmt.Fprintln(stdout, string(b))
		return err
	}

	// Round-trip through a generic value so the opaque exploration history
	// renders as structured YAML rather than bytes.
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("decode genome: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("encode genome: %w", err)
	}
	_, err = stdout.Write(out)
	return err
}

func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.Bool("yes", false, "confirm the reset")
	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 0 {
		return UsageError{Message: "reset takes only flags (no positional args)"}
	}
	if !*yes {
		return UsageError{Message: "reset discards the whole session; pass --yes to confirm"}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	fmt.Fprintln(stdout, "session reset")
	return nil
}

func loadState() (genome.SessionState, error) {
	store, err := openStore()
	if err != nil {
		return genome.SessionState{}, err
	}
	defer store.Close()
	state, _ := store.Load(context.Background())
	return state, nil
}

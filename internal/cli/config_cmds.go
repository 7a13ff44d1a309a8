package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jbonatakis/carfinder/internal/config"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		return printConfig()
	}

	global := false
	var rest []string
	for _, arg := range args[1:] {
		if arg == "--global" {
			global = true
			continue
		}
		rest = append(rest, arg)
	}

	switch args[0] {
	case "show":
		if len(rest) != 0 || global {
			return UsageError{Message: "config show takes no arguments"}
		}
		return printConfig()
	case "set":
		if len(rest) != 2 {
			return UsageError{Message: "config set requires exactly 2 arguments: <key> <value>"}
		}
		path, err := layerPath(global)
		if err != nil {
			return err
		}
		if err := config.SetOption(path, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "set %s in %s\n", rest[0], path)
		return nil
	case "unset":
		if len(rest) != 1 {
			return UsageError{Message: "config unset requires exactly 1 argument: <key>"}
		}
		path, err := layerPath(global)
		if err != nil {
			return err
		}
		if err := config.UnsetOption(path, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "unset %s in %s\n", rest[0], path)
		return nil
	case "keys":
		for _, opt := range config.OptionRegistry() {
			fmt.Fprintf(stdout, "%s\t%s\n", opt.KeyPath, opt.Description)
		}
		return nil
	default:
		return UsageError{Message: fmt.Sprintf("unknown config command: %q", args[0])}
	}
}

func printConfig() error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintln(stdout, strings.TrimRight(string(b), "\n"))
	return nil
}

func layerPath(global bool) (string, error) {
	if global {
		path, ok := config.GlobalConfigPath()
		if !ok {
			return "", errors.New("cannot resolve home directory for the global config")
		}
		return path, nil
	}
	root, err := projectRoot()
	if err != nil {
		return "", err
	}
	path, ok := config.ProjectConfigPath(root)
	if !ok {
		return "", errors.New("cannot resolve project config path")
	}
	return path, nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jbonatakis/carfinder/internal/atomicfile"
)

// SetOption parses value for keyPath and writes it into the config file at path,
// keeping every other key in that layer untouched.
func SetOption(path string, keyPath string, value string) error {
	opt, ok := LookupOption(keyPath)
	if !ok {
		return fmt.Errorf("unknown config key %q", keyPath)
	}
	cfg, err := readLayer(path)
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	switch opt.Type {
	case OptionTypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config key %q expects int value: %w", keyPath, err)
		}
		if opt.Bounds != nil && (n < opt.Bounds.Min || n > opt.Bounds.Max) {
			return fmt.Errorf("config key %q must be between %d and %d", keyPath, opt.Bounds.Min, opt.Bounds.Max)
		}
		applyInt(&cfg, keyPath, &n)
	case OptionTypeString:
		if value == "" {
			return fmt.Errorf("config key %q expects a non-empty value", keyPath)
		}
		if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, strings.ToLower(value)) {
			return fmt.Errorf("config key %q must be one of %s", keyPath, strings.Join(opt.Choices, ", "))
		}
		applyString(&cfg, keyPath, &value)
	}
	return writeLayer(path, cfg)
}

// UnsetOption removes keyPath from the config file at path. Layers left with no
// keys are removed from disk.
func UnsetOption(path string, keyPath string) error {
	opt, ok := LookupOption(keyPath)
	if !ok {
		return fmt.Errorf("unknown config key %q", keyPath)
	}
	cfg, err := readLayer(path)
	if err != nil {
		return err
	}
	switch opt.Type {
	case OptionTypeInt:
		applyInt(&cfg, keyPath, nil)
	case OptionTypeString:
		applyString(&cfg, keyPath, nil)
	}
	return writeLayer(path, cfg)
}

func readLayer(path string) (RawConfig, error) {
	if path == "" {
		return RawConfig{}, errors.New("config path is empty")
	}
	cfg, _, err := loadConfigFile(path)
	return cfg, err
}

func writeLayer(path string, cfg RawConfig) error {
	pruneEmpty(&cfg)
	if cfg.API == nil && cfg.Poll == nil && cfg.Audio == nil && cfg.Session == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove config %s: %w", path, err)
		}
		return nil
	}
	version := SchemaVersion
	cfg.SchemaVersion = &version

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	b = append(b, '\n')

	if err := atomicfile.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func applyInt(cfg *RawConfig, keyPath string, v *int) {
	switch keyPath {
	case keyAPITimeoutSeconds:
		ensureAPI(cfg).TimeoutSeconds = v
	case keyAPIRequestsPerSecond:
		ensureAPI(cfg).RequestsPerSecond = v
	case keyPollIntervalMs:
		if cfg.Poll == nil {
			cfg.Poll = &RawPoll{}
		}
		cfg.Poll.IntervalMs = v
	case keyAudioSampleIntervalMs:
		ensureAudio(cfg).SampleIntervalMs = v
	case keyAudioLevelWindow:
		ensureAudio(cfg).LevelWindow = v
	}
}

func applyString(cfg *RawConfig, keyPath string, v *string) {
	switch keyPath {
	case keyAPIBaseURL:
		ensureAPI(cfg).BaseURL = v
	case keySessionBackend:
		if v != nil {
			lower := strings.ToLower(*v)
			v = &lower
		}
		if cfg.Session == nil {
			cfg.Session = &RawSession{}
		}
		cfg.Session.Backend = v
	}
}

func ensureAPI(cfg *RawConfig) *RawAPI {
	if cfg.API == nil {
		cfg.API = &RawAPI{}
	}
	return cfg.API
}

func ensureAudio(cfg *RawConfig) *RawAudio {
	if cfg.Audio == nil {
		cfg.Audio = &RawAudio{}
	}
	return cfg.Audio
}

func pruneEmpty(cfg *RawConfig) {
	if cfg.API != nil && *cfg.API == (RawAPI{}) {
		cfg.API = nil
	}
	if cfg.Poll != nil && cfg.Poll.IntervalMs == nil {
		cfg.Poll = nil
	}
	if cfg.Audio != nil && cfg.Audio.SampleIntervalMs == nil && cfg.Audio.LevelWindow == nil && len(cfg.Audio.Recorder) == 0 {
		cfg.Audio = nil
	}
	if cfg.Session != nil && cfg.Session.Backend == nil {
		cfg.Session = nil
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGlobalConfigReadsFile(t *testing.T) {
	tempDir := t.TempDir()
	restore := SetUserHomeDirForTest(func() (string, error) {
		return tempDir, nil
	})
	t.Cleanup(restore)

	writeConfig(t, filepath.Join(tempDir, DirName, "config.json"), `{"schemaVersion":1,"poll":{"intervalMs":1500}}`)

	cfg, present, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !present {
		t.Fatalf("expected config to be present")
	}
	if cfg.Poll == nil || cfg.Poll.IntervalMs == nil || *cfg.Poll.IntervalMs != 1500 {
		t.Fatalf("expected poll interval 1500, got %#v", cfg.Poll)
	}
	if cfg.API != nil {
		t.Fatalf("expected api section to be nil, got %#v", cfg.API)
	}
}

func TestLoadGlobalConfigMissingHomeSkips(t *testing.T) {
	restore := SetUserHomeDirForTest(func() (string, error) {
		return "", errors.New("no home")
	})
	t.Cleanup(restore)

	cfg, present, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if present {
		t.Fatalf("expected config to be missing")
	}
	if cfg != (RawConfig{}) {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
}

func TestLoadProjectConfigInvalidJSONSkips(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, filepath.Join(root, DirName, "config.json"), `{"poll":`)

	cfg, present, err := LoadProjectConfig(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if present || cfg != (RawConfig{}) {
		t.Fatalf("expected invalid config to be skipped, got present=%v cfg=%#v", present, cfg)
	}
}

func TestLoadProjectConfigUnsupportedSchemaSkips(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, filepath.Join(root, DirName, "config.json"), `{"schemaVersion":7,"poll":{"intervalMs":500}}`)

	_, present, err := LoadProjectConfig(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if present {
		t.Fatalf("expected unsupported schema to be skipped")
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	t.Cleanup(SetUserHomeDirForTest(func() (string, error) { return home, nil }))
	t.Cleanup(SetLookupEnvForTest(func(string) (string, bool) { return "", false }))

	writeConfig(t, filepath.Join(home, DirName, "config.json"), `{"api":{"baseUrl":"http://global:9000","timeoutSeconds":10},"poll":{"intervalMs":2000}}`)
	writeConfig(t, filepath.Join(root, DirName, "config.json"), `{"api":{"baseUrl":"http://project:8000/"}}`)

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.API.BaseURL != "http://project:8000" {
		t.Fatalf("expected project base url without trailing slash, got %q", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutSeconds != 10 {
		t.Fatalf("expected global timeout 10, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.Poll.IntervalMs != 2000 {
		t.Fatalf("expected global poll interval 2000, got %d", cfg.Poll.IntervalMs)
	}
	if cfg.Audio.SampleIntervalMs != DefaultAudioSampleIntervalMs {
		t.Fatalf("expected default sample interval, got %d", cfg.Audio.SampleIntervalMs)
	}
}

func TestLoadConfigEnvOverridesBaseURL(t *testing.T) {
	root := t.TempDir()
	t.Cleanup(SetUserHomeDirForTest(func() (string, error) { return "", errors.New("no home") }))
	t.Cleanup(SetLookupEnvForTest(func(key string) (string, bool) {
		if key == APIBaseURLEnv {
			return " http://env:7000/ ", true
		}
		return "", false
	}))
	writeConfig(t, filepath.Join(root, DirName, "config.json"), `{"api":{"baseUrl":"http://project:8000"}}`)

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.API.BaseURL != "http://env:7000" {
		t.Fatalf("expected env base url, got %q", cfg.API.BaseURL)
	}
}

func writeConfig(t *testing.T, path string, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

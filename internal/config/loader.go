package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var userHomeDir = os.UserHomeDir

var lookupEnv = os.LookupEnv

func GlobalConfigPath() (string, bool) {
	home, err := userHomeDir()
	if err != nil || home == "" {
		return "", false
	}
	return filepath.Join(home, DirName, "config.json"), true
}

func ProjectConfigPath(projectRoot string) (string, bool) {
	if projectRoot == "" {
		return "", false
	}
	return filepath.Join(projectRoot, DirName, "config.json"), true
}

func LoadGlobalConfig() (RawConfig, bool, error) {
	path, ok := GlobalConfigPath()
	if !ok {
		return RawConfig{}, false, nil
	}
	return loadConfigFile(path)
}

func LoadProjectConfig(projectRoot string) (RawConfig, bool, error) {
	path, ok := ProjectConfigPath(projectRoot)
	if !ok {
		return RawConfig{}, false, nil
	}
	return loadConfigFile(path)
}

// LoadConfig reads global and project configs and returns the resolved config.
// Precedence per key: env > project > global > defaults.
func LoadConfig(projectRoot string) (ResolvedConfig, error) {
	globalCfg, _, err := LoadGlobalConfig()
	if err != nil {
		return ResolvedConfig{}, err
	}
	projectCfg, _, err := LoadProjectConfig(projectRoot)
	if err != nil {
		return ResolvedConfig{}, err
	}
	resolved := ResolveConfig(projectCfg, globalCfg)
	if v, ok := lookupEnv(APIBaseURLEnv); ok && strings.TrimSpace(v) != "" {
		resolved.API.BaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	return resolved, nil
}

func loadConfigFile(path string) (RawConfig, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, false, nil
		}
		return RawConfig{}, false, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))

	var cfg RawConfig
	if err := dec.Decode(&cfg); err != nil {
		return RawConfig{}, false, nil
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return RawConfig{}, false, nil
	}
	if !isSupportedSchemaVersion(cfg.SchemaVersion) {
		return RawConfig{}, false, nil
	}

	return cfg, true, nil
}

func isSupportedSchemaVersion(version *int) bool {
	if version == nil {
		return true
	}
	return *version == SchemaVersion
}

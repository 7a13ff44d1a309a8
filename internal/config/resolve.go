package config

import "strings"

// ResolveConfig merges project/global configs with built-in defaults.
// Precedence per key: project > global > defaults, then clamp numeric values to bounds.
func ResolveConfig(project RawConfig, global RawConfig) ResolvedConfig {
	defaults := DefaultResolvedConfig()

	baseURL := resolveString(
		valueFromAPI(project, func(api RawAPI) *string { return api.BaseURL }),
		valueFromAPI(global, func(api RawAPI) *string { return api.BaseURL }),
		defaults.API.BaseURL,
	)
	timeout := resolveIntWithBounds(
		valueFromAPIInt(project, func(api RawAPI) *int { return api.TimeoutSeconds }),
		valueFromAPIInt(global, func(api RawAPI) *int { return api.TimeoutSeconds }),
		defaults.API.TimeoutSeconds,
		MinAPITimeoutSeconds,
		MaxAPITimeoutSeconds,
	)
	rps := resolveIntWithBounds(
		valueFromAPIInt(project, func(api RawAPI) *int { return api.RequestsPerSecond }),
		valueFromAPIInt(global, func(api RawAPI) *int { return api.RequestsPerSecond }),
		defaults.API.RequestsPerSecond,
		MinAPIRequestsPerSecond,
		MaxAPIRequestsPerSecond,
	)
	pollInterval := resolveIntWithBounds(
		valueFromPoll(project),
		valueFromPoll(global),
		defaults.Poll.IntervalMs,
		MinPollIntervalMs,
		MaxPollIntervalMs,
	)
	sampleInterval := resolveIntWithBounds(
		valueFromAudio(project, func(audio RawAudio) *int { return audio.SampleIntervalMs }),
		valueFromAudio(global, func(audio RawAudio) *int { return audio.SampleIntervalMs }),
		defaults.Audio.SampleIntervalMs,
		MinAudioSampleIntervalMs,
		MaxAudioSampleIntervalMs,
	)
	levelWindow := resolveIntWithBounds(
		valueFromAudio(project, func(audio RawAudio) *int { return audio.LevelWindow }),
		valueFromAudio(global, func(audio RawAudio) *int { return audio.LevelWindow }),
		defaults.Audio.LevelWindow,
		MinAudioLevelWindow,
		MaxAudioLevelWindow,
	)
	recorder := resolveRecorder(project, global, defaults.Audio.Recorder)
	backend := resolveBackend(
		valueFromSession(project),
		valueFromSession(global),
		defaults.Session.Backend,
	)

	return ResolvedConfig{
		SchemaVersion: SchemaVersion,
		API: ResolvedAPI{
			BaseURL:           strings.TrimRight(baseURL, "/"),
			TimeoutSeconds:    timeout,
			RequestsPerSecond: rps,
		},
		Poll: ResolvedPoll{
			IntervalMs: pollInterval,
		},
		Audio: ResolvedAudio{
			SampleIntervalMs: sampleInterval,
			LevelWindow:      levelWindow,
			Recorder:         recorder,
			SampleRateHz:     defaults.Audio.SampleRateHz,
		},
		Session: ResolvedSession{
			Backend: backend,
		},
	}
}

func valueFromAPI(cfg RawConfig, pick func(RawAPI) *string) *string {
	if cfg.API == nil {
		return nil
	}
	return pick(*cfg.API)
}

func valueFromAPIInt(cfg RawConfig, pick func(RawAPI) *int) *int {
	if cfg.API == nil {
		return nil
	}
	return pick(*cfg.API)
}

func valueFromPoll(cfg RawConfig) *int {
	if cfg.Poll == nil {
		return nil
	}
	return cfg.Poll.IntervalMs
}

func valueFromAudio(cfg RawConfig, pick func(RawAudio) *int) *int {
	if cfg.Audio == nil {
		return nil
	}
	return pick(*cfg.Audio)
}

func valueFromSession(cfg RawConfig) *string {
	if cfg.Session == nil {
		return nil
	}
	return cfg.Session.Backend
}

func resolveRecorder(project RawConfig, global RawConfig, defaultVal []string) []string {
	for _, cfg := range []RawConfig{project, global} {
		if cfg.Audio != nil && len(cfg.Audio.Recorder) > 0 && strings.TrimSpace(cfg.Audio.Recorder[0]) != "" {
			return append([]string{}, cfg.Audio.Recorder...)
		}
	}
	return append([]string{}, defaultVal...)
}

func resolveBackend(projectVal *string, globalVal *string, defaultVal string) string {
	if backend, ok := normalizeBackend(projectVal); ok {
		return backend
	}
	if backend, ok := normalizeBackend(globalVal); ok {
		return backend
	}
	return defaultVal
}

func normalizeBackend(value *string) (string, bool) {
	if value == nil {
		return "", false
	}
	backend := strings.ToLower(strings.TrimSpace(*value))
	switch backend {
	case SessionBackendFile, SessionBackendSQLite:
		return backend, true
	default:
		return "", false
	}
}

func resolveString(projectVal *string, globalVal *string, defaultVal string) string {
	if value := normalizeString(projectVal); value != "" {
		return value
	}
	if value := normalizeString(globalVal); value != "" {
		return value
	}
	return defaultVal
}

func resolveIntWithBounds(projectVal *int, globalVal *int, defaultVal int, min int, max int) int {
	if projectVal != nil {
		return clampInt(*projectVal, min, max)
	}
	if globalVal != nil {
		return clampInt(*globalVal, min, max)
	}
	return clampInt(defaultVal, min, max)
}

func clampInt(value int, min int, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func normalizeString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

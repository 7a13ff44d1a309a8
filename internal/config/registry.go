package config

type OptionType string

const (
	OptionTypeInt    OptionType = "int"
	OptionTypeString OptionType = "string"
)

type IntBounds struct {
	Min int
	Max int
}

type OptionMetadata struct {
	KeyPath       string
	Type          OptionType
	DefaultInt    int
	DefaultString string
	Bounds        *IntBounds
	Choices       []string
	Description   string
}

const (
	keyAPIBaseURL            = "api.baseUrl"
	keyAPITimeoutSeconds     = "api.timeoutSeconds"
	keyAPIRequestsPerSecond  = "api.requestsPerSecond"
	keyPollIntervalMs        = "poll.intervalMs"
	keyAudioSampleIntervalMs = "audio.sampleIntervalMs"
	keyAudioLevelWindow      = "audio.levelWindow"
	keySessionBackend        = "session.backend"
)

// OptionRegistry returns the options settable from the command line in display order.
func OptionRegistry() []OptionMetadata {
	defaults := DefaultResolvedConfig()

	return []OptionMetadata{
		newStringOption(keyAPIBaseURL, defaults.API.BaseURL, nil, "Origin of the generation service"),
		newIntOption(keyAPITimeoutSeconds, defaults.API.TimeoutSeconds, MinAPITimeoutSeconds, MaxAPITimeoutSeconds, "Per-request timeout in seconds"),
		newIntOption(keyAPIRequestsPerSecond, defaults.API.RequestsPerSecond, MinAPIRequestsPerSecond, MaxAPIRequestsPerSecond, "Maximum API requests per second"),
		newIntOption(keyPollIntervalMs, defaults.Poll.IntervalMs, MinPollIntervalMs, MaxPollIntervalMs, "Task status poll interval in milliseconds"),
		newIntOption(keyAudioSampleIntervalMs, defaults.Audio.SampleIntervalMs, MinAudioSampleIntervalMs, MaxAudioSampleIntervalMs, "Microphone level sampling interval in milliseconds"),
		newIntOption(keyAudioLevelWindow, defaults.Audio.LevelWindow, MinAudioLevelWindow, MaxAudioLevelWindow, "Number of level samples kept for the meter"),
		newStringOption(keySessionBackend, defaults.Session.Backend, []string{SessionBackendFile, SessionBackendSQLite}, "Session storage backend"),
	}
}

// LookupOption finds an option by key path.
func LookupOption(keyPath string) (OptionMetadata, bool) {
	for _, opt := range OptionRegistry() {
		if opt.KeyPath == keyPath {
			return opt, true
		}
	}
	return OptionMetadata{}, false
}

func newIntOption(keyPath string, defaultValue int, min int, max int, description string) OptionMetadata {
	return OptionMetadata{
		KeyPath:    keyPath,
		Type:       OptionTypeInt,
		DefaultInt: defaultValue,
		Bounds: &IntBounds{
			Min: min,
			Max: max,
		},
		Description: description,
	}
}

func newStringOption(keyPath string, defaultValue string, choices []string, description string) OptionMetadata {
	return OptionMetadata{
		KeyPath:       keyPath,
		Type:          OptionTypeString,
		DefaultString: defaultValue,
		Choices:       choices,
		Description:   description,
	}
}

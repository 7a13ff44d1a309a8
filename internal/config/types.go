package config

import "time"

const (
	SchemaVersion = 1

	DirName = ".carfinder"

	APIBaseURLEnv = "CARFINDER_API_URL"

	SessionBackendFile   = "file"
	SessionBackendSQLite = "sqlite"

	DefaultAPIBaseURL            = "http://localhost:8000"
	DefaultAPITimeoutSeconds     = 30
	DefaultAPIRequestsPerSecond  = 4
	DefaultPollIntervalMs        = 3000
	DefaultAudioSampleIntervalMs = 100
	DefaultAudioLevelWindow      = 100
	DefaultAudioSampleRateHz     = 16000
	DefaultSessionBackend        = SessionBackendFile

	MinAPITimeoutSeconds     = 1
	MaxAPITimeoutSeconds     = 600
	MinAPIRequestsPerSecond  = 1
	MaxAPIRequestsPerSecond  = 50
	MinPollIntervalMs        = 250
	MaxPollIntervalMs        = 60000
	MinAudioSampleIntervalMs = 20
	MaxAudioSampleIntervalMs = 1000
	MinAudioLevelWindow      = 10
	MaxAudioLevelWindow      = 1000
)

// DefaultRecorder is the capture command used when none is configured. It
// must write raw signed 16-bit little-endian mono PCM at 16 kHz to stdout.
func DefaultRecorder() []string {
	return []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}
}

type RawConfig struct {
	SchemaVersion *int        `json:"schemaVersion,omitempty"`
	API           *RawAPI     `json:"api,omitempty"`
	Poll          *RawPoll    `json:"poll,omitempty"`
	Audio         *RawAudio   `json:"audio,omitempty"`
	Session       *RawSession `json:"session,omitempty"`
}

type RawAPI struct {
	BaseURL           *string `json:"baseUrl,omitempty"`
	TimeoutSeconds    *int    `json:"timeoutSeconds,omitempty"`
	RequestsPerSecond *int    `json:"requestsPerSecond,omitempty"`
}

type RawPoll struct {
	IntervalMs *int `json:"intervalMs,omitempty"`
}

type RawAudio struct {
	SampleIntervalMs *int     `json:"sampleIntervalMs,omitempty"`
	LevelWindow      *int     `json:"levelWindow,omitempty"`
	Recorder         []string `json:"recorder,omitempty"`
}

type RawSession struct {
	Backend *string `json:"backend,omitempty"`
}

type ResolvedConfig struct {
	SchemaVersion int             `json:"schemaVersion"`
	API           ResolvedAPI     `json:"api"`
	Poll          ResolvedPoll    `json:"poll"`
	Audio         ResolvedAudio   `json:"audio"`
	Session       ResolvedSession `json:"session"`
}

type ResolvedAPI struct {
	BaseURL           string `json:"baseUrl"`
	TimeoutSeconds    int    `json:"timeoutSeconds"`
	RequestsPerSecond int    `json:"requestsPerSecond"`
}

type ResolvedPoll struct {
	IntervalMs int `json:"intervalMs"`
}

type ResolvedAudio struct {
	SampleIntervalMs int      `json:"sampleIntervalMs"`
	LevelWindow      int      `json:"levelWindow"`
	Recorder         []string `json:"recorder"`
	SampleRateHz     int      `json:"sampleRateHz"`
}

type ResolvedSession struct {
	Backend string `json:"backend"`
}

func DefaultResolvedConfig() ResolvedConfig {
	return ResolvedConfig{
		SchemaVersion: SchemaVersion,
		API: ResolvedAPI{
			BaseURL:           DefaultAPIBaseURL,
			TimeoutSeconds:    DefaultAPITimeoutSeconds,
			RequestsPerSecond: DefaultAPIRequestsPerSecond,
		},
		Poll: ResolvedPoll{
			IntervalMs: DefaultPollIntervalMs,
		},
		Audio: ResolvedAudio{
			SampleIntervalMs: DefaultAudioSampleIntervalMs,
			LevelWindow:      DefaultAudioLevelWindow,
			Recorder:         DefaultRecorder(),
			SampleRateHz:     DefaultAudioSampleRateHz,
		},
		Session: ResolvedSession{
			Backend: DefaultSessionBackend,
		},
	}
}

func (c ResolvedConfig) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}

func (c ResolvedConfig) SampleInterval() time.Duration {
	return time.Duration(c.Audio.SampleIntervalMs) * time.Millisecond
}

func (c ResolvedConfig) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

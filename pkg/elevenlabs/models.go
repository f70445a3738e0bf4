package elevenlabs

import "strings"

// Voice identifies the voice a session synthesizes with.
type Voice struct {
	ID   string `json:"voice_id" mapstructure:"id"`
	Name string `json:"name,omitempty" mapstructure:"name"`
}

func (v Voice) valid() bool { return strings.TrimSpace(v.ID) != "" }

// Model identifies a synthesis model.
type Model struct {
	ID   string `json:"model_id"`
	Name string `json:"name,omitempty"`
}

var (
	ModelMonolingualV1   = Model{ID: "eleven_monolingual_v1", Name: "Eleven English v1"}
	ModelMultilingualV2  = Model{ID: "eleven_multilingual_v2", Name: "Eleven Multilingual v2"}
	ModelTurboV2         = Model{ID: "eleven_turbo_v2", Name: "Eleven Turbo v2"}
	ModelTurboV2_5       = Model{ID: "eleven_turbo_v2_5", Name: "Eleven Turbo v2.5"}
	ModelFlashV2_5       = Model{ID: "eleven_flash_v2_5", Name: "Eleven Flash v2.5"}
	ModelEnglishStsV2    = Model{ID: "eleven_english_sts_v2", Name: "Eleven English v2 (speech to speech)"}
	ModelMultilingualSts = Model{ID: "eleven_multilingual_sts_v2", Name: "Eleven Multilingual v2 (speech to speech)"}

	// DefaultModel is used when a session does not name one.
	DefaultModel = ModelMonolingualV1
)

// OutputFormat is the audio encoding requested from the service. Its value
// is the lower-case wire name.
type OutputFormat string

const (
	FormatMP3_22050_32  OutputFormat = "mp3_22050_32"
	FormatMP3_44100_32  OutputFormat = "mp3_44100_32"
	FormatMP3_44100_64  OutputFormat = "mp3_44100_64"
	FormatMP3_44100_96  OutputFormat = "mp3_44100_96"
	FormatMP3_44100_128 OutputFormat = "mp3_44100_128"
	FormatMP3_44100_192 OutputFormat = "mp3_44100_192"
	FormatPCM_8000      OutputFormat = "pcm_8000"
	FormatPCM_16000     OutputFormat = "pcm_16000"
	FormatPCM_22050     OutputFormat = "pcm_22050"
	FormatPCM_24000     OutputFormat = "pcm_24000"
	FormatPCM_44100     OutputFormat = "pcm_44100"
	FormatULaw_8000     OutputFormat = "ulaw_8000"

	DefaultOutputFormat = FormatMP3_44100_128
)

var knownFormats = map[OutputFormat]struct{}{
	FormatMP3_22050_32:  {},
	FormatMP3_44100_32:  {},
	FormatMP3_44100_64:  {},
	FormatMP3_44100_96:  {},
	FormatMP3_44100_128: {},
	FormatMP3_44100_192: {},
	FormatPCM_8000:      {},
	FormatPCM_16000:     {},
	FormatPCM_22050:     {},
	FormatPCM_24000:     {},
	FormatPCM_44100:     {},
	FormatULaw_8000:     {},
}

// String returns the wire name.
func (f OutputFormat) String() string { return strings.ToLower(string(f)) }

// Valid reports whether f is one of the known formats (case-insensitive).
func (f OutputFormat) Valid() bool {
	_, ok := knownFormats[OutputFormat(f.String())]
	return ok
}

// SampleRate returns the sample rate encoded in the format name.
func (f OutputFormat) SampleRate() int {
	switch OutputFormat(f.String()) {
	case FormatPCM_8000, FormatULaw_8000:
		return 8000
	case FormatPCM_16000:
		return 16000
	case FormatMP3_22050_32, FormatPCM_22050:
		return 22050
	case FormatPCM_24000:
		return 24000
	default:
		return 44100
	}
}

// VoiceSettings overrides the stored settings of a voice for one session.
type VoiceSettings struct {
	Stability       float64  `json:"stability" mapstructure:"stability"`
	SimilarityBoost float64  `json:"similarity_boost" mapstructure:"similarity_boost"`
	Style           *float64 `json:"style,omitempty" mapstructure:"style"`
	UseSpeakerBoost *bool    `json:"use_speaker_boost,omitempty" mapstructure:"use_speaker_boost"`
	Speed           *float64 `json:"speed,omitempty" mapstructure:"speed"`
}

// DefaultVoiceSettings returns the settings the service documents as a
// balanced starting point.
func DefaultVoiceSettings() *VoiceSettings {
	return &VoiceSettings{Stability: 0.5, SimilarityBoost: 0.8}
}

// GenerationConfig tunes how eagerly the service starts generating audio.
type GenerationConfig struct {
	// ChunkLengthSchedule is the number of buffered characters required
	// before each successive generation is triggered.
	ChunkLengthSchedule []int `json:"chunk_length_schedule,omitempty" mapstructure:"chunk_length_schedule"`
}

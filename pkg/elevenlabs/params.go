package elevenlabs

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the websocket root for streaming synthesis.
const DefaultBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"

const (
	paramModelID                  = "model_id"
	paramOutputFormat             = "output_format"
	paramEnableLogging            = "enable_logging"
	paramEnableSSMLParsing        = "enable_ssml_parsing"
	paramOptimizeStreamingLatency = "optimize_streaming_latency"
)

// SessionParams are the session-scoped options fixed at connect time.
// Nil optional fields are omitted from the connection URL entirely.
type SessionParams struct {
	// ModelID defaults to DefaultModel when empty.
	ModelID string `mapstructure:"model_id"`
	// OutputFormat defaults to DefaultOutputFormat when empty.
	OutputFormat OutputFormat `mapstructure:"output_format"`
	// EnableLogging set to false asks the service not to retain history.
	EnableLogging *bool `mapstructure:"enable_logging"`
	// EnableSSMLParsing makes the service interpret SSML tags in text.
	EnableSSMLParsing *bool `mapstructure:"enable_ssml_parsing"`
	// OptimizeStreamingLatency trades quality for latency, 0 (off) to 4
	// (max, text normalizer disabled).
	OptimizeStreamingLatency *int `mapstructure:"optimize_streaming_latency"`
}

// WithModel returns a copy of p using model m.
func (p SessionParams) WithModel(m Model) SessionParams {
	p.ModelID = m.ID
	return p
}

func (p SessionParams) Validate() error {
	if p.OutputFormat != "" && !p.OutputFormat.Valid() {
		return ErrUnknownFormat
	}
	if l := p.OptimizeStreamingLatency; l != nil && (*l < 0 || *l > 4) {
		return ErrInvalidLatency
	}
	return nil
}

func (p SessionParams) model() string {
	if id := strings.TrimSpace(p.ModelID); id != "" {
		return id
	}
	return DefaultModel.ID
}

func (p SessionParams) format() OutputFormat {
	if p.OutputFormat == "" {
		return DefaultOutputFormat
	}
	return OutputFormat(p.OutputFormat.String())
}

// Query renders the parameters as URL query values.
func (p SessionParams) Query() url.Values {
	q := url.Values{}
	q.Set(paramModelID, p.model())
	q.Set(paramOutputFormat, p.format().String())
	if p.EnableLogging != nil {
		q.Set(paramEnableLogging, strconv.FormatBool(*p.EnableLogging))
	}
	if p.EnableSSMLParsing != nil {
		q.Set(paramEnableSSMLParsing, strconv.FormatBool(*p.EnableSSMLParsing))
	}
	if p.OptimizeStreamingLatency != nil {
		q.Set(paramOptimizeStreamingLatency, strconv.Itoa(*p.OptimizeStreamingLatency))
	}
	return q
}

// StreamURL builds the stream-input endpoint for a voice. Query keys are
// sorted, so the result is deterministic.
func StreamURL(baseURL, voiceID string, p SessionParams) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(voiceID) + "/stream-input?" + p.Query().Encode()
}

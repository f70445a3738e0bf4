package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonInvalidArgument ReasonCode = "tts_invalid_argument"
	ReasonConnect         ReasonCode = "tts_connect"
	ReasonRateLimit       ReasonCode = "tts_rate_limit"
	ReasonSend            ReasonCode = "tts_send"
	ReasonDecode          ReasonCode = "tts_decode"
	ReasonTransport       ReasonCode = "tts_transport"
	ReasonServer          ReasonCode = "tts_server"
	ReasonCallback        ReasonCode = "tts_callback"
	ReasonState           ReasonCode = "tts_state"

	ReasonConfig ReasonCode = "config"
)

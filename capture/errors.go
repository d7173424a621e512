package capture

import "errors"

var (
	// ErrChannelCommitted is returned when a response is asked for the byte
	// channel after the text channel was handed out, or the other way round.
	ErrChannelCommitted = errors.New("go-capture-agent: response already committed to the other channel")

	// ErrUnsupportedCharset is returned when a declared charset has no known encoding.
	ErrUnsupportedCharset = errors.New("go-capture-agent: unsupported charset")

	// ErrBodyRead is returned when the request body could not be read into the capture buffer.
	ErrBodyRead = errors.New("go-capture-agent: request body could not be read")

	// ErrUndecodableContent is returned when captured request bytes cannot be
	// decoded with the declared (or default) charset.
	ErrUndecodableContent = errors.New("go-capture-agent: captured content is not decodable")
)

// Sentinel values returned by ResponseCapture.Content when capture fails.
// They stand in for the body so a failing capture never breaks the response.
const (
	UnsupportedEncodingContent = "[UNSUPPORTED ENCODING]"
	IOExceptionContent         = "[IO EXCEPTION]"
)

// ErrUnsupportedContentEncoding is returned for a Content-Encoding the decoder does not know.
var ErrUnsupportedContentEncoding = errors.New("go-capture-agent: unsupported content encoding")

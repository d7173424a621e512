package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecodedSize bounds the output of DecodeContentEncoding when no
// limit is given.
const DefaultMaxDecodedSize = 32 << 20

// zstdMaxMemory bounds the zstd window and declared frame size.
const zstdMaxMemory = 64 << 20

// DecodeContentEncoding reverses the codings listed in a Content-Encoding
// header value. Codings are applied in listed order, so they are undone last
// to first. Every stage stops after maxSize bytes of output, so the result is
// a prefix of the body when it decompresses past the limit.
func DecodeContentEncoding(body []byte, contentEncoding string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxDecodedSize
	}

	codings := strings.Split(contentEncoding, ",")
	truncated := false
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))

		var (
			r   io.ReadCloser
			err error
		)
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			r, err = gzip.NewReader(bytes.NewReader(body))
		case "deflate":
			r, err = zlib.NewReader(bytes.NewReader(body))
		case "br":
			r = io.NopCloser(brotli.NewReader(bytes.NewReader(body)))
		case "zstd":
			r, err = newZstdReader(body, maxSize)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentEncoding, coding)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", coding, err)
		}

		body, err = readBounded(r, maxSize)
		// A prefix cut by an earlier stage ends early here.
		if truncated && errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", coding, err)
		}
		truncated = truncated || int64(len(body)) >= maxSize
	}
	return body, nil
}

func readBounded(r io.ReadCloser, maxSize int64) ([]byte, error) {
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxSize))
}

func newZstdReader(body []byte, maxSize int64) (io.ReadCloser, error) {
	mem := uint64(zstdMaxMemory)
	if uint64(maxSize) > mem {
		mem = uint64(maxSize)
	}
	dec, err := zstd.NewReader(bytes.NewReader(body),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(mem),
	)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

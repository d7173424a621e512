package capture

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when a request or response declares no charset.
const DefaultCharset = "utf-8"

// lookupEncoding resolves a charset label. A nil encoding means UTF-8, which
// needs no transformation.
func lookupEncoding(charset string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "utf-8", "utf8":
		return nil, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, charset)
	}
	return enc, nil
}

// decodeString converts bytes in the given charset to a Go string.
func decodeString(b []byte, charset string) (string, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(b), nil
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return string(out), nil
}

func decodingReader(r io.Reader, charset string) (io.Reader, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func encodingWriter(w io.Writer, charset string) (io.WriteCloser, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// CharsetFromContentType returns the charset parameter of a Content-Type value,
// or "" when there is none.
func CharsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// NormalizeSpace collapses every run of whitespace into a single space and
// trims both ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

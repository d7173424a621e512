package capture

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCharsetFromContentType(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"application/json":               "",
		"text/html; charset=UTF-8":       "UTF-8",
		`text/plain; charset="latin1"`:   "latin1",
		"text/plain; format=flowed; x=y": "",
		"not a media type;;":             "",
	}

	for contentType, want := range tests {
		if got := CharsetFromContentType(contentType); got != want {
			t.Errorf("CharsetFromContentType(%q) = %q, want %q", contentType, got, want)
		}
	}
}

func TestNormalizeSpace(t *testing.T) {
	tests := map[string]string{
		"":                      "",
		"  a  ":                 "a",
		"a\n\tb   c":            "a b c",
		"{\n  \"k\": \"v\"\n}\n": `{ "k": "v" }`,
	}

	for in, want := range tests {
		if got := NormalizeSpace(in); got != want {
			t.Errorf("NormalizeSpace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, label := range []string{"", "utf-8", "UTF8", " utf-8 "} {
		enc, err := lookupEncoding(label)
		if err != nil || enc != nil {
			t.Errorf("lookupEncoding(%q) = %v, %v; want nil, nil", label, enc, err)
		}
	}

	for _, label := range []string{"ISO-8859-1", "windows-1251", "shift_jis", "utf-16le"} {
		if enc, err := lookupEncoding(label); err != nil || enc == nil {
			t.Errorf("lookupEncoding(%q) = %v, %v; want an encoding", label, enc, err)
		}
	}

	if _, err := lookupEncoding("klingon"); !errors.Is(err, ErrUnsupportedCharset) {
		t.Errorf("expected ErrUnsupportedCharset, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := encodingWriter(&buf, "windows-1251")
	if err != nil {
		t.Fatalf("encodingWriter error: %v", err)
	}
	_, _ = io.WriteString(w, "привет")
	_ = w.Close()

	if buf.Len() != len([]rune("привет")) {
		t.Errorf("expected one byte per rune, got %d bytes", buf.Len())
	}

	text, err := decodeString(buf.Bytes(), "windows-1251")
	if err != nil || text != "привет" {
		t.Errorf("decodeString = %q, %v", text, err)
	}

	r, err := decodingReader(bytes.NewReader(buf.Bytes()), "windows-1251")
	if err != nil {
		t.Fatalf("decodingReader error: %v", err)
	}
	out, _ := io.ReadAll(r)
	if string(out) != "привет" {
		t.Errorf("decodingReader read %q", out)
	}
}

func TestDecodingReader_UTF8PassThrough(t *testing.T) {
	src := strings.NewReader("plain")
	r, err := decodingReader(src, "")
	if err != nil {
		t.Fatalf("decodingReader error: %v", err)
	}
	if r != src {
		t.Error("expected UTF-8 to return the source reader")
	}
}

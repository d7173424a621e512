package capture

import (
	"bytes"
	"errors"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const plainBody = `{"items":[1,2,3],"next":null}`

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeContentEncoding(t *testing.T) {
	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	_, _ = zw.Write([]byte(plainBody))
	_ = zw.Close()

	var brotlied bytes.Buffer
	bw := brotli.NewWriter(&brotlied)
	_, _ = bw.Write([]byte(plainBody))
	_ = bw.Close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	zstded := enc.EncodeAll([]byte(plainBody), nil)
	_ = enc.Close()

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{"identity", []byte(plainBody), "identity"},
		{"empty header", []byte(plainBody), ""},
		{"gzip", gzipBytes(t, []byte(plainBody)), "gzip"},
		{"x-gzip", gzipBytes(t, []byte(plainBody)), "X-GZIP"},
		{"deflate", deflated.Bytes(), "deflate"},
		{"br", brotlied.Bytes(), "br"},
		{"zstd", zstded, "zstd"},
		{"stacked", gzipBytes(t, gzipBytes(t, []byte(plainBody))), "gzip, gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContentEncoding(tt.body, tt.encoding, 0)
			if err != nil {
				t.Fatalf("DecodeContentEncoding error: %v", err)
			}
			if string(got) != plainBody {
				t.Errorf("decoded %q, want %q", got, plainBody)
			}
		})
	}
}

func TestDecodeContentEncoding_Errors(t *testing.T) {
	if _, err := DecodeContentEncoding([]byte("x"), "compress", 0); !errors.Is(err, ErrUnsupportedContentEncoding) {
		t.Errorf("expected ErrUnsupportedContentEncoding, got %v", err)
	}
	if _, err := DecodeContentEncoding([]byte("not gzip"), "gzip", 0); err == nil {
		t.Error("expected an error for a corrupt gzip body")
	}
}

func TestDecodeContentEncoding_BoundsOutput(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 1<<20)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	zstded := enc.EncodeAll(big, nil)
	_ = enc.Close()

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{"gzip", gzipBytes(t, big), "gzip"},
		{"zstd", zstded, "zstd"},
		{"stacked", gzipBytes(t, gzipBytes(t, big)), "gzip, gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContentEncoding(tt.body, tt.encoding, 1024)
			if err != nil {
				t.Fatalf("DecodeContentEncoding error: %v", err)
			}
			if len(got) != 1024 || !bytes.Equal(got, big[:1024]) {
				t.Errorf("decoded %d bytes, want the first 1024", len(got))
			}
		})
	}
}

package capture

import (
	"bufio"
	"fmt"
	"io"
)

// Stream is the byte channel of a response.
type Stream interface {
	io.Writer
	Flush() error
	Close() error
}

// TextWriter is the character channel of a response. Text is encoded into
// the response charset before it reaches the underlying Stream. With
// auto-flush enabled every Println flushes through to the client.
type TextWriter struct {
	out       Stream
	enc       io.WriteCloser
	buf       *bufio.Writer
	autoFlush bool
}

// NewTextWriter layers a charset-encoding writer over out.
func NewTextWriter(out Stream, charset string, autoFlush bool) (*TextWriter, error) {
	enc, err := encodingWriter(out, charset)
	if err != nil {
		return nil, err
	}
	return &TextWriter{
		out:       out,
		enc:       enc,
		buf:       bufio.NewWriter(enc),
		autoFlush: autoFlush,
	}, nil
}

// Write writes UTF-8 text.
func (w *TextWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *TextWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *TextWriter) Print(a ...any) (int, error) {
	return fmt.Fprint(w.buf, a...)
}

func (w *TextWriter) Printf(format string, a ...any) (int, error) {
	return fmt.Fprintf(w.buf, format, a...)
}

// Println writes a line and, with auto-flush on, flushes it.
func (w *TextWriter) Println(a ...any) (int, error) {
	n, err := fmt.Fprintln(w.buf, a...)
	if err != nil || !w.autoFlush {
		return n, err
	}
	return n, w.Flush()
}

// Flush pushes buffered text through the encoder and flushes the stream.
func (w *TextWriter) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.out.Flush()
}

// Close flushes pending text, ends the encoder and closes the stream.
func (w *TextWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if err := w.enc.Close(); err != nil {
		return err
	}
	return w.out.Close()
}

package spacetrack

import (
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// ResultKind describes which accessor of a Result carries the response.
type ResultKind int

const (
	// KindData is a decoded JSON document, see Result.Data.
	KindData ResultKind = iota
	// KindText is a text body in a caller-chosen format, see Result.Text.
	KindText
	// KindBytes is a binary body, see Result.Bytes.
	KindBytes
	// KindLines is a line stream, see Result.Lines.
	KindLines
	// KindTextChunks is a decoded chunk stream, see Result.TextChunks.
	KindTextChunks
	// KindChunks is a binary chunk stream, see Result.Chunks.
	KindChunks
)

func (k ResultKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindLines:
		return "lines"
	case KindTextChunks:
		return "text chunks"
	case KindChunks:
		return "chunks"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the response of a request. Stream kinds hold the response body
// open until the stream is exhausted, the loop breaks or Close is called.
// A stream can be ranged over once.
type Result struct {
	kind   ResultKind
	data   any
	text   string
	bytes  []byte
	lines  iter.Seq2[string, error]
	chunks iter.Seq2[[]byte, error]

	consumed  atomic.Bool
	closer    io.Closer
	closeOnce sync.Once
	closeErr  error
}

// NewDataResult wraps a decoded JSON document.
func NewDataResult(data any) *Result {
	return &Result{kind: KindData, data: data}
}

// NewTextResult wraps a text body.
func NewTextResult(text string) *Result {
	return &Result{kind: KindText, text: text}
}

// NewBytesResult wraps a binary body.
func NewBytesResult(data []byte) *Result {
	return &Result{kind: KindBytes, bytes: data}
}

// NewLinesResult wraps a line stream. closer releases the body.
func NewLinesResult(lines iter.Seq2[string, error], closer io.Closer) *Result {
	return &Result{kind: KindLines, lines: lines, closer: closer}
}

// NewTextChunksResult wraps a decoded chunk stream. closer releases the body.
func NewTextChunksResult(chunks iter.Seq2[string, error], closer io.Closer) *Result {
	return &Result{kind: KindTextChunks, lines: chunks, closer: closer}
}

// NewChunksResult wraps a binary chunk stream. closer releases the body.
func NewChunksResult(chunks iter.Seq2[[]byte, error], closer io.Closer) *Result {
	return &Result{kind: KindChunks, chunks: chunks, closer: closer}
}

// Kind reports which accessor carries the response.
func (r *Result) Kind() ResultKind {
	return r.kind
}

// IsStream reports whether the result holds an open body.
func (r *Result) IsStream() bool {
	return r.kind == KindLines || r.kind == KindTextChunks || r.kind == KindChunks
}

// Data returns the decoded document of a KindData result. Numbers are
// json.Number unless ParseTypes converted them.
func (r *Result) Data() any {
	return r.data
}

// Text returns the body of a KindText result.
func (r *Result) Text() string {
	return r.text
}

// Bytes returns the body of a KindBytes result.
func (r *Result) Bytes() []byte {
	return r.bytes
}

// Lines yields the lines of a KindLines result without their terminators.
func (r *Result) Lines() iter.Seq2[string, error] {
	return r.stringStream(KindLines)
}

// TextChunks yields the chunks of a KindTextChunks result.
func (r *Result) TextChunks() iter.Seq2[string, error] {
	return r.stringStream(KindTextChunks)
}

// Chunks yields the chunks of a KindChunks result.
func (r *Result) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if r.kind != KindChunks {
			yield(nil, fmt.Errorf("%w: result is %s", ErrWrongResultKind, r.kind))

			return
		}

		if !r.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrResultConsumed)

			return
		}

		defer r.Close() //nolint:errcheck // close errors surface through Close

		for chunk, err := range r.chunks {
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

func (r *Result) stringStream(kind ResultKind) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if r.kind != kind {
			yield("", fmt.Errorf("%w: result is %s", ErrWrongResultKind, r.kind))

			return
		}

		if !r.consumed.CompareAndSwap(false, true) {
			yield("", ErrResultConsumed)

			return
		}

		defer r.Close() //nolint:errcheck // close errors surface through Close

		for s, err := range r.lines {
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the response body of a stream. It is safe to call more
// than once and on non-stream results.
func (r *Result) Close() error {
	r.closeOnce.Do(func() {
		if r.closer != nil {
			r.closeErr = r.closer.Close()
		}
	})

	return r.closeErr
}

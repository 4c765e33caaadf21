package render

import (
	"io"
	"net/http"
	"strings"
)

// ChunkKind says which part of a document a chunk carries.
type ChunkKind uint8

const (
	ChunkHead ChunkKind = iota + 1
	ChunkBodyStart
	ChunkContent
	ChunkPlaceholder
	ChunkFill
	ChunkHydration
	ChunkEnd
)

var chunkKindNames = map[ChunkKind]string{
	ChunkHead:        "head",
	ChunkBodyStart:   "body-start",
	ChunkContent:     "content",
	ChunkPlaceholder: "placeholder",
	ChunkFill:        "fill",
	ChunkHydration:   "hydration",
	ChunkEnd:         "end",
}

func (k ChunkKind) String() string {
	if s, ok := chunkKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Chunk is one piece of a streamed document. ID names the island of
// island content, placeholder and fill chunks.
type Chunk struct {
	Kind ChunkKind
	ID   string
	Data string
}

// Sink receives the chunks of a stream in order.
type Sink interface {
	WriteChunk(Chunk) error
}

// WriterSink writes chunks to a writer, flushing after each one when the
// writer is an http.Flusher.
type WriterSink struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	flusher, _ := w.(http.Flusher)
	return &WriterSink{w: w, flusher: flusher}
}

// WriteChunk implements Sink.
func (s *WriterSink) WriteChunk(c Chunk) error {
	if _, err := io.WriteString(s.w, c.Data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// CollectSink keeps every chunk.
type CollectSink struct {
	Chunks []Chunk
}

// WriteChunk implements Sink.
func (s *CollectSink) WriteChunk(c Chunk) error {
	s.Chunks = append(s.Chunks, c)
	return nil
}

// String concatenates the chunk data.
func (s *CollectSink) String() string {
	var b strings.Builder
	for _, c := range s.Chunks {
		b.WriteString(c.Data)
	}
	return b.String()
}

// FlushableWriter records flushes. It stands in for a streaming
// http.ResponseWriter in tests.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}

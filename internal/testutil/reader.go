package testutil

import (
	"io"
)

// ChunkReader returns its chunks one Read call at a time, the way a network
// body delivers data in arbitrary pieces.
type ChunkReader struct {
	chunks [][]byte
	reads  int
}

// NewChunkReader creates a reader over the given chunks.
func NewChunkReader(chunks ...string) *ChunkReader {
	r := &ChunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

// SplitAt cuts s at the given byte offsets, which may fall inside a
// multi-byte character.
func SplitAt(s string, offsets ...int) []string {
	var parts []string
	prev := 0
	for _, off := range offsets {
		parts = append(parts, s[prev:off])
		prev = off
	}
	return append(parts, s[prev:])
}

// Read implements io.Reader.
func (r *ChunkReader) Read(p []byte) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}

	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	r.reads++
	return n, nil
}

// Reads returns the number of non-empty reads served.
func (r *ChunkReader) Reads() int {
	return r.reads
}

// ErrReader returns data and then fails with err instead of io.EOF.
type ErrReader struct {
	R   io.Reader
	Err error
}

// Read implements io.Reader.
func (r *ErrReader) Read(p []byte) (int, error) {
	n, err := r.R.Read(p)
	if err == io.EOF {
		return n, r.Err
	}
	return n, err
}

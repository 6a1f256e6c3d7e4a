package encoding

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/pkg/core/events"
)

// DataPrefix marks a line that carries an event payload.
const DataPrefix = "data: "

// DefaultMaxLineSize bounds a single protocol line.
const DefaultMaxLineSize = 4 * 1024 * 1024

// ErrLineTooLong is returned when a line exceeds the decoder's maximum size.
var ErrLineTooLong = errors.New("stream line exceeds maximum size")

// Decoder reads chat stream events from a byte stream.
type Decoder struct {
	r           *bufio.Reader
	logger      logrus.FieldLogger
	maxLineSize int
	skipped     int
	eof         bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for skipped lines.
func WithLogger(logger logrus.FieldLogger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithMaxLineSize sets the maximum accepted line length in bytes.
func WithMaxLineSize(size int) DecoderOption {
	return func(d *Decoder) {
		d.maxLineSize = size
	}
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		r:           bufio.NewReader(r),
		logger:      logrus.StandardLogger(),
		maxLineSize: DefaultMaxLineSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Next returns the next event. It returns io.EOF once the underlying reader
// is exhausted; any other error is fatal for the stream.
func (d *Decoder) Next() (events.Event, error) {
	for {
		if d.eof {
			return nil, io.EOF
		}

		line, err := d.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if errors.Is(err, io.EOF) {
			// A final line without a trailing newline is still a line.
			d.eof = true
		}

		if event, ok := d.parseLine(line); ok {
			return event, nil
		}
	}
}

// Skipped returns how many data lines were dropped because they could not be decoded.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > d.maxLineSize {
			return nil, fmt.Errorf("%w (%d bytes)", ErrLineTooLong, d.maxLineSize)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

func (d *Decoder) parseLine(line []byte) (events.Event, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return nil, false
	}

	payload := line[len(DataPrefix):]
	event, err := events.EventFromJSON(payload)
	if err != nil {
		d.skipped++
		d.logger.WithError(err).WithField("line", string(line)).Warn("failed to parse stream data line")
		return nil, false
	}

	return event, true
}

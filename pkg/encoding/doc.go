// Package encoding provides framing for the Data Ada chat stream.
//
// A chat stream is a sequence of newline-terminated lines. Lines that start
// with "data: " carry one JSON event envelope; every other line is ignored.
// The Decoder buffers partial lines across reads, so a network read that ends
// in the middle of an event (or in the middle of a multi-byte character) does
// not corrupt it. A line whose JSON cannot be decoded is logged and skipped;
// decoding continues with the next line.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/encoding"
//
//	dec := encoding.NewDecoder(resp.Body)
//	for {
//		event, err := dec.Next()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		handle(event)
//	}
//
//	enc := encoding.NewEncoder(w)
//	err := enc.Encode(events.NewDoneEvent())
package encoding

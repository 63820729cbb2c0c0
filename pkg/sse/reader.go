// Package sse decodes server-sent event streams of chat completion chunks.
//
// The Reader handles the event-stream framing. Deltas builds on it to turn an
// upstream response body into a lazy sequence of text fragments.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var doneMarker = []byte("[DONE]")

// Event is a single dispatched server-sent event.
type Event struct {
	// Name is the value of the last "event:" field, empty for default events.
	Name string

	// Data holds the "data:" lines of the event joined with "\n".
	Data []byte
}

// Done reports whether the event is the terminal [DONE] marker.
func (e Event) Done() bool {
	return bytes.Equal(bytes.TrimSpace(e.Data), doneMarker)
}

// Reader parses server-sent events from a byte stream. Events that are split
// across reads of the underlying reader are buffered until complete.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next event carrying data. Comment lines, unknown fields and
// events without data are skipped. An event that is not terminated by a blank
// line is still returned when the stream ends. Next returns io.EOF once the
// stream is exhausted.
func (s *Reader) Next() (Event, error) {
	var (
		ev   Event
		data [][]byte
	)

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(data) > 0 {
				ev.Data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
			// Blank line without data dispatches nothing.
			ev.Name = ""
		} else if line[0] != ':' {
			name, value, _ := bytes.Cut(line, []byte(":"))
			value = bytes.TrimPrefix(value, []byte(" "))

			switch string(name) {
			case "data":
				data = append(data, value)
			case "event":
				ev.Name = string(value)
			}
		}

		if err != nil {
			if len(data) > 0 {
				ev.Data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
			return Event{}, io.EOF
		}
	}
}

package sse_test

import (
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartguide/smartguide/pkg/sse"
)

func readAll(r *sse.Reader) []sse.Event {
	var events []sse.Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
}

var _ = Describe("Reader", func() {
	It("reads data events separated by blank lines", func() {
		r := sse.NewReader(strings.NewReader("data: one\n\ndata: two\n\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(2))
		Expect(string(events[0].Data)).To(Equal("one"))
		Expect(string(events[1].Data)).To(Equal("two"))
	})

	It("joins multi-line data with newlines", func() {
		r := sse.NewReader(strings.NewReader("data: first\ndata: second\n\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(1))
		Expect(string(events[0].Data)).To(Equal("first\nsecond"))
	})

	It("tolerates CRLF line endings", func() {
		r := sse.NewReader(strings.NewReader("data: one\r\n\r\ndata: two\r\n\r\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(2))
		Expect(string(events[1].Data)).To(Equal("two"))
	})

	It("skips comments and unknown fields", func() {
		r := sse.NewReader(strings.NewReader(": keep-alive\nid: 7\nretry: 100\ndata: payload\n\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(1))
		Expect(string(events[0].Data)).To(Equal("payload"))
	})

	It("records the event name", func() {
		r := sse.NewReader(strings.NewReader("event: message\ndata: hi\n\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(1))
		Expect(events[0].Name).To(Equal("message"))
	})

	It("accepts data without a space after the colon", func() {
		r := sse.NewReader(strings.NewReader("data:tight\n\n"))

		events := readAll(r)
		Expect(events).To(HaveLen(1))
		Expect(string(events[0].Data)).To(Equal("tight"))
	})

	It("returns a trailing event that has no blank line before EOF", func() {
		r := sse.NewReader(strings.NewReader("data: one\n\ndata: last"))

		events := readAll(r)
		Expect(events).To(HaveLen(2))
		Expect(string(events[1].Data)).To(Equal("last"))
	})

	It("returns io.EOF for an empty stream", func() {
		_, err := sse.NewReader(strings.NewReader("")).Next()
		Expect(err).To(Equal(io.EOF))
	})

	It("recognises the done marker", func() {
		Expect(sse.Event{Data: []byte("[DONE]")}.Done()).To(BeTrue())
		Expect(sse.Event{Data: []byte(`{"choices":[]}`)}.Done()).To(BeFalse())
	})
})

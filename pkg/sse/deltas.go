package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/smartguide/smartguide/pkg/llm"
)

// ErrConsumed is returned when a delta sequence is iterated a second time.
var ErrConsumed = errors.New("sse: stream already consumed")

// DecodeError describes an event whose data is not a valid completion chunk.
// Deltas recovers from it by skipping the event.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	data := string(e.Data)
	if len(data) > 64 {
		data = data[:64] + "..."
	}
	return fmt.Sprintf("sse: malformed event %q: %v", data, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Option configures Deltas.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report skipped events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Deltas returns the text deltas carried by the event stream in body.
//
// The sequence is lazy and finite: it ends at the [DONE] marker, after a
// chunk that carries a finish reason, or when the stream closes. It can only be iterated once; later iterations yield
// ErrConsumed. Malformed events are skipped. The body is closed when iteration
// stops, and cancelling ctx closes it immediately, ending the sequence with
// ctx.Err().
func Deltas(ctx context.Context, body io.ReadCloser, opts ...Option) iter.Seq2[string, error] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrConsumed)
			return
		}

		defer body.Close()
		stop := context.AfterFunc(ctx, func() {
			_ = body.Close()
		})
		defer stop()

		r := NewReader(body)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			ev, err := r.Next()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield("", ctxErr)
					return
				}
				if errors.Is(err, io.EOF) {
					return
				}
				yield("", fmt.Errorf("sse: read stream: %w", err))
				return
			}

			if ev.Done() {
				return
			}

			chunk, err := decodeChunk(ev.Data)
			if err != nil {
				o.logger.Debug("skipping malformed event", zap.Error(err))
				continue
			}

			if delta := chunk.Delta(); delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
			if chunk.Finished() {
				return
			}
		}
	}
}

// Collect consumes the whole stream and returns the concatenated text.
func Collect(ctx context.Context, body io.ReadCloser, opts ...Option) (string, error) {
	var sb strings.Builder
	for delta, err := range Deltas(ctx, body, opts...) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(delta)
	}
	return sb.String(), nil
}

func decodeChunk(data []byte) (*llm.StreamChunk, error) {
	var chunk llm.StreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, &DecodeError{Data: data, Err: err}
	}
	return &chunk, nil
}

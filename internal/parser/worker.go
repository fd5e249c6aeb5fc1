package parser

import (
	"context"
	"errors"
)

// Event is one message from the parse worker. Exactly one field is set.
// A terminal event (Result or Err) is the last event before the channel
// closes; no partial result follows an error.
type Event struct {
	Progress *Progress
	Result   *Result
	Err      error
}

// Worker runs parses on their own goroutine so a large transcript cannot
// stall the caller. All communication crosses the returned channel; the
// worker shares no mutable state with its consumer.
type Worker struct {
	parser *Parser
}

// NewWorker creates a worker around the given parser.
func NewWorker(p *Parser) *Worker {
	return &Worker{parser: p}
}

// Run starts parsing text in the background and returns the event channel.
// The channel is unbuffered: every progress send is a yield point where the
// consumer runs. Cancelling ctx stops delivery; the consumer then sees the
// channel close without a terminal event.
func (w *Worker) Run(ctx context.Context, text string) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)

		res, err := w.parser.Parse(text, func(p Progress) error {
			select {
			case ch <- Event{Progress: &p}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			select {
			case ch <- Event{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case ch <- Event{Result: res}:
		case <-ctx.Done():
		}
	}()
	return ch
}

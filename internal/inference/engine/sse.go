package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ReadSSE parses a text/event-stream body and calls onEvent once per event.
// Returning an error from onEvent stops reading.
func ReadSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		ev := eventName
		dataLines = nil
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if ferr := flush(); ferr != nil {
				return ferr
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}

		if eof {
			return flush()
		}
	}
}

// DecodeFunc turns one SSE event into a text delta. done ends the stream
// normally; returning "", false, nil skips the event.
type DecodeFunc func(event, data string) (delta string, done bool, err error)

var errStreamDone = errors.New("stream done")

// Pump reads body on a new goroutine and forwards decoded deltas. The body is
// closed when the stream ends or ctx is cancelled, whichever comes first.
func Pump(ctx context.Context, provider string, body io.ReadCloser, decode DecodeFunc) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer body.Close()
		stop := context.AfterFunc(ctx, func() { _ = body.Close() })
		defer stop()

		send := func(c Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := ReadSSE(body, func(event, data string) error {
			delta, done, err := decode(event, data)
			if err != nil {
				return err
			}
			if done {
				return errStreamDone
			}
			if delta == "" {
				return nil
			}
			if !send(Chunk{Delta: delta}) {
				return ctx.Err()
			}
			return nil
		})
		if err == nil || errors.Is(err, errStreamDone) || ctx.Err() != nil {
			return
		}
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			err = &UpstreamError{Provider: provider, Err: err}
		}
		send(Chunk{Err: err})
	}()
	return out
}

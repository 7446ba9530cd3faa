package orderapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
)

// Stream is a live subscription to one order's status events. Events arrive
// on Events until the stream ends; the terminal error (nil on clean EOF or
// context cancellation) is delivered on Done.
type Stream struct {
	Events <-chan StatusEvent
	Done   <-chan error

	cancel context.CancelFunc
	body   io.ReadCloser
}

// StreamOrder opens the server-sent-event stream for the order. The caller
// owns the returned stream and must Close it; cancelling ctx also tears the
// stream down.
func (c *Client) StreamOrder(ctx context.Context, orderID string) (*Stream, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(orderID)+"/stream", nil)
	if err != nil {
		cancel()
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening order stream")
	}
	if resp.StatusCode != http.StatusOK {
		classified := c.classify(resp, http.MethodGet, "/orders/"+orderID+"/stream")
		drainAndClose(resp.Body)
		cancel()
		return nil, classified
	}

	events := make(chan StatusEvent)
	done := make(chan error, 1)
	stream := &Stream{
		Events: events,
		Done:   done,
		cancel: cancel,
		body:   resp.Body,
	}

	go stream.consume(ctx, resp.Body, events, done)
	return stream, nil
}

// Close tears the subscription down. Safe to call more than once.
func (s *Stream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}

func (s *Stream) consume(ctx context.Context, body io.Reader, events chan<- StatusEvent, done chan<- error) {
	defer close(events)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			if data.Len() == 0 {
				continue
			}
			payload := data.String()
			data.Reset()

			var event StatusEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				// Malformed frames are skipped, not fatal; the next
				// well-formed event resynchronizes the consumer.
				continue
			}
			if event.Type != EventTypeStatusUpdate {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				done <- nil
				return
			}
		default:
			// comment or id/event field; ignored
		}
	}

	if ctx.Err() != nil {
		done <- nil
		return
	}
	if err := scanner.Err(); err != nil {
		done <- pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order stream read failed")
		return
	}
	done <- nil
}

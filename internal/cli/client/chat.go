package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

const (
	chunkBufferSize = 16
	readBufferSize  = 4096
)

// ChatReply is the answer to one sent message: either a complete Text or, when
// Streamed, raw reply bytes arriving on Chunks. Chunks is closed at end of
// stream; a read failure is delivered on Errs before Chunks closes.
// Close must be called once the reply is no longer read.
type ChatReply struct {
	Streamed bool
	Text     string

	Chunks <-chan []byte
	Errs   <-chan error

	closeOnce sync.Once
	closeFn   func()
}

// Close stops the stream pump and releases the connection
func (r *ChatReply) Close() {
	r.closeOnce.Do(func() {
		if r.closeFn != nil {
			r.closeFn()
		}
	})
}

// NewTextReply builds a non-streamed reply
func NewTextReply(text string) *ChatReply {
	return &ChatReply{Text: text}
}

// NewStreamReply starts a pump goroutine copying body reads into the reply's
// chunk channel. The goroutine exits at end of stream, on a read error, or
// once the reply is closed. Close interrupts a Read still blocked on the body
// (see Aborter) and releases the body only after the pump has returned.
func NewStreamReply(body io.ReadCloser) *ChatReply {
	chunks := make(chan []byte, chunkBufferSize)
	errs := make(chan error, 1)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		pump(body, chunks, errs, done)
	}()

	return &ChatReply{
		Streamed: true,
		Chunks:   chunks,
		Errs:     errs,
		closeFn: func() {
			close(done)
			select {
			case <-finished:
			default:
				a, ok := body.(Aborter)
				if !ok {
					// no way to interrupt the read other than closing
					body.Close()
					<-finished
					return
				}
				a.Abort()
				<-finished
			}
			body.Close()
		},
	}
}

// Aborter is implemented by bodies whose blocked Read can be interrupted
// from another goroutine
type Aborter interface {
	Abort()
}

func pump(r io.Reader, chunks chan<- []byte, errs chan<- error, done <-chan struct{}) {
	defer close(chunks)

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-done:
				return
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			select {
			case <-done:
			default:
				errs <- domain.NewNetworkError(fmt.Errorf("read reply stream: %w", err))
			}
			return
		}
	}
}

// responseBody adapts a streamed hertz response to io.ReadCloser.
// The response is not returned to the pool: the pump may still hold its reader.
type responseBody struct {
	io.Reader
	resp *protocol.Response
}

// forceCloser is implemented by the hertz client's response stream
type forceCloser interface {
	ForceClose() error
}

// Abort closes the connection under the stream so a pending Read fails
// instead of waiting for the server
func (b *responseBody) Abort() {
	if fc, ok := b.Reader.(forceCloser); ok {
		fc.ForceClose() //nolint:errcheck
	}
}

// Close releases the stream. Releasing drains the rest of the body, so a
// stream that has not ended must be aborted first.
func (b *responseBody) Close() error {
	return b.resp.CloseBodyStream()
}

// SendMessage posts one chat message. A text/event-stream response becomes a
// streamed reply; anything else must be JSON carrying a string "response".
func (c *APIClient) SendMessage(ctx context.Context, token, message string) (*ChatReply, error) {
	rc := call{
		method: consts.MethodPost,
		path:   endpointChat,
		token:  token,
		body:   types.ChatRequest{Message: message},
	}
	if c.preferStream {
		rc.accept = mimeEventStream + ", " + mimeJSON
	}

	resp, err := c.do(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if isEventStream(string(resp.Header.ContentType())) {
		var stream io.Reader = resp.BodyStream()
		if stream == nil {
			stream = bytes.NewReader(resp.Body())
		}
		return NewStreamReply(&responseBody{Reader: stream, resp: resp}), nil
	}

	var out types.ChatResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Response == nil {
		return nil, domain.NewMalformedResponseError("chat response has no response field")
	}
	return NewTextReply(*out.Response), nil
}

func isEventStream(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), mimeEventStream)
}

// ChatHistory lists the exchanges the server has recorded for the user
func (c *APIClient) ChatHistory(ctx context.Context, token string) ([]types.ChatRecord, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodGet,
		path:   endpointChat,
		token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}

	var out []types.ChatRecord
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

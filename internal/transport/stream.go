package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"unicode/utf8"

	"athena-chat-engine/internal/dto"

	"go.opentelemetry.io/otel/attribute"
)

// TokenStream is a cancellable, finite sequence of text deltas. Recv returns
// io.EOF on a clean end-of-stream and *StreamInterruptedError on a mid-stream
// I/O failure; after Cancel it returns io.EOF without error.
type TokenStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc

	mu       sync.Mutex
	canceled bool

	buf  []byte
	tail []byte
}

// OpenStream starts a streaming ask. The response body is raw chunked text
// with no envelope; the canonical record must be fetched afterward via
// ListMessages.
func (c *Client) OpenStream(ctx context.Context, chatId int64, question string) (*TokenStream, error) {
	ctx, span := tracer.Start(ctx, "transport.OpenStream")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.id", chatId))

	req := dto.AskRequest{Question: question}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost,
		fmt.Sprintf("%s/chats/%d/ask/stream", c.baseURL, chatId), bytes.NewReader(raw))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		span.RecordError(err)
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		cancel()
		c.session.Invalidate()
		return nil, &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		var env dto.Envelope[json.RawMessage]
		if jsonErr := json.Unmarshal(body, &env); jsonErr == nil {
			return nil, &ServerError{Status: resp.StatusCode, Message: env.ErrorMessage()}
		}
		return nil, &ServerError{Status: resp.StatusCode}
	}

	c.logger.Debug("transport", "stream opened", map[string]interface{}{"chat_id": chatId})

	return &TokenStream{
		body:   resp.Body,
		cancel: cancel,
		buf:    make([]byte, 1024),
	}, nil
}

// Recv blocks for the next text delta. Deltas are cut at rune boundaries so
// a multi-byte character split across network chunks never surfaces broken.
func (s *TokenStream) Recv() (string, error) {
	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()
	if canceled {
		return "", io.EOF
	}

	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.tail = append(s.tail, s.buf[:n]...)
			if delta := s.cutComplete(); delta != "" {
				// A read can return both data and an error; the error is
				// re-delivered by the next Recv.
				return delta, nil
			}
		}
		if err != nil {
			return "", s.mapReadError(err)
		}
	}
}

// Cancel stops delivery and releases the underlying connection. It never
// fails; subsequent Recv calls return io.EOF.
func (s *TokenStream) Cancel() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	s.mu.Unlock()

	s.cancel()
	_ = s.body.Close()
}

func (s *TokenStream) mapReadError(err error) error {
	s.mu.Lock()
	canceled := s.canceled
	s.mu.Unlock()

	if errors.Is(err, io.EOF) {
		if len(s.tail) > 0 {
			// Trailing bytes that never completed a rune; drop them rather
			// than emit mojibake on a truncated stream.
			s.tail = nil
		}
		s.body.Close()
		return io.EOF
	}
	if canceled || errors.Is(err, context.Canceled) {
		return io.EOF
	}
	s.body.Close()
	return &StreamInterruptedError{Err: err}
}

// cutComplete returns the longest prefix of the pending bytes that ends on a
// rune boundary, keeping the remainder for the next read.
func (s *TokenStream) cutComplete() string {
	b := s.tail
	n := len(b)
	cut := n
	// Only the last few bytes can be a truncated sequence.
	for i := n - 1; i >= 0 && n-i < utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				cut = i
			}
			break
		}
	}
	if cut == 0 {
		return ""
	}
	out := string(b[:cut])
	s.tail = append(s.tail[:0], b[cut:]...)
	return out
}

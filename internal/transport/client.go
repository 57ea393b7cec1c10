package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/pkg/logger"
	"athena-chat-engine/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("athena-chat-engine/internal/transport")

// Client issues the two request shapes the engine needs (synchronous
// completion and chunked streaming) plus the envelope CRUD endpoints.
// No client-side timeout is set: a stalled connection is only resolved by a
// transport-level failure or an explicit context cancellation by the caller.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Context
	logger  logger.ILogger
}

func NewClient(baseURL string, sess *session.Context, log logger.ILogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		session: sess,
		logger:  log,
	}
}

// doEnvelope runs one round trip and decodes the {success, data, error}
// wrapper. success=false is a failure even on a 2xx status.
func doEnvelope[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.session.Invalidate()
		return zero, &AuthError{Status: resp.StatusCode}
	}

	var env dto.Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return zero, &ServerError{Status: resp.StatusCode}
		}
		return zero, fmt.Errorf("decode envelope: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return zero, &ServerError{Status: resp.StatusCode, Message: env.ErrorMessage()}
	}

	return env.Data, nil
}

func (c *Client) ListChats(ctx context.Context) ([]dto.ChatResponse, error) {
	return doEnvelope[[]dto.ChatResponse](ctx, c, http.MethodGet, "/chats", nil)
}

func (c *Client) CreateChat(ctx context.Context, title string) (dto.ChatResponse, error) {
	req := dto.CreateChatRequest{Title: title}
	if err := dto.Validate(req); err != nil {
		return dto.ChatResponse{}, err
	}
	return doEnvelope[dto.ChatResponse](ctx, c, http.MethodPost, "/chats", req)
}

func (c *Client) RenameChat(ctx context.Context, chatId int64, title string) (dto.ChatResponse, error) {
	req := dto.RenameChatRequest{Title: title}
	if err := dto.Validate(req); err != nil {
		return dto.ChatResponse{}, err
	}
	return doEnvelope[dto.ChatResponse](ctx, c, http.MethodPut, fmt.Sprintf("/chats/%d", chatId), req)
}

func (c *Client) DeleteChat(ctx context.Context, chatId int64) (bool, error) {
	return doEnvelope[bool](ctx, c, http.MethodDelete, fmt.Sprintf("/chats/%d", chatId), nil)
}

func (c *Client) ListMessages(ctx context.Context, chatId int64) ([]dto.MessageResponse, error) {
	return doEnvelope[[]dto.MessageResponse](ctx, c, http.MethodGet, fmt.Sprintf("/chats/%d/messages", chatId), nil)
}

// Complete is the synchronous ask: one round trip, full answer.
func (c *Client) Complete(ctx context.Context, chatId int64, question string) (dto.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "transport.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.id", chatId))

	req := dto.AskRequest{Question: question}
	if err := dto.Validate(req); err != nil {
		return dto.CompletionResponse{}, err
	}

	res, err := doEnvelope[dto.CompletionResponse](ctx, c, http.MethodPost, fmt.Sprintf("/chats/%d/ask", chatId), req)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("transport", "synchronous ask failed", map[string]interface{}{
			"chat_id": chatId,
			"error":   err.Error(),
		})
		return dto.CompletionResponse{}, err
	}
	return res, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, chatId int64, req dto.FeedbackRequest) (bool, error) {
	if err := dto.Validate(req); err != nil {
		return false, err
	}
	return doEnvelope[bool](ctx, c, http.MethodPost, fmt.Sprintf("/chats/%d/feedback", chatId), req)
}

func (c *Client) ListDirectives(ctx context.Context) ([]dto.DirectiveResponse, error) {
	return doEnvelope[[]dto.DirectiveResponse](ctx, c, http.MethodGet, "/admin/feedback/directives", nil)
}

func (c *Client) ApproveDirective(ctx context.Context, directiveId int64, text string) (bool, error) {
	req := dto.ApproveDirectiveRequest{Text: text}
	if err := dto.Validate(req); err != nil {
		return false, err
	}
	return doEnvelope[bool](ctx, c, http.MethodPost, fmt.Sprintf("/admin/feedback/directives/%d/approve", directiveId), req)
}

func (c *Client) RejectDirective(ctx context.Context, directiveId int64) (bool, error) {
	return doEnvelope[bool](ctx, c, http.MethodPost, fmt.Sprintf("/admin/feedback/directives/%d/reject", directiveId), nil)
}

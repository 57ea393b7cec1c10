package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/pkg/logger"
	"athena-chat-engine/internal/transport"

	"github.com/ThreeDotsLabs/watermill/message"
)

// FailureNotice is the fixed in-band assistant message shown when both the
// stream and the synchronous fallback failed.
const FailureNotice = "Tive um problema técnico para responder agora. Tente novamente em instantes."

// ErrTurnInFlight is returned when Submit is called while a turn is running.
var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

// Stream is the cancellable token sequence a turn consumes.
type Stream interface {
	Recv() (string, error)
	Cancel()
}

// Asker is the slice of the transport a turn needs.
type Asker interface {
	Complete(ctx context.Context, chatId int64, question string) (dto.CompletionResponse, error)
	OpenStream(ctx context.Context, chatId int64, question string) (Stream, error)
}

// NewClientAsker adapts the concrete transport client to the Asker interface.
func NewClientAsker(c *transport.Client) Asker {
	return clientAsker{c: c}
}

type clientAsker struct{ c *transport.Client }

func (a clientAsker) Complete(ctx context.Context, chatId int64, question string) (dto.CompletionResponse, error) {
	return a.c.Complete(ctx, chatId, question)
}

func (a clientAsker) OpenStream(ctx context.Context, chatId int64, question string) (Stream, error) {
	s, err := a.c.OpenStream(ctx, chatId, question)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// TurnSession owns one chat's in-flight turn: optimistic insertion, streaming
// accumulation, fallback invocation and reconciliation.
//
//	idle --submit--> awaitingStream --open ok--> streaming --clean end--> reconciling --> idle
//	                               \--open fails--> fallbackPending --complete ok--> reconciling
//	streaming --interrupted--> fallbackPending --complete fails--> error --acknowledge--> idle
type TurnSession struct {
	registry *ChatRegistry
	asker    Asker
	events   message.Publisher
	logger   logger.ILogger

	mu          sync.Mutex
	chatId      int64 // captured at submit time
	state       entity.TurnState
	accum       strings.Builder
	placeholder entity.MessageID
	done        chan struct{}
}

func NewTurnSession(registry *ChatRegistry, asker Asker, events message.Publisher, log logger.ILogger) *TurnSession {
	return &TurnSession{
		registry: registry,
		asker:    asker,
		events:   events,
		logger:   log,
		state:    entity.TurnIdle,
	}
}

func (s *TurnSession) State() entity.TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChatId is the chat captured by the current (or last) turn.
func (s *TurnSession) ChatId() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatId
}

// Submit validates the question, commits the optimistic bubbles and starts
// the turn. The returned channel closes when the turn reaches a terminal
// state (idle or error). A validation rejection is purely local: no state
// change, no bubble, no network call.
func (s *TurnSession) Submit(ctx context.Context, question string) (<-chan struct{}, error) {
	if err := dto.Validate(dto.AskRequest{Question: question}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state != entity.TurnIdle && s.state != entity.TurnError {
		s.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	s.mu.Unlock()

	chatId, err := s.registry.EnsureActive(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Regeneration: re-submitting the immediately preceding question must
	// not duplicate the earlier user bubble.
	last, hasLast := s.registry.LastUserContent(chatId)
	if !hasLast || last != question {
		s.registry.AppendMessage(chatId, entity.Message{
			Id:        entity.NewTemporaryID(),
			ChatId:    chatId,
			Role:      entity.MessageRoleUser,
			Content:   question,
			CreatedAt: now,
		})
	}

	placeholder := entity.NewTemporaryID()
	s.registry.AppendMessage(chatId, entity.Message{
		Id:        placeholder,
		ChatId:    chatId,
		Role:      entity.MessageRoleAssistant,
		CreatedAt: now,
	})

	s.mu.Lock()
	s.chatId = chatId
	s.placeholder = placeholder
	s.accum.Reset()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.setState(entity.TurnAwaitingStream)
	go s.run(ctx, question)
	return done, nil
}

// Acknowledge moves the session out of the error state. The notice message
// stays visible; the failed question remains resubmittable.
func (s *TurnSession) Acknowledge() {
	s.mu.Lock()
	if s.state != entity.TurnError {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.setState(entity.TurnIdle)
}

func (s *TurnSession) run(ctx context.Context, question string) {
	stream, err := s.asker.OpenStream(ctx, s.chatId, question)
	if err != nil {
		if !shouldFallback(err) {
			s.fail(err)
			return
		}
		s.setState(entity.TurnFallbackPending)
		s.fallback(ctx, question)
		return
	}

	s.setState(entity.TurnStreaming)
	for {
		delta, err := stream.Recv()
		if err != nil {
			var interrupted *transport.StreamInterruptedError
			if errors.As(err, &interrupted) {
				s.logger.Warn("turn", "stream interrupted, degrading to synchronous ask", map[string]interface{}{
					"chat_id": s.chatId,
					"error":   err.Error(),
				})
				s.setState(entity.TurnFallbackPending)
				s.fallback(ctx, question)
				return
			}
			if errors.Is(err, io.EOF) {
				// Clean end-of-stream.
				s.reconcile(ctx)
				return
			}
			// Anything else mid-stream is an interruption too.
			s.setState(entity.TurnFallbackPending)
			s.fallback(ctx, question)
			return
		}

		s.mu.Lock()
		s.accum.WriteString(delta)
		running := s.accum.String()
		s.mu.Unlock()

		if !s.registry.UpdateContent(s.chatId, s.placeholder, running) {
			// The owning chat is no longer selected: discard late chunks and
			// release the stream.
			stream.Cancel()
			s.abandon()
			return
		}
		publishTurnEvent(s.events, TurnEvent{
			Kind:    EventDelta,
			ChatId:  s.chatId,
			Delta:   delta,
			Content: running,
		})
	}
}

// fallback runs the single stream -> synchronous degrade path. There are no
// further retries past it.
func (s *TurnSession) fallback(ctx context.Context, question string) {
	res, err := s.asker.Complete(ctx, s.chatId, question)
	if err != nil {
		s.fail(err)
		return
	}

	content := res.Content
	if res.Message != nil {
		content = res.Message.Content
	}
	s.mu.Lock()
	s.accum.Reset()
	s.accum.WriteString(content)
	s.mu.Unlock()

	if !s.registry.UpdateContent(s.chatId, s.placeholder, content) {
		s.abandon()
		return
	}
	s.reconcile(ctx)
}

// reconcile refetches the canonical list and substitutes it for the
// optimistic entries, then parks the session back at idle.
func (s *TurnSession) reconcile(ctx context.Context) {
	s.setState(entity.TurnReconciling)

	committed, err := s.registry.Reconcile(ctx, s.chatId)
	if err != nil {
		// The answer was fully accumulated; keep the optimistic content
		// visible rather than failing a completed turn over a refetch.
		s.logger.Warn("turn", "canonical refetch failed, keeping optimistic entries", map[string]interface{}{
			"chat_id": s.chatId,
			"error":   err.Error(),
		})
	} else if !committed {
		s.abandon()
		return
	}

	s.mu.Lock()
	content := s.accum.String()
	s.mu.Unlock()

	s.setState(entity.TurnIdle)
	publishTurnEvent(s.events, TurnEvent{
		Kind:    EventTurnCommitted,
		ChatId:  s.chatId,
		Content: content,
	})
	s.finish()
}

// fail injects the in-band failure notice and parks the session at error.
// The user's question is never deleted on failure.
func (s *TurnSession) fail(cause error) {
	if !s.registry.UpdateContent(s.chatId, s.placeholder, FailureNotice) {
		s.abandon()
		return
	}
	s.logger.Error("turn", "turn failed", map[string]interface{}{
		"chat_id": s.chatId,
		"error":   cause.Error(),
	})

	s.setState(entity.TurnError)
	publishTurnEvent(s.events, TurnEvent{
		Kind:   EventTurnFailed,
		ChatId: s.chatId,
		Error:  cause.Error(),
	})
	s.finish()
}

// abandon ends a turn whose owning chat lost the selection. Nothing visible
// changed, so the session just returns to idle.
func (s *TurnSession) abandon() {
	s.logger.Debug("turn", "turn abandoned after selection change", map[string]interface{}{
		"chat_id": s.chatId,
	})
	s.setState(entity.TurnIdle)
	s.finish()
}

func (s *TurnSession) finish() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (s *TurnSession) setState(state entity.TurnState) {
	s.mu.Lock()
	s.state = state
	chatId := s.chatId
	s.mu.Unlock()
	publishTurnEvent(s.events, TurnEvent{
		Kind:   EventStateChanged,
		ChatId: chatId,
		State:  state,
	})
}

// shouldFallback reports whether the failure degrades to the synchronous
// endpoint. Auth failures propagate instead: the session is gone and only
// re-authentication helps.
func shouldFallback(err error) bool {
	var authErr *transport.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var netErr *transport.NetworkError
	var srvErr *transport.ServerError
	var intErr *transport.StreamInterruptedError
	return errors.As(err, &netErr) || errors.As(err, &srvErr) || errors.As(err, &intErr)
}

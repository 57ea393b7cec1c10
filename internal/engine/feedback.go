package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

var (
	// ErrTemporaryMessage rejects ratings for messages the server has not
	// acknowledged yet. No network call is made.
	ErrTemporaryMessage = errors.New("feedback requires a persisted message id")

	// ErrFeedbackInFlight rejects a second rating for the same message while
	// the first has not resolved.
	ErrFeedbackInFlight = errors.New("feedback for this message is already in flight")
)

// FeedbackAPI is the slice of the transport the collector needs.
type FeedbackAPI interface {
	SubmitFeedback(ctx context.Context, chatId int64, req dto.FeedbackRequest) (bool, error)
}

// FeedbackCollector submits ratings for canonical assistant messages with
// per-message in-flight de-duplication. The guard is the one piece of
// explicit mutual exclusion in the engine: a per-key reservation, not a
// global lock.
type FeedbackCollector struct {
	api      FeedbackAPI
	inflight *cache.Cache
	logger   logger.ILogger
}

func NewFeedbackCollector(api FeedbackAPI, log logger.ILogger) *FeedbackCollector {
	// No expiration: keys are released explicitly when the call resolves.
	return &FeedbackCollector{
		api:      api,
		inflight: cache.New(cache.NoExpiration, 0),
		logger:   log,
	}
}

// Rate submits one rating. Failures are surfaced to the caller and never
// retried automatically; the in-flight key is released either way.
func (f *FeedbackCollector) Rate(ctx context.Context, chatId int64, messageId entity.MessageID, rating int, comment string) error {
	serverId, ok := messageId.ServerID()
	if !ok {
		return ErrTemporaryMessage
	}

	req := dto.FeedbackRequest{MessageId: serverId, Rating: rating, Comment: comment}
	if err := dto.Validate(req); err != nil {
		return err
	}

	key := strconv.FormatInt(serverId, 10)
	if err := f.inflight.Add(key, struct{}{}, cache.NoExpiration); err != nil {
		return ErrFeedbackInFlight
	}
	defer f.inflight.Delete(key)

	ok, err := f.api.SubmitFeedback(ctx, chatId, req)
	if err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	if !ok {
		return errors.New("feedback was not accepted")
	}

	f.logger.Info("feedback", "rating submitted", map[string]interface{}{
		"chat_id":    chatId,
		"message_id": serverId,
		"rating":     rating,
	})
	return nil
}

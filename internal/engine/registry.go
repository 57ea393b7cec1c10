package engine

import (
	"context"
	"fmt"
	"sync"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/mapper"
	"athena-chat-engine/internal/pkg/logger"
)

// DefaultChatTitle is used when a chat is created lazily on first submit.
const DefaultChatTitle = "Nova conversa"

// ChatAPI is the slice of the transport the registry needs.
type ChatAPI interface {
	ListChats(ctx context.Context) ([]dto.ChatResponse, error)
	CreateChat(ctx context.Context, title string) (dto.ChatResponse, error)
	RenameChat(ctx context.Context, chatId int64, title string) (dto.ChatResponse, error)
	DeleteChat(ctx context.Context, chatId int64) (bool, error)
	ListMessages(ctx context.Context, chatId int64) ([]dto.MessageResponse, error)
}

// ChatRegistry exclusively owns the chat and message collections and the
// current selection. A TurnSession captures the active chat id at submit time
// and every commit callback re-checks that capture here before writing, so a
// session whose chat is no longer selected can never mutate visible state.
type ChatRegistry struct {
	api    ChatAPI
	logger logger.ILogger

	mu       sync.Mutex
	chats    []entity.Chat
	messages map[int64][]entity.Message
	active   int64 // 0 = nothing selected
}

func NewChatRegistry(api ChatAPI, log logger.ILogger) *ChatRegistry {
	return &ChatRegistry{
		api:      api,
		logger:   log,
		messages: make(map[int64][]entity.Message),
	}
}

// Load fetches the chat list and selects the first chat, mirroring the
// console bootstrap. An empty account stays unselected until EnsureActive.
func (r *ChatRegistry) Load(ctx context.Context) error {
	list, err := r.api.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	r.mu.Lock()
	r.chats = make([]entity.Chat, 0, len(list))
	for _, c := range list {
		r.chats = append(r.chats, mapper.ChatFromDTO(c))
	}
	r.mu.Unlock()

	if len(list) > 0 {
		return r.SelectChat(ctx, list[0].Id)
	}
	return nil
}

func (r *ChatRegistry) CreateChat(ctx context.Context, title string) (entity.Chat, error) {
	created, err := r.api.CreateChat(ctx, title)
	if err != nil {
		return entity.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	chat := mapper.ChatFromDTO(created)

	r.mu.Lock()
	r.chats = append([]entity.Chat{chat}, r.chats...)
	r.messages[chat.Id] = nil
	r.active = chat.Id
	r.mu.Unlock()

	r.logger.Info("registry", "chat created", map[string]interface{}{"chat_id": chat.Id})
	return chat, nil
}

// EnsureActive returns the active chat id, lazily creating the first chat
// when none exist.
func (r *ChatRegistry) EnsureActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != 0 {
		return active, nil
	}
	chat, err := r.CreateChat(ctx, DefaultChatTitle)
	if err != nil {
		return 0, err
	}
	return chat.Id, nil
}

// SelectChat switches the selection and refetches that chat's messages.
// Temporary ids are never trusted across a reload.
func (r *ChatRegistry) SelectChat(ctx context.Context, chatId int64) error {
	msgs, err := r.api.ListMessages(ctx, chatId)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	r.mu.Lock()
	r.active = chatId
	r.messages[chatId] = mapper.MessagesFromDTO(msgs)
	r.mu.Unlock()
	return nil
}

func (r *ChatRegistry) ActiveChat() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *ChatRegistry) Chats() []entity.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

func (r *ChatRegistry) Messages(chatId int64) []entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Message, len(r.messages[chatId]))
	copy(out, r.messages[chatId])
	return out
}

func (r *ChatRegistry) RenameChat(ctx context.Context, chatId int64, title string) error {
	renamed, err := r.api.RenameChat(ctx, chatId, title)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}

	r.mu.Lock()
	for i := range r.chats {
		if r.chats[i].Id == chatId {
			r.chats[i].Title = renamed.Title
			break
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *ChatRegistry) DeleteChat(ctx context.Context, chatId int64) error {
	if _, err := r.api.DeleteChat(ctx, chatId); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}

	r.mu.Lock()
	kept := r.chats[:0]
	for _, c := range r.chats {
		if c.Id != chatId {
			kept = append(kept, c)
		}
	}
	r.chats = kept
	delete(r.messages, chatId)
	if r.active == chatId {
		r.active = 0
		if len(r.chats) > 0 {
			r.active = r.chats[0].Id
		}
	}
	r.mu.Unlock()
	return nil
}

// AppendMessage commits an optimistic message for chatId. It refuses the
// write when chatId is no longer the active selection.
func (r *ChatRegistry) AppendMessage(chatId int64, msg entity.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != chatId {
		return false
	}
	r.messages[chatId] = append(r.messages[chatId], msg)
	return true
}

// UpdateContent replaces the content of the message identified by id. Same
// active-selection guard as AppendMessage; lookup is by identity, not
// position.
func (r *ChatRegistry) UpdateContent(chatId int64, id entity.MessageID, content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != chatId {
		return false
	}
	msgs := r.messages[chatId]
	for i := range msgs {
		if msgs[i].Id.Equal(id) {
			msgs[i].Content = content
			return true
		}
	}
	return false
}

// LastUserContent returns the content of the most recent user message, used
// to detect a regeneration of the immediately preceding question.
func (r *ChatRegistry) LastUserContent(chatId int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[chatId]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == entity.MessageRoleUser {
			return msgs[i].Content, true
		}
	}
	return "", false
}

// Reconcile refetches the canonical message list and substitutes it for the
// optimistic entries. Running it twice against the same server state is a
// no-op. The write is refused when chatId is no longer active.
func (r *ChatRegistry) Reconcile(ctx context.Context, chatId int64) (bool, error) {
	msgs, err := r.api.ListMessages(ctx, chatId)
	if err != nil {
		return false, fmt.Errorf("reconcile: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != chatId {
		return false, nil
	}
	r.messages[chatId] = mapper.MessagesFromDTO(msgs)
	return true, nil
}

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the HTTP transport, shared by the
// registry and turn session tests.
type fakeBackend struct {
	mu       sync.Mutex
	chats    []dto.ChatResponse
	messages map[int64][]dto.MessageResponse
	nextChat int64
	nextMsg  int64
	listErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: make(map[int64][]dto.MessageResponse)}
}

func (f *fakeBackend) seedChat(title string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextChat++
	f.chats = append(f.chats, dto.ChatResponse{Id: f.nextChat, Title: title, CreatedAt: time.Now()})
	return f.nextChat
}

// persistTurn stores the canonical records reconciliation will fetch.
func (f *fakeBackend) persistTurn(chatId int64, question, answer string, sources []dto.SourceDTO) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsg++
	f.messages[chatId] = append(f.messages[chatId], dto.MessageResponse{
		Id: f.nextMsg, ChatId: chatId, Role: entity.MessageRoleUser, Content: question, CreatedAt: time.Now(),
	})
	f.nextMsg++
	f.messages[chatId] = append(f.messages[chatId], dto.MessageResponse{
		Id: f.nextMsg, ChatId: chatId, Role: entity.MessageRoleAssistant, Content: answer, CreatedAt: time.Now(),
		Sources: sources,
	})
	return f.nextMsg
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]dto.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.ChatResponse(nil), f.chats...), nil
}

func (f *fakeBackend) CreateChat(ctx context.Context, title string) (dto.ChatResponse, error) {
	id := f.seedChat(title)
	return dto.ChatResponse{Id: id, Title: title, CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) RenameChat(ctx context.Context, chatId int64, title string) (dto.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chats {
		if f.chats[i].Id == chatId {
			f.chats[i].Title = title
			return f.chats[i], nil
		}
	}
	return dto.ChatResponse{}, errors.New("chat not found")
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.chats[:0]
	for _, c := range f.chats {
		if c.Id != chatId {
			kept = append(kept, c)
		}
	}
	f.chats = kept
	delete(f.messages, chatId)
	return true, nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, chatId int64) ([]dto.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]dto.MessageResponse(nil), f.messages[chatId]...), nil
}

func newTestRegistry(t *testing.T, backend *fakeBackend) *ChatRegistry {
	t.Helper()
	return NewChatRegistry(backend, logger.NewNopLogger())
}

func TestLoadSelectsFirstChat(t *testing.T) {
	backend := newFakeBackend()
	first := backend.seedChat("Reembolso")
	backend.seedChat("Férias")

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))

	assert.Equal(t, first, r.ActiveChat())
	assert.Len(t, r.Chats(), 2)
}

func TestEnsureActiveCreatesLazily(t *testing.T) {
	backend := newFakeBackend()
	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))
	assert.Zero(t, r.ActiveChat())

	id, err := r.EnsureActive(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, id, r.ActiveChat())
	require.Len(t, r.Chats(), 1)
	assert.Equal(t, DefaultChatTitle, r.Chats()[0].Title)

	// A second call reuses the active chat.
	again, err := r.EnsureActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, r.Chats(), 1)
}

func TestCommitGuardsRefuseInactiveChat(t *testing.T) {
	backend := newFakeBackend()
	chatA := backend.seedChat("A")
	chatB := backend.seedChat("B")

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))
	require.Equal(t, chatA, r.ActiveChat())

	msg := entity.Message{Id: entity.NewTemporaryID(), ChatId: chatB, Role: entity.MessageRoleUser, Content: "oi"}
	assert.False(t, r.AppendMessage(chatB, msg))
	assert.Empty(t, r.Messages(chatB))

	require.NoError(t, r.SelectChat(context.Background(), chatB))
	assert.True(t, r.AppendMessage(chatB, msg))
	assert.False(t, r.UpdateContent(chatA, msg.Id, "late"), "chat A lost the selection")
}

func TestReconcileIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	chatId := backend.seedChat("A")
	backend.persistTurn(chatId, "pergunta", "resposta", []dto.SourceDTO{{Source: "politica.pdf", Page: 3, Score: 0.9}})

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))

	// Simulate optimistic state then reconcile twice.
	r.AppendMessage(chatId, entity.Message{Id: entity.NewTemporaryID(), ChatId: chatId, Role: entity.MessageRoleAssistant, Content: "resposta"})

	committed, err := r.Reconcile(context.Background(), chatId)
	require.NoError(t, err)
	require.True(t, committed)
	after := r.Messages(chatId)

	committed, err = r.Reconcile(context.Background(), chatId)
	require.NoError(t, err)
	require.True(t, committed)
	assert.Equal(t, after, r.Messages(chatId))

	require.Len(t, after, 2)
	assert.True(t, after[0].Id.IsPersisted())
	assert.True(t, after[1].Id.IsPersisted())
	assert.Equal(t, "resposta", after[1].Content)
	require.Len(t, after[1].Sources, 1)
	assert.Equal(t, "politica.pdf", after[1].Sources[0].Source)
}

func TestReconcileRefusedForInactiveChat(t *testing.T) {
	backend := newFakeBackend()
	chatA := backend.seedChat("A")
	chatB := backend.seedChat("B")
	backend.persistTurn(chatA, "q", "a", nil)

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))
	require.NoError(t, r.SelectChat(context.Background(), chatB))

	committed, err := r.Reconcile(context.Background(), chatA)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Empty(t, r.Messages(chatA))
}

func TestDeleteChatMovesSelection(t *testing.T) {
	backend := newFakeBackend()
	chatA := backend.seedChat("A")
	chatB := backend.seedChat("B")

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))
	require.Equal(t, chatA, r.ActiveChat())

	require.NoError(t, r.DeleteChat(context.Background(), chatA))
	assert.Equal(t, chatB, r.ActiveChat())
	assert.Len(t, r.Chats(), 1)
}

func TestRenameChat(t *testing.T) {
	backend := newFakeBackend()
	chatId := backend.seedChat("Nova conversa")

	r := newTestRegistry(t, backend)
	require.NoError(t, r.Load(context.Background()))
	require.NoError(t, r.RenameChat(context.Background(), chatId, "Política de reembolso"))
	assert.Equal(t, "Política de reembolso", r.Chats()[0].Title)
}

package dto

import "time"

type ChatResponse struct {
	Id        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateChatRequest struct {
	Title string `json:"title" validate:"required"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"required"`
}

type SourceDTO struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score,omitempty"`
}

type MessageResponse struct {
	Id        int64       `json:"id"`
	ChatId    int64       `json:"chat_id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Sources   []SourceDTO `json:"sources,omitempty"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// CompletionResponse is the synchronous ask payload. When the backend already
// persisted the assistant message it ships the full record in Message; the
// bare Id/Content pair is the older shape kept for compatibility.
type CompletionResponse struct {
	Id      int64            `json:"id"`
	Content string           `json:"content"`
	Sources []SourceDTO      `json:"sources,omitempty"`
	Message *MessageResponse `json:"message,omitempty"`
}

package entity

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

type Chat struct {
	Id        int64
	Title     string
	CreatedAt time.Time
}

// Source is a retrieval citation attached to an assistant message.
type Source struct {
	Source string
	Page   int
	Score  float64
}

type Message struct {
	Id        MessageID
	ChatId    int64
	Role      string
	Content   string
	CreatedAt time.Time
	Sources   []Source
}

package entity

const (
	RatingUp   = 1
	RatingDown = -1
)

// FeedbackEntry is a rating for a persisted assistant message. Temporary ids
// are rejected before any request is made.
type FeedbackEntry struct {
	UserId    int64
	MessageId MessageID
	Rating    int
	Comment   string
}

package dto

import "time"

type FeedbackRequest struct {
	MessageId int64  `json:"message_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,oneof=-1 1"`
	Comment   string `json:"comment,omitempty"`
}

type DirectiveResponse struct {
	Id         int64      `json:"id"`
	FeedbackId int64      `json:"feedback_id"`
	CreatedBy  int64      `json:"created_by"`
	ApprovedBy int64      `json:"approved_by,omitempty"`
	MessageId  int64      `json:"message_id"`
	Rating     int        `json:"rating"`
	Text       string     `json:"text"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
}

type ApproveDirectiveRequest struct {
	Text string `json:"text" validate:"required"`
}

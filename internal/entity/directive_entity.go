package entity

import "time"

const (
	DirectiveStatusPending  = "pending"
	DirectiveStatusApproved = "approved"
	DirectiveStatusRejected = "rejected"
)

// Directive is a feedback-derived behavioral instruction reviewed by an
// administrator. The lifecycle is one-way: pending -> approved or
// pending -> rejected; nothing re-enters pending.
type Directive struct {
	Id         int64
	FeedbackId int64
	CreatedBy  int64
	ApprovedBy int64
	MessageId  int64
	Rating     int
	Text       string
	Status     string
	CreatedAt  time.Time
	ApprovedAt *time.Time
	AppliedAt  *time.Time
}

func (d Directive) Terminal() bool {
	return d.Status == DirectiveStatusApproved || d.Status == DirectiveStatusRejected
}

package mapper

import (
	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
)

func DirectiveFromDTO(in dto.DirectiveResponse) entity.Directive {
	status := in.Status
	// Older backends mark approved directives "applied" once the prompt
	// pipeline picked them up; both are the same terminal state here.
	if status == "applied" {
		status = entity.DirectiveStatusApproved
	}
	return entity.Directive{
		Id:         in.Id,
		FeedbackId: in.FeedbackId,
		CreatedBy:  in.CreatedBy,
		ApprovedBy: in.ApprovedBy,
		MessageId:  in.MessageId,
		Rating:     in.Rating,
		Text:       in.Text,
		Status:     status,
		CreatedAt:  in.CreatedAt,
		ApprovedAt: in.ApprovedAt,
		AppliedAt:  in.AppliedAt,
	}
}

func DirectivesFromDTO(in []dto.DirectiveResponse) []entity.Directive {
	out := make([]entity.Directive, 0, len(in))
	for _, d := range in {
		out = append(out, DirectiveFromDTO(d))
	}
	return out
}

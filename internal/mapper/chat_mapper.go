package mapper

import (
	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
)

func ChatFromDTO(in dto.ChatResponse) entity.Chat {
	return entity.Chat{
		Id:        in.Id,
		Title:     in.Title,
		CreatedAt: in.CreatedAt,
	}
}

func MessageFromDTO(in dto.MessageResponse) entity.Message {
	sources := make([]entity.Source, 0, len(in.Sources))
	for _, s := range in.Sources {
		sources = append(sources, entity.Source{
			Source: s.Source,
			Page:   s.Page,
			Score:  s.Score,
		})
	}
	if len(sources) == 0 {
		sources = nil
	}
	return entity.Message{
		Id:        entity.NewPersistedID(in.Id),
		ChatId:    in.ChatId,
		Role:      in.Role,
		Content:   in.Content,
		CreatedAt: in.CreatedAt,
		Sources:   sources,
	}
}

func MessagesFromDTO(in []dto.MessageResponse) []entity.Message {
	out := make([]entity.Message, 0, len(in))
	for _, m := range in {
		out = append(out, MessageFromDTO(m))
	}
	return out
}

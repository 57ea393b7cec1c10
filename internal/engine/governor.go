package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"athena-chat-engine/internal/dto"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/mapper"
	"athena-chat-engine/internal/pkg/logger"
)

// DirectiveAPI is the slice of the transport the governor needs.
type DirectiveAPI interface {
	ListDirectives(ctx context.Context) ([]dto.DirectiveResponse, error)
	ApproveDirective(ctx context.Context, directiveId int64, text string) (bool, error)
	RejectDirective(ctx context.Context, directiveId int64) (bool, error)
}

// DirectiveGovernor manages the administrator review queue. The backend is
// the single serializing authority: after every mutating call the full list
// is refetched, never patched locally, because two administrators may act
// concurrently.
type DirectiveGovernor struct {
	api    DirectiveAPI
	logger logger.ILogger

	mu         sync.Mutex
	directives []entity.Directive
}

func NewDirectiveGovernor(api DirectiveAPI, log logger.ILogger) *DirectiveGovernor {
	return &DirectiveGovernor{api: api, logger: log}
}

// Refresh replaces the local snapshot with the source of truth.
func (g *DirectiveGovernor) Refresh(ctx context.Context) error {
	list, err := g.api.ListDirectives(ctx)
	if err != nil {
		return fmt.Errorf("list directives: %w", err)
	}

	g.mu.Lock()
	g.directives = mapper.DirectivesFromDTO(list)
	g.mu.Unlock()
	return nil
}

// ListPending returns directives still awaiting review. Terminal directives
// never reappear here.
func (g *DirectiveGovernor) ListPending() []entity.Directive {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []entity.Directive
	for _, d := range g.directives {
		if d.Status == entity.DirectiveStatusPending {
			out = append(out, d)
		}
	}
	return out
}

// ListHistory returns approved and rejected directives.
func (g *DirectiveGovernor) ListHistory() []entity.Directive {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []entity.Directive
	for _, d := range g.directives {
		if d.Terminal() {
			out = append(out, d)
		}
	}
	return out
}

// Approve finalizes a pending directive with its immutable text. The text
// must be non-empty; the rule is enforced before any request.
func (g *DirectiveGovernor) Approve(ctx context.Context, directiveId int64, finalText string) error {
	if err := dto.Validate(dto.ApproveDirectiveRequest{Text: finalText}); err != nil {
		return err
	}

	ok, err := g.api.ApproveDirective(ctx, directiveId, finalText)
	if err != nil {
		return fmt.Errorf("approve directive: %w", err)
	}
	if !ok {
		return errors.New("directive approval was not accepted")
	}

	g.logger.Info("governor", "directive approved", map[string]interface{}{"directive_id": directiveId})
	return g.Refresh(ctx)
}

// Reject is unconditional.
func (g *DirectiveGovernor) Reject(ctx context.Context, directiveId int64) error {
	ok, err := g.api.RejectDirective(ctx, directiveId)
	if err != nil {
		return fmt.Errorf("reject directive: %w", err)
	}
	if !ok {
		return errors.New("directive rejection was not accepted")
	}

	g.logger.Info("governor", "directive rejected", map[string]interface{}{"directive_id": directiveId})
	return g.Refresh(ctx)
}

package bootstrap

import (
	"athena-chat-engine/internal/config"
	"athena-chat-engine/internal/engine"
	"athena-chat-engine/internal/pkg/logger"
	"athena-chat-engine/internal/session"
	"athena-chat-engine/internal/transport"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	Logger    logger.ILogger
	Session   *session.Context
	Client    *transport.Client
	Events    *gochannel.GoChannel
	Registry  *engine.ChatRegistry
	Turn      *engine.TurnSession
	Feedback  *engine.FeedbackCollector
	Governor  *engine.DirectiveGovernor
	Confirmer *engine.Confirmer
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades. The console owns stdout, so engine logs go to the
	// file only.
	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)

	sess := session.Load(cfg.Auth.Token)
	client := transport.NewClient(cfg.API.BaseURL, sess, sysLogger)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Engine components
	registry := engine.NewChatRegistry(client, sysLogger)
	turn := engine.NewTurnSession(registry, engine.NewClientAsker(client), pubSub, sysLogger)
	feedback := engine.NewFeedbackCollector(client, sysLogger)
	governor := engine.NewDirectiveGovernor(client, sysLogger)

	return &Container{
		Logger:    sysLogger,
		Session:   sess,
		Client:    client,
		Events:    pubSub,
		Registry:  registry,
		Turn:      turn,
		Feedback:  feedback,
		Governor:  governor,
		Confirmer: engine.NewConfirmer(),
	}
}

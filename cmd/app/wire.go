//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/dermaai/internal/bootstrap"
	"github.com/yanqian/dermaai/internal/domain/auth"
	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/domain/routine"
	"github.com/yanqian/dermaai/internal/domain/uploads"
	"github.com/yanqian/dermaai/internal/infra/config"
	httpiface "github.com/yanqian/dermaai/internal/interface/http"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		provideLogger,
		provideSessionStore,
		provideHistoryStore,
		providePlanStore,
		provideSessionCleaner,
		provideUserRepository,
		provideAuthConfig,
		provideClassifierConfig,
		provideModelLoader,
		provideChatbotConfig,
		provideKnowledgeBase,
		provideChatClient,
		provideRoutineConfig,
		provideRoutineGenerator,
		provideUploadsConfig,
		provideObjectStorage,
		provideReadiness,
		classifier.NewService,
		chatbot.NewService,
		routine.NewService,
		uploads.NewService,
		auth.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

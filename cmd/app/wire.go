//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/healthsync/internal/bootstrap"
	"github.com/yanqian/healthsync/internal/domain/auth"
	"github.com/yanqian/healthsync/internal/domain/healthsync"
	"github.com/yanqian/healthsync/internal/infra/config"
	httpiface "github.com/yanqian/healthsync/internal/interface/http"
	"github.com/yanqian/healthsync/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideSyncConfig,
		provideAuthConfig,
		provideValkeyClient,
		provideRunLocker,
		provideJobQueue,
		provideEnqueuer,
		provideRecordStore,
		providePlatformProvider,
		provideEventPublisher,
		provideRegistry,
		provideRunObserver,
		provideMetricsHandler,
		auth.NewService,
		healthsync.NewService,
		httpiface.NewSyncHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

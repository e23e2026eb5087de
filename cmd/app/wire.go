//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/weather-export/internal/bootstrap"
	"github.com/yanqian/weather-export/internal/domain/export"
	"github.com/yanqian/weather-export/internal/domain/observation"
	"github.com/yanqian/weather-export/internal/infra/config"
	httpiface "github.com/yanqian/weather-export/internal/interface/http"
	"github.com/yanqian/weather-export/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideObservationConfig,
		provideExportConfig,
		provideObservationRepository,
		provideRecordStore,
		provideSearchStats,
		provideExportArchive,
		provideWeatherProvider,
		observation.NewService,
		export.NewService,
		provideScheduler,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

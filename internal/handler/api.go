package handler

import (
	"log/slog"

	"github.com/jmoka/minhas-obras-sub000/internal/service"
	"github.com/jmoka/minhas-obras-sub000/internal/tracking"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	users     *service.UserService
	obras     *service.ObraService
	visits    *service.VisitService
	analytics *service.AnalyticsService
	settings  *service.SystemSettingService
	geo       *service.GeoService
	trackers  *tracking.Registry
	logger    *slog.Logger
	uploadDir string
	uploadURL string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, geo *service.GeoService, trackers *tracking.Registry, logger *slog.Logger, uploadDir, uploadURL string) *API {
	if logger == nil {
		logger = slog.Default()
	}

	return &API{
		users:     service.NewUserService(gdb),
		obras:     service.NewObraService(gdb),
		visits:    service.NewVisitService(gdb),
		analytics: service.NewAnalyticsService(gdb),
		settings:  service.NewSystemSettingService(gdb),
		geo:       geo,
		trackers:  trackers,
		logger:    logger,
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

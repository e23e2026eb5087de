package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-export/internal/domain/export"
	"github.com/yanqian/weather-export/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.CORSAllowedOrigins),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	exports := api.Group("/export")
	{
		for _, format := range export.Formats {
			exports.GET("/"+string(format), handler.Export(export.ModeRanged, format))
			exports.GET("/all/"+string(format), handler.Export(export.ModeAll, format))
		}
		exports.GET("/test", handler.ExportStatus)
		exports.GET("/debug/dates", handler.DebugDates)
	}

	weather := api.Group("/weather")
	{
		weather.POST("", handler.RecordWeather)
		weather.POST("/lookup", handler.LookupWeather)
		weather.GET("/location/:location", handler.WeatherByLocation)
		weather.GET("/locations/all", handler.Locations)
		weather.GET("/searches/trending", handler.TrendingSearches)
		weather.DELETE("/records/:id", handler.DeleteRecord)
		weather.DELETE("/cleanup/all", handler.DeleteAll)
		weather.DELETE("/location/:location", handler.DeleteByLocation)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, cfg.HTTP.WriteTimeout, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}

package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-export/internal/domain/export"
	"github.com/yanqian/weather-export/internal/domain/observation"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	exportSvc      export.Service
	observationSvc observation.Service
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(exportSvc export.Service, observationSvc observation.Service, logger *slog.Logger) *Handler {
	return &Handler{
		exportSvc:      exportSvc,
		observationSvc: observationSvc,
		logger:         logger.With("component", "http.handler"),
	}
}

// Export returns a download handler for one format and mode. The "all" mode reads only
// the location parameter.
func (h *Handler) Export(mode export.Mode, format export.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := export.Request{
			Format:   format,
			Mode:     mode,
			Location: c.Query("location"),
		}
		if mode == export.ModeRanged {
			req.StartDate = c.Query("startDate")
			req.EndDate = c.Query("endDate")
		}

		payload, err := h.exportSvc.Export(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, fromDomainError(err, "export_failed"))
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", payload.Filename))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, payload.ContentType, payload.Body)
	}
}

// ExportStatus reports whether the export subsystem can reach the store.
func (h *Handler) ExportStatus(c *gin.Context) {
	status, err := h.exportSvc.Status(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err, "export_test_failed"))
		return
	}
	c.JSON(http.StatusOK, status)
}

// DebugDates shows how stored timestamps compare against a tested date range.
func (h *Handler) DebugDates(c *gin.Context) {
	report, err := h.exportSvc.DebugDates(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "debug_failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// RecordWeather stores a provider payload fetched by the client.
func (h *Handler) RecordWeather(c *gin.Context) {
	var req observation.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "search query and weather data are required", err))
		return
	}
	obs, err := h.observationSvc.Record(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "store_failed"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Weather data stored successfully", "data": obs})
}

// LookupWeather fetches current conditions from the provider and stores them.
func (h *Handler) LookupWeather(c *gin.Context) {
	var req observation.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "query is required", err))
		return
	}
	obs, err := h.observationSvc.Lookup(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "lookup_failed"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Weather data stored successfully", "data": obs})
}

// WeatherByLocation pages through observations whose location matches the path parameter.
func (h *Handler) WeatherByLocation(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 0)
	result, err := h.observationSvc.ByLocation(c.Request.Context(), c.Param("location"), page, limit)
	if err != nil {
		abortWithError(c, fromDomainError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Locations lists every stored location with its search count.
func (h *Handler) Locations(c *gin.Context) {
	locations, err := h.observationSvc.Locations(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// TrendingSearches returns the most frequent search queries.
func (h *Handler) TrendingSearches(c *gin.Context) {
	items, err := h.observationSvc.TrendingSearches(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		abortWithError(c, fromDomainError(err, "fetch_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": items})
}

// DeleteRecord removes one observation by id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	obs, err := h.observationSvc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "delete_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Weather data deleted successfully", "data": obs})
}

// DeleteAll removes every stored observation.
func (h *Handler) DeleteAll(c *gin.Context) {
	count, err := h.observationSvc.DeleteAll(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err, "delete_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All weather data deleted successfully", "deletedCount": count})
}

// DeleteByLocation removes observations whose location matches the path parameter.
func (h *Handler) DeleteByLocation(c *gin.Context) {
	location := c.Param("location")
	count, err := h.observationSvc.DeleteByLocation(c.Request.Context(), location)
	if err != nil {
		abortWithError(c, fromDomainError(err, "delete_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Weather data for %s deleted successfully", location),
		"deletedCount": count,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

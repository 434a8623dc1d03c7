package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/service"
)

type ingestPipeline interface {
	ProcessBatch(ctx context.Context, items []map[string]any) []service.ItemResult
}

type positionService interface {
	GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error)
	GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error)
	GetHistory(ctx context.Context, entityID string, start, end time.Time) ([]domain.PositionSample, error)
}

type notificationService interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type positionResponse struct {
	EntityID  string   `json:"entity_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type TrackingHandler struct {
	pipeline      ingestPipeline
	positions     positionService
	notifications notificationService
}

func NewTrackingHandler(pipeline ingestPipeline, positions positionService, notifications notificationService) *TrackingHandler {
	return &TrackingHandler{pipeline: pipeline, positions: positions, notifications: notifications}
}

func (h *TrackingHandler) Register(r *gin.RouterGroup) {
	r.POST("/locations", h.IngestBatch)
	r.GET("/vehicles", h.GetAllVehicles)
	r.GET("/vehicles/:vehicle_id/location", h.GetLatestLocation)
	r.GET("/vehicles/:vehicle_id/history", h.GetHistory)
	r.GET("/users/:user_id/notifications", h.GetNotifications)
	r.POST("/notifications/:notification_id/read", h.MarkNotificationRead)
}

// IngestBatch accepts a JSON array of raw position reports. Each element is
// processed independently: 201 when every element lands, 207 with per-item
// results otherwise.
func (h *TrackingHandler) IngestBatch(c *gin.Context) {
	var items []map[string]any
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of position reports"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	results := h.pipeline.ProcessBatch(c.Request.Context(), items)

	failed := 0
	for _, r := range results {
		if r.Status != "created" {
			failed++
		}
	}
	if failed == 0 {
		c.JSON(http.StatusCreated, gin.H{"status": "created", "results": results})
		return
	}
	c.JSON(http.StatusMultiStatus, gin.H{"status": "partial", "failed": failed, "results": results})
}

func (h *TrackingHandler) GetAllVehicles(c *gin.Context) {
	vehicles, err := h.positions.GetAllVehicles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch vehicles"})
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

func (h *TrackingHandler) GetLatestLocation(c *gin.Context) {
	vehicleID := c.Param("vehicle_id")

	sample, err := h.positions.GetLatest(c.Request.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch location"})
		return
	}

	c.JSON(http.StatusOK, toPositionResponse(sample))
}

func (h *TrackingHandler) GetHistory(c *gin.Context) {
	vehicleID := c.Param("vehicle_id")

	start, ok := unixQuery(c, "start")
	if !ok {
		return
	}
	end, ok := unixQuery(c, "end")
	if !ok {
		return
	}

	samples, err := h.positions.GetHistory(c.Request.Context(), vehicleID, start, end)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]positionResponse, len(samples))
	for i := range samples {
		results[i] = toPositionResponse(&samples[i])
	}
	c.JSON(http.StatusOK, results)
}

func (h *TrackingHandler) GetNotifications(c *gin.Context) {
	userID := c.Param("user_id")

	notifications, err := h.notifications.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *TrackingHandler) MarkNotificationRead(c *gin.Context) {
	id := c.Param("notification_id")

	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}

	c.Status(http.StatusNoContent)
}

// unixQuery parses an optional unix-seconds query parameter. A missing value
// is a zero time; a malformed one aborts the request with 400.
func unixQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " parameter"})
		return time.Time{}, false
	}
	return time.Unix(seconds, 0), true
}

func toPositionResponse(s *domain.PositionSample) positionResponse {
	return positionResponse{
		EntityID:  s.EntityID,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Altitude:  s.Altitude,
		Speed:     s.Speed,
		Timestamp: s.CapturedAt.Unix(),
	}
}

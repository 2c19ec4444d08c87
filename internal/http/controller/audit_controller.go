package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/repository"
	"github.com/iyhunko/storefront-admin/internal/service"
)

// AuditReader reads recorded admin mutations.
type AuditReader interface {
	List(ctx context.Context, filter service.AuditFilter, limit int32, token string) ([]*model.Event, string, error)
	Find(ctx context.Context, id uuid.UUID) (*model.Event, error)
}

// AuditController handles HTTP requests for the admin audit trail.
type AuditController struct {
	audit AuditReader
}

// NewAuditController creates a new AuditController.
func NewAuditController(audit AuditReader) *AuditController {
	return &AuditController{
		audit: audit,
	}
}

// ListAuditRequest represents the query parameters for listing audit events.
type ListAuditRequest struct {
	Limit     int32  `form:"limit"`
	Token     string `form:"token"`
	EventType string `form:"event_type"`
	Status    string `form:"status" binding:"omitempty,oneof=pending processed failed"`
}

// AuditEventResponse represents the response body for an audit event.
type AuditEventResponse struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	Data        json.RawMessage `json:"data"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	ProcessedAt string          `json:"processed_at,omitempty"`
}

// ListAuditResponse represents the response body for listing audit events.
type ListAuditResponse struct {
	Events        []AuditEventResponse `json:"events"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

// ListEvents handles the HTTP GET request for listing audit events with pagination.
func (ac *AuditController) ListEvents(c *gin.Context) {
	var req ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := service.AuditFilter{EventType: req.EventType, Status: model.EventStatus(req.Status)}
	events, next, err := ac.audit.List(c.Request.Context(), filter, req.Limit, req.Token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPageToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Failed to list audit events", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit events"})
		return
	}

	resp := ListAuditResponse{
		Events:        make([]AuditEventResponse, 0, len(events)),
		NextPageToken: next,
	}
	for _, event := range events {
		resp.Events = append(resp.Events, toAuditEventResponse(event))
	}
	c.JSON(http.StatusOK, resp)
}

// GetEvent handles the HTTP GET request for a single audit event.
func (ac *AuditController) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}

	event, err := ac.audit.Find(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		slog.Error("Failed to find audit event", slog.String("event_id", id.String()), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find audit event"})
		return
	}

	c.JSON(http.StatusOK, toAuditEventResponse(event))
}

func toAuditEventResponse(event *model.Event) AuditEventResponse {
	resp := AuditEventResponse{
		ID:        event.ID.String(),
		EventType: event.EventType,
		Data:      event.EventData,
		Status:    string(event.Status),
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
	}
	if event.ProcessedAt != nil {
		resp.ProcessedAt = event.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

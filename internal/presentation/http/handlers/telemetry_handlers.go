// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/geo"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// TelemetryHandlers contains the public collection endpoints.
type TelemetryHandlers struct {
	ingestionService  *services.IngestionService
	identityService   *services.IdentityService
	submissionService *services.SubmissionService
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewTelemetryHandlers creates telemetry handlers with injected dependencies.
func NewTelemetryHandlers(
	ingestionService *services.IngestionService,
	identityService *services.IdentityService,
	submissionService *services.SubmissionService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *TelemetryHandlers {
	return &TelemetryHandlers{
		ingestionService:  ingestionService,
		identityService:   identityService,
		submissionService: submissionService,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// PostTrack handles POST /api/v1/track - ingests one collector batch.
func (h *TelemetryHandlers) PostTrack(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_track_request")
	defer marker.Complete()

	var req services.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Telemetry().Error("Track request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	clientCtx := geo.ClientContextFromRequest(c.Request)
	stored, err := h.ingestionService.ProcessBatch(req, clientCtx)
	if err != nil {
		if errors.Is(err, services.ErrMissingIdentifiers) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Telemetry().Error("Batch ingestion failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store events"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "events_received": stored})
}

// PostIdentify handles POST /api/v1/identify - links a visitor to an email.
func (h *TelemetryHandlers) PostIdentify(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_identify_request")
	defer marker.Complete()

	var req services.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Telemetry().Error("Identify request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	result, err := h.identityService.Identify(req)
	if err != nil {
		if errors.Is(err, services.ErrMissingEmail) || errors.Is(err, services.ErrMissingVisitorID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Telemetry().Error("Identify failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to identify visitor"})
		return
	}

	message := "visitor identified"
	if result.Merged {
		message = "visitor history merged"
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "merged": result.Merged, "message": message})
}

// PostSubmission handles POST /api/v1/submissions - stores a lead form entry.
func (h *TelemetryHandlers) PostSubmission(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_submission_request")
	defer marker.Complete()

	var req services.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Telemetry().Error("Submission request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	location := geo.LocationFromRequest(c.Request)
	var userAgent *string
	if ua := c.Request.Header.Get("User-Agent"); ua != "" {
		userAgent = &ua
	}

	submission, err := h.submissionService.Submit(req, location, userAgent)
	if err != nil {
		if errors.Is(err, services.ErrMissingContactFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Telemetry().Error("Submission failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store submission"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": submission.ID})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ActivityHandlers contains the authenticated admin dashboard endpoints.
type ActivityHandlers struct {
	activityService   *services.ActivityService
	submissionService *services.SubmissionService
	broadcaster       *messaging.ActivityBroadcaster
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewActivityHandlers creates activity handlers with injected dependencies.
func NewActivityHandlers(
	activityService *services.ActivityService,
	submissionService *services.SubmissionService,
	broadcaster *messaging.ActivityBroadcaster,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ActivityHandlers {
	return &ActivityHandlers{
		activityService:   activityService,
		submissionService: submissionService,
		broadcaster:       broadcaster,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func paginationParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetOverview handles GET /api/v1/activity/overview.
func (h *ActivityHandlers) GetOverview(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_overview_request")
	defer marker.Complete()

	snapshot, err := h.activityService.Overview()
	if err != nil {
		h.logger.Telemetry().Error("Overview query failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load overview"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, snapshot)
}

// GetVisitors handles GET /api/v1/activity/visitors.
func (h *ActivityHandlers) GetVisitors(c *gin.Context) {
	limit, offset := paginationParams(c)
	page, err := h.activityService.Visitors(limit, offset)
	if err != nil {
		h.logger.Telemetry().Error("Visitor listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list visitors"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetSessions handles GET /api/v1/activity/sessions.
func (h *ActivityHandlers) GetSessions(c *gin.Context) {
	limit, offset := paginationParams(c)
	page, err := h.activityService.Sessions(limit, offset)
	if err != nil {
		h.logger.Telemetry().Error("Session listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetEvents handles GET /api/v1/activity/events.
func (h *ActivityHandlers) GetEvents(c *gin.Context) {
	limit, offset := paginationParams(c)
	page, err := h.activityService.Events(limit, offset)
	if err != nil {
		h.logger.Telemetry().Error("Event listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetSubscribers handles GET /api/v1/activity/subscribers.
func (h *ActivityHandlers) GetSubscribers(c *gin.Context) {
	limit, offset := paginationParams(c)
	page, err := h.activityService.Subscribers(limit, offset)
	if err != nil {
		h.logger.Telemetry().Error("Subscriber listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscribers"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetSubmissions handles GET /api/v1/activity/submissions.
func (h *ActivityHandlers) GetSubmissions(c *gin.Context) {
	limit, offset := paginationParams(c)
	page, err := h.submissionService.List(limit, offset)
	if err != nil {
		h.logger.Telemetry().Error("Submission listing failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetStream handles GET /api/v1/activity/stream - upgrades to a websocket
// pushing each ingested event as it arrives.
func (h *ActivityHandlers) GetStream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Stream().Error("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.ActivityClient{
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	h.broadcaster.Register(client)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *ActivityHandlers) writePump(client *messaging.ActivityClient) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump drains the connection so close frames are processed, and
// unregisters the client on disconnect.
func (h *ActivityHandlers) readPump(client *messaging.ActivityClient) {
	defer func() {
		h.broadcaster.Unregister(client)
		client.Conn.Close()
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

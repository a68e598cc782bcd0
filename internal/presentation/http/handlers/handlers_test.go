package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	require.NoError(t, err)
	return logger
}

type stubBatchWriter struct {
	events    []telemetry.Event
	clientCtx telemetry.ClientContext
}

func (w *stubBatchWriter) StoreBatch(_, _ string, ctx telemetry.ClientContext, events []telemetry.Event) (int, error) {
	w.clientCtx = ctx
	w.events = events
	return len(events), nil
}

type stubSubmissionRepo struct {
	inserted *telemetry.FormSubmission
}

func (r *stubSubmissionRepo) Insert(submission *telemetry.FormSubmission) error {
	r.inserted = submission
	return nil
}
func (r *stubSubmissionRepo) List(int, int) ([]*telemetry.FormSubmission, error) { return nil, nil }
func (r *stubSubmissionRepo) Count() (int, error)                                { return 0, nil }

func postJSON(router *gin.Engine, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func newTrackRouter(t *testing.T, writer *stubBatchWriter) *gin.Engine {
	t.Helper()
	logger := newTestLogger(t)
	ingestion := services.NewIngestionService(writer, nil, logger)
	h := NewTelemetryHandlers(ingestion, nil, nil, logger, performance.NewTracker())

	router := gin.New()
	router.POST("/api/v1/track", h.PostTrack)
	return router
}

func TestPostTrackStoresBatch(t *testing.T) {
	writer := &stubBatchWriter{}
	router := newTrackRouter(t, writer)

	body := `{"visitor_id":"v1","session_id":"s1","events":[{"event_type":"page.view","page":"/","timestamp":"2026-03-15T10:30:00Z"}]}`
	recorder := postJSON(router, "/api/v1/track", body, map[string]string{
		"User-Agent":   "test-agent",
		"CF-IPCountry": "CA",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["events_received"])

	require.Len(t, writer.events, 1)
	require.NotNil(t, writer.clientCtx.UserAgent)
	assert.Equal(t, "test-agent", *writer.clientCtx.UserAgent)
	require.NotNil(t, writer.clientCtx.Country)
	assert.Equal(t, "CA", *writer.clientCtx.Country)
}

func TestPostTrackRejectsMalformedJSON(t *testing.T) {
	router := newTrackRouter(t, &stubBatchWriter{})
	recorder := postJSON(router, "/api/v1/track", `{"visitor_id":`, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPostTrackRejectsMissingIdentifiers(t *testing.T) {
	router := newTrackRouter(t, &stubBatchWriter{})
	recorder := postJSON(router, "/api/v1/track", `{"events":[{"event_type":"page.view"}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPostTrackAcceptsEmptyBatch(t *testing.T) {
	router := newTrackRouter(t, &stubBatchWriter{})
	recorder := postJSON(router, "/api/v1/track", `{"visitor_id":"v1","session_id":"s1","events":[]}`, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(0), response["events_received"])
}

func TestPostSubmissionCapturesEdgeGeo(t *testing.T) {
	logger := newTestLogger(t)
	repo := &stubSubmissionRepo{}
	submissions := services.NewSubmissionService(repo, logger)
	h := NewTelemetryHandlers(nil, nil, submissions, logger, performance.NewTracker())

	router := gin.New()
	router.POST("/api/v1/submissions", h.PostSubmission)

	body := `{"name":"Jordan Smith","phone":"+1 555 0100","service":"tax-planning"}`
	recorder := postJSON(router, "/api/v1/submissions", body, map[string]string{
		"CF-IPCountry": "CA",
		"CF-IPCity":    "Toronto",
		"User-Agent":   "test-agent",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, repo.inserted)
	assert.NotEmpty(t, repo.inserted.ID)
	assert.Equal(t, "Jordan Smith", repo.inserted.Name)
	assert.Equal(t, "CA", *repo.inserted.Country)
	assert.Equal(t, "Toronto", *repo.inserted.City)
	assert.Equal(t, "test-agent", *repo.inserted.UserAgent)
}

func TestPostSubmissionRequiresContactFields(t *testing.T) {
	logger := newTestLogger(t)
	submissions := services.NewSubmissionService(&stubSubmissionRepo{}, logger)
	h := NewTelemetryHandlers(nil, nil, submissions, logger, performance.NewTracker())

	router := gin.New()
	router.POST("/api/v1/submissions", h.PostSubmission)

	recorder := postJSON(router, "/api/v1/submissions", `{"name":"Jordan Smith"}`, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func configureTestAuth(t *testing.T) {
	t.Helper()

	hash, err := security.HashPassword("hunter2")
	require.NoError(t, err)

	prevUser, prevHash, prevSecret, prevTTL := config.AdminUsername, config.AdminPasswordHash, config.JWTSecret, config.TokenTTL
	config.AdminUsername = "admin"
	config.AdminPasswordHash = hash
	config.JWTSecret = "handler-test-secret"
	config.TokenTTL = time.Hour
	t.Cleanup(func() {
		config.AdminUsername, config.AdminPasswordHash, config.JWTSecret, config.TokenTTL = prevUser, prevHash, prevSecret, prevTTL
	})
}

func newAuthRouter(t *testing.T) (*gin.Engine, *services.AuthService) {
	t.Helper()
	logger := newTestLogger(t)
	authService := services.NewAuthService(logger)
	h := NewAuthHandlers(authService, logger)

	router := gin.New()
	router.POST("/api/v1/auth/login", h.PostLogin)
	router.GET("/api/v1/auth/verify", middleware.AuthMiddleware(authService), h.GetVerify)
	return router, authService
}

func TestLoginAndVerifyFlow(t *testing.T) {
	configureTestAuth(t)
	router, _ := newAuthRouter(t)

	recorder := postJSON(router, "/api/v1/auth/login", `{"username":"admin","password":"hunter2"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var loginResponse map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &loginResponse))
	token, _ := loginResponse["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	verify := httptest.NewRecorder()
	router.ServeHTTP(verify, req)

	assert.Equal(t, http.StatusOK, verify.Code)
	assert.Contains(t, verify.Body.String(), "admin")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	configureTestAuth(t)
	router, _ := newAuthRouter(t)

	recorder := postJSON(router, "/api/v1/auth/login", `{"username":"admin","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	configureTestAuth(t)
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestVerifyAcceptsQueryParameterToken(t *testing.T) {
	configureTestAuth(t)
	router, authService := newAuthRouter(t)

	token, err := authService.Login("admin", "hunter2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify?token="+token, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

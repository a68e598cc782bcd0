package telemetry

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	schema "github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memoryDBCounter int

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

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	// A named shared-cache DSN so the pool's connections all see one database.
	memoryDBCounter++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", memoryDBCounter)

	db, err := database.NewConnection("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, schema.NewTableCreator().CreateSchema(db.DB))
	return db
}

func strPtr(s string) *string { return &s }

func storeTestBatch(t *testing.T, db *database.DB, visitorID, sessionID string, ctx telemetry.ClientContext, events ...telemetry.Event) {
	t.Helper()
	repo := NewSQLBatchRepository(db, newTestLogger(t))
	stored, err := repo.StoreBatch(visitorID, sessionID, ctx, events)
	require.NoError(t, err)
	require.Equal(t, len(events), stored)
}

func TestStoreBatchCreatesVisitorSessionAndEvents(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	ctx := telemetry.ClientContext{
		UserAgent: strPtr("Mozilla/5.0"),
		Country:   strPtr("CA"),
		City:      strPtr("Toronto"),
	}
	storeTestBatch(t, db, "v1", "s1", ctx,
		telemetry.Event{EventType: "page.view", Page: strPtr("/")},
		telemetry.Event{EventType: "ui.click", Page: strPtr("/"), Element: strPtr("cta")},
	)

	visitor, err := NewSQLVisitorRepository(db, logger).FindByID("v1")
	require.NoError(t, err)
	require.NotNil(t, visitor)
	assert.Nil(t, visitor.Email)

	session, err := NewSQLSessionRepository(db, logger).FindByID("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "v1", session.VisitorID)
	assert.Equal(t, "Mozilla/5.0", *session.Context.UserAgent)
	assert.Equal(t, "CA", *session.Context.Country)

	events := NewSQLEventRepository(db, logger)
	count, err := events.CountBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreBatchNormalizesClientTimestamps(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v1", "s1", telemetry.ClientContext{},
		telemetry.Event{EventType: "page.view", CreatedAt: "2026-03-15T10:30:00Z"},
		telemetry.Event{EventType: "page.view", CreatedAt: "not-a-timestamp"},
		telemetry.Event{EventType: "page.view"},
	)

	list, err := NewSQLEventRepository(db, logger).ListRecent(10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	stamps := make(map[string]bool)
	for _, event := range list {
		// Every stored timestamp uses the schema layout.
		_, err := time.Parse("2006-01-02 15:04:05", event.CreatedAt)
		assert.NoError(t, err, "unexpected layout: %s", event.CreatedAt)
		stamps[event.CreatedAt] = true
	}
	assert.True(t, stamps["2026-03-15 10:30:00"], "client timestamp should be preserved")
}

func TestStoreBatchDefaultsUnknownEventType(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v1", "s1", telemetry.ClientContext{}, telemetry.Event{})

	list, err := NewSQLEventRepository(db, logger).ListRecent(10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "unknown", list[0].EventType)
}

func TestRepeatBatchesAdvanceLastSeenOnly(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v1", "s1", telemetry.ClientContext{},
		telemetry.Event{EventType: "page.view", Page: strPtr("#home")})

	visitors := NewSQLVisitorRepository(db, logger)
	first, err := visitors.FindByID("v1")
	require.NoError(t, err)
	require.NotNil(t, first)

	storeTestBatch(t, db, "v1", "s1", telemetry.ClientContext{},
		telemetry.Event{EventType: "ui.click", Element: strPtr("cta-invest")})

	second, err := visitors.FindByID("v1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt)
	assert.False(t, second.LastSeenAt.Before(first.LastSeenAt))

	session, err := NewSQLSessionRepository(db, logger).FindByID("s1")
	require.NoError(t, err)
	assert.False(t, session.LastActiveAt.Before(session.StartedAt))

	count, err := NewSQLEventRepository(db, logger).CountBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVisitorUpsertWithEmailIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	visitors := NewSQLVisitorRepository(db, logger)
	subscribers := NewSQLSubscriberRepository(db, logger)

	for i := 0; i < 2; i++ {
		require.NoError(t, visitors.UpsertWithEmail("v1", "user@example.com"))
		require.NoError(t, subscribers.Upsert("user@example.com", "v1"))
	}

	visitorCount, err := visitors.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, visitorCount)

	subscriberCount, err := subscribers.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, subscriberCount)
}

func TestSessionSnapshotIsFrozenAtCreation(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v1", "s1",
		telemetry.ClientContext{Country: strPtr("CA")},
		telemetry.Event{EventType: "page.view"})
	storeTestBatch(t, db, "v1", "s1",
		telemetry.ClientContext{Country: strPtr("US")},
		telemetry.Event{EventType: "page.view"})

	session, err := NewSQLSessionRepository(db, logger).FindByID("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "CA", *session.Context.Country)
}

func TestVisitorEmailLookupExcludesSelf(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)
	repo := NewSQLVisitorRepository(db, logger)

	require.NoError(t, repo.UpsertWithEmail("v1", "user@example.com"))

	found, err := repo.FindByEmailExcluding("user@example.com", "v2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "v1", found.VisitorID)

	self, err := repo.FindByEmailExcluding("user@example.com", "v1")
	require.NoError(t, err)
	assert.Nil(t, self)

	missing, err := repo.FindByEmailExcluding("other@example.com", "v2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMergeReparentsHistoryAndDeletesOldVisitor(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v-old", "s-old", telemetry.ClientContext{},
		telemetry.Event{EventType: "page.view"},
		telemetry.Event{EventType: "ui.click"})
	storeTestBatch(t, db, "v-new", "s-new", telemetry.ClientContext{},
		telemetry.Event{EventType: "page.view"})

	subscribers := NewSQLSubscriberRepository(db, logger)
	require.NoError(t, subscribers.Upsert("user@example.com", "v-old"))

	require.NoError(t, NewSQLMergeRepository(db, logger).Merge("v-old", "v-new"))

	visitors := NewSQLVisitorRepository(db, logger)
	oldVisitor, err := visitors.FindByID("v-old")
	require.NoError(t, err)
	assert.Nil(t, oldVisitor)

	visitorCount, err := visitors.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, visitorCount)

	// All three events now belong to the surviving visitor.
	list, err := NewSQLEventRepository(db, logger).ListRecent(10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, event := range list {
		assert.Equal(t, "v-new", event.VisitorID)
	}

	oldSession, err := NewSQLSessionRepository(db, logger).FindByID("s-old")
	require.NoError(t, err)
	require.NotNil(t, oldSession)
	assert.Equal(t, "v-new", oldSession.VisitorID)

	subscriber, err := subscribers.FindByEmail("user@example.com")
	require.NoError(t, err)
	require.NotNil(t, subscriber)
	assert.Equal(t, "v-new", subscriber.VisitorID)
}

func TestSubscriberUpsertIsKeyedByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLSubscriberRepository(db, newTestLogger(t))

	require.NoError(t, repo.Upsert("user@example.com", "v1"))
	require.NoError(t, repo.Upsert("user@example.com", "v2"))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	subscriber, err := repo.FindByEmail("user@example.com")
	require.NoError(t, err)
	require.NotNil(t, subscriber)
	assert.Equal(t, "v2", subscriber.VisitorID)
}

func TestEventCountByTypeSinceFiltersWindow(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger(t)

	storeTestBatch(t, db, "v1", "s1", telemetry.ClientContext{},
		telemetry.Event{EventType: "page.view", CreatedAt: "2020-01-01T00:00:00Z"},
		telemetry.Event{EventType: "page.view", CreatedAt: time.Now().UTC().Format(time.RFC3339)},
		telemetry.Event{EventType: "ui.click", CreatedAt: time.Now().UTC().Format(time.RFC3339)},
	)

	counts, err := NewSQLEventRepository(db, logger).CountByTypeSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, counts, 2)

	totals := map[string]int{}
	for _, c := range counts {
		totals[c.EventType] = c.Count
	}
	assert.Equal(t, 1, totals["page.view"], "the 2020 event falls outside the window")
	assert.Equal(t, 1, totals["ui.click"])
}

func TestSubmissionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLSubmissionRepository(db, newTestLogger(t))

	lat := 43.65
	submission := &telemetry.FormSubmission{
		ID:              "01TESTULID0000000000000000",
		Name:            "Jordan Smith",
		Phone:           "+1 555 0100",
		Email:           strPtr("jordan@example.com"),
		Service:         strPtr("retirement-planning"),
		Country:         strPtr("CA"),
		BrowserLatitude: &lat,
		SubmittedAt:     time.Now(),
	}
	require.NoError(t, repo.Insert(submission))

	list, err := repo.List(10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, "Jordan Smith", got.Name)
	assert.Equal(t, "jordan@example.com", *got.Email)
	assert.Equal(t, "CA", *got.Country)
	assert.InDelta(t, 43.65, *got.BrowserLatitude, 0.0001)
	assert.Nil(t, got.DOB)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

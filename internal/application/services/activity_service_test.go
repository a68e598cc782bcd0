package services

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	count     int
	lastLimit int
}

func (r *fakeSessionRepo) Upsert(string, string, telemetry.ClientContext) error { return nil }
func (r *fakeSessionRepo) FindByID(string) (*telemetry.Session, error)          { return nil, nil }
func (r *fakeSessionRepo) List(limit, offset int) ([]*telemetry.SessionSummary, error) {
	r.lastLimit = limit
	return []*telemetry.SessionSummary{}, nil
}
func (r *fakeSessionRepo) Count() (int, error) { return r.count, nil }

type fakeEventRepo struct {
	count   int
	byType  []telemetry.EventTypeCount
	lastArg time.Time
}

func (r *fakeEventRepo) ListRecent(int, int) ([]*telemetry.Event, error) { return nil, nil }
func (r *fakeEventRepo) CountBySession(string) (int, error)              { return 0, nil }
func (r *fakeEventRepo) CountByTypeSince(since time.Time) ([]telemetry.EventTypeCount, error) {
	r.lastArg = since
	return r.byType, nil
}
func (r *fakeEventRepo) Count() (int, error) { return r.count, nil }

func TestClampLimit(t *testing.T) {
	assert.Equal(t, config.DefaultQueryLimit, ClampLimit(0))
	assert.Equal(t, config.DefaultQueryLimit, ClampLimit(-5))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, config.MaxQueryLimit, ClampLimit(config.MaxQueryLimit))
	assert.Equal(t, config.MaxQueryLimit, ClampLimit(config.MaxQueryLimit+1000))
}

func TestOverviewAggregatesCounts(t *testing.T) {
	visitors := &fakeVisitorRepo{}
	sessions := &fakeSessionRepo{count: 7}
	events := &fakeEventRepo{
		count: 42,
		byType: []telemetry.EventTypeCount{
			{EventType: "page.view", Count: 30},
			{EventType: "ui.click", Count: 12},
		},
	}
	subscribers := &fakeSubscriberRepo{}

	svc := NewActivityService(visitors, sessions, events, subscribers, newTestLogger(t))

	snapshot, err := svc.Overview()
	require.NoError(t, err)
	assert.Equal(t, 7, snapshot.TotalSessions)
	assert.Equal(t, 42, snapshot.TotalEvents)
	require.Len(t, snapshot.EventsLast24h, 2)
	assert.Equal(t, "page.view", snapshot.EventsLast24h[0].EventType)

	// The breakdown window looks back roughly one day.
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), events.lastArg, time.Minute)
}

func TestSessionsListingClampsLimit(t *testing.T) {
	sessions := &fakeSessionRepo{count: 3}
	svc := NewActivityService(&fakeVisitorRepo{}, sessions, &fakeEventRepo{}, &fakeSubscriberRepo{}, newTestLogger(t))

	page, err := svc.Sessions(100000, 0)
	require.NoError(t, err)
	assert.Equal(t, config.MaxQueryLimit, sessions.lastLimit)
	assert.Equal(t, 3, page.Total)
}

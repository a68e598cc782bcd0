package services

import (
	"testing"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVisitorRepo struct {
	byEmail        map[string]*telemetry.Visitor
	upsertedID     string
	upsertedEmail  string
	upsertedNoMail []string
}

func (r *fakeVisitorRepo) Upsert(visitorID string) error {
	r.upsertedNoMail = append(r.upsertedNoMail, visitorID)
	return nil
}

func (r *fakeVisitorRepo) UpsertWithEmail(visitorID, email string) error {
	r.upsertedID = visitorID
	r.upsertedEmail = email
	return nil
}

func (r *fakeVisitorRepo) FindByID(string) (*telemetry.Visitor, error) { return nil, nil }

func (r *fakeVisitorRepo) FindByEmailExcluding(email, visitorID string) (*telemetry.Visitor, error) {
	visitor, ok := r.byEmail[email]
	if !ok || visitor.VisitorID == visitorID {
		return nil, nil
	}
	return visitor, nil
}

func (r *fakeVisitorRepo) List(int, int) ([]*telemetry.VisitorSummary, error) { return nil, nil }
func (r *fakeVisitorRepo) Count() (int, error)                                { return 0, nil }

type fakeSubscriberRepo struct {
	byEmail       map[string]*telemetry.Subscriber
	upsertEmail   string
	upsertVisitor string
}

func (r *fakeSubscriberRepo) Upsert(email, visitorID string) error {
	r.upsertEmail = email
	r.upsertVisitor = visitorID
	return nil
}

func (r *fakeSubscriberRepo) FindByEmail(email string) (*telemetry.Subscriber, error) {
	return r.byEmail[email], nil
}

func (r *fakeSubscriberRepo) List(int, int) ([]*telemetry.SubscriberSummary, error) { return nil, nil }
func (r *fakeSubscriberRepo) Count() (int, error)                                   { return 0, nil }

type fakeMerger struct {
	oldID  string
	newID  string
	called bool
}

func (m *fakeMerger) Merge(oldVisitorID, newVisitorID string) error {
	m.called = true
	m.oldID = oldVisitorID
	m.newID = newVisitorID
	return nil
}

func newIdentityFixture(t *testing.T) (*IdentityService, *fakeVisitorRepo, *fakeSubscriberRepo, *fakeMerger) {
	t.Helper()
	visitors := &fakeVisitorRepo{byEmail: map[string]*telemetry.Visitor{}}
	subscribers := &fakeSubscriberRepo{byEmail: map[string]*telemetry.Subscriber{}}
	merger := &fakeMerger{}
	svc := NewIdentityService(visitors, subscribers, merger, nil, newTestLogger(t))
	return svc, visitors, subscribers, merger
}

func TestIdentifyValidatesInput(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	_, err := svc.Identify(IdentifyRequest{Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrMissingVisitorID)

	_, err = svc.Identify(IdentifyRequest{VisitorID: "v1", Email: ""})
	assert.ErrorIs(t, err, ErrMissingEmail)

	_, err = svc.Identify(IdentifyRequest{VisitorID: "v1", Email: "   "})
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestIdentifyAcceptsAnyNonEmptyEmailString(t *testing.T) {
	// No server-side format gate: whatever the visitor typed is normalized
	// and stored.
	svc, visitors, subscribers, _ := newIdentityFixture(t)

	result, err := svc.Identify(IdentifyRequest{VisitorID: "v1", Email: "Not-An-Address"})
	require.NoError(t, err)

	assert.False(t, result.Merged)
	assert.Equal(t, "not-an-address", visitors.upsertedEmail)
	assert.Equal(t, "not-an-address", subscribers.upsertEmail)
}

func TestIdentifyNormalizesEmailServerSide(t *testing.T) {
	svc, visitors, subscribers, merger := newIdentityFixture(t)

	result, err := svc.Identify(IdentifyRequest{VisitorID: "v1", Email: "  User@Example.COM "})
	require.NoError(t, err)

	assert.Equal(t, "v1", result.VisitorID)
	assert.False(t, result.Merged)
	assert.False(t, merger.called)
	assert.Equal(t, "user@example.com", visitors.upsertedEmail)
	assert.Equal(t, "user@example.com", subscribers.upsertEmail)
	assert.Equal(t, "v1", subscribers.upsertVisitor)
}

func TestIdentifyMergesPriorEmailOwner(t *testing.T) {
	svc, visitors, _, merger := newIdentityFixture(t)
	visitors.byEmail["user@example.com"] = &telemetry.Visitor{VisitorID: "v-old"}

	result, err := svc.Identify(IdentifyRequest{VisitorID: "v-new", Email: "user@example.com"})
	require.NoError(t, err)

	assert.True(t, result.Merged)
	assert.Equal(t, "v-new", result.VisitorID)
	// The prior owner's history folds into the requesting visitor.
	assert.True(t, merger.called)
	assert.Equal(t, "v-old", merger.oldID)
	assert.Equal(t, "v-new", merger.newID)
	assert.Equal(t, "v-new", visitors.upsertedID)
}

func TestIdentifySameVisitorAgainIsNoMerge(t *testing.T) {
	svc, visitors, _, merger := newIdentityFixture(t)
	visitors.byEmail["user@example.com"] = &telemetry.Visitor{VisitorID: "v1"}

	result, err := svc.Identify(IdentifyRequest{VisitorID: "v1", Email: "user@example.com"})
	require.NoError(t, err)

	assert.False(t, result.Merged)
	assert.False(t, merger.called)
}

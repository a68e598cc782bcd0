package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// IdentifyRequest is the wire format posted when a visitor supplies an email.
type IdentifyRequest struct {
	VisitorID string `json:"visitor_id"`
	Email     string `json:"email"`
}

// IdentifyResult reports the canonical visitor after an identify call.
type IdentifyResult struct {
	VisitorID string `json:"visitor_id"`
	Merged    bool   `json:"merged"`
}

var (
	// ErrMissingEmail is returned when the identify call omits the email.
	ErrMissingEmail = errors.New("email is required")
	// ErrMissingVisitorID is returned when the identify call omits the visitor id.
	ErrMissingVisitorID = errors.New("visitor_id is required")
)

// IdentityService links an anonymous visitor to an email address, merging any
// prior visitor row already holding that email into the current one.
type IdentityService struct {
	visitors    telemetry.VisitorRepository
	subscribers telemetry.SubscriberRepository
	merger      telemetry.IdentityMerger
	emailer     email.Service
	logger      *logging.ChanneledLogger
}

// NewIdentityService creates a new identity service. The emailer may be nil
// when welcome emails are disabled.
func NewIdentityService(
	visitors telemetry.VisitorRepository,
	subscribers telemetry.SubscriberRepository,
	merger telemetry.IdentityMerger,
	emailer email.Service,
	logger *logging.ChanneledLogger,
) *IdentityService {
	return &IdentityService{
		visitors:    visitors,
		subscribers: subscribers,
		merger:      merger,
		emailer:     emailer,
		logger:      logger,
	}
}

// Identify attaches a normalized email to the visitor. When another visitor
// already owns that email, its history is folded into this one first, so the
// requesting visitor id always comes out canonical.
func (s *IdentityService) Identify(req IdentifyRequest) (*IdentifyResult, error) {
	if req.VisitorID == "" {
		return nil, ErrMissingVisitorID
	}

	// The email is stored as submitted after normalization; there is no
	// format gate beyond presence.
	normalized := strings.ToLower(strings.TrimSpace(req.Email))
	if normalized == "" {
		return nil, ErrMissingEmail
	}

	existing, err := s.visitors.FindByEmailExcluding(normalized, req.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email owner: %w", err)
	}

	merged := false
	if existing != nil {
		if err := s.merger.Merge(existing.VisitorID, req.VisitorID); err != nil {
			return nil, fmt.Errorf("failed to merge visitor history: %w", err)
		}
		merged = true
	}

	if err := s.visitors.UpsertWithEmail(req.VisitorID, normalized); err != nil {
		return nil, fmt.Errorf("failed to save visitor email: %w", err)
	}

	priorSubscriber, err := s.subscribers.FindByEmail(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	if err := s.subscribers.Upsert(normalized, req.VisitorID); err != nil {
		return nil, fmt.Errorf("failed to save subscriber: %w", err)
	}

	s.logger.Telemetry().Info("Visitor identified",
		"visitorId", logging.SanitizeVisitorID(req.VisitorID),
		"merged", merged)

	if priorSubscriber == nil && config.WelcomeEmailOn && s.emailer != nil {
		go func(to string) {
			if err := s.emailer.SendWelcomeEmail(to); err != nil {
				s.logger.System().Error("Welcome email delivery failed", "error", err.Error())
			}
		}(normalized)
	}

	return &IdentifyResult{VisitorID: req.VisitorID, Merged: merged}, nil
}

package services

import (
	"errors"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/geo"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
)

// SubmissionRequest is the wire format posted by the lead contact form.
type SubmissionRequest struct {
	Name             string   `json:"name"`
	DOB              *string  `json:"dob,omitempty"`
	Place            *string  `json:"place,omitempty"`
	Phone            string   `json:"phone"`
	Email            *string  `json:"email,omitempty"`
	Service          *string  `json:"service,omitempty"`
	BrowserLatitude  *float64 `json:"browser_latitude,omitempty"`
	BrowserLongitude *float64 `json:"browser_longitude,omitempty"`
}

// ErrMissingContactFields is returned when the required form fields are absent.
var ErrMissingContactFields = errors.New("name and phone are required")

// SubmissionService records lead form submissions enriched with edge geo data.
type SubmissionService struct {
	submissions telemetry.SubmissionRepository
	logger      *logging.ChanneledLogger
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(submissions telemetry.SubmissionRepository, logger *logging.ChanneledLogger) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		logger:      logger,
	}
}

// Submit validates and stores one lead form submission.
func (s *SubmissionService) Submit(req SubmissionRequest, location geo.Location, userAgent *string) (*telemetry.FormSubmission, error) {
	if req.Name == "" || req.Phone == "" {
		return nil, ErrMissingContactFields
	}

	submission := &telemetry.FormSubmission{
		ID:               security.GenerateULID(),
		Name:             req.Name,
		DOB:              req.DOB,
		Place:            req.Place,
		Phone:            req.Phone,
		Email:            req.Email,
		Service:          req.Service,
		Country:          location.Country,
		City:             location.City,
		Region:           location.Region,
		Latitude:         location.Latitude,
		Longitude:        location.Longitude,
		Timezone:         location.Timezone,
		BrowserLatitude:  req.BrowserLatitude,
		BrowserLongitude: req.BrowserLongitude,
		UserAgent:        userAgent,
		SubmittedAt:      time.Now(),
	}

	if err := s.submissions.Insert(submission); err != nil {
		return nil, err
	}

	s.logger.Telemetry().Info("Lead form submission stored", "id", submission.ID)
	return submission, nil
}

// List retrieves stored submissions, newest first.
func (s *SubmissionService) List(limit, offset int) (*Page[*telemetry.FormSubmission], error) {
	items, err := s.submissions.List(ClampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	total, err := s.submissions.Count()
	if err != nil {
		return nil, err
	}
	return &Page[*telemetry.FormSubmission]{Items: items, Total: total}, nil
}

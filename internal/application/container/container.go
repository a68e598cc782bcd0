// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	persistence "github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	IngestionService  *services.IngestionService
	IdentityService   *services.IdentityService
	ActivityService   *services.ActivityService
	SubmissionService *services.SubmissionService
	AuthService       *services.AuthService

	// Infrastructure dependencies
	DB          *database.DB
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	Broadcaster *messaging.ActivityBroadcaster
	Emailer     email.Service
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger) (*Container, error) {
	perfTracker := performance.NewTracker()
	broadcaster := messaging.NewActivityBroadcaster(logger)

	var emailer email.Service
	if config.WelcomeEmailOn {
		var err error
		emailer, err = email.NewService()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize email service: %w", err)
		}
	}

	visitorRepo := persistence.NewSQLVisitorRepository(db, logger)
	sessionRepo := persistence.NewSQLSessionRepository(db, logger)
	eventRepo := persistence.NewSQLEventRepository(db, logger)
	subscriberRepo := persistence.NewSQLSubscriberRepository(db, logger)
	submissionRepo := persistence.NewSQLSubmissionRepository(db, logger)
	batchRepo := persistence.NewSQLBatchRepository(db, logger)
	mergeRepo := persistence.NewSQLMergeRepository(db, logger)

	return &Container{
		IngestionService:  services.NewIngestionService(batchRepo, broadcaster, logger),
		IdentityService:   services.NewIdentityService(visitorRepo, subscriberRepo, mergeRepo, emailer, logger),
		ActivityService:   services.NewActivityService(visitorRepo, sessionRepo, eventRepo, subscriberRepo, logger),
		SubmissionService: services.NewSubmissionService(submissionRepo, logger),
		AuthService:       services.NewAuthService(logger),

		DB:          db,
		Logger:      logger,
		PerfTracker: perfTracker,
		Broadcaster: broadcaster,
		Emailer:     emailer,
	}, nil
}

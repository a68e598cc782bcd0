package telemetry

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/telemetry"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
)

// SQLSubmissionRepository is the SQL-based implementation of the SubmissionRepository.
type SQLSubmissionRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLSubmissionRepository creates a new instance of the repository.
func NewSQLSubmissionRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLSubmissionRepository {
	return &SQLSubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Insert saves a new FormSubmission to the database.
func (r *SQLSubmissionRepository) Insert(submission *telemetry.FormSubmission) error {
	const query = `
		INSERT INTO form_submissions
			(id, name, dob, place, phone, email, service,
			 geo_country, geo_city, geo_region, geo_latitude, geo_longitude, geo_timezone,
			 browser_latitude, browser_longitude, user_agent, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()

	_, err := r.db.Exec(
		query,
		submission.ID,
		submission.Name,
		submission.DOB,
		submission.Place,
		submission.Phone,
		submission.Email,
		submission.Service,
		submission.Country,
		submission.City,
		submission.Region,
		submission.Latitude,
		submission.Longitude,
		submission.Timezone,
		submission.BrowserLatitude,
		submission.BrowserLongitude,
		submission.UserAgent,
		formatTime(submission.SubmittedAt),
	)
	if err != nil {
		r.logger.Database().Error("Form submission insert failed", "error", err.Error(), "id", submission.ID)
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// List retrieves submissions ordered by most recent first.
func (r *SQLSubmissionRepository) List(limit, offset int) ([]*telemetry.FormSubmission, error) {
	const query = `
		SELECT id, name, dob, place, phone, email, service,
		       geo_country, geo_city, geo_region, geo_latitude, geo_longitude, geo_timezone,
		       browser_latitude, browser_longitude, user_agent, submitted_at
		FROM form_submissions
		ORDER BY submitted_at DESC
		LIMIT ? OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*telemetry.FormSubmission
	for rows.Next() {
		var s telemetry.FormSubmission
		var dob, place, email, service sql.NullString
		var country, city, region, latitude, longitude, timezone, userAgent sql.NullString
		var browserLat, browserLon sql.NullFloat64
		var submittedStr string

		err := rows.Scan(
			&s.ID, &s.Name, &dob, &place, &s.Phone, &email, &service,
			&country, &city, &region, &latitude, &longitude, &timezone,
			&browserLat, &browserLon, &userAgent, &submittedStr,
		)
		if err != nil {
			return nil, err
		}

		if dob.Valid {
			s.DOB = &dob.String
		}
		if place.Valid {
			s.Place = &place.String
		}
		if email.Valid {
			s.Email = &email.String
		}
		if service.Valid {
			s.Service = &service.String
		}
		if country.Valid {
			s.Country = &country.String
		}
		if city.Valid {
			s.City = &city.String
		}
		if region.Valid {
			s.Region = &region.String
		}
		if latitude.Valid {
			s.Latitude = &latitude.String
		}
		if longitude.Valid {
			s.Longitude = &longitude.String
		}
		if timezone.Valid {
			s.Timezone = &timezone.String
		}
		if userAgent.Valid {
			s.UserAgent = &userAgent.String
		}
		if browserLat.Valid {
			s.BrowserLatitude = &browserLat.Float64
		}
		if browserLon.Valid {
			s.BrowserLongitude = &browserLon.Float64
		}
		if s.SubmittedAt, err = parseTime(submittedStr); err != nil {
			return nil, err
		}

		submissions = append(submissions, &s)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return submissions, rows.Err()
}

// Count returns the total number of form submissions.
func (r *SQLSubmissionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM form_submissions`).Scan(&count)
	return count, err
}

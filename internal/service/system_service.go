package service

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/database"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/version"
)

// SystemService exposes operational endpoints: liveness and version info.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService with the provided database connection.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// HealthCheck verifies database connectivity.
func (s *SystemService) HealthCheck() error {
	return database.HealthCheck(s.db)
}

// GetVersionInfo returns the application version and the applied schema version.
func (s *SystemService) GetVersionInfo() (model.VersionInfo, error) {
	schemaVersion, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToGetVersionInfo, err)
	}

	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  strconv.FormatInt(schemaVersion, 10),
	}, nil
}

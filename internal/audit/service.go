// Package audit persists the admin back office trail.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/campusportal/internal/models"
)

// Entry captures a single audit event to persist.
type Entry struct {
	Username  string
	SessionID string
	Action    string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// Filters narrows List results.
type Filters struct {
	Username string
	Action   string
	Result   string
	Since    *time.Time
}

// ListOptions controls pagination and filtering for List.
type ListOptions struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Service persists and retrieves audit log entries.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs a Service using the provided database handle.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("audit: db is required")
	}
	return &Service{db: db, now: time.Now}, nil
}

// Log stores an entry, marshalling metadata into JSON.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit: result is required")
	}

	row := models.AuditLog{
		Username:  strings.TrimSpace(entry.Username),
		SessionID: strings.TrimSpace(entry.SessionID),
		Action:    strings.TrimSpace(entry.Action),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: truncate(strings.TrimSpace(entry.UserAgent), 255),
	}
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(encoded)
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns entries ordered by creation time descending.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.AuditLog, int64, error) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := applyFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), opts.Filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: count logs: %w", err)
	}
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: list logs: %w", err)
	}
	return results, total, nil
}

// CleanupOlderThan removes entries older than retention.
func (s *Service) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, errors.New("audit: retention must be positive")
	}

	cutoff := s.now().Add(-retention)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit: cleanup logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.Username != "" {
		query = query.Where("username = ?", filters.Username)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	return query
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

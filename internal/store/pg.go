package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance. The gorm connection
// must be opened with TranslateError enabled so that unique-constraint
// violations can be mapped to domain.ErrCollision.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateBatchWithMedia persists the batch root record and its media rows in a
// single transaction
func (s *pgStore) CreateBatchWithMedia(ctx context.Context, batch *schema.Batch, media []schema.Media) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		for i := range media {
			media[i].TraceID = batch.TraceID
		}
		if len(media) > 0 {
			if err := tx.Create(&media).Error; err != nil {
				return fmt.Errorf("failed to create media rows: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: trace or batch id already exists: %v", domain.ErrCollision, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return nil
}

// GetBatchByTraceID retrieves a batch by its trace ID
func (s *pgStore) GetBatchByTraceID(ctx context.Context, traceID string) (*schema.Batch, error) {
	var batch schema.Batch
	err := s.db.WithContext(ctx).Where("trace_id = ?", traceID).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

// TraceExists reports whether a batch with the given trace ID exists
func (s *pgStore) TraceExists(ctx context.Context, traceID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Batch{}).
		Where("trace_id = ?", traceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check trace existence: %w", err)
	}
	return count > 0, nil
}

// CreateActivities appends activities for an existing trace in one
// transaction. The existence check and the insert share the transaction so a
// trace cannot disappear between the two.
func (s *pgStore) CreateActivities(ctx context.Context, traceID string, activities []schema.Activity) ([]schema.Activity, error) {
	if len(activities) == 0 {
		return []schema.Activity{}, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&schema.Batch{}).Where("trace_id = ?", traceID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check trace existence: %w", err)
		}
		if count == 0 {
			return domain.ErrUnknownTrace
		}

		for i := range activities {
			activities[i].TraceID = traceID
		}
		if err := tx.Create(&activities).Error; err != nil {
			return fmt.Errorf("failed to create activities: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTrace) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return activities, nil
}

// ListActivitiesByTraceID retrieves all activities for a trace ordered by
// timestamp ascending
func (s *pgStore) ListActivitiesByTraceID(ctx context.Context, traceID string) ([]schema.Activity, error) {
	var activities []schema.Activity
	err := s.db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("timestamp ASC, id ASC").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// LatestActivityByType retrieves the most recent activity of the given type
// for a trace
func (s *pgStore) LatestActivityByType(ctx context.Context, traceID string, activityType domain.ActivityType) (*schema.Activity, error) {
	var activity schema.Activity
	err := s.db.WithContext(ctx).
		Where("trace_id = ? AND activity_type = ?", traceID, activityType).
		Order("timestamp DESC, id DESC").
		First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest activity: %w", err)
	}
	return &activity, nil
}

// ListMediaByTraceID retrieves all media rows for a trace
func (s *pgStore) ListMediaByTraceID(ctx context.Context, traceID string) ([]schema.Media, error) {
	var media []schema.Media
	err := s.db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("id ASC").
		Find(&media).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return media, nil
}

// MediaExistsForURL reports whether any media row references the given URL
func (s *pgStore) MediaExistsForURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Media{}).
		Where("url = ?", url).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check media url: %w", err)
	}
	return count > 0, nil
}

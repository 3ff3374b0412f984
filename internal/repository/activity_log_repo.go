package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// ActivityLogFilter narrows the audit trail. AreaID and ItemID scope it to a grading area or
// a single item. ActionPrefix matches a family of actions such as "grade.".
type ActivityLogFilter struct {
	Page         int
	PageSize     int
	ActorID      string
	Action       string
	ActionPrefix string
	EntityType   string
	EntityID     string
	AreaID       string
	ItemID       string
	Since        time.Time
	Until        time.Time
}

// ActivityLogRepository persists the grading audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns the newest entries first. Ties on creation time fall back to the newest id.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := scopeActivity(r.db.WithContext(ctx).Model(&models.ActivityLog{}), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scopeActivity(query *gorm.DB, filter ActivityLogFilter) *gorm.DB {
	equals := []struct {
		column string
		value  string
	}{
		{"actor_id", filter.ActorID},
		{"action", filter.Action},
		{"entity_type", filter.EntityType},
		{"entity_id", filter.EntityID},
		{"area_id", filter.AreaID},
		{"item_id", filter.ItemID},
	}
	for _, cond := range equals {
		if cond.value != "" {
			query = query.Where(cond.column+" = ?", cond.value)
		}
	}

	if filter.ActionPrefix != "" {
		query = query.Where("action LIKE ? ESCAPE '\\'", escapeLike(filter.ActionPrefix)+"%")
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at < ?", filter.Until)
	}
	return query
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

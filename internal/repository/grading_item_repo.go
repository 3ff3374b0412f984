package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// GradingItemRepository persists graded instances.
type GradingItemRepository interface {
	GetOrCreate(ctx context.Context, item *models.GradingItem) error
	Get(ctx context.Context, areaID, itemID string) (models.GradingItem, error)
	SetLocked(ctx context.Context, id uint, locked bool) error
	ListByArea(ctx context.Context, areaID string) ([]models.GradingItem, error)
}

type gradingItemRepository struct {
	db *gorm.DB
}

// NewGradingItemRepository constructs the grading item repository.
func NewGradingItemRepository(db *gorm.DB) GradingItemRepository {
	return &gradingItemRepository{db: db}
}

// GetOrCreate loads the item identified by AreaID and ItemID, creating it with the provided
// values when it does not exist yet.
func (r *gradingItemRepository) GetOrCreate(ctx context.Context, item *models.GradingItem) error {
	if item.Status == "" {
		item.Status = models.GradingItemStatusActive
	}
	return r.db.WithContext(ctx).
		Where(models.GradingItem{AreaID: item.AreaID, ItemID: item.ItemID}).
		Attrs(models.GradingItem{GradeeID: item.GradeeID, Title: item.Title, Status: item.Status, RawGrade: item.RawGrade}).
		FirstOrCreate(item).Error
}

func (r *gradingItemRepository) Get(ctx context.Context, areaID, itemID string) (models.GradingItem, error) {
	var item models.GradingItem
	if err := r.db.WithContext(ctx).Where("area_id = ? AND item_id = ?", areaID, itemID).First(&item).Error; err != nil {
		return models.GradingItem{}, err
	}
	return item, nil
}

func (r *gradingItemRepository) SetLocked(ctx context.Context, id uint, locked bool) error {
	return r.db.WithContext(ctx).Model(&models.GradingItem{}).Where("id = ?", id).Update("locked", locked).Error
}

func (r *gradingItemRepository) ListByArea(ctx context.Context, areaID string) ([]models.GradingItem, error) {
	var items []models.GradingItem
	if err := r.db.WithContext(ctx).Where("area_id = ?", areaID).Order("item_id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

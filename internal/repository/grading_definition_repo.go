package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// GradingDefinitionRepository persists multi-grader configurations keyed by grading area.
type GradingDefinitionRepository interface {
	GetByArea(ctx context.Context, areaID string) (models.GradingDefinition, error)
	Save(ctx context.Context, definition *models.GradingDefinition) error
	MarkItemsForRegrade(ctx context.Context, areaID string) (int64, error)
	DeleteArea(ctx context.Context, areaID string) error
	List(ctx context.Context) ([]models.GradingDefinition, error)
}

type gradingDefinitionRepository struct {
	db *gorm.DB
}

// NewGradingDefinitionRepository constructs the definition repository.
func NewGradingDefinitionRepository(db *gorm.DB) GradingDefinitionRepository {
	return &gradingDefinitionRepository{db: db}
}

func (r *gradingDefinitionRepository) GetByArea(ctx context.Context, areaID string) (models.GradingDefinition, error) {
	var definition models.GradingDefinition
	if err := r.db.WithContext(ctx).Where("area_id = ?", areaID).First(&definition).Error; err != nil {
		return models.GradingDefinition{}, err
	}
	return definition, nil
}

func (r *gradingDefinitionRepository) Save(ctx context.Context, definition *models.GradingDefinition) error {
	definition.ID = 0
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "area_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "secondary_graders", "criteria", "blind_marking", "show_intermediary_to_students",
			"auto_calculate_method", "grade_min", "grade_max", "scale", "outcomes", "formula",
			"version", "updated_by", "updated_at",
		}),
	})
	if err := tx.Create(definition).Error; err != nil {
		return err
	}

	saved, err := r.GetByArea(ctx, definition.AreaID)
	if err != nil {
		return err
	}
	*definition = saved
	return nil
}

// MarkItemsForRegrade flags every active item of the area so students stop seeing the
// published outcome until it is checked again.
func (r *gradingDefinitionRepository) MarkItemsForRegrade(ctx context.Context, areaID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GradingItem{}).
		Where("area_id = ? AND status = ?", areaID, models.GradingItemStatusActive).
		Update("status", models.GradingItemStatusNeedsUpdate)
	return result.RowsAffected, result.Error
}

// DeleteArea removes the definition together with every item and grade record of the area.
func (r *gradingDefinitionRepository) DeleteArea(ctx context.Context, areaID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := tx.Model(&models.GradingItem{}).Select("id").Where("area_id = ?", areaID)
		if err := tx.Where("grading_item_id IN (?)", items).Delete(&models.GradeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("area_id = ?", areaID).Delete(&models.GradingItem{}).Error; err != nil {
			return err
		}
		return tx.Where("area_id = ?", areaID).Delete(&models.GradingDefinition{}).Error
	})
}

func (r *gradingDefinitionRepository) List(ctx context.Context) ([]models.GradingDefinition, error) {
	var definitions []models.GradingDefinition
	if err := r.db.WithContext(ctx).Order("area_id ASC").Find(&definitions).Error; err != nil {
		return nil, err
	}
	return definitions, nil
}

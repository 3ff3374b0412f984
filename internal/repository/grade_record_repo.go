package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// ItemGradeUpdate is applied to the grading item in the same transaction as a record save.
type ItemGradeUpdate struct {
	RawGrade float64
	Status   string
}

// GradeRecordRepository persists grader submissions keyed by item and grader.
type GradeRecordRepository interface {
	ListByItem(ctx context.Context, itemID uint) ([]models.GradeRecord, error)
	Get(ctx context.Context, itemID uint, graderID string) (models.GradeRecord, error)
	Upsert(ctx context.Context, record *models.GradeRecord) error
	Save(ctx context.Context, record *models.GradeRecord, update *ItemGradeUpdate) error
	DeleteByGrader(ctx context.Context, itemID uint, graderID string) (int64, error)
	Wipe(ctx context.Context, itemID uint, rawGrade float64) (int64, error)
}

type gradeRecordRepository struct {
	db *gorm.DB
}

// NewGradeRecordRepository constructs the grade record repository.
func NewGradeRecordRepository(db *gorm.DB) GradeRecordRepository {
	return &gradeRecordRepository{db: db}
}

func (r *gradeRecordRepository) ListByItem(ctx context.Context, itemID uint) ([]models.GradeRecord, error) {
	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("grading_item_id = ?", itemID).
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *gradeRecordRepository) Get(ctx context.Context, itemID uint, graderID string) (models.GradeRecord, error) {
	return getRecord(r.db.WithContext(ctx), itemID, graderID)
}

// Upsert inserts the record or updates the grader's existing one in place. The original
// submission time is kept on update unless the stored record is a draft.
func (r *gradeRecordRepository) Upsert(ctx context.Context, record *models.GradeRecord) error {
	return upsertRecord(r.db.WithContext(ctx), record)
}

// Save upserts the record and applies update to its item atomically. Publishing a record
// demotes any other Final record of the item.
func (r *gradeRecordRepository) Save(ctx context.Context, record *models.GradeRecord, update *ItemGradeUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if record.Kind == models.GradeKindFinal {
			if err := tx.Model(&models.GradeRecord{}).
				Where("grading_item_id = ? AND grader_id <> ? AND kind = ?", record.GradingItemID, record.GraderID, models.GradeKindFinal).
				Update("kind", models.GradeKindIntermediate).Error; err != nil {
				return err
			}
		}

		if err := upsertRecord(tx, record); err != nil {
			return err
		}

		if update == nil {
			return nil
		}
		values := map[string]interface{}{"raw_grade": update.RawGrade}
		if update.Status != "" {
			values["status"] = update.Status
		}
		return tx.Model(&models.GradingItem{}).Where("id = ?", record.GradingItemID).Updates(values).Error
	})
}

func (r *gradeRecordRepository) DeleteByGrader(ctx context.Context, itemID uint, graderID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("grading_item_id = ? AND grader_id = ?", itemID, graderID).
		Delete(&models.GradeRecord{})
	return result.RowsAffected, result.Error
}

// Wipe deletes every record of the item and stores rawGrade as its published grade.
func (r *gradeRecordRepository) Wipe(ctx context.Context, itemID uint, rawGrade float64) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("grading_item_id = ?", itemID).Delete(&models.GradeRecord{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return tx.Model(&models.GradingItem{}).Where("id = ?", itemID).Update("raw_grade", rawGrade).Error
	})
	return deleted, err
}

func upsertRecord(db *gorm.DB, record *models.GradeRecord) error {
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	record.ID = 0

	updates := clause.AssignmentColumns([]string{
		"grade", "feedback", "kind", "visible_to_students", "require_second_grader",
		"draft", "outcomes", "updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "submitted_at"},
		Value:  gorm.Expr("CASE WHEN grade_records.draft THEN excluded.submitted_at ELSE grade_records.submitted_at END"),
	})

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grading_item_id"}, {Name: "grader_id"}},
		DoUpdates: updates,
	}).Create(record).Error; err != nil {
		return err
	}

	saved, err := getRecord(db, record.GradingItemID, record.GraderID)
	if err != nil {
		return err
	}
	*record = saved
	return nil
}

func getRecord(db *gorm.DB, itemID uint, graderID string) (models.GradeRecord, error) {
	var record models.GradeRecord
	if err := db.Where("grading_item_id = ? AND grader_id = ?", itemID, graderID).First(&record).Error; err != nil {
		return models.GradeRecord{}, err
	}
	return record, nil
}

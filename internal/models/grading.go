package models

import (
	"time"

	"gorm.io/datatypes"
)

// Grading item statuses.
const (
	GradingItemStatusActive      = "active"
	GradingItemStatusNeedsUpdate = "needs_update"
)

// Grade record kinds as stored.
const (
	GradeKindIntermediate = 0
	GradeKindFinal        = 1
)

// OutcomeSpec configures one outcome dimension of a grading area.
type OutcomeSpec struct {
	ID   string  `json:"id" toml:"id"`
	Name string  `json:"name" toml:"name"`
	Min  float64 `json:"min" toml:"min"`
	Max  float64 `json:"max" toml:"max"`
}

// GradingDefinition is the multi-grader configuration of one grading area.
type GradingDefinition struct {
	ID                         uint                             `gorm:"primaryKey" json:"id"`
	AreaID                     string                           `gorm:"size:64;uniqueIndex;not null" json:"area_id"`
	Name                       string                           `gorm:"size:255" json:"name"`
	SecondaryGraders           datatypes.JSONSlice[string]      `gorm:"type:json" json:"secondary_graders"`
	Criteria                   string                           `gorm:"type:text" json:"criteria"`
	BlindMarking               bool                             `gorm:"not null" json:"blind_marking"`
	ShowIntermediaryToStudents bool                             `gorm:"not null" json:"show_intermediary_to_students"`
	AutoCalculateMethod        string                           `gorm:"size:16;not null" json:"auto_calculate_method"`
	GradeMin                   float64                          `json:"grade_min"`
	GradeMax                   float64                          `json:"grade_max"`
	Scale                      datatypes.JSONSlice[float64]     `gorm:"type:json" json:"scale"`
	Outcomes                   datatypes.JSONSlice[OutcomeSpec] `gorm:"type:json" json:"outcomes"`
	Formula                    string                           `gorm:"type:text" json:"formula"`
	Version                    int                              `gorm:"not null;default:1" json:"version"`
	UpdatedBy                  string                           `gorm:"size:64" json:"updated_by"`
	CreatedAt                  time.Time                        `json:"created_at"`
	UpdatedAt                  time.Time                        `json:"updated_at"`
}

// GradingItem is one graded instance: a gradable item of one person inside an area.
type GradingItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AreaID    string    `gorm:"size:64;not null;uniqueIndex:idx_grading_item_area_item" json:"area_id"`
	ItemID    string    `gorm:"size:64;not null;uniqueIndex:idx_grading_item_area_item" json:"item_id"`
	GradeeID  string    `gorm:"size:64;index" json:"gradee_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	Locked    bool      `gorm:"not null" json:"locked"`
	RawGrade  float64   `gorm:"not null" json:"raw_grade"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GradeRecord is one grader's submission for a grading item. A grader has at most one record per item.
type GradeRecord struct {
	ID                  uint                                   `gorm:"primaryKey" json:"id"`
	GradingItemID       uint                                   `gorm:"not null;uniqueIndex:idx_grade_record_item_grader" json:"grading_item_id"`
	GraderID            string                                 `gorm:"size:64;not null;uniqueIndex:idx_grade_record_item_grader" json:"grader_id"`
	Grade               *float64                               `json:"grade"`
	Feedback            string                                 `gorm:"type:text" json:"feedback"`
	Kind                int                                    `gorm:"not null" json:"kind"`
	VisibleToStudents   bool                                   `gorm:"not null" json:"visible_to_students"`
	RequireSecondGrader bool                                   `gorm:"not null" json:"require_second_grader"`
	Draft               bool                                   `gorm:"not null" json:"draft"`
	Outcomes            datatypes.JSONType[map[string]float64] `gorm:"type:json" json:"outcomes"`
	SubmittedAt         time.Time                              `gorm:"not null;index" json:"submitted_at"`
	UpdatedAt           time.Time                              `json:"updated_at"`
}

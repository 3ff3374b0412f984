package dto

import "time"

// OutcomeRequest configures one outcome dimension.
type OutcomeRequest struct {
	ID   string  `json:"id" validate:"required,max=64"`
	Name string  `json:"name" validate:"max=255"`
	Min  float64 `json:"min" validate:"gte=0"`
	Max  float64 `json:"max" validate:"gtfield=Min"`
}

// DefinitionRequest updates the multi-grader configuration of an area. Omitted pointer fields
// keep their defaults.
type DefinitionRequest struct {
	Name                       string           `json:"name" validate:"max=255"`
	SecondaryGraders           []string         `json:"secondary_graders" validate:"omitempty,max=200,dive,max=64"`
	Criteria                   string           `json:"criteria" validate:"max=20000"`
	BlindMarking               *bool            `json:"blind_marking"`
	ShowIntermediaryToStudents *bool            `json:"show_intermediary_to_students"`
	AutoCalculateMethod        string           `json:"auto_calculate_method" validate:"omitempty,oneof=last min max average"`
	GradeMin                   *float64         `json:"grade_min" validate:"omitempty,gte=0"`
	GradeMax                   *float64         `json:"grade_max" validate:"omitempty,gt=0"`
	Scale                      []float64        `json:"scale" validate:"omitempty,max=100,dive,gte=0"`
	Outcomes                   []OutcomeRequest `json:"outcomes" validate:"omitempty,max=50,dive"`
	Formula                    string           `json:"formula" validate:"max=2000"`
}

// OutcomeResponse serializes an outcome dimension.
type OutcomeResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// DefinitionResponse serializes an area configuration.
type DefinitionResponse struct {
	AreaID                     string            `json:"area_id"`
	Name                       string            `json:"name"`
	SecondaryGraders           []string          `json:"secondary_graders"`
	Criteria                   string            `json:"criteria"`
	BlindMarking               bool              `json:"blind_marking"`
	ShowIntermediaryToStudents bool              `json:"show_intermediary_to_students"`
	AutoCalculateMethod        string            `json:"auto_calculate_method"`
	GradeMin                   float64           `json:"grade_min"`
	GradeMax                   float64           `json:"grade_max"`
	Scale                      []float64         `json:"scale"`
	Outcomes                   []OutcomeResponse `json:"outcomes"`
	Formula                    string            `json:"formula"`
	Version                    int               `json:"version"`
	Stored                     bool              `json:"stored"`
	UpdatedBy                  string            `json:"updated_by,omitempty"`
	UpdatedAt                  *time.Time        `json:"updated_at,omitempty"`
}

// DefinitionSaveResponse reports a saved configuration and its effect on graded items.
type DefinitionSaveResponse struct {
	Definition  DefinitionResponse `json:"definition"`
	ChangeLevel int                `json:"change_level"`
	ItemsMarked int64              `json:"items_marked_for_regrade"`
}

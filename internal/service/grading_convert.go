package service

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/models"
)

func defaultDefinitionModel(areaID string) models.GradingDefinition {
	def := grading.DefaultDefinition()
	return models.GradingDefinition{
		AreaID:                     areaID,
		SecondaryGraders:           datatypes.JSONSlice[string]{},
		BlindMarking:               def.BlindMarking,
		ShowIntermediaryToStudents: def.ShowIntermediaryToStudents,
		AutoCalculateMethod:        def.Method.String(),
		GradeMin:                   def.GradeRange.Min,
		GradeMax:                   def.GradeRange.Max,
		Scale:                      datatypes.JSONSlice[float64]{},
		Outcomes:                   datatypes.JSONSlice[models.OutcomeSpec]{},
	}
}

func toEngineDefinition(model models.GradingDefinition) grading.Definition {
	outcomes := make([]grading.Outcome, 0, len(model.Outcomes))
	for _, spec := range model.Outcomes {
		outcomes = append(outcomes, grading.Outcome{
			ID:    spec.ID,
			Name:  spec.Name,
			Range: grading.Range{Min: spec.Min, Max: spec.Max},
		})
	}
	return grading.Definition{
		SecondaryGraders:           append([]string(nil), model.SecondaryGraders...),
		Criteria:                   model.Criteria,
		BlindMarking:               model.BlindMarking,
		ShowIntermediaryToStudents: model.ShowIntermediaryToStudents,
		Method:                     grading.ParseMethod(model.AutoCalculateMethod),
		GradeRange:                 grading.Range{Min: model.GradeMin, Max: model.GradeMax},
		Scale:                      append([]float64(nil), model.Scale...),
		Outcomes:                   outcomes,
		Formula:                    strings.TrimSpace(model.Formula),
	}
}

func toEngineRecord(model models.GradeRecord) grading.Record {
	kind := grading.KindIntermediate
	if model.Kind == models.GradeKindFinal {
		kind = grading.KindFinal
	}
	return grading.Record{
		Grader:              model.GraderID,
		Grade:               model.Grade,
		Feedback:            model.Feedback,
		Kind:                kind,
		SubmittedAt:         model.SubmittedAt,
		VisibleToStudents:   model.VisibleToStudents,
		RequireSecondGrader: model.RequireSecondGrader,
		Draft:               model.Draft,
		Outcomes:            model.Outcomes.Data(),
	}
}

func toEngineRecords(rows []models.GradeRecord) []grading.Record {
	records := make([]grading.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toEngineRecord(row))
	}
	return records
}

func toEngineItem(item models.GradingItem) grading.ItemState {
	return grading.ItemState{
		Locked:       item.Locked,
		NeedsRegrade: item.Status == models.GradingItemStatusNeedsUpdate,
	}
}

func newDefinitionResponse(model models.GradingDefinition) dto.DefinitionResponse {
	outcomes := make([]dto.OutcomeResponse, 0, len(model.Outcomes))
	for _, spec := range model.Outcomes {
		outcomes = append(outcomes, dto.OutcomeResponse{ID: spec.ID, Name: spec.Name, Min: spec.Min, Max: spec.Max})
	}
	response := dto.DefinitionResponse{
		AreaID:                     model.AreaID,
		Name:                       model.Name,
		SecondaryGraders:           append([]string{}, model.SecondaryGraders...),
		Criteria:                   model.Criteria,
		BlindMarking:               model.BlindMarking,
		ShowIntermediaryToStudents: model.ShowIntermediaryToStudents,
		AutoCalculateMethod:        grading.ParseMethod(model.AutoCalculateMethod).String(),
		GradeMin:                   model.GradeMin,
		GradeMax:                   model.GradeMax,
		Scale:                      append([]float64{}, model.Scale...),
		Outcomes:                   outcomes,
		Formula:                    model.Formula,
		Version:                    model.Version,
		Stored:                     model.ID != 0,
		UpdatedBy:                  model.UpdatedBy,
	}
	if model.ID != 0 {
		updated := model.UpdatedAt
		response.UpdatedAt = &updated
	}
	return response
}

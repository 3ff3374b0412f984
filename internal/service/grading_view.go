package service

import (
	"context"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/observability"
)

// render turns an engine decision into the response the viewer receives.
func (s *gradingService) render(ctx context.Context, snapshot itemSnapshot, state grading.State) dto.GradingViewResponse {
	ids := make([]string, 0, len(state.Visible)+1)
	if state.First != nil {
		ids = append(ids, state.First.Grader)
	}
	for _, record := range state.Visible {
		ids = append(ids, record.Grader)
	}
	if state.NoticeSubject != "" {
		ids = append(ids, state.NoticeSubject)
	}
	names := s.directory.DisplayNames(ctx, ids)

	primary := ""
	if state.First != nil {
		primary = state.First.Grader
	}

	response := dto.GradingViewResponse{
		AreaID:          snapshot.item.AreaID,
		ItemID:          snapshot.item.ItemID,
		Intent:          state.Intent.String(),
		Status:          snapshot.item.Status,
		CanGrade:        state.CanGrade,
		CanPublish:      state.CanPublish,
		IsPrimary:       state.IsPrimary,
		BlindMarking:    state.Blind,
		PrimaryGraderID: primary,
		PublishedGrade:  state.PublishedGrade(),
		Records:         make([]dto.GradeRecordResponse, 0, len(state.Visible)),
	}
	if state.Intent != grading.IntentStudent {
		response.Criteria = snapshot.engineDef.Criteria
	}

	subject := names[state.NoticeSubject]
	if state.Notice != grading.NoticeNone {
		response.Notice = &dto.NoticeResponse{Code: string(state.Notice), Message: grading.Message(state.Notice, subject)}
	}
	for _, note := range state.Notes {
		response.Notes = append(response.Notes, dto.NoticeResponse{Code: string(note), Message: grading.Message(note, subject)})
	}
	if snapshot.engineDef.BlindMarking && state.Intent == grading.IntentEdit {
		response.Notes = append(response.Notes, dto.NoticeResponse{Code: "blind_marking", Message: grading.BlindMarkingExplained})
	}

	for _, record := range state.Visible {
		response.Records = append(response.Records, recordResponse(record, names, primary))
	}
	if state.Current != nil && state.Intent == grading.IntentEdit {
		current := recordResponse(*state.Current, names, primary)
		response.Current = &current
	}

	if state.Proposal != nil {
		response.Proposal = s.proposalResponse(snapshot, *state.Proposal)
	}
	return response
}

func recordResponse(record grading.Record, names map[string]string, primary string) dto.GradeRecordResponse {
	name := names[record.Grader]
	if name == "" {
		name = record.Grader
	}
	return dto.GradeRecordResponse{
		GraderID:            record.Grader,
		GraderName:          name,
		Grade:               record.Grade,
		Feedback:            record.Feedback,
		Kind:                record.Kind.String(),
		VisibleToStudents:   record.VisibleToStudents,
		RequireSecondGrader: record.RequireSecondGrader,
		Draft:               record.Draft,
		Outcomes:            record.Outcomes,
		SubmittedAt:         record.SubmittedAt,
		IsPrimary:           record.Grader == primary,
	}
}

func (s *gradingService) proposalResponse(snapshot itemSnapshot, proposal grading.Proposal) *dto.ProposalResponse {
	response := &dto.ProposalResponse{
		Grade:        proposal.Grade,
		Outcomes:     proposal.Outcomes,
		FormulaGrade: proposal.FormulaGrade,
	}
	if proposal.FormulaErr != nil {
		observability.FormulaFailuresTotal().Inc()
		s.logger.Warn().Err(proposal.FormulaErr).
			Str("area_id", snapshot.item.AreaID).
			Str("item_id", snapshot.item.ItemID).
			Msg("formula evaluation failed")
		response.FormulaError = proposal.FormulaErr.Error()
	}
	if proposal.Warning != nil {
		response.Warning = proposal.Warning.Error()
	}
	return response
}

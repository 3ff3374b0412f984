package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/models"
	"github.com/noah-isme/gema-multigraders/internal/observability"
	"github.com/noah-isme/gema-multigraders/internal/repository"
)

// GradingService runs the multi-grader workflow for grading items.
type GradingService interface {
	View(ctx context.Context, actor Actor, areaID, itemID, view string) (dto.GradingViewResponse, error)
	Submit(ctx context.Context, actor Actor, areaID, itemID string, req dto.GradeSubmissionRequest) (dto.GradeSubmissionResponse, error)
	Cancel(ctx context.Context, actor Actor, areaID, itemID string) (dto.GradeCancelResponse, error)
	Wipe(ctx context.Context, actor Actor, areaID, itemID string) (dto.GradeWipeResponse, error)
	PreviewFormula(ctx context.Context, areaID string, req dto.FormulaPreviewRequest) (dto.FormulaPreviewResponse, error)
}

// GradingRepositories groups the stores the grading service works on.
type GradingRepositories struct {
	Items   repository.GradingItemRepository
	Records repository.GradeRecordRepository
}

type gradingService struct {
	definitions DefinitionService
	items       repository.GradingItemRepository
	records     repository.GradeRecordRepository
	directory   UserDirectory
	notifier    Notifier
	activity    ActivityRecorder
	validator   *validator.Validate
	policy      *bluemonday.Policy
	linkBase    string
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService constructs the grading service. notifier and activity may be nil.
func NewGradingService(definitions DefinitionService, repos GradingRepositories, directory UserDirectory, notifier Notifier, activity ActivityRecorder, validate *validator.Validate, linkBase string, logger zerolog.Logger) GradingService {
	return &gradingService{
		definitions: definitions,
		items:       repos.Items,
		records:     repos.Records,
		directory:   directory,
		notifier:    notifier,
		activity:    activity,
		validator:   validate,
		policy:      bluemonday.UGCPolicy(),
		linkBase:    strings.TrimRight(linkBase, "/"),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-multigraders/internal/service/grading"),
		now:         time.Now,
	}
}

type itemSnapshot struct {
	definition models.GradingDefinition
	engineDef  grading.Definition
	item       models.GradingItem
	records    []grading.Record
}

func (s *gradingService) load(ctx context.Context, areaID string, item models.GradingItem) (itemSnapshot, error) {
	definition, err := s.definitions.Resolve(ctx, areaID)
	if err != nil {
		return itemSnapshot{}, err
	}

	if err := s.items.GetOrCreate(ctx, &item); err != nil {
		return itemSnapshot{}, err
	}

	rows, err := s.records.ListByItem(ctx, item.ID)
	if err != nil {
		return itemSnapshot{}, err
	}

	return itemSnapshot{
		definition: definition,
		engineDef:  toEngineDefinition(definition),
		item:       item,
		records:    toEngineRecords(rows),
	}, nil
}

func newItem(areaID, itemID string) models.GradingItem {
	return models.GradingItem{
		AreaID:   areaID,
		ItemID:   itemID,
		Status:   models.GradingItemStatusActive,
		RawGrade: grading.NoGrade,
	}
}

func (s *gradingService) View(ctx context.Context, actor Actor, areaID, itemID, view string) (dto.GradingViewResponse, error) {
	viewer := actor.Viewer()
	intent := grading.ResolveIntent(viewer, view)

	spanCtx, span := s.tracer.Start(ctx, "grading.view", trace.WithAttributes(
		attribute.String("grading.area_id", areaID),
		attribute.String("grading.item_id", itemID),
		attribute.String("grading.intent", intent.String()),
	))
	defer span.End()

	snapshot, err := s.load(spanCtx, areaID, newItem(areaID, itemID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load item")
		return dto.GradingViewResponse{}, err
	}

	state := grading.Evaluate(snapshot.engineDef, toEngineItem(snapshot.item), snapshot.records, viewer, intent)
	return s.render(spanCtx, snapshot, state), nil
}

func (s *gradingService) Submit(ctx context.Context, actor Actor, areaID, itemID string, req dto.GradeSubmissionRequest) (dto.GradeSubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradeSubmissionResponse{}, err
	}

	viewer := actor.Viewer()
	spanCtx, span := s.tracer.Start(ctx, "grading.submit", trace.WithAttributes(
		attribute.String("grading.area_id", areaID),
		attribute.String("grading.item_id", itemID),
		attribute.String("grading.grader_id", viewer.ID),
	))
	defer span.End()

	item := newItem(areaID, itemID)
	item.GradeeID = strings.TrimSpace(req.GradeeID)
	item.Title = strings.TrimSpace(req.ItemTitle)
	snapshot, err := s.load(spanCtx, areaID, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load item")
		return dto.GradeSubmissionResponse{}, err
	}

	state := grading.Evaluate(snapshot.engineDef, toEngineItem(snapshot.item), snapshot.records, viewer, grading.IntentEdit)
	if !state.CanGrade {
		observability.SubmissionsTotal().WithLabelValues("none", "denied").Inc()
		s.logger.Info().
			Str("area_id", areaID).
			Str("item_id", itemID).
			Str("grader_id", viewer.ID).
			Str("notice", string(state.Notice)).
			Msg("grade submission denied")
		return dto.GradeSubmissionResponse{View: s.render(spanCtx, snapshot, state)}, ErrPermissionDenied
	}

	submission := toSubmission(req)
	if submission.IsEmpty() {
		observability.SubmissionsTotal().WithLabelValues("none", "empty").Inc()
		return dto.GradeSubmissionResponse{Saved: false, Notified: []string{}, View: s.render(spanCtx, snapshot, state)}, nil
	}

	kind := grading.KindIntermediate
	if state.CanPublish && submission.Publish && !submission.RequireSecondGrader && !submission.Draft {
		kind = grading.KindFinal
	}

	parsed, err := grading.ParseSubmission(snapshot.engineDef, viewer.ID, kind, submission)
	if err != nil {
		observability.SubmissionsTotal().WithLabelValues(kind.String(), "invalid").Inc()
		return dto.GradeSubmissionResponse{View: s.render(spanCtx, snapshot, state)}, err
	}

	record := models.GradeRecord{
		GradingItemID:       snapshot.item.ID,
		GraderID:            viewer.ID,
		Grade:               parsed.Grade,
		Feedback:            strings.TrimSpace(s.policy.Sanitize(submission.Feedback)),
		Kind:                int(kind),
		VisibleToStudents:   submission.VisibleToStudents,
		RequireSecondGrader: submission.RequireSecondGrader,
		Draft:               submission.Draft,
		Outcomes:            datatypes.NewJSONType(parsed.Outcomes),
		SubmittedAt:         s.now().UTC(),
	}

	if err := s.records.Save(spanCtx, &record, itemUpdate(state, kind, parsed.Grade, submission.Draft)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save record")
		observability.SubmissionsTotal().WithLabelValues(kind.String(), "error").Inc()
		return dto.GradeSubmissionResponse{}, err
	}
	observability.SubmissionsTotal().WithLabelValues(kind.String(), "saved").Inc()

	saved := toEngineRecord(record)
	first := saved
	if state.First != nil && state.First.Grader != viewer.ID {
		first = *state.First
	}

	var prior *grading.Record
	if state.Current != nil && !state.Current.Draft {
		previous := *state.Current
		prior = &previous
	}

	notified := s.notify(spanCtx, snapshot, grading.PlanNotifications(snapshot.engineDef, prior, saved, first))

	action := "grade.submitted"
	switch {
	case submission.Draft:
		action = "grade.drafted"
	case kind == grading.KindFinal:
		action = "grade.published"
	}
	s.record(spanCtx, actor, action, snapshot.item, map[string]interface{}{
		"kind":                  kind.String(),
		"require_second_grader": submission.RequireSecondGrader,
		"notified":              len(notified),
	})

	s.logger.Info().
		Str("area_id", areaID).
		Str("item_id", itemID).
		Str("grader_id", viewer.ID).
		Str("kind", kind.String()).
		Bool("draft", submission.Draft).
		Int("notified", len(notified)).
		Msg("grade saved")

	refreshed, err := s.load(spanCtx, areaID, newItem(areaID, itemID))
	if err != nil {
		return dto.GradeSubmissionResponse{}, err
	}
	after := grading.Evaluate(refreshed.engineDef, toEngineItem(refreshed.item), refreshed.records, viewer, grading.IntentEdit)
	view := s.render(spanCtx, refreshed, after)

	return dto.GradeSubmissionResponse{
		Saved:    true,
		Record:   view.Current,
		Notified: notified,
		View:     view,
	}, nil
}

// itemUpdate decides the published grade of the item after a save. Publishing stores the grade
// and clears a pending regrade. A primary save that is not published withdraws the published
// grade unless another grader's record is the final one.
func itemUpdate(state grading.State, kind grading.Kind, grade *float64, draft bool) *repository.ItemGradeUpdate {
	if draft {
		return nil
	}
	if kind == grading.KindFinal {
		raw := grading.NoGrade
		if grade != nil {
			raw = *grade
		}
		return &repository.ItemGradeUpdate{RawGrade: raw, Status: models.GradingItemStatusActive}
	}
	if state.IsPrimary && (state.Final == nil || state.Current != nil && state.Final.Grader == state.Current.Grader) {
		return &repository.ItemGradeUpdate{RawGrade: grading.NoGrade}
	}
	return nil
}

func toSubmission(req dto.GradeSubmissionRequest) grading.Submission {
	visible := true
	if req.VisibleToStudents != nil {
		visible = *req.VisibleToStudents
	}
	var outcomes map[string]string
	if len(req.Outcomes) > 0 {
		outcomes = make(map[string]string, len(req.Outcomes))
		for id, value := range req.Outcomes {
			outcomes[id] = string(value)
		}
	}
	return grading.Submission{
		Grade:               string(req.Grade),
		Feedback:            req.Feedback,
		Outcomes:            outcomes,
		VisibleToStudents:   visible,
		RequireSecondGrader: req.RequireSecondGrader,
		Publish:             req.Publish,
		Draft:               req.Draft,
	}
}

// notify delivers the planned notifications. Failures are logged and never undo the save.
func (s *gradingService) notify(ctx context.Context, snapshot itemSnapshot, dispatch *grading.Dispatch) []string {
	delivered := []string{}
	if dispatch == nil || s.notifier == nil {
		return delivered
	}

	names := s.directory.DisplayNames(ctx, []string{dispatch.Sender, snapshot.item.GradeeID})
	itemName := snapshot.item.Title
	if itemName == "" {
		itemName = names[snapshot.item.GradeeID]
	}
	if itemName == "" {
		itemName = snapshot.item.ItemID
	}
	subject, body := grading.NotificationText(dispatch.Kind, names[dispatch.Sender], itemName)

	for _, recipient := range dispatch.Recipients {
		_, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:   recipient,
			Type:     string(dispatch.Kind),
			Subject:  subject,
			Message:  body,
			Link:     s.itemLink(snapshot.item),
			SenderID: dispatch.Sender,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("recipient", recipient).
				Str("type", string(dispatch.Kind)).
				Msg("failed to notify grader")
			continue
		}
		delivered = append(delivered, recipient)
	}
	return delivered
}

func (s *gradingService) itemLink(item models.GradingItem) string {
	path := fmt.Sprintf("/grading/areas/%s/items/%s", url.PathEscape(item.AreaID), url.PathEscape(item.ItemID))
	return s.linkBase + path
}

func (s *gradingService) Cancel(ctx context.Context, actor Actor, areaID, itemID string) (dto.GradeCancelResponse, error) {
	item, err := s.items.Get(ctx, areaID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.GradeCancelResponse{Cancelled: false}, nil
	}
	if err != nil {
		return dto.GradeCancelResponse{}, err
	}

	record, err := s.records.Get(ctx, item.ID, actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.GradeCancelResponse{Cancelled: false}, nil
	}
	if err != nil {
		return dto.GradeCancelResponse{}, err
	}
	if !record.Draft {
		return dto.GradeCancelResponse{Cancelled: false}, nil
	}

	deleted, err := s.records.DeleteByGrader(ctx, item.ID, actor.ID)
	if err != nil {
		return dto.GradeCancelResponse{}, err
	}

	s.record(ctx, actor, "grade.cancelled", item, nil)
	return dto.GradeCancelResponse{Cancelled: deleted > 0}, nil
}

// Wipe deletes every record of an item. Callers without the site configuration capability get
// a silent no-op.
func (s *gradingService) Wipe(ctx context.Context, actor Actor, areaID, itemID string) (dto.GradeWipeResponse, error) {
	if !actor.Viewer().IsSiteAdmin() {
		s.logger.Debug().Str("actor_id", actor.ID).Str("item_id", itemID).Msg("wipe ignored without site configuration capability")
		return dto.GradeWipeResponse{Wiped: false}, nil
	}

	spanCtx, span := s.tracer.Start(ctx, "grading.wipe", trace.WithAttributes(
		attribute.String("grading.area_id", areaID),
		attribute.String("grading.item_id", itemID),
	))
	defer span.End()

	item, err := s.items.Get(spanCtx, areaID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.GradeWipeResponse{}, ErrItemNotFound
	}
	if err != nil {
		span.RecordError(err)
		return dto.GradeWipeResponse{}, err
	}

	deleted, err := s.records.Wipe(spanCtx, item.ID, grading.NoGrade)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wipe records")
		return dto.GradeWipeResponse{}, err
	}

	observability.WipesTotal().Inc()
	s.record(spanCtx, actor, "grades.wiped", item, map[string]interface{}{"deleted": deleted})
	s.logger.Warn().
		Str("actor_id", actor.ID).
		Str("area_id", areaID).
		Str("item_id", itemID).
		Int64("deleted", deleted).
		Msg("grading item wiped")

	return dto.GradeWipeResponse{Wiped: true, Deleted: deleted}, nil
}

func (s *gradingService) PreviewFormula(ctx context.Context, areaID string, req dto.FormulaPreviewRequest) (dto.FormulaPreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.FormulaPreviewResponse{}, err
	}

	definition, err := s.definitions.Resolve(ctx, areaID)
	if err != nil {
		return dto.FormulaPreviewResponse{}, err
	}
	def := toEngineDefinition(definition)
	if formula := strings.TrimSpace(req.Formula); formula != "" {
		def.Formula = formula
	}
	if def.Formula == "" {
		return dto.FormulaPreviewResponse{Error: grading.ErrNoFormula.Error()}, nil
	}

	raw := make(map[string]string, len(req.Outcomes))
	for id, value := range req.Outcomes {
		raw[id] = string(value)
	}
	parsed, err := grading.ParseSubmission(def, "preview", grading.KindIntermediate, grading.Submission{Outcomes: raw})
	if err != nil {
		return dto.FormulaPreviewResponse{}, err
	}

	expression, err := grading.ExpandFormula(def.Formula, parsed.Outcomes, def.Outcomes, def.GradeRange)
	if err != nil {
		observability.FormulaFailuresTotal().Inc()
		return dto.FormulaPreviewResponse{Error: err.Error()}, nil
	}

	response := dto.FormulaPreviewResponse{Expression: expression}
	value, err := grading.ComputeGrade(def, parsed.Outcomes)
	if err != nil {
		observability.FormulaFailuresTotal().Inc()
		response.Error = err.Error()
		return response, nil
	}
	response.Grade = &value
	return response, nil
}

func (s *gradingService) record(ctx context.Context, actor Actor, action string, item models.GradingItem, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "grading_item",
		EntityID:   fmt.Sprintf("%s/%s", item.AreaID, item.ItemID),
		AreaID:     item.AreaID,
		ItemID:     item.ItemID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

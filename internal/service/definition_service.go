package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
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

// Definition change levels. Scoring changes invalidate grades already published.
const (
	ChangeNone    = 0
	ChangeMinor   = 1
	ChangeScoring = 5
)

var criteriaPolicy = bluemonday.UGCPolicy()

// DefinitionService manages per-area multi-grader configuration.
type DefinitionService interface {
	Resolve(ctx context.Context, areaID string) (models.GradingDefinition, error)
	Get(ctx context.Context, areaID string) (dto.DefinitionResponse, error)
	Save(ctx context.Context, actor Actor, areaID string, req dto.DefinitionRequest) (dto.DefinitionSaveResponse, error)
	Delete(ctx context.Context, actor Actor, areaID string) error
}

type definitionService struct {
	repo      repository.GradingDefinitionRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewDefinitionService constructs the definition service. cache may be nil.
func NewDefinitionService(repo repository.GradingDefinitionRepository, cache *redis.Client, ttl time.Duration, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) DefinitionService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &definitionService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  ttl,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "definition_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-multigraders/internal/service/definition"),
	}
}

func definitionCacheKey(areaID string) string {
	return fmt.Sprintf("multigraders:definition:%s", areaID)
}

// Resolve returns the stored definition of the area, or the defaults when none is stored.
func (s *definitionService) Resolve(ctx context.Context, areaID string) (models.GradingDefinition, error) {
	key := definitionCacheKey(areaID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var definition models.GradingDefinition
			if unmarshalErr := json.Unmarshal([]byte(cached), &definition); unmarshalErr == nil {
				observability.DefinitionCache().WithLabelValues("hit").Inc()
				return definition, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("area_id", areaID).Msg("failed to read definition cache")
		}
		observability.DefinitionCache().WithLabelValues("miss").Inc()
	}

	definition, err := s.repo.GetByArea(ctx, areaID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		definition = defaultDefinitionModel(areaID)
	case err != nil:
		return models.GradingDefinition{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(definition); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Str("area_id", areaID).Msg("failed to store definition cache")
			}
		}
	}
	return definition, nil
}

func (s *definitionService) Get(ctx context.Context, areaID string) (dto.DefinitionResponse, error) {
	definition, err := s.Resolve(ctx, areaID)
	if err != nil {
		return dto.DefinitionResponse{}, err
	}
	return newDefinitionResponse(definition), nil
}

func (s *definitionService) Save(ctx context.Context, actor Actor, areaID string, req dto.DefinitionRequest) (dto.DefinitionSaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DefinitionSaveResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "definitions.save", trace.WithAttributes(
		attribute.String("grading.area_id", areaID),
		attribute.String("actor.id", actor.ID),
	))
	defer span.End()

	next, err := buildDefinition(areaID, req)
	if err != nil {
		return dto.DefinitionSaveResponse{}, err
	}

	existing, err := s.repo.GetByArea(spanCtx, areaID)
	stored := true
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		stored = false
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "load definition")
		return dto.DefinitionSaveResponse{}, err
	}

	level := ChangeNone
	if stored {
		level = ChangeLevel(existing, next)
		if level == ChangeNone {
			return dto.DefinitionSaveResponse{Definition: newDefinitionResponse(existing), ChangeLevel: level}, nil
		}
		next.Version = existing.Version + 1
	} else {
		next.Version = 1
	}
	next.UpdatedBy = actor.ID

	if err := s.repo.Save(spanCtx, &next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save definition")
		return dto.DefinitionSaveResponse{}, err
	}

	var marked int64
	if level >= ChangeScoring {
		marked, err = s.repo.MarkItemsForRegrade(spanCtx, areaID)
		if err != nil {
			span.RecordError(err)
			return dto.DefinitionSaveResponse{}, err
		}
	}

	s.invalidate(spanCtx, areaID)
	s.record(spanCtx, actor, "definition.saved", areaID, map[string]interface{}{
		"version":      next.Version,
		"change_level": level,
		"regraded":     marked,
	})
	s.logger.Info().
		Str("area_id", areaID).
		Int("version", next.Version).
		Int("change_level", level).
		Int64("items_marked", marked).
		Msg("grading definition saved")

	return dto.DefinitionSaveResponse{
		Definition:  newDefinitionResponse(next),
		ChangeLevel: level,
		ItemsMarked: marked,
	}, nil
}

func (s *definitionService) Delete(ctx context.Context, actor Actor, areaID string) error {
	if err := s.repo.DeleteArea(ctx, areaID); err != nil {
		return err
	}
	s.invalidate(ctx, areaID)
	s.record(ctx, actor, "definition.deleted", areaID, nil)
	s.logger.Info().Str("area_id", areaID).Msg("grading definition deleted")
	return nil
}

func (s *definitionService) invalidate(ctx context.Context, areaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, definitionCacheKey(areaID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("area_id", areaID).Msg("failed to invalidate definition cache")
	}
}

func (s *definitionService) record(ctx context.Context, actor Actor, action, areaID string, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "grading_definition",
		EntityID:   areaID,
		AreaID:     areaID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func buildDefinition(areaID string, req dto.DefinitionRequest) (models.GradingDefinition, error) {
	definition := defaultDefinitionModel(areaID)
	definition.Name = strings.TrimSpace(req.Name)
	definition.Criteria = criteriaPolicy.Sanitize(req.Criteria)
	definition.Formula = strings.TrimSpace(req.Formula)
	if req.AutoCalculateMethod != "" {
		definition.AutoCalculateMethod = grading.ParseMethod(req.AutoCalculateMethod).String()
	}
	if req.BlindMarking != nil {
		definition.BlindMarking = *req.BlindMarking
	}
	if req.ShowIntermediaryToStudents != nil {
		definition.ShowIntermediaryToStudents = *req.ShowIntermediaryToStudents
	}
	if req.GradeMin != nil {
		definition.GradeMin = *req.GradeMin
	}
	if req.GradeMax != nil {
		definition.GradeMax = *req.GradeMax
	}
	if definition.GradeMax <= definition.GradeMin {
		return models.GradingDefinition{}, &InvalidDefinitionError{Field: "grade_max", Message: "must be greater than grade_min"}
	}

	graders := make([]string, 0, len(req.SecondaryGraders))
	seen := make(map[string]struct{}, len(req.SecondaryGraders))
	for _, id := range req.SecondaryGraders {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		graders = append(graders, id)
	}
	definition.SecondaryGraders = datatypes.JSONSlice[string](graders)

	scale := append([]float64{}, req.Scale...)
	sort.Float64s(scale)
	for _, step := range scale {
		if step < definition.GradeMin || step > definition.GradeMax || math.IsNaN(step) {
			return models.GradingDefinition{}, &InvalidDefinitionError{Field: "scale", Message: "steps must lie within the grade range"}
		}
	}
	definition.Scale = datatypes.JSONSlice[float64](scale)

	outcomes := make([]models.OutcomeSpec, 0, len(req.Outcomes))
	outcomeIDs := make(map[string]struct{}, len(req.Outcomes))
	for _, outcome := range req.Outcomes {
		id := strings.TrimSpace(outcome.ID)
		if _, ok := outcomeIDs[id]; ok {
			return models.GradingDefinition{}, &InvalidDefinitionError{Field: "outcomes", Message: fmt.Sprintf("duplicate outcome id %q", id)}
		}
		outcomeIDs[id] = struct{}{}
		outcomes = append(outcomes, models.OutcomeSpec{ID: id, Name: strings.TrimSpace(outcome.Name), Min: outcome.Min, Max: outcome.Max})
	}
	definition.Outcomes = datatypes.JSONSlice[models.OutcomeSpec](outcomes)

	if definition.Formula != "" {
		if err := grading.CheckFormula(definition.Formula); err != nil {
			return models.GradingDefinition{}, &InvalidDefinitionError{Field: "formula", Message: err.Error()}
		}
	}
	return definition, nil
}

// ChangeLevel classifies the difference between two definitions of the same area.
func ChangeLevel(previous, next models.GradingDefinition) int {
	scoring := previous.AutoCalculateMethod != next.AutoCalculateMethod ||
		previous.GradeMin != next.GradeMin ||
		previous.GradeMax != next.GradeMax ||
		previous.Formula != next.Formula ||
		!sameScale(previous.Scale, next.Scale) ||
		!sameOutcomes(previous.Outcomes, next.Outcomes)
	if scoring {
		return ChangeScoring
	}

	minor := previous.Name != next.Name ||
		previous.Criteria != next.Criteria ||
		previous.BlindMarking != next.BlindMarking ||
		previous.ShowIntermediaryToStudents != next.ShowIntermediaryToStudents ||
		!sameStrings(previous.SecondaryGraders, next.SecondaryGraders)
	if minor {
		return ChangeMinor
	}
	return ChangeNone
}

func sameScale(a, b []float64) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func sameOutcomes(a, b []models.OutcomeSpec) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

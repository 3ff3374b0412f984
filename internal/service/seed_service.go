package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/models"
	"github.com/noah-isme/gema-multigraders/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
	// ErrSeedPayload indicates the seed document could not be parsed.
	ErrSeedPayload = errors.New("invalid seed document")
)

// SeedDocument is the TOML layout accepted by the seeding tools.
type SeedDocument struct {
	Users       []SeedUser       `toml:"user"`
	Definitions []SeedDefinition `toml:"definition"`
	Items       []SeedItem       `toml:"item"`
}

// SeedUser adds an entry to the user directory.
type SeedUser struct {
	ID       string `toml:"id"`
	FullName string `toml:"full_name"`
	Email    string `toml:"email"`
}

// SeedDefinition configures one grading area.
type SeedDefinition struct {
	AreaID                     string               `toml:"area_id"`
	Name                       string               `toml:"name"`
	SecondaryGraders           []string             `toml:"secondary_graders"`
	Criteria                   string               `toml:"criteria"`
	BlindMarking               *bool                `toml:"blind_marking"`
	ShowIntermediaryToStudents *bool                `toml:"show_intermediary_to_students"`
	AutoCalculateMethod        string               `toml:"auto_calculate_method"`
	GradeMin                   *float64             `toml:"grade_min"`
	GradeMax                   *float64             `toml:"grade_max"`
	Scale                      []float64            `toml:"scale"`
	Outcomes                   []models.OutcomeSpec `toml:"outcome"`
	Formula                    string               `toml:"formula"`
}

// SeedItem pre-registers a grading item.
type SeedItem struct {
	AreaID   string `toml:"area_id"`
	ItemID   string `toml:"item_id"`
	GradeeID string `toml:"gradee_id"`
	Title    string `toml:"title"`
	Locked   bool   `toml:"locked"`
}

// SeedService loads grading definitions, users and items from TOML documents.
type SeedService interface {
	SeedDefinitions(ctx context.Context, token string, document []byte) (dto.SeedDefinitionsResponse, error)
}

type seedService struct {
	definitions DefinitionService
	users       repository.UserRepository
	items       repository.GradingItemRepository
	enabled     bool
	token       string
	logger      zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(definitions DefinitionService, users repository.UserRepository, items repository.GradingItemRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		definitions: definitions,
		users:       users,
		items:       items,
		enabled:     enabled,
		token:       token,
		logger:      logger.With().Str("component", "seed_service").Logger(),
	}
}

// ParseSeedDocument decodes a TOML seed document.
func ParseSeedDocument(document []byte) (SeedDocument, error) {
	var doc SeedDocument
	if err := toml.Unmarshal(document, &doc); err != nil {
		return SeedDocument{}, fmt.Errorf("%w: %v", ErrSeedPayload, err)
	}
	for i, definition := range doc.Definitions {
		if strings.TrimSpace(definition.AreaID) == "" {
			return SeedDocument{}, fmt.Errorf("%w: definition %d has no area_id", ErrSeedPayload, i+1)
		}
	}
	for i, item := range doc.Items {
		if strings.TrimSpace(item.AreaID) == "" || strings.TrimSpace(item.ItemID) == "" {
			return SeedDocument{}, fmt.Errorf("%w: item %d needs area_id and item_id", ErrSeedPayload, i+1)
		}
	}
	return doc, nil
}

func (s *seedService) SeedDefinitions(ctx context.Context, token string, document []byte) (dto.SeedDefinitionsResponse, error) {
	if !s.enabled {
		return dto.SeedDefinitionsResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedDefinitionsResponse{}, ErrSeedUnauthorized
	}

	doc, err := ParseSeedDocument(document)
	if err != nil {
		return dto.SeedDefinitionsResponse{}, err
	}
	return ApplySeedDocument(ctx, doc, s.definitions, s.users, s.items, s.logger)
}

// ApplySeedDocument writes a parsed seed document. It is shared by the HTTP seeding endpoint and
// the command line tool.
func ApplySeedDocument(ctx context.Context, doc SeedDocument, definitions DefinitionService, users repository.UserRepository, items repository.GradingItemRepository, logger zerolog.Logger) (dto.SeedDefinitionsResponse, error) {
	result := dto.SeedDefinitionsResponse{}

	directory := make([]models.User, 0, len(doc.Users))
	for _, user := range doc.Users {
		if strings.TrimSpace(user.ID) == "" {
			continue
		}
		directory = append(directory, models.User{ID: strings.TrimSpace(user.ID), FullName: user.FullName, Email: user.Email})
	}
	if err := users.Upsert(ctx, directory); err != nil {
		return result, err
	}
	result.Users = len(directory)

	actor := SystemActor()
	for _, definition := range doc.Definitions {
		if _, err := definitions.Save(ctx, actor, strings.TrimSpace(definition.AreaID), definition.request()); err != nil {
			return result, fmt.Errorf("seed definition %s: %w", definition.AreaID, err)
		}
		result.Definitions++
	}

	for _, seed := range doc.Items {
		item := models.GradingItem{
			AreaID:   strings.TrimSpace(seed.AreaID),
			ItemID:   strings.TrimSpace(seed.ItemID),
			GradeeID: strings.TrimSpace(seed.GradeeID),
			Title:    strings.TrimSpace(seed.Title),
			Status:   models.GradingItemStatusActive,
			RawGrade: -1,
		}
		if err := items.GetOrCreate(ctx, &item); err != nil {
			return result, err
		}
		if item.Locked != seed.Locked {
			if err := items.SetLocked(ctx, item.ID, seed.Locked); err != nil {
				return result, err
			}
		}
		result.Items++
	}

	logger.Info().
		Int("users", result.Users).
		Int("definitions", result.Definitions).
		Int("items", result.Items).
		Msg("grading data seeded")
	return result, nil
}

func (d SeedDefinition) request() dto.DefinitionRequest {
	outcomes := make([]dto.OutcomeRequest, 0, len(d.Outcomes))
	for _, outcome := range d.Outcomes {
		outcomes = append(outcomes, dto.OutcomeRequest{ID: outcome.ID, Name: outcome.Name, Min: outcome.Min, Max: outcome.Max})
	}
	return dto.DefinitionRequest{
		Name:                       d.Name,
		SecondaryGraders:           d.SecondaryGraders,
		Criteria:                   d.Criteria,
		BlindMarking:               d.BlindMarking,
		ShowIntermediaryToStudents: d.ShowIntermediaryToStudents,
		AutoCalculateMethod:        d.AutoCalculateMethod,
		GradeMin:                   d.GradeMin,
		GradeMax:                   d.GradeMax,
		Scale:                      d.Scale,
		Outcomes:                   outcomes,
		Formula:                    d.Formula,
	}
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

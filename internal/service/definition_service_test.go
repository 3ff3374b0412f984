package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/models"
)

func TestDefinitionServiceDefaultsWhenNothingStored(t *testing.T) {
	f := newGradingFixture(t)

	got, err := f.definitions.Get(context.Background(), "area-1")

	require.NoError(t, err)
	require.False(t, got.Stored)
	require.Equal(t, "last", got.AutoCalculateMethod)
	require.True(t, got.ShowIntermediaryToStudents)
	require.Equal(t, 0.0, got.GradeMin)
	require.Equal(t, 100.0, got.GradeMax)
	require.Empty(t, got.SecondaryGraders)
}

func TestDefinitionServiceChangeLevels(t *testing.T) {
	f := newGradingFixture(t)
	ctx := context.Background()
	admin := adminActor("root")
	base := dto.DefinitionRequest{Name: "Essay", SecondaryGraders: []string{"bob", " bob ", ""}}

	created, err := f.definitions.Save(ctx, admin, "essay", base)
	require.NoError(t, err)
	require.Equal(t, ChangeNone, created.ChangeLevel)
	require.Equal(t, 1, created.Definition.Version)
	require.Equal(t, []string{"bob"}, created.Definition.SecondaryGraders)
	require.Equal(t, "root", created.Definition.UpdatedBy)

	unchanged, err := f.definitions.Save(ctx, admin, "essay", base)
	require.NoError(t, err)
	require.Equal(t, ChangeNone, unchanged.ChangeLevel)
	require.Equal(t, 1, unchanged.Definition.Version)

	renamed := base
	renamed.Criteria = "Argument quality"
	minor, err := f.definitions.Save(ctx, admin, "essay", renamed)
	require.NoError(t, err)
	require.Equal(t, ChangeMinor, minor.ChangeLevel)
	require.Equal(t, 2, minor.Definition.Version)
	require.Zero(t, minor.ItemsMarked)

	_, err = f.grading.Submit(ctx, teacherActor("alice"), "essay", "stu-1", dto.GradeSubmissionRequest{Grade: "80", Publish: true})
	require.NoError(t, err)
	_, err = f.grading.Submit(ctx, teacherActor("alice"), "essay", "stu-2", dto.GradeSubmissionRequest{Grade: "50"})
	require.NoError(t, err)

	rescored := renamed
	rescored.GradeMax = floatPtr(20)
	scoring, err := f.definitions.Save(ctx, admin, "essay", rescored)
	require.NoError(t, err)
	require.Equal(t, ChangeScoring, scoring.ChangeLevel)
	require.Equal(t, int64(2), scoring.ItemsMarked)

	item, err := f.items.Get(ctx, "essay", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.GradingItemStatusNeedsUpdate, item.Status)

	view, err := f.grading.View(ctx, studentActor("stu-1"), "essay", "stu-1", "")
	require.NoError(t, err)
	require.Equal(t, "needs_regrade", view.Notice.Code)
	require.Nil(t, view.PublishedGrade)

	republished, err := f.grading.Submit(ctx, teacherActor("alice"), "essay", "stu-1", dto.GradeSubmissionRequest{Grade: "16", Publish: true})
	require.NoError(t, err)
	require.Equal(t, "final", republished.Record.Kind)
	item, err = f.items.Get(ctx, "essay", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.GradingItemStatusActive, item.Status)
	require.Equal(t, 16.0, item.RawGrade)
}

func TestDefinitionServiceSaveInvalidatesCache(t *testing.T) {
	f := newGradingFixture(t)
	ctx := context.Background()

	before, err := f.definitions.Get(ctx, "lab")
	require.NoError(t, err)
	require.Equal(t, "last", before.AutoCalculateMethod)

	_, err = f.definitions.Save(ctx, adminActor("root"), "lab", dto.DefinitionRequest{AutoCalculateMethod: "max"})
	require.NoError(t, err)

	after, err := f.definitions.Get(ctx, "lab")
	require.NoError(t, err)
	require.True(t, after.Stored)
	require.Equal(t, "max", after.AutoCalculateMethod)

	require.NoError(t, f.definitions.Delete(ctx, adminActor("root"), "lab"))
	deleted, err := f.definitions.Get(ctx, "lab")
	require.NoError(t, err)
	require.False(t, deleted.Stored)
}

func TestDefinitionServiceRejectsInvalidConfiguration(t *testing.T) {
	f := newGradingFixture(t)
	ctx := context.Background()

	cases := map[string]dto.DefinitionRequest{
		"grade_max": {GradeMin: floatPtr(50), GradeMax: floatPtr(10)},
		"scale":     {Scale: []float64{10, 250}},
		"outcomes":  {Outcomes: []dto.OutcomeRequest{{ID: "1", Max: 4}, {ID: "1", Max: 5}}},
		"formula":   {Formula: "##outcome:1## +"},
	}
	for field, req := range cases {
		_, err := f.definitions.Save(ctx, adminActor("root"), "area", req)
		var invalid *InvalidDefinitionError
		require.True(t, errors.As(err, &invalid), field)
		require.Equal(t, field, invalid.Field)
		require.ErrorIs(t, err, ErrInvalidDefinition)
	}

	_, err := f.definitions.Save(ctx, adminActor("root"), "area", dto.DefinitionRequest{AutoCalculateMethod: "median"})
	require.Error(t, err)
}

func TestChangeLevel(t *testing.T) {
	base := defaultDefinitionModel("x")

	same := defaultDefinitionModel("x")
	require.Equal(t, ChangeNone, ChangeLevel(base, same))

	blind := defaultDefinitionModel("x")
	blind.BlindMarking = true
	require.Equal(t, ChangeMinor, ChangeLevel(base, blind))

	method := defaultDefinitionModel("x")
	method.AutoCalculateMethod = "average"
	method.Name = "changed"
	require.Equal(t, ChangeScoring, ChangeLevel(base, method))
}

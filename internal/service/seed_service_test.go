package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/repository"
)

const seedFixture = `
[[user]]
id = "carol"
full_name = "Carol Third"

[[definition]]
area_id = "essay"
name = "Essay"
secondary_graders = ["bob", "carol"]
blind_marking = true
auto_calculate_method = "average"
grade_max = 20.0

  [[definition.outcome]]
  id = "1"
  name = "Argument"
  min = 0.0
  max = 4.0

[[item]]
area_id = "essay"
item_id = "stu-1"
title = "Essay of Sam"
locked = true
`

func newSeedFixture(t *testing.T, enabled bool) (SeedService, gradingFixture) {
	t.Helper()
	f := newGradingFixture(t)
	svc := NewSeedService(f.definitions, repository.NewUserRepository(f.db), f.items, enabled, "secret", testLogger())
	return svc, f
}

func TestSeedServiceTokenGuard(t *testing.T) {
	svc, _ := newSeedFixture(t, true)

	_, err := svc.SeedDefinitions(context.Background(), "wrong", []byte(seedFixture))
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	disabled, _ := newSeedFixture(t, false)
	_, err = disabled.SeedDefinitions(context.Background(), "secret", []byte(seedFixture))
	require.ErrorIs(t, err, ErrSeedDisabled)
}

func TestSeedServiceAppliesDocument(t *testing.T) {
	svc, f := newSeedFixture(t, true)
	ctx := context.Background()

	result, err := svc.SeedDefinitions(ctx, " secret ", []byte(seedFixture))
	require.NoError(t, err)
	require.Equal(t, 1, result.Users)
	require.Equal(t, 1, result.Definitions)
	require.Equal(t, 1, result.Items)

	definition, err := f.definitions.Get(ctx, "essay")
	require.NoError(t, err)
	require.True(t, definition.BlindMarking)
	require.Equal(t, "average", definition.AutoCalculateMethod)
	require.Equal(t, []string{"bob", "carol"}, definition.SecondaryGraders)
	require.Len(t, definition.Outcomes, 1)
	require.Equal(t, 4.0, definition.Outcomes[0].Max)

	item, err := f.items.Get(ctx, "essay", "stu-1")
	require.NoError(t, err)
	require.True(t, item.Locked)
	require.Equal(t, "Essay of Sam", item.Title)

	names := NewUserDirectory(repository.NewUserRepository(f.db), testLogger()).DisplayNames(ctx, []string{"carol", "nobody"})
	require.Equal(t, "Carol Third", names["carol"])
	require.Equal(t, "nobody", names["nobody"])
}

func TestParseSeedDocumentRejectsBadInput(t *testing.T) {
	_, err := ParseSeedDocument([]byte("[[definition]]\nname = \"x\"\n"))
	require.ErrorIs(t, err, ErrSeedPayload)

	_, err = ParseSeedDocument([]byte("not = [toml"))
	require.ErrorIs(t, err, ErrSeedPayload)
}

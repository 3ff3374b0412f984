package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/repository"
)

// UserDirectory resolves user identifiers to display names.
type UserDirectory interface {
	DisplayNames(ctx context.Context, ids []string) map[string]string
}

type userDirectory struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

// NewUserDirectory constructs a directory backed by the user repository.
func NewUserDirectory(repo repository.UserRepository, logger zerolog.Logger) UserDirectory {
	return &userDirectory{
		repo:   repo,
		logger: logger.With().Str("component", "user_directory").Logger(),
	}
}

// DisplayNames returns a name for every requested id. Unknown users are named by their id.
func (d *userDirectory) DisplayNames(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	lookup := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := names[id]; ok {
			continue
		}
		names[id] = id
		lookup = append(lookup, id)
	}

	users, err := d.repo.FindByIDs(ctx, lookup)
	if err != nil {
		d.logger.Warn().Err(err).Int("count", len(lookup)).Msg("failed to resolve user names")
		return names
	}
	for _, user := range users {
		if name := strings.TrimSpace(user.FullName); name != "" {
			names[user.ID] = name
		}
	}
	return names
}

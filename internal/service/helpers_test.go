package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/models"
	"github.com/noah-isme/gema-multigraders/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.GradingDefinition{},
		&models.GradingItem{},
		&models.GradeRecord{},
		&models.User{},
		&models.ActivityLog{},
		&models.Notification{},
	))
	return db
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type sentNotification struct {
	payload dto.NotificationCreateRequest
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail bool
}

func (f *fakeNotifier) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return dto.NotificationResponse{}, errors.New("broker unavailable")
	}
	f.sent = append(f.sent, sentNotification{payload: payload})
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type}, nil
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.payload.UserID)
	}
	return out
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type gradingFixture struct {
	db          *gorm.DB
	definitions DefinitionService
	grading     GradingService
	activity    ActivityService
	notifier    *fakeNotifier
	items       repository.GradingItemRepository
	records     repository.GradeRecordRepository
}

func newGradingFixture(t *testing.T) gradingFixture {
	t.Helper()
	db := setupServiceDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	activity := NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	definitions := NewDefinitionService(repository.NewGradingDefinitionRepository(db), setupRedis(t), 0, activity, validate, testLogger())
	users := repository.NewUserRepository(db)
	require.NoError(t, users.Upsert(context.Background(), []models.User{
		{ID: "alice", FullName: "Alice Primary"},
		{ID: "bob", FullName: "Bob Second"},
	}))

	items := repository.NewGradingItemRepository(db)
	records := repository.NewGradeRecordRepository(db)
	notifier := &fakeNotifier{}
	svc := NewGradingService(
		definitions,
		GradingRepositories{Items: items, Records: records},
		NewUserDirectory(users, testLogger()),
		notifier,
		activity,
		validate,
		"https://lms.example.com/",
		testLogger(),
	)
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.(*gradingService).now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return gradingFixture{
		db:          db,
		definitions: definitions,
		grading:     svc,
		activity:    activity,
		notifier:    notifier,
		items:       items,
		records:     records,
	}
}

func teacherActor(id string) Actor {
	return Actor{ID: id, Role: "teacher", Capabilities: CapabilitiesForRole("teacher")}
}

func adminActor(id string) Actor {
	return Actor{ID: id, Role: "admin", Capabilities: CapabilitiesForRole("admin")}
}

func studentActor(id string) Actor {
	return Actor{ID: id, Role: "student", Capabilities: []grading.Capability{grading.CapView}}
}

func boolPtr(v bool) *bool {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

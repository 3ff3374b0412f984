package database

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

func TestMigrateCreatesGradingTables(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	for _, model := range []interface{}{&models.GradingDefinition{}, &models.GradingItem{}, &models.GradeRecord{}, &models.Notification{}} {
		require.True(t, db.Migrator().HasTable(model))
	}
	require.True(t, db.Migrator().HasIndex(&models.GradeRecord{}, "idx_grade_record_item_grader"))
}

func TestConnectersRejectEmptyURLs(t *testing.T) {
	ctx := context.Background()
	_, err := ConnectPostgres(ctx, "", DefaultPool)
	require.Error(t, err)
	_, err = ConnectRedis(ctx, "")
	require.Error(t, err)
	_, err = ConnectRedis(ctx, "://broken")
	require.Error(t, err)
	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}

func TestConnectRedisPings(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	mini.Close()
	_, err = ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.Error(t, err)
}

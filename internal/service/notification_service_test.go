package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/repository"
)

func TestNotificationServicePublishStreamsAndPersists(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), setupRedis(t), "multigraders", nil, validator.New(), testLogger())
	ctx := context.Background()

	stream, cleanup := svc.Subscribe("bob")
	defer cleanup()

	sent, err := svc.Publish(ctx, dto.NotificationCreateRequest{
		UserID:   "bob",
		Type:     "second_grading_requested",
		Subject:  "Second grading required for <b>Essay</b>",
		Message:  "Alice has requested second grading.<script>alert(1)</script>",
		SenderID: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, "Second grading required for Essay", sent.Subject)
	require.NotContains(t, sent.Message, "script")

	select {
	case got := <-stream:
		require.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not streamed")
	}

	list, err := svc.List(ctx, "bob", 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(1), list.Unread)

	read, err := svc.MarkRead(ctx, sent.ID, "bob")
	require.NoError(t, err)
	require.True(t, read.Read)

	_, err = svc.MarkRead(ctx, sent.ID, "alice")
	require.Error(t, err)

	list, err = svc.List(ctx, "bob", 10, 0)
	require.NoError(t, err)
	require.Zero(t, list.Unread)
}

func TestNotificationServiceIgnoresOwnBrokerEvents(t *testing.T) {
	svc := NewNotificationService(nil, nil, "", nil, validator.New(), testLogger()).(*notificationService)
	stream, cleanup := svc.Subscribe("bob")
	defer cleanup()

	svc.handleEvent([]byte(`{"source":"` + svc.nodeID + `","notification":{"user_id":"bob","type":"x"}}`))
	svc.handleEvent([]byte(`{"source":"other-node","notification":{"user_id":"bob"}}`))
	svc.handleEvent([]byte(`not json`))

	select {
	case got := <-stream:
		require.Equal(t, "grading", got.Type)
	case <-time.After(time.Second):
		t.Fatal("remote event was not delivered")
	}
	require.Empty(t, stream)
}

func TestNotificationServiceRejectsInvalidPayload(t *testing.T) {
	svc := NewNotificationService(nil, nil, "", nil, validator.New(), testLogger())

	_, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{UserID: "bob"})
	require.Error(t, err)

	_, err = svc.List(context.Background(), " ", 10, 0)
	require.Error(t, err)
}

func TestNotificationServiceFansOutOverRedis(t *testing.T) {
	db := setupServiceDB(t)
	client := setupRedis(t)
	repo := repository.NewNotificationRepository(db)
	origin := NewNotificationService(repo, client, "multigraders", nil, validator.New(), testLogger())
	remote := NewNotificationService(repo, client, "multigraders", nil, validator.New(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remote.Start(ctx)

	channel := remote.(*notificationService).redisStream
	require.Eventually(t, func() bool {
		return client.PubSubNumSub(ctx, channel).Val()[channel] == 1
	}, time.Second, 10*time.Millisecond)

	stream, cleanup := remote.Subscribe("alice")
	defer cleanup()

	sent, err := origin.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  "alice",
		Type:    "second_grading_completed",
		Subject: "Second grading completed for Essay",
		Message: "Bob has completed second grading. Please take a look and decide the final grade.",
	})
	require.NoError(t, err)

	select {
	case got := <-stream:
		require.Equal(t, sent.ID, got.ID)
		require.Equal(t, "second_grading_completed", got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("fan-out event was not delivered to the remote node")
	}
}

func TestNotificationBrokerCleanupIsIdempotent(t *testing.T) {
	svc := NewNotificationService(nil, nil, "", nil, validator.New(), testLogger())
	_, first := svc.Subscribe("bob")
	second, cleanupSecond := svc.Subscribe("bob")
	defer cleanupSecond()

	first()
	first()

	svc.(*notificationService).broadcast(dto.NotificationResponse{UserID: "bob", Type: "grading"})
	require.Len(t, second, 1)
}

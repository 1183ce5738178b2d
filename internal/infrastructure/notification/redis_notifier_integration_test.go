//go:build integration

package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/testutil"
)

func TestRedisNotifier_RelaysToBroadcaster(t *testing.T) {
	client := testutil.NewRedisClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster := NewBroadcaster(nil)
	relay := NewRelay(client, "backoffice:test", broadcaster, nil)
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, ready) }()
	<-ready

	room := realtime.BusinessRoom(uuid.New())
	ch, leave := broadcaster.Subscribe(room)
	defer leave()

	n := realtime.Notification{
		Event:   realtime.EventBusinessUpdate,
		Room:    room,
		Payload: map[string]any{"name": "Shop"},
		Meta:    realtime.Meta{ActorID: "u-1", ActorName: "Ana", OriginTag: "web"},
	}
	require.NoError(t, NewRedisNotifier(client, "backoffice:test", nil).Emit(ctx, n))

	select {
	case got := <-ch:
		assert.Equal(t, n.Event, got.Event)
		assert.Equal(t, n.Meta, got.Meta)
		assert.Equal(t, "Shop", got.Payload.(map[string]any)["name"])
	case <-time.After(5 * time.Second):
		t.Fatal("notification was not relayed")
	}

	cancel()
	assert.NoError(t, <-done)
}

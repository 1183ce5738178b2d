package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/infrastructure/notification"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/testutil"
)

func setupEventsServer(t *testing.T, h *BusinessEventsHandler) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Tenant())
	h.RegisterRoutes(router.Group("/api/v1"))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// readEvents scans an SSE body and sends the event name and data of each message
func readEvents(body *bufio.Scanner, out chan<- [2]string) {
	var event string
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			out <- [2]string{event, strings.TrimPrefix(line, "data: ")}
		}
	}
	close(out)
}

func TestBusinessEventsHandler_StreamsRoomNotifications(t *testing.T) {
	broadcaster := notification.NewBroadcaster(nil)
	h := NewBusinessEventsHandler(broadcaster, WithEventsHeartbeat(time.Hour))
	server := setupEventsServer(t, h)
	businessID := uuid.New()
	room := realtime.BusinessRoom(businessID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/business/events", nil)
	req.Header.Set(middleware.TenantHeaderKey, businessID.String())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan [2]string, 8)
	go readEvents(bufio.NewScanner(resp.Body), events)

	first := <-events
	assert.Equal(t, "connected", first[0])
	require.True(t, testutil.WaitForCondition(t, func() bool {
		return broadcaster.Subscribers(room) == 1
	}, time.Second, 5*time.Millisecond))

	// Other rooms are not delivered
	require.NoError(t, broadcaster.Emit(ctx, realtime.Notification{Event: "business/update", Room: "business:other"}))
	require.NoError(t, broadcaster.Emit(ctx, realtime.Notification{
		Event: realtime.EventBusinessUpdate,
		Room:  room,
		Meta:  realtime.Meta{ActorID: "user-1", ActorName: "Ana", OriginTag: "web"},
	}))

	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventBusinessUpdate, ev[0])
		var n realtime.Notification
		require.NoError(t, json.Unmarshal([]byte(ev[1]), &n))
		assert.Equal(t, room, n.Room)
		assert.Equal(t, "web", n.Meta.OriginTag)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not streamed")
	}
	assert.Equal(t, int64(1), h.ClientCount())

	cancel()
	assert.True(t, testutil.WaitForCondition(t, func() bool {
		return broadcaster.Subscribers(room) == 0 && h.ClientCount() == 0
	}, 2*time.Second, 5*time.Millisecond))
}

func TestBusinessEventsHandler_MaxClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBusinessEventsHandler(notification.NewBroadcaster(nil), WithEventsMaxClients(1))
	h.clients.Store(1)

	router := gin.New()
	router.Use(middleware.Tenant())
	h.RegisterRoutes(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/business/events", nil)
	req.Header.Set(middleware.TenantHeaderKey, uuid.NewString())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, int64(1), h.ClientCount())
}

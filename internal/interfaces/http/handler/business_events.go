package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
)

// RoomSubscriber subscribes to the notifications of one room
type RoomSubscriber interface {
	Subscribe(room string) (<-chan realtime.Notification, func())
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string
	Data  string
	ID    string
}

// BusinessEventsHandler streams the live updates of a business room over SSE
type BusinessEventsHandler struct {
	BaseHandler
	subscriber RoomSubscriber
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int64
	clients    atomic.Int64
	sequence   atomic.Uint64
}

// BusinessEventsOption is a functional option for configuring the handler
type BusinessEventsOption func(*BusinessEventsHandler)

// WithEventsLogger sets the logger for the handler
func WithEventsLogger(logger *zap.Logger) BusinessEventsOption {
	return func(h *BusinessEventsHandler) {
		h.logger = logger
	}
}

// WithEventsHeartbeat sets the heartbeat interval
func WithEventsHeartbeat(interval time.Duration) BusinessEventsOption {
	return func(h *BusinessEventsHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithEventsMaxClients sets the maximum number of concurrent SSE clients
func WithEventsMaxClients(max int64) BusinessEventsOption {
	return func(h *BusinessEventsHandler) {
		h.maxClients = max
	}
}

// NewBusinessEventsHandler creates a new SSE handler for business updates
func NewBusinessEventsHandler(subscriber RoomSubscriber, opts ...BusinessEventsOption) *BusinessEventsHandler {
	h := &BusinessEventsHandler{
		subscriber: subscriber,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 10000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the event stream route
func (h *BusinessEventsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/business/events", h.Stream)
}

// ClientCount returns the number of connected SSE clients
func (h *BusinessEventsHandler) ClientCount() int64 {
	return h.clients.Load()
}

// Stream godoc
// @ID           streamBusinessEvents
// @Summary      Subscribe to business updates via SSE
// @Description  Streams every notification emitted to the business room
// @Tags         configurations
// @Produce      text/event-stream
// @Param        X-Tenant-ID header string true "Business ID"
// @Success      200 {string} string "SSE stream"
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /business/events [get]
func (h *BusinessEventsHandler) Stream(c *gin.Context) {
	businessID, ok := h.businessID(c)
	if !ok {
		return
	}

	if n := h.clients.Add(1); h.maxClients > 0 && n > h.maxClients {
		h.clients.Add(-1)
		h.Error(c, dto.ErrCodeUnavailable, "Maximum number of SSE connections reached")
		return
	}
	defer h.clients.Add(-1)

	room := realtime.BusinessRoom(businessID)
	updates, unsubscribe := h.subscriber.Subscribe(room)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	// The stream outlives the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	log := h.logger.With(zap.String("room", room), zap.String("actor_id", middleware.GetActor(c).ID))
	log.Info("SSE client connected")

	h.sendEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"room":%q,"timestamp":%d}`, room, time.Now().Unix()),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(c.Writer, SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
			c.Writer.Flush()
		case n, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.Error("Failed to marshal SSE event", zap.Error(err))
				continue
			}
			h.sendEvent(c.Writer, SSEMessage{
				Event: n.Event,
				Data:  string(data),
				ID:    fmt.Sprintf("%d", h.sequence.Add(1)),
			})
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *BusinessEventsHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

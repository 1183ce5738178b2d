// Package realtime defines the live-update notifications pushed to clients
// connected to a business room.
package realtime

import (
	"context"

	"github.com/google/uuid"
)

// EventBusinessUpdate is emitted after a business or its configuration changes
const EventBusinessUpdate = "business/update"

// Meta identifies who caused a notification and from where
type Meta struct {
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	OriginTag string `json:"originTag"`
}

// Notification is a single event addressed to a room
type Notification struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	Payload any    `json:"payload"`
	Meta    Meta   `json:"meta"`
}

// BusinessRoom returns the room every client of a business joins
func BusinessRoom(businessID uuid.UUID) string {
	return "business:" + businessID.String()
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Emit(ctx context.Context, n Notification) error
}

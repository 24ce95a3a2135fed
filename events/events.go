package events

import (
	"context"
	"time"
)

const (
	RoutingReservationCreated   = "reservation.created"
	RoutingReservationUpdated   = "reservation.updated"
	RoutingReservationDeleted   = "reservation.deleted"
	RoutingReservationCompleted = "reservation.completed"
	RoutingReservationDenied    = "reservation.denied"
)

// ReservationEvent is the JSON body of every reservation lifecycle message.
type ReservationEvent struct {
	RoutingKey    string    `json:"event"`
	RestaurantID  string    `json:"restaurant_id"`
	ReservationID string    `json:"reservation_id,omitempty"`
	TableID       string    `json:"table_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	GuestCount    int       `json:"guest_count"`
	StartTime     time.Time `json:"start_time"`
	Source        string    `json:"source,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event ReservationEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

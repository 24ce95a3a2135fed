package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/reservation-app/events"
	"github.com/yeremiapane/reservation-app/hub"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
)

// Notifier is told about every committed change to the ledger. Failures are
// logged, never returned: the change has already happened.
type Notifier interface {
	ReservationChanged(ctx context.Context, routingKey string, r *models.Reservation)
	AdmissionDenied(ctx context.Context, req BookingRequest, reason string)
	TablesChanged(ctx context.Context, restaurantID string)
}

type NopNotifier struct{}

func (NopNotifier) ReservationChanged(context.Context, string, *models.Reservation) {}
func (NopNotifier) AdmissionDenied(context.Context, BookingRequest, string)          {}
func (NopNotifier) TablesChanged(context.Context, string)                           {}

// RealtimeNotifier pushes a fresh seating chart to the owner's sockets and
// publishes the lifecycle event to the broker.
type RealtimeNotifier struct {
	store     *ReservationStore
	hub       *hub.Hub
	publisher events.Publisher
}

func NewRealtimeNotifier(store *ReservationStore, h *hub.Hub, publisher events.Publisher) *RealtimeNotifier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RealtimeNotifier{store: store, hub: h, publisher: publisher}
}

var hubEvents = map[string]string{
	events.RoutingReservationCreated:   hub.EventReservationCreated,
	events.RoutingReservationUpdated:   hub.EventReservationUpdated,
	events.RoutingReservationDeleted:   hub.EventReservationDeleted,
	events.RoutingReservationCompleted: hub.EventReservationComplete,
}

func (n *RealtimeNotifier) ReservationChanged(ctx context.Context, routingKey string, r *models.Reservation) {
	if event, ok := hubEvents[routingKey]; ok {
		n.hub.Broadcast(r.RestaurantID, hub.Message{Event: event, Data: r})
	}
	n.broadcastSeating(ctx, r.RestaurantID)

	tableID := ""
	if r.TableID != nil {
		tableID = *r.TableID
	}
	n.publish(ctx, events.ReservationEvent{
		RoutingKey:    routingKey,
		RestaurantID:  r.RestaurantID,
		ReservationID: r.ID,
		TableID:       tableID,
		Status:        string(r.Status),
		GuestCount:    r.GuestCount,
		StartTime:     r.StartTime,
		Source:        r.Source,
	})
}

func (n *RealtimeNotifier) AdmissionDenied(ctx context.Context, req BookingRequest, reason string) {
	n.hub.Broadcast(req.RestaurantID, hub.Message{
		Event: hub.EventReservationDenied,
		Data: map[string]interface{}{
			"guest_count": req.GuestCount,
			"start_time":  req.StartTime,
			"reason":      reason,
		},
	})
	n.publish(ctx, events.ReservationEvent{
		RoutingKey:   events.RoutingReservationDenied,
		RestaurantID: req.RestaurantID,
		Status:       string(models.StatusDenied),
		GuestCount:   req.GuestCount,
		StartTime:    req.StartTime.UTC(),
		Source:       models.SourceAI,
		Reason:       reason,
	})
}

func (n *RealtimeNotifier) TablesChanged(ctx context.Context, restaurantID string) {
	n.broadcastSeating(ctx, restaurantID)
}

func (n *RealtimeNotifier) broadcastSeating(ctx context.Context, restaurantID string) {
	if n.hub.ClientCount(restaurantID) == 0 {
		return
	}
	chart, err := n.store.SeatingChart(ctx, restaurantID)
	if err != nil {
		utils.ErrorLogger.Errorf("Error building seating chart for %s: %v", restaurantID, err)
		return
	}
	n.hub.Broadcast(restaurantID, hub.Message{Event: hub.EventSeatingChart, Data: chart})
}

func (n *RealtimeNotifier) publish(ctx context.Context, event events.ReservationEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := n.publisher.Publish(ctx, event); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event":         event.RoutingKey,
			"restaurant_id": event.RestaurantID,
		}).Errorf("Error publishing reservation event: %v", err)
	}
}

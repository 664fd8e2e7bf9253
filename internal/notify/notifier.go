package notify

import (
	"context"
	"log/slog"

	"terminwatch/internal/domain"
)

type AppointmentDetails struct {
	ServiceID  string
	LocationID string
	Slot       domain.Slot
}

type BookingDetails struct {
	ServiceID  string
	LocationID string
	Slot       domain.Slot
	BookingID  string
}

// Notifier is the chat-bot collaborator as seen from the booking core:
// fire-and-forget messages to one user. Delivery failures are the
// implementation's problem; the core logs them and moves on.
type Notifier interface {
	AppointmentFound(ctx context.Context, userID string, details AppointmentDetails) error
	AppointmentBooked(ctx context.Context, userID string, details BookingDetails) error
}

// LogNotifier writes notifications to the log. Used in development and
// wherever no bot token is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With(slog.String("component", "notify.log"))}
}

func (n *LogNotifier) AppointmentFound(ctx context.Context, userID string, details AppointmentDetails) error {
	n.log.Info(
		"appointment found",
		slog.String("user_id", userID),
		slog.String("service_id", details.ServiceID),
		slog.String("location_id", details.LocationID),
		slog.String("slot_date", details.Slot.Date),
		slog.String("slot_time", details.Slot.Time),
	)
	return nil
}

func (n *LogNotifier) AppointmentBooked(ctx context.Context, userID string, details BookingDetails) error {
	n.log.Info(
		"appointment booked",
		slog.String("user_id", userID),
		slog.String("booking_id", details.BookingID),
		slog.String("slot_date", details.Slot.Date),
		slog.String("slot_time", details.Slot.Time),
	)
	return nil
}

package booking

import (
	"context"
	"errors"
	"log/slog"

	"terminwatch/internal/domain"
	"terminwatch/internal/notify"
	"terminwatch/internal/store"
)

// runWorker drains the queue until the context is canceled. Every dequeued
// task is acknowledged exactly once, whatever the booking outcome; there
// is no code path that exits the loop with a task unacknowledged.
func (m *Manager) runWorker(ctx context.Context, client AppointmentClient, queue *TaskQueue, id int) {
	defer m.wg.Done()
	m.liveWorkers.Add(1)
	defer m.liveWorkers.Add(-1)

	log := m.log.With(slog.String("loop", "worker"), slog.Int("worker_id", id))

	for {
		task, ok := queue.Get(ctx)
		if !ok {
			return
		}
		m.processBookingTask(ctx, client, task, log)
		queue.Done()
	}
}

// processBookingTask attempts one booking. Cancellation is cooperative: a
// stop request arriving mid-task does not abort the outbound call, so the
// booking site never sees a half-finished attempt. A failed booking is
// terminal for this task; the next scheduler pass rediscovers the slot if
// it is still open.
func (m *Manager) processBookingTask(ctx context.Context, client AppointmentClient, task domain.BookingTask, log *slog.Logger) {
	log = log.With(
		slog.String("user_id", task.UserID),
		slog.String("service_id", task.ServiceID),
		slog.String("location_id", task.LocationID),
		slog.String("slot_date", task.Slot.Date),
		slog.String("slot_time", task.Slot.Time),
	)

	taskCtx := context.WithoutCancel(ctx)

	result := client.Book(taskCtx, task)
	if !result.Success {
		log.Warn("booking failed", slog.String("error", result.Error))
		return
	}

	log.Info("booking succeeded", slog.String("booking_id", result.BookingID))

	if m.bookings != nil {
		_, err := m.bookings.RecordBooking(taskCtx, domain.Booking{
			SubscriptionID: task.SubscriptionID,
			UserID:         task.UserID,
			ServiceID:      task.ServiceID,
			LocationID:     task.LocationID,
			SlotDate:       task.Slot.Date,
			SlotTime:       task.Slot.Time,
			BookingRef:     result.BookingID,
		})
		if err != nil && !errors.Is(err, store.ErrConflict) {
			log.Error("booking record failed", slog.Any("err", err))
		}
	}

	err := m.notifier.AppointmentBooked(taskCtx, task.UserID, notify.BookingDetails{
		ServiceID:  task.ServiceID,
		LocationID: task.LocationID,
		Slot:       task.Slot,
		BookingID:  result.BookingID,
	})
	if err != nil {
		log.Warn("booked notification failed", slog.Any("err", err))
	}
}

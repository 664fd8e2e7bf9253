package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"terminwatch/internal/bookingapi"
	"terminwatch/internal/domain"
	"terminwatch/internal/notify"
)

// runScheduler polls on a fixed cadence until the context is canceled.
// The interval is measured from the end of one pass to the start of the
// next. No error terminates the loop; only cancellation does.
func (m *Manager) runScheduler(ctx context.Context, client AppointmentClient, queue *TaskQueue) {
	defer m.wg.Done()
	log := m.log.With(slog.String("loop", "scheduler"))

	for {
		if err := m.runPass(ctx, client, queue); err != nil && ctx.Err() == nil {
			log.Error("scheduler pass failed", slog.Any("err", err))
		}

		timer := time.NewTimer(m.cfg.CheckInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runPass checks every active subscription once. A failing subscription
// never aborts the pass for the others; only a failure to fetch the
// subscription list fails the pass as a whole.
func (m *Manager) runPass(ctx context.Context, client AppointmentClient, queue *TaskQueue) error {
	subs, err := m.subs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active subscriptions: %w", err)
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.checkSubscription(ctx, client, queue, sub)
	}
	return nil
}

func (m *Manager) checkSubscription(ctx context.Context, client AppointmentClient, queue *TaskQueue, sub domain.Subscription) {
	log := m.log.With(
		slog.String("subscription_id", sub.ID.String()),
		slog.String("user_id", sub.UserID),
		slog.String("service_id", sub.ServiceID),
		slog.String("location_id", sub.LocationID),
	)

	slots, err := client.CheckAvailability(ctx, sub.ServiceID, sub.LocationID, sub.Preferences)
	if err != nil {
		if errors.Is(err, bookingapi.ErrRateLimited) {
			log.Warn("availability check rate limited", slog.Duration("backoff", m.cfg.RetryDelay))
			sleepCtx(ctx, m.cfg.RetryDelay)
			return
		}
		log.Error("availability check failed", slog.Any("err", err))
		return
	}

	for _, slot := range slots {
		if !domain.Matches(slot, sub.Preferences) {
			continue
		}

		queue.Put(domain.BookingTask{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			ServiceID:      sub.ServiceID,
			LocationID:     sub.LocationID,
			Slot:           slot,
		})
		log.Info("matching slot found", slog.String("slot_date", slot.Date), slog.String("slot_time", slot.Time))

		err := m.notifier.AppointmentFound(ctx, sub.UserID, notify.AppointmentDetails{
			ServiceID:  sub.ServiceID,
			LocationID: sub.LocationID,
			Slot:       slot,
		})
		if err != nil {
			log.Warn("found notification failed", slog.Any("err", err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

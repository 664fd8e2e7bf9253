package store

import (
	"context"

	"terminwatch/internal/domain"
)

type BookingRepository interface {
	// RecordBooking persists a confirmed booking. Recording the same
	// booking reference twice returns ErrConflict.
	RecordBooking(ctx context.Context, booking domain.Booking) (domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
}

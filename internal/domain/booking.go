package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Booking records a confirmed appointment. BookingRef is the booking
// site's confirmation id and is unique, so replaying a confirmation cannot
// create a second row.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	SubscriptionID uuid.UUID `bun:"subscription_id,type:uuid,notnull"`
	UserID         string    `bun:"user_id,notnull"`
	ServiceID      string    `bun:"service_id,notnull"`
	LocationID     string    `bun:"location_id,notnull"`
	SlotDate       string    `bun:"slot_date,notnull"`
	SlotTime       string    `bun:"slot_time,notnull"`
	BookingRef     string    `bun:"booking_ref,notnull,unique"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

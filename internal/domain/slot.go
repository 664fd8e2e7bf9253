package domain

import "github.com/google/uuid"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Slot is one bookable date/time candidate as returned by the booking site.
// Slots are transient; they are never persisted directly.
type Slot struct {
	Date     string            `json:"date"`
	Time     string            `json:"time"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BookingTask is the unit of work handed from the scheduler to the worker
// pool: attempt to book this slot for this subscription's user. A failed
// task is terminal; the next scheduler pass creates a fresh task if the
// slot is still open.
type BookingTask struct {
	SubscriptionID uuid.UUID
	UserID         string
	ServiceID      string
	LocationID     string
	Slot           Slot
}

// BookingResult is the outcome of one booking attempt. Failures at any
// layer (rate limit, HTTP status, network) land here rather than as errors
// so the worker loop has a single shape to act on.
type BookingResult struct {
	Success   bool
	BookingID string
	Error     string
}

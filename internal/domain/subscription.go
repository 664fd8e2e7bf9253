package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// Subscription is a user's standing request: watch one service at one
// location and book any slot that matches the preferences.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions"`

	ID          uuid.UUID          `bun:"id,pk,type:uuid"`
	UserID      string             `bun:"user_id,notnull"`
	ServiceID   string             `bun:"service_id,notnull"`
	LocationID  string             `bun:"location_id,notnull"`
	Preferences Preferences        `bun:"preferences,type:jsonb"`
	Status      SubscriptionStatus `bun:"status,notnull"`
	CreatedAt   time.Time          `bun:"created_at,notnull"`
	UpdatedAt   time.Time          `bun:"updated_at,notnull"`
}

func (s *Subscription) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.Status == "" {
			s.Status = SubscriptionStatusActive
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Preferences constrains which slots a subscription matches. Absent fields
// leave that dimension unconstrained.
type Preferences struct {
	DateRange *DateRange `json:"date_range,omitempty"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
	Weekdays  []int      `json:"weekdays,omitempty"`
}

// DateRange bounds are inclusive, formatted YYYY-MM-DD.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeRange bounds are inclusive, formatted HH:MM in the booking site's
// local time.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ValidatePreferences rejects malformed bounds and out-of-range weekday
// indices (Monday = 0 .. Sunday = 6). Used where preferences enter the
// system; the matcher itself treats malformed input as non-matching.
func ValidatePreferences(p Preferences) error {
	if p.DateRange != nil {
		start, err := time.Parse(DateLayout, p.DateRange.Start)
		if err != nil {
			return fmt.Errorf("invalid date_range.start %q", p.DateRange.Start)
		}
		end, err := time.Parse(DateLayout, p.DateRange.End)
		if err != nil {
			return fmt.Errorf("invalid date_range.end %q", p.DateRange.End)
		}
		if end.Before(start) {
			return fmt.Errorf("date_range.end %q before date_range.start %q", p.DateRange.End, p.DateRange.Start)
		}
	}
	if p.TimeRange != nil {
		start, err := time.Parse(TimeLayout, p.TimeRange.Start)
		if err != nil {
			return fmt.Errorf("invalid time_range.start %q", p.TimeRange.Start)
		}
		end, err := time.Parse(TimeLayout, p.TimeRange.End)
		if err != nil {
			return fmt.Errorf("invalid time_range.end %q", p.TimeRange.End)
		}
		if end.Before(start) {
			return fmt.Errorf("time_range.end %q before time_range.start %q", p.TimeRange.End, p.TimeRange.Start)
		}
	}
	for _, wd := range p.Weekdays {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("invalid weekday %d", wd)
		}
	}
	return nil
}

package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"terminwatch/internal/domain"
	"terminwatch/internal/ratelimit"
)

// Logical endpoint names used as rate-limit keys. Shared by every caller in
// the process.
const (
	EndpointCheckAvailability = "check_availability"
	EndpointBookAppointment   = "book_appointment"
)

// ErrRateLimited signals that the local gate denied the call. No request
// was sent; callers treat it as "no result this round" and back off.
var ErrRateLimited = errors.New("rate limit exceeded")

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client wraps the booking site's two operations. Every outbound call first
// consumes a token from the shared limiter; failures at the HTTP or network
// layer are converted into empty results or failure results here and never
// escape as panics.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiKey     string
	limiter    ratelimit.Limiter
	log        *slog.Logger
}

func NewClient(cfg Config, limiter ratelimit.Limiter, log *slog.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", base)
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u,
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		log:        log.With(slog.String("component", "bookingapi")),
	}, nil
}

type availabilityResponse struct {
	Slots []domain.Slot `json:"slots"`
}

// CheckAvailability fetches open slots for one service/location. The date
// range, when present, narrows the query server-side; full preference
// matching stays with the caller. A denied rate limit returns
// ErrRateLimited without issuing a request.
func (c *Client) CheckAvailability(ctx context.Context, serviceID, locationID string, prefs domain.Preferences) ([]domain.Slot, error) {
	if !c.limiter.Allow(ctx, EndpointCheckAvailability) {
		return nil, ErrRateLimited
	}

	q := url.Values{}
	q.Set("service_id", serviceID)
	q.Set("location_id", locationID)
	if prefs.DateRange != nil {
		q.Set("date_from", prefs.DateRange.Start)
		q.Set("date_to", prefs.DateRange.End)
	}

	endpoint := c.baseURL.JoinPath("/api/availability")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("availability request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn(
			"availability check returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("service_id", serviceID),
			slog.String("location_id", locationID),
		)
		return nil, fmt.Errorf("availability check: unexpected status %d", resp.StatusCode)
	}

	var parsed availabilityResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("availability response decode failed: %w", err)
	}
	return parsed.Slots, nil
}

type bookRequest struct {
	ServiceID  string `json:"service_id"`
	LocationID string `json:"location_id"`
	UserID     string `json:"user_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

type bookResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"booking_id"`
	Error     string `json:"error"`
}

// Book attempts to book the task's slot. Every failure mode lands in the
// returned BookingResult; the worker loop never has to distinguish
// transport errors from rejections.
func (c *Client) Book(ctx context.Context, task domain.BookingTask) domain.BookingResult {
	if !c.limiter.Allow(ctx, EndpointBookAppointment) {
		return domain.BookingResult{Success: false, Error: "rate limit exceeded"}
	}

	body, err := json.Marshal(bookRequest{
		ServiceID:  task.ServiceID,
		LocationID: task.LocationID,
		UserID:     task.UserID,
		Date:       task.Slot.Date,
		Time:       task.Slot.Time,
	})
	if err != nil {
		return domain.BookingResult{Success: false, Error: err.Error()}
	}

	endpoint := c.baseURL.JoinPath("/api/book")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return domain.BookingResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn(
			"booking request failed",
			slog.Any("err", err),
			slog.String("user_id", task.UserID),
			slog.String("slot_date", task.Slot.Date),
			slog.String("slot_time", task.Slot.Time),
		)
		return domain.BookingResult{Success: false, Error: fmt.Sprintf("booking request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn(
			"booking returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("user_id", task.UserID),
			slog.String("slot_date", task.Slot.Date),
			slog.String("slot_time", task.Slot.Time),
		)
		return domain.BookingResult{Success: false, Error: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var parsed bookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return domain.BookingResult{Success: false, Error: fmt.Sprintf("booking response decode failed: %v", err)}
	}
	if !parsed.Success {
		reason := parsed.Error
		if reason == "" {
			reason = "booking rejected"
		}
		return domain.BookingResult{Success: false, Error: reason}
	}
	return domain.BookingResult{Success: true, BookingID: parsed.BookingID}
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

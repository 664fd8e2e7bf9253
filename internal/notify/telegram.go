package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers notifications through the Telegram Bot API.
// The core's user ids are Telegram chat ids.
type TelegramNotifier struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

type TelegramConfig struct {
	Token   string
	APIBase string
	Timeout time.Duration
}

func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	apiBase := strings.TrimSpace(cfg.APIBase)
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		token:      token,
	}, nil
}

func (n *TelegramNotifier) AppointmentFound(ctx context.Context, userID string, details AppointmentDetails) error {
	text := fmt.Sprintf(
		"Found an appointment for %s at %s: %s %s",
		details.ServiceID, details.LocationID, details.Slot.Date, details.Slot.Time,
	)
	return n.sendMessage(ctx, userID, text)
}

func (n *TelegramNotifier) AppointmentBooked(ctx context.Context, userID string, details BookingDetails) error {
	text := fmt.Sprintf(
		"Booked %s at %s for %s %s. Confirmation: %s",
		details.ServiceID, details.LocationID, details.Slot.Date, details.Slot.Time, details.BookingID,
	)
	return n.sendMessage(ctx, userID, text)
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"terminwatch/internal/domain"
	"terminwatch/internal/notify"
)

// ConfigurationError marks failures that prevent the manager from starting
// at all, as opposed to the recoverable errors the loops absorb.
type ConfigurationError struct {
	err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("appointment manager configuration: %v", e.err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

type Config struct {
	CheckInterval time.Duration
	NumWorkers    int
	MaxRetries    int
	RetryDelay    time.Duration
}

// AppointmentClient is what the manager needs from the booking site
// client. Book reports every failure in the result, never by panicking.
type AppointmentClient interface {
	CheckAvailability(ctx context.Context, serviceID, locationID string, prefs domain.Preferences) ([]domain.Slot, error)
	Book(ctx context.Context, task domain.BookingTask) domain.BookingResult
}

// ClientFactory builds the API client during Initialize, so a bad API
// configuration fails Initialize instead of the first scheduler pass.
type ClientFactory func() (AppointmentClient, error)

type SubscriptionSource interface {
	ListActive(ctx context.Context) ([]domain.Subscription, error)
}

type BookingRecorder interface {
	RecordBooking(ctx context.Context, booking domain.Booking) (domain.Booking, error)
}

// Manager owns the scheduler loop and the worker pool. One instance per
// process; Initialize to bring it up, Close to tear it down. Start and
// Stop toggle the loops without releasing the API client.
type Manager struct {
	cfg      Config
	factory  ClientFactory
	subs     SubscriptionSource
	bookings BookingRecorder
	notifier notify.Notifier
	log      *slog.Logger

	mu      sync.Mutex
	client  AppointmentClient
	queue   *TaskQueue
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	liveWorkers atomic.Int32
}

func NewManager(cfg Config, factory ClientFactory, subs SubscriptionSource, bookings BookingRecorder, notifier notify.Notifier, log *slog.Logger) *Manager {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		factory:  factory,
		subs:     subs,
		bookings: bookings,
		notifier: notifier,
		log:      log.With(slog.String("component", "booking.manager")),
		queue:    NewTaskQueue(),
	}
}

// Initialize builds the API client and starts the loops. Calling it on an
// already-initialized manager just (re)starts the loops.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	if m.client == nil {
		client, err := m.factory()
		if err != nil {
			m.mu.Unlock()
			return &ConfigurationError{err: err}
		}
		m.client = client
	}
	m.mu.Unlock()

	m.Start()
	return nil
}

// Start launches the scheduler and the worker pool. A no-op while already
// running or before Initialize. The worker count and check interval are
// fixed for the lifetime of this running cycle.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.client == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	client := m.client
	queue := m.queue

	for i := 0; i < m.cfg.NumWorkers; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, client, queue, i)
	}
	m.wg.Add(1)
	go m.runScheduler(ctx, client, queue)

	m.running = true
	m.log.Info(
		"appointment manager started",
		slog.Int("workers", m.cfg.NumWorkers),
		slog.Duration("check_interval", m.cfg.CheckInterval),
	)
}

// Stop cancels the loops and waits for them to finish. Workers complete
// their current booking attempt before exiting; nothing is interrupted
// mid-request. A no-op when not running. The mutex is held across the
// wait so a concurrent Start cannot add to the group mid-wait; the loops
// never take the mutex, so they exit freely.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.cancel()
	m.cancel = nil

	m.wg.Wait()
	m.log.Info("appointment manager stopped")
}

// Close stops the loops, releases the API client, and resets internal
// state so the manager could be initialized again.
func (m *Manager) Close() {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if dropped := m.queue.Clear(); dropped > 0 {
		m.log.Warn("dropped queued booking tasks at close", slog.Int("count", dropped))
	}
	m.queue = NewTaskQueue()
	m.client = nil
}

// CheckAppointments runs one scheduler pass outside the timer. Tasks it
// enqueues are picked up by the worker pool if running, or on the next
// Start otherwise.
func (m *Manager) CheckAppointments(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	queue := m.queue
	m.mu.Unlock()

	if client == nil {
		return &ConfigurationError{err: errors.New("manager is not initialized")}
	}
	return m.runPass(ctx, client, queue)
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// WorkerCount reports how many worker goroutines are currently alive.
func (m *Manager) WorkerCount() int {
	return int(m.liveWorkers.Load())
}

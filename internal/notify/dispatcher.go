// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/event"
	"github.com/vfriends/vfriends/internal/eventbus"
	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/pkg/errutil"
)

// Dispatcher defaults.
const (
	DefaultWorkers    = 2
	DefaultQueueSize  = 64
	DefaultMaxPending = 10000
	DefaultTitle      = "VRChat"
	requestTimeout    = 15 * time.Second
)

// IconFetcher resolves an icon URL to a local file.
type IconFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Request is one queued friend-online notification.
type Request struct {
	ID       string
	Friend   event.FriendOnline
	Received time.Time
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Resolver *Resolver
	Notifier Notifier
	// Icons is optional; without it notifications carry no icon.
	Icons   IconFetcher
	Title   string
	Workers int
	// QueueSize is the backlog above which a warning is logged. Requests
	// beyond it are still queued.
	QueueSize int
	// MaxPending caps the backlog. Requests beyond it are refused with an
	// error log.
	MaxPending int
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	// OnEvent, if set, observes every classified event on the read loop.
	OnEvent func(event.Event)
}

// Dispatcher classifies pipeline payloads and renders friend-online
// notifications on a fixed pool of workers. Handle never blocks; requests
// wait in an in-memory FIFO until a worker is free.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger *slog.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	ready   *sync.Cond
	pending []Request
	backlog bool
	closed  bool
}

// NewDispatcher validates cfg and starts the workers.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Resolver == nil {
		return nil, oops.Errorf("resolver is required")
	}
	if cfg.Notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.MaxPending < cfg.QueueSize {
		cfg.MaxPending = cfg.QueueSize
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logger,
	}
	d.ready = sync.NewCond(&d.mu)
	for range cfg.Workers {
		d.wg.Add(1)
		go d.work()
	}
	return d, nil
}

// Handle classifies one raw payload and enqueues friend-online events.
// Unparseable payloads are logged and dropped.
func (d *Dispatcher) Handle(payload string) {
	ev, err := event.Parse(payload)
	if err != nil {
		d.logger.Debug("pipeline payload dropped", "error", err, "bytes", len(payload))
		d.cfg.Metrics.EventClassified("unparseable")
		return
	}
	d.cfg.Metrics.EventClassified(ev.Kind())
	if d.cfg.OnEvent != nil {
		d.cfg.OnEvent(ev)
	}

	if friend, ok := ev.(event.FriendOnline); ok {
		d.Enqueue(friend)
	}
}

// Enqueue queues a notification for friend. It reports false when the
// dispatcher is closed or MaxPending requests are already waiting.
func (d *Dispatcher) Enqueue(friend event.FriendOnline) bool {
	req := Request{ID: eventbus.NewID().String(), Friend: friend, Received: time.Now()}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if len(d.pending) >= d.cfg.MaxPending {
		d.logger.Error("notification backlog at capacity, dropping",
			"request_id", req.ID,
			"user_id", friend.UserID,
			"display_name", friend.DisplayName,
			"pending", len(d.pending))
		d.cfg.Metrics.Notification(observability.NotifyDropped)
		return false
	}

	d.pending = append(d.pending, req)
	if n := len(d.pending); n > d.cfg.QueueSize && !d.backlog {
		d.backlog = true
		d.logger.Warn("notification backlog growing", "pending", n, "workers", d.cfg.Workers)
	}
	d.ready.Signal()
	return true
}

// Pending reports how many requests are waiting for a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close stops accepting requests, lets the workers drain the backlog and
// waits for them. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.ready.Broadcast()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		req, ok := d.next()
		if !ok {
			return
		}
		d.process(req)
	}
}

// next blocks until a request is queued. It reports false once the
// dispatcher is closed and the backlog is empty.
func (d *Dispatcher) next() (Request, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.pending) == 0 && !d.closed {
		d.ready.Wait()
	}
	if len(d.pending) == 0 {
		return Request{}, false
	}

	req := d.pending[0]
	d.pending[0] = Request{}
	d.pending = d.pending[1:]
	if len(d.pending) == 0 {
		d.pending = nil
		d.backlog = false
	}
	return req, true
}

func (d *Dispatcher) process(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	friend := req.Friend
	res, ok, err := d.cfg.Resolver.Resolve(ctx, friend.UserID, friend.DisplayName)
	if err != nil {
		errutil.LogError(d.logger, "resolve notification preferences", err)
		d.cfg.Metrics.Notification(observability.NotifyFailed)
		return
	}
	if !ok {
		d.logger.Debug("notification suppressed", "request_id", req.ID, "user_id", friend.UserID)
		d.cfg.Metrics.Notification(observability.NotifySuppressed)
		return
	}

	n := Notification{
		ID:          req.ID,
		UserID:      friend.UserID,
		DisplayName: friend.DisplayName,
		Title:       d.cfg.Title,
		Body:        res.Message,
		Sound:       res.Sound,
	}
	if d.cfg.Icons != nil && friend.ImageURL != "" {
		iconPath, err := d.cfg.Icons.Fetch(ctx, friend.ImageURL)
		if err != nil {
			errutil.LogWarn(d.logger, "icon fetch failed, notifying without icon", err)
		} else {
			n.IconPath = iconPath
		}
	}

	if err := d.cfg.Notifier.Notify(ctx, n); err != nil {
		errutil.LogError(d.logger, "notification failed", err)
		d.cfg.Metrics.Notification(observability.NotifyFailed)
		return
	}
	d.cfg.Metrics.Notification(observability.NotifySent)
}

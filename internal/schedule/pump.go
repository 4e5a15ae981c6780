package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
	"github.com/robfig/cron/v3"
)

// Dispatcher delivers a fired notification's text to a channel. Delivery is
// fire-and-forget from the pump's perspective; failures are logged, not
// retried.
type Dispatcher interface {
	Notify(ctx context.Context, channelID, text string) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, channelID, text string) error

func (f DispatcherFunc) Notify(ctx context.Context, channelID, text string) error {
	return f(ctx, channelID, text)
}

// Pump periodically drains due notifications from the store and forwards
// them to the dispatcher.
type Pump struct {
	store      *Store
	dispatcher Dispatcher
	interval   time.Duration
	cron       *cron.Cron
}

// NewPump creates a pump polling at the given interval. Sub-second intervals
// fall back to the default of one minute.
func NewPump(store *Store, dispatcher Dispatcher, interval time.Duration) *Pump {
	if interval < time.Second {
		interval = time.Minute
	}
	return &Pump{store: store, dispatcher: dispatcher, interval: interval}
}

// Start begins the polling loop on a cron driver with panic recovery.
func (p *Pump) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := c.AddFunc(spec, func() { p.Tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("failed to schedule pump tick: %w", err)
	}
	c.Start()
	p.cron = c
	slog.Info("Pump.Start: timer pump started", "interval", p.interval)
	return nil
}

// Stop stops the polling loop and waits for a running tick to finish.
func (p *Pump) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
		slog.Info("Pump.Stop: timer pump stopped")
	}
}

// Tick extracts everything due at now and dispatches it. Exposed for the
// cron callback and for tests.
func (p *Pump) Tick(ctx context.Context, now time.Time) {
	due := p.store.TakeDue(now)
	for channelID, notifications := range due {
		for _, n := range notifications {
			text := FormatNotification(n)
			if err := p.dispatcher.Notify(ctx, channelID, text); err != nil {
				slog.Error("Pump.Tick: notification dispatch failed", "error", err, "channelID", channelID)
				continue
			}
			slog.Debug("Pump.Tick: notification dispatched", "channelID", channelID, "fireAt", n.FireAt)
		}
	}
}

// FormatNotification renders a fired notification as a mention line followed
// by the message text.
func FormatNotification(n models.ScheduledNotification) string {
	mentions := make([]string, 0, len(n.Targets))
	for _, target := range n.Targets {
		mentions = append(mentions, "@"+target)
	}
	if len(mentions) == 0 {
		return n.Message
	}
	return strings.Join(mentions, " ") + "\n" + n.Message
}

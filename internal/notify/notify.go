// Package notify delivers best-effort notifications about moderation events.
// Delivery never blocks or fails the operation that triggered it.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventPromptApproved   EventType = "prompt.approved"
	EventModerationDigest EventType = "moderation.digest"
)

type Event struct {
	Type         EventType
	PromptID     string
	Text         string
	PendingCount int
}

// Sender delivers one event to one external service.
type Sender interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Notifier is what the rest of the application publishes to.
type Notifier interface {
	Notify(ev Event)
}

// Multi fans an event out to every sender and joins their errors.
type Multi []Sender

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Name() string                      { return "nop" }
func (Nop) Send(context.Context, Event) error { return nil }
func (Nop) Notify(Event)                      {}

// Dispatcher sends events on background goroutines, each with its own
// timeout. Failures are logged and dropped.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		log:     log.WithField("component", "notify"),
	}
}

func (d *Dispatcher) Notify(ev Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		entry := d.log.WithFields(logrus.Fields{"event": ev.Type, "sender": d.sender.Name()})
		if ev.PromptID != "" {
			entry = entry.WithField("prompt_id", ev.PromptID)
		}
		if err := d.sender.Send(ctx, ev); err != nil {
			entry.WithError(err).Warn("notification failed")
			return
		}
		entry.Debug("notification sent")
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

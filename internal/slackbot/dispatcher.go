package slackbot

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/slack-go/slack/slackevents"
)

// EventHandler has one method per supported Events API variant.
// Only app_mention is handled.
type EventHandler interface {
	OnAppMention(ctx context.Context, ev *slackevents.AppMentionEvent)
}

// Dispatcher routes callback events to the handler registered for their inner type
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	logger   *log.Logger
}

// NewDispatcher constructs an empty Dispatcher
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	return &Dispatcher{
		handlers: make(map[string]EventHandler),
		logger:   logger,
	}
}

// Register binds h to an inner event type such as "app_mention"
func (d *Dispatcher) Register(eventType string, h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = h
}

// Dispatch runs the matching handler synchronously and reports whether one ran
func (d *Dispatcher) Dispatch(ctx context.Context, ev slackevents.EventsAPIEvent) bool {
	if ev.Type != slackevents.CallbackEvent {
		return false
	}
	inner := ev.InnerEvent

	d.mu.RLock()
	h, ok := d.handlers[inner.Type]
	d.mu.RUnlock()
	if !ok {
		d.logger.Printf("event=dispatch status=ignored type=%s", inner.Type)
		return false
	}

	switch data := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		h.OnAppMention(ctx, data)
		return true
	default:
		d.logger.Printf("event=dispatch status=unsupported type=%s data=%T", inner.Type, inner.Data)
		return false
	}
}

// NewMentionDispatcher returns a dispatcher with h registered for app_mention
func NewMentionDispatcher(h EventHandler, logger *log.Logger) *Dispatcher {
	d := NewDispatcher(logger)
	d.Register(string(slackevents.AppMention), h)
	return d
}

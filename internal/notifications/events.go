package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType represents a notification event category.
type EventType string

const (
	EventScanSkipped      EventType = "scan_skipped"
	EventScanCompleted    EventType = "scan_completed"
	EventCleanupCompleted EventType = "cleanup_completed"
	EventItemImported     EventType = "item_imported"
)

// Event is one fire-and-forget notification.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    EventType `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewEvent stamps a fresh event.
func NewEvent(t EventType, title, message string) Event {
	return Event{
		ID:      uuid.New(),
		Type:    t,
		Title:   title,
		Message: message,
		At:      time.Now().UTC(),
	}
}

// Sink consumes published events. Implementations must not block the
// publisher.
type Sink interface {
	Publish(evt Event)
}

// Dispatcher fans events out to webhook targets. Publishing never blocks:
// delivery runs on its own goroutine and failures are logged, not returned.
type Dispatcher struct {
	sender  *WebhookSender
	targets []WebhookTarget
}

func NewDispatcher(sender *WebhookSender, targets []WebhookTarget) *Dispatcher {
	return &Dispatcher{sender: sender, targets: targets}
}

// Publish delivers the event to every configured target.
func (d *Dispatcher) Publish(evt Event) {
	if d == nil || len(d.targets) == 0 {
		return
	}
	go func() {
		for _, target := range d.targets {
			if err := d.sender.Send(target, evt); err != nil {
				log.Warn().Err(err).Str("target", target.Name).Str("event", string(evt.Type)).Msg("webhook delivery failed")
			}
		}
	}()
}

// NopSink drops every event; used when no targets are configured.
type NopSink struct{}

func (NopSink) Publish(Event) {}

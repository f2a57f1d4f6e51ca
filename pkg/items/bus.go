package items

import (
	"errors"
	"log/slog"
)

// ErrSubscriberExists is returned when a second handler subscribes to a bus.
var ErrSubscriberExists = errors.New("item used bus already has a subscriber")

// Handler consumes item used events.
type Handler func(UsedEvent)

// Subscription identifies a registered handler.
type Subscription struct {
	id uint64
}

// Bus carries item used events to exactly one subscriber.
type Bus struct {
	handler Handler
	current uint64
	next    uint64
	logger  *slog.Logger
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers the handler. Only one handler may be registered at a time;
// the previous one must be unsubscribed first.
func (b *Bus) Subscribe(h Handler) (Subscription, error) {
	if b.handler != nil {
		return Subscription{}, ErrSubscriberExists
	}
	b.next++
	b.current = b.next
	b.handler = h
	return Subscription{id: b.current}, nil
}

// Unsubscribe removes the handler if sub is still the active subscription.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 || sub.id != b.current {
		return
	}
	b.handler = nil
	b.current = 0
}

// Subscribed reports whether a handler is registered.
func (b *Bus) Subscribed() bool {
	return b.handler != nil
}

// Publish delivers an event synchronously. A panicking handler is logged, not propagated.
func (b *Bus) Publish(ev UsedEvent) {
	if b.handler == nil {
		b.logger.Debug("Item used with no subscriber", "item_id", ev.ItemID)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Item used handler panicked", "item_id", ev.ItemID, "panic", r)
		}
	}()
	b.handler(ev)
}

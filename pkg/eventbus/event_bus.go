package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/lead-rotation/pkg/serrors"
)

// Handler reacts to a published event. Returned errors are logged by Publish
// and joined by PublishE.
type Handler[E any] func(ctx context.Context, event E) error

type EventBus[E any] interface {
	Publish(ctx context.Context, event E)
	PublishE(ctx context.Context, event E) error
	Subscribe(handler Handler[E]) (unsubscribe func())
	SubscribersCount() int
}

var ErrNoSubscribers = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")

type subscriber[E any] struct {
	id      uint64
	handler Handler[E]
}

type publisherImpl[E any] struct {
	log *logrus.Logger

	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscriber[E]
}

func NewEventPublisher[E any](log *logrus.Logger) EventBus[E] {
	return &publisherImpl[E]{log: log}
}

func (p *publisherImpl[E]) snapshot() []subscriber[E] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]subscriber[E], len(p.subscribers))
	copy(out, p.subscribers)
	return out
}

// Publish delivers event to every subscriber. Handler errors and panics
// are logged and never stop delivery to the remaining subscribers.
func (p *publisherImpl[E]) Publish(ctx context.Context, event E) {
	subs := p.snapshot()
	if len(subs) == 0 {
		if p.log != nil {
			p.log.Warnf("eventbus.Publish: no matching subscribers for event %T", event)
		}
		return
	}
	for _, sub := range subs {
		if err := p.call(ctx, sub, event); err != nil && p.log != nil {
			p.log.WithError(err).Errorf("eventbus: handler %d failed for event %+v", sub.id, event)
		}
	}
}

func (p *publisherImpl[E]) PublishE(ctx context.Context, event E) error {
	subs := p.snapshot()
	if len(subs) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, sub := range subs {
		if err := p.call(ctx, sub, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *publisherImpl[E]) call(ctx context.Context, sub subscriber[E], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %d panicked: %v", sub.id, r)
		}
	}()
	return sub.handler(ctx, event)
}

func (p *publisherImpl[E]) Subscribe(handler Handler[E]) func() {
	if handler == nil {
		panic("handler must not be nil")
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subscribers = append(p.subscribers, subscriber[E]{id: id, handler: handler})
	p.mu.Unlock()

	return func() { p.unsubscribe(id) }
}

func (p *publisherImpl[E]) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subscribers {
		if sub.id == id {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl[E]) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

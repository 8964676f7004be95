package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Subscriber consumes events. Errors are logged by the bus and never reach the publisher.
type Subscriber interface {
	HandleEvent(ctx context.Context, e Event) error
}

type SubscriberFunc func(ctx context.Context, e Event) error

func (f SubscriberFunc) HandleEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}

type subscription struct {
	name  string
	sub   Subscriber
	queue chan Event
}

// Bus decouples lifecycle transitions from their side effects. Publish never blocks;
// each subscriber drains its own queue so a slow mail server cannot stall redis fan-out.
type Bus struct {
	in     chan Event
	size   int
	logger *zap.Logger

	mu      sync.Mutex
	subs    []*subscription
	running bool
	stopped bool

	// OnDrop is called whenever an event is discarded. Optional.
	OnDrop func(subscriber string)
}

func NewBus(size int, logger *zap.Logger) *Bus {
	if size <= 0 {
		size = 1
	}
	return &Bus{
		in:     make(chan Event, size),
		size:   size,
		logger: logger.Named("events"),
	}
}

// Subscribe registers s under name. It must be called before Run.
func (b *Bus) Subscribe(name string, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.logger.Warn("subscribe after Run ignored", zap.String("subscriber", name))
		return
	}
	b.subs = append(b.subs, &subscription{name: name, sub: s, queue: make(chan Event, b.size)})
}

// Publish enqueues e without blocking. It reports false when the bus is full or
// Run has already begun its final drain.
func (b *Bus) Publish(e Event) bool {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.logger.Warn("event bus stopped, dropping event",
			zap.String("type", string(e.Type)),
			zap.String("interview_id", e.InterviewID))
		b.dropped("bus")
		return false
	}
	select {
	case b.in <- e:
		b.mu.Unlock()
		return true
	default:
		b.mu.Unlock()
		b.logger.Warn("event bus full, dropping event",
			zap.String("type", string(e.Type)),
			zap.String("interview_id", e.InterviewID))
		b.dropped("bus")
		return false
	}
}

// Run dispatches events until ctx is cancelled, then drains what is already queued.
func (b *Bus) Run(ctx context.Context) {
	b.mu.Lock()
	b.running = true
	subs := append([]*subscription(nil), b.subs...)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			for e := range s.queue {
				b.deliver(ctx, s, e)
			}
		}(s)
	}

	for {
		select {
		case e := <-b.in:
			b.fanOut(subs, e)
		case <-ctx.Done():
			b.mu.Lock()
			b.stopped = true
			b.mu.Unlock()
			for {
				select {
				case e := <-b.in:
					b.fanOut(subs, e)
				default:
					for _, s := range subs {
						close(s.queue)
					}
					wg.Wait()
					return
				}
			}
		}
	}
}

func (b *Bus) fanOut(subs []*subscription, e Event) {
	for _, s := range subs {
		select {
		case s.queue <- e:
		default:
			b.logger.Warn("subscriber queue full, dropping event",
				zap.String("subscriber", s.name),
				zap.String("type", string(e.Type)),
				zap.String("interview_id", e.InterviewID))
			b.dropped(s.name)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				zap.String("subscriber", s.name),
				zap.String("type", string(e.Type)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	// Delivery outlives the Run context so queued events still reach subscribers on shutdown.
	if err := s.sub.HandleEvent(context.WithoutCancel(ctx), e); err != nil {
		b.logger.Error("subscriber failed",
			zap.String("subscriber", s.name),
			zap.String("type", string(e.Type)),
			zap.String("interview_id", e.InterviewID),
			zap.Error(err))
	}
}

func (b *Bus) dropped(name string) {
	if b.OnDrop != nil {
		b.OnDrop(name)
	}
}

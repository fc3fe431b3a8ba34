package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/kafka"
)

const defaultBufferSize = 1024

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector publishes ModelUpdated events from a buffered channel so that
// callers holding the model lock never wait on the broker.
type Collector struct {
	publisher Publisher
	eventCh   chan ModelUpdated
	onPublish func(err error)
	logger    *slog.Logger
	done      chan struct{}
}

// NewCollector creates a Collector. onPublish, if non-nil, is told the
// outcome of each publish attempt.
func NewCollector(publisher Publisher, bufferSize int, onPublish func(err error)) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if onPublish == nil {
		onPublish = func(error) {}
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan ModelUpdated, bufferSize),
		onPublish: onPublish,
		logger:    slog.Default().With("component", "model-events"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("model event collector started", "buffer_size", cap(c.eventCh))
}

// Track queues an event, dropping it when the buffer is full.
func (c *Collector) Track(event ModelUpdated) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("model event dropped (buffer full)", "version", event.Version)
	}
}

// Close stops accepting events and waits for queued ones to be published.
// Track must not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event ModelUpdated) {
	err := c.publisher.Publish(ctx, kafka.Event{Key: event.Source, Value: event})
	if err != nil {
		c.logger.Error("failed to publish model event", "version", event.Version, "error", err)
	}
	c.onPublish(err)
}

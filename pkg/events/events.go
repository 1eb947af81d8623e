package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"fooddelivery/pkg/circuitbreaker"
	"fooddelivery/pkg/config"
	"fooddelivery/pkg/models"
	"fooddelivery/pkg/queue"
)

const TypeEntityDeleted = "entity_deleted"

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Kind      string    `json:"kind"`
	EntityID  uint      `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(conf config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(conf.Brokers...),
		Topic:                  conf.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
}

// Publisher sends deletion events to Kafka. Failed sends are parked in a
// retry queue and picked up by RunRetries.
type Publisher struct {
	writer        MessageWriter
	breaker       *circuitbreaker.CircuitBreaker
	retries       *queue.Queue
	maxRetries    int
	retryInterval time.Duration
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewPublisher(writer MessageWriter, conf config.Kafka, log logrus.FieldLogger) *Publisher {
	return &Publisher{
		writer:        writer,
		breaker:       circuitbreaker.New(3, 30*time.Second),
		retries:       queue.NewQueue(),
		maxRetries:    conf.MaxRetries,
		retryInterval: conf.RetryInterval,
		log:           log,
		now:           time.Now,
	}
}

// Deleted publishes an entity_deleted event. A failed send is queued for
// retry and reported to the caller.
func (p *Publisher) Deleted(ctx context.Context, kind models.Kind, id uint) error {
	event := Event{
		ID:        uuid.NewString(),
		Type:      TypeEntityDeleted,
		Kind:      kind.String(),
		EntityID:  id,
		Timestamp: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &queue.Message{
		ID:         event.ID,
		Key:        []byte(fmt.Sprintf("%s:%d", kind, id)),
		Value:      payload,
		MaxRetries: p.maxRetries,
	}
	if err := p.send(ctx, msg); err != nil {
		p.park(msg)
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, msg *queue.Message) error {
	return p.breaker.Execute(func() error {
		return p.writer.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
	})
}

func (p *Publisher) park(msg *queue.Message) {
	msg.RetryCount++
	if msg.Exhausted() {
		p.log.WithFields(logrus.Fields{"event_id": msg.ID, "attempts": msg.RetryCount}).
			Error("dropping event after too many failed attempts")
		return
	}
	msg.RetryAt = p.now().Add(time.Duration(msg.RetryCount) * p.retryInterval)
	p.retries.Enqueue(msg)
}

// Flush tries every queued message that is due.
func (p *Publisher) Flush(ctx context.Context) {
	for {
		msg := p.retries.Dequeue(p.now())
		if msg == nil {
			return
		}
		if err := p.send(ctx, msg); err != nil {
			p.log.WithError(err).WithField("event_id", msg.ID).Warn("event retry failed")
			p.park(msg)
			continue
		}
		p.log.WithField("event_id", msg.ID).Info("event delivered on retry")
	}
}

// Pending is the number of messages waiting for a retry.
func (p *Publisher) Pending() int {
	return p.retries.Size()
}

// RunRetries flushes the retry queue every interval until ctx is done.
func (p *Publisher) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

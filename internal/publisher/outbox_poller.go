// Package publisher relays committed outbox events to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const batchSize = 100

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	eventTick time.Duration
	repo      OutboxRepository
	writer    MessageWriter
	log       logrus.FieldLogger
}

func NewOutboxPoller(repo OutboxRepository, topic string, pollInterval time.Duration, log logrus.FieldLogger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewOutboxPollerWithWriter(repo, w, pollInterval, log)
}

func NewOutboxPollerWithWriter(repo OutboxRepository, w MessageWriter, pollInterval time.Duration, log logrus.FieldLogger) *OutboxPoller {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &OutboxPoller{eventTick: pollInterval, repo: repo, writer: w, log: log}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents publishes one batch in creation order. An event
// that fails to publish stays unprocessed and is retried on the next tick.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.WithError(err).Error("failed to fetch outbox events")
		return 0
	}

	published := 0
	for _, event := range events {
		log := p.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.EventType,
		})

		if err := p.publishToKafka(ctx, event); err != nil {
			log.WithError(err).Error("failed to publish outbox event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.WithError(err).Error("failed to mark outbox event as processed")
			continue
		}
		metrics.OutboxPublished.WithLabelValues(event.EventType).Inc()
		published++
	}
	return published
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps an order's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

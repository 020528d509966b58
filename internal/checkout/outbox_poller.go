package checkout

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// EventWriter is the slice of kafka.Writer the poller uses; tests swap in a
// recorder.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains unprocessed outbox rows to Kafka so order completion
// events survive broker outages.
type OutboxPoller struct {
	tick   time.Duration
	repo   RepoInterface
	writer EventWriter
}

func NewOutboxPoller(repo RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, repo: repo, writer: w}
}

// NewOutboxPollerWithWriter injects the writer; used by tests.
func NewOutboxPollerWithWriter(repo RepoInterface, writer EventWriter, tick time.Duration) *OutboxPoller {
	return &OutboxPoller{tick: tick, repo: repo, writer: writer}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateId), // order id for ordering
			Value: event.Payload,             // Already JSON from database
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}

		if errPublish := p.writer.WriteMessages(ctx, msg); errPublish != nil {
			log.Error().Err(errPublish).Int("event_id", event.ID).Msg("failed to publish outbox event")
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			log.Error().Err(errMark).Int("event_id", event.ID).Msg("failed to mark outbox event processed")
			continue
		}
	}
}

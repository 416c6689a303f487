package events

import (
	"context"
	"time"

	"google.golang.org/protobuf/proto"

	"tradecouncil/internal/adapters/kafka"
	"tradecouncil/internal/metrics"
	"tradecouncil/internal/pipeline"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

// Producer is the part of kafka.Producer the publisher needs
type Producer interface {
	PublishBinary(ctx context.Context, topic string, key, value []byte) error
}

var _ pipeline.Notifier = (*Publisher)(nil)

// Publisher publishes pipeline events to Kafka
type Publisher struct {
	producer Producer
	topic    string
	log      *logger.Logger
	now      func() time.Time
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    kafka.TopicPipelineCompleted,
		log:      log.With("component", "event_publisher"),
		now:      time.Now,
	}
}

// WithTopic overrides the completion topic
func (p *Publisher) WithTopic(topic string) *Publisher {
	if topic != "" {
		p.topic = topic
	}
	return p
}

// PipelineCompleted publishes a finished run keyed by subject so that one
// subject's events stay ordered within a partition.
func (p *Publisher) PipelineCompleted(ctx context.Context, res *pipeline.Result) error {
	event, err := CompletedEvent(res, p.now())
	if err != nil {
		return err
	}
	return p.publish(ctx, p.topic, []byte(res.SubjectID), event)
}

// publish serializes event to protobuf binary
func (p *Publisher) publish(ctx context.Context, topic string, key []byte, event proto.Message) error {
	data, err := proto.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal protobuf")
	}

	err = p.producer.PublishBinary(ctx, topic, key, data)
	metrics.RecordKafkaMessage(topic, err)
	if err != nil {
		p.log.Errorw("Failed to publish event",
			"topic", topic,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published",
		"topic", topic,
		"size_bytes", len(data),
	)

	return nil
}

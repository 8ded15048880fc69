package settlement_feed

import (
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/events"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/repository"
)

// FeedMaterializer consumes the settlement event stream and maintains the
// settlement_feed table: one row per (order, chain) holding the latest
// observed lifecycle state.
type FeedMaterializer struct {
	logger         *zap.Logger
	kafkaConsumer  *kafka.Consumer
	feedRepository *repository.FeedRepository
	kafkaTopic     string
}

func NewFeedMaterializer(kafkaBroker, kafkaTopic string, logger *zap.Logger, feedRepository *repository.FeedRepository) (*FeedMaterializer, error) {
	// Setup Kafka consumer
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"group.id":          "settlement-feed-materializer",
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &FeedMaterializer{
		logger:         logger,
		kafkaConsumer:  consumer,
		feedRepository: feedRepository,
		kafkaTopic:     kafkaTopic,
	}, nil
}

func (fm *FeedMaterializer) Start() error {
	fm.logger.Info("Starting Settlement Feed Materializer...")

	// Subscribe to the topic
	err := fm.kafkaConsumer.Subscribe(fm.kafkaTopic, nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", fm.kafkaTopic, err)
	}

	// Start consuming messages
	for {
		msg, err := fm.kafkaConsumer.ReadMessage(-1)
		if err != nil {
			fm.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		if err := fm.processMessage(msg); err != nil {
			fm.logger.Error("Error processing message",
				zap.String("topic", *msg.TopicPartition.Topic),
				zap.Int32("partition", msg.TopicPartition.Partition),
				zap.String("key", string(msg.Key)),
				zap.Error(err))
		}
	}
}

func (fm *FeedMaterializer) processMessage(msg *kafka.Message) error {
	var event events.SettlementEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal settlement event: %w", err)
	}

	fm.logger.Info("Processing settlement event",
		zap.String("event_type", event.EventType),
		zap.String("order_hash", event.OrderHash),
		zap.Uint64("chain_id", event.ChainID))

	switch event.EventType {
	case events.EventTypeNewOrder, events.EventTypeOrderSettled, events.EventTypeOrdersReset:
		return fm.feedRepository.Upsert(model.FeedEntry{
			OrderHash:  event.OrderHash,
			ChainID:    event.ChainID,
			EventType:  event.EventType,
			Status:     event.Status,
			ObservedAt: event.Timestamp,
		})
	default:
		fm.logger.Warn("Unknown event type", zap.String("event_type", event.EventType))
		return nil
	}
}

func (fm *FeedMaterializer) Close() error {
	if fm.kafkaConsumer != nil {
		return fm.kafkaConsumer.Close()
	}
	return nil
}

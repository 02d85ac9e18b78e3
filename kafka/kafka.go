package kafka

import (
	"os"

	"github.com/Abhijeet14d/KrishiBandhu/logger"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

var (
	TurnProducer *kafka.Producer
	TurnTopic    string = "conversation_turns"
)

// InitProducer connects the turn-event producer. When
// KAFKA_BOOTSTRAP_SERVERS is unset the producer stays nil and
// ProduceTurnEvent becomes a no-op, so analytics are optional per
// deployment.
func InitProducer() error {
	servers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if servers == "" {
		logger.Get().Info("KAFKA_BOOTSTRAP_SERVERS not set, turn events disabled")
		return nil
	}

	config := &kafka.ConfigMap{
		"bootstrap.servers": servers,
	}
	if key := os.Getenv("KAFKA_API_KEY"); key != "" {
		_ = config.SetKey("sasl.username", key)
		_ = config.SetKey("sasl.password", os.Getenv("KAFKA_API_SECRET"))
		_ = config.SetKey("security.protocol", "SASL_SSL")
		_ = config.SetKey("sasl.mechanism", "PLAIN")
	}

	var err error
	TurnProducer, err = kafka.NewProducer(config)
	if err != nil {
		logger.Get().Error("failed to initialize Kafka producer",
			zap.String("bootstrap_servers", servers),
			zap.Error(err))
		return err
	}

	logger.Get().Info("Kafka producer initialized successfully",
		zap.String("bootstrap_servers", servers))
	return nil
}

// ProduceTurnEvent publishes one serialized turn event, keyed by
// conversation id so events for a conversation land in order.
func ProduceTurnEvent(conversationID string, payload []byte) error {
	if TurnProducer == nil {
		return nil
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &TurnTopic, Partition: kafka.PartitionAny},
		Key:            []byte(conversationID),
		Value:          payload,
	}

	err := TurnProducer.Produce(msg, nil)
	if err != nil {
		logger.Get().Error("failed to produce turn event",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return err
	}

	logger.Get().Debug("turn event produced",
		zap.String("conversation_id", conversationID))
	return nil
}

// CloseProducer flushes pending events and releases the producer.
func CloseProducer() {
	if TurnProducer == nil {
		return
	}
	TurnProducer.Flush(5000)
	TurnProducer.Close()
	logger.Get().Info("Kafka producer closed")
}

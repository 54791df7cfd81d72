package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/shopmate/sentinel/internal/security"
)

// KafkaSink publishes each flushed event to a broker topic, keyed by source
// IP so events from one address land on one partition in order.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaSink{producer: producer, topic: topic}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error {
	messages := make([]*sarama.ProducerMessage, 0, len(batch))
	for _, event := range batch {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		messages = append(messages, &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(event.IPAddress),
			Value: sarama.ByteEncoder(payload),
		})
	}
	return s.producer.SendMessages(messages)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

package feed

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/herocast/herocast/internal/config"
)

// Source yields raw change records. A closed or exhausted source returns an
// error from ReadMessage; the adapter decides whether that is transient.
type Source interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	Close() error
}

// KafkaSource reads change records from a Kafka topic as part of a consumer
// group.
type KafkaSource struct {
	reader *kafka.Reader
}

func NewKafkaSource(cfg config.KafkaConfig) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})

	return &KafkaSource{reader: reader}
}

func (s *KafkaSource) ReadMessage(ctx context.Context) ([]byte, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

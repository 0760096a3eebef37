package repository

import (
	"context"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/domain/repository"
	pkgkafka "NiftyPulse/pkg/kafka"
)

// KafkaQualityPublisher emits validation reports to a Kafka topic, keyed by
// symbol so per-symbol ordering is preserved.
type KafkaQualityPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaQualityPublisher creates the Kafka report publisher.
func NewKafkaQualityPublisher(producer *pkgkafka.Producer, topic string) repository.QualityPublisher {
	return &KafkaQualityPublisher{producer: producer, topic: topic}
}

func (p *KafkaQualityPublisher) PublishReport(ctx context.Context, report models.QualityReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(report.Symbol), report)
}

func (p *KafkaQualityPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"RateCast/internal/domain/models"
	pkgkafka "RateCast/pkg/kafka"
)

// KafkaPublisher implements ReportPublisher on top of a Kafka producer.
// Messages are keyed by symbol so per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer        *pkgkafka.Producer
	forecastTopic   string
	monitoringTopic string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, forecastTopic, monitoringTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:        producer,
		forecastTopic:   forecastTopic,
		monitoringTopic: monitoringTopic,
	}
}

func (p *KafkaPublisher) PublishForecast(ctx context.Context, pkg models.ForecastPackage) error {
	if err := p.producer.Publish(ctx, p.forecastTopic, []byte(pkg.Symbol), pkg); err != nil {
		return fmt.Errorf("publish forecast: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) PublishMonitoring(ctx context.Context, bundle models.MonitoringBundle) error {
	if err := p.producer.Publish(ctx, p.monitoringTopic, []byte(bundle.Symbol), bundle); err != nil {
		return fmt.Errorf("publish monitoring: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

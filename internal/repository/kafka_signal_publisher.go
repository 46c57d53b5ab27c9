package repository

import (
	"context"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	pkgkafka "QuantSig/pkg/kafka"
)

// KafkaSignalPublisher emits generated signals on the signal-events topic
// for downstream consumers (notifiers, order routers).
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) domrepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), map[string]interface{}{
		"id":                  s.ID,
		"symbol":              s.Symbol,
		"timeframe":           s.Timeframe,
		"direction":           string(s.Direction),
		"confidence":          s.Confidence,
		"entry_price":         s.EntryPrice,
		"target_price":        s.TargetPrice,
		"stop_price":          s.StopPrice,
		"risk_reward":         s.RiskRewardRatio,
		"expected_return_pct": s.ExpectedReturnPct,
		"created_at":          s.CreatedAt.Unix(),
		"expires_at":          s.ExpiresAt.Unix(),
	})
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

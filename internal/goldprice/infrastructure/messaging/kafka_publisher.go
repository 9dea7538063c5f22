// Package messaging 将金价领域事件发布到 Kafka。
package messaging

import (
	"context"
	"fmt"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/mq"
)

// KafkaEventPublisher 实现 domain.EventPublisher
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// PublishRateChanged 发布金价变动事件
func (p *KafkaEventPublisher) PublishRateChanged(ctx context.Context, event *domain.GoldRateChangedEvent) error {
	key := fmt.Sprintf("rate-%d", event.RateID)
	return p.producer.SendMessage(ctx, domain.TopicGoldRateChanged, key, event)
}

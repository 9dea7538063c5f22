// Package consumer 订阅金价变动事件并触发全量重定价。
package consumer

import (
	"context"
	"log/slog"

	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/application"
	goldprice "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/mq"
)

// RateChangedHandler 金价变动消费者
type RateChangedHandler struct {
	command *application.CatalogCommandService
	logger  *slog.Logger
}

// NewRateChangedHandler 创建金价变动消费者
func NewRateChangedHandler(command *application.CatalogCommandService, logger *slog.Logger) *RateChangedHandler {
	return &RateChangedHandler{command: command, logger: logger}
}

// Handle 处理一条金价变动消息
// 失败由消费循环记录并继续，缺口由下一轮行情修复
func (h *RateChangedHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event goldprice.GoldRateChangedEvent
	if err := msg.UnmarshalPayload(&event); err != nil {
		// 消息损坏没有重试价值，记日志后吞掉
		h.logger.Error("malformed rate changed event", "error", err, "offset", msg.Offset)
		return nil
	}

	h.logger.Info("handling gold rate changed event",
		"rate_id", event.RateID,
		"sell_price_24k", event.SellPrice24k.String(),
		"direction", event.Direction,
	)

	rate := &goldprice.GoldRate{
		SellPrice24k: event.SellPrice24k,
		SellPrice22k: event.SellPrice22k,
		SellPrice18k: event.SellPrice18k,
		Source:       event.Source,
		EffectiveAt:  event.EffectiveAt,
	}
	rate.ID = event.RateID

	return h.command.RepriceAll(ctx, rate)
}

// Package gateway 提供支付网关适配器。
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
)

// ForName 按配置名选择网关适配器，名字不认识直接报错让启动失败
// 目前只有 mock，接真实渠道时在这里挂新分支
func ForName(name, merchantName string) (domain.PaymentGateway, error) {
	switch strings.ToLower(name) {
	case "", "mock":
		return NewMockGateway(merchantName), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", name)
	}
}

// MockGateway 本地模拟网关
// QR_CODE 生成 EMV 风格报文（带 CRC16 校验），BANK_TRANSFER 返回静态转账说明
type MockGateway struct {
	merchantName string
	bankName     string
	accountNo    string
	accountName  string
}

// NewMockGateway 创建模拟网关
func NewMockGateway(merchantName string) *MockGateway {
	if merchantName == "" {
		merchantName = "TOKO EMAS TOKWEB"
	}
	return &MockGateway{
		merchantName: merchantName,
		bankName:     "BCA",
		accountNo:    "1234567890",
		accountName:  "PT Tokweb Emas",
	}
}

// CreateInstruction 实现 domain.PaymentGateway
func (g *MockGateway) CreateInstruction(ctx context.Context, order *domain.Order) (*domain.PaymentInstruction, error) {
	instruction := &domain.PaymentInstruction{
		Method:     order.PaymentMethod,
		ExternalID: order.PaymentExternalID,
		ExpiresAt:  order.PaymentDeadline,
	}

	switch order.PaymentMethod {
	case domain.PaymentMethodQRCode:
		instruction.Payload = g.buildEMVPayload(order)
	case domain.PaymentMethodBankTransfer:
		instruction.Payload = fmt.Sprintf(
			"Transfer %s IDR to %s account %s (%s). Use order number %s as the transfer note. Pay before %s.",
			order.TotalAmount.StringFixed(0),
			g.bankName,
			g.accountNo,
			g.accountName,
			order.OrderNumber,
			order.PaymentDeadline.Format("2006-01-02 15:04"),
		)
	default:
		return nil, fmt.Errorf("unsupported payment method %q", order.PaymentMethod)
	}

	return instruction, nil
}

// buildEMVPayload 组装 EMV 报文：TLV 串最后接 CRC16 校验（tag 63）
func (g *MockGateway) buildEMVPayload(order *domain.Order) string {
	var b strings.Builder
	writeTLV(&b, "00", "01")                          // Payload format
	writeTLV(&b, "01", "12")                          // Dynamic QR
	writeTLV(&b, "26", order.PaymentExternalID)       // Merchant account (external id)
	writeTLV(&b, "52", "5944")                        // MCC: jewelry
	writeTLV(&b, "53", "360")                         // Currency: IDR
	writeTLV(&b, "54", order.TotalAmount.StringFixed(0)) // Amount
	writeTLV(&b, "58", "ID")                          // Country
	writeTLV(&b, "59", g.merchantName)                // Merchant name
	writeTLV(&b, "62", order.OrderNumber)             // Additional data

	payload := b.String() + "6304"
	return payload + fmt.Sprintf("%04X", crc16CCITT([]byte(payload)))
}

func writeTLV(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "%s%02d%s", tag, len(value), value)
}

// crc16CCITT CRC-16/CCITT-FALSE，EMV QR 规范用的校验算法
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, d := range data {
		crc ^= uint16(d) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

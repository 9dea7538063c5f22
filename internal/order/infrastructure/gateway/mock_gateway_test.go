package gateway

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(method domain.PaymentMethod) *domain.Order {
	return &domain.Order{
		OrderNumber:       "ORD-1700000000000-ABCDEF",
		TotalAmount:       decimal.NewFromInt(3_100_000),
		PaymentMethod:     method,
		PaymentExternalID: "7f9c24e5-1d3a-4b8e-9f01-abcdefabcdef",
		PaymentDeadline:   time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local),
	}
}

func TestForName(t *testing.T) {
	g, err := ForName("mock", "TOKO BUDI")
	require.NoError(t, err)
	assert.IsType(t, &MockGateway{}, g)

	// 空值走默认
	g, err = ForName("", "")
	require.NoError(t, err)
	assert.NotNil(t, g)

	g, err = ForName("xendit", "")
	assert.Error(t, err)
	assert.Nil(t, g)
	assert.Contains(t, err.Error(), "xendit")
}

func TestCreateInstructionQRCode(t *testing.T) {
	g := NewMockGateway("")
	order := testOrder(domain.PaymentMethodQRCode)

	instruction, err := g.CreateInstruction(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentMethodQRCode, instruction.Method)
	assert.Equal(t, order.PaymentExternalID, instruction.ExternalID)
	assert.Equal(t, order.PaymentDeadline, instruction.ExpiresAt)

	payload := instruction.Payload
	assert.True(t, strings.HasPrefix(payload, "000201"), "payload %q", payload)
	assert.Contains(t, payload, order.PaymentExternalID)
	assert.Contains(t, payload, order.OrderNumber)
	assert.Contains(t, payload, "3100000")
	assert.Contains(t, payload, "52045944") // MCC jewelry
	assert.Contains(t, payload, "5303360")  // IDR
	assert.Contains(t, payload, "5802ID")
}

func TestEMVPayloadChecksumVerifies(t *testing.T) {
	g := NewMockGateway("TOKO EMAS TOKWEB")

	instruction, err := g.CreateInstruction(context.Background(), testOrder(domain.PaymentMethodQRCode))
	require.NoError(t, err)

	payload := instruction.Payload
	require.Greater(t, len(payload), 4)

	// 末 4 位十六进制为前文的 CRC-16/CCITT-FALSE
	body, checksum := payload[:len(payload)-4], payload[len(payload)-4:]
	assert.True(t, strings.HasSuffix(body, "6304"))
	assert.Equal(t, fmt.Sprintf("%04X", crc16CCITT([]byte(body))), checksum)
}

func TestCreateInstructionBankTransfer(t *testing.T) {
	g := NewMockGateway("")
	order := testOrder(domain.PaymentMethodBankTransfer)

	instruction, err := g.CreateInstruction(context.Background(), order)
	require.NoError(t, err)

	assert.Contains(t, instruction.Payload, "BCA")
	assert.Contains(t, instruction.Payload, "1234567890")
	assert.Contains(t, instruction.Payload, order.OrderNumber)
	assert.Contains(t, instruction.Payload, "3100000")
}

func TestCreateInstructionUnsupportedMethod(t *testing.T) {
	g := NewMockGateway("")
	order := testOrder("CASH")

	_, err := g.CreateInstruction(context.Background(), order)
	assert.Error(t, err)
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE 的标准校验向量
	assert.Equal(t, uint16(0x29B1), crc16CCITT([]byte("123456789")))
}

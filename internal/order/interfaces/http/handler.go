// Package http 暴露订单上下文的 HTTP 接口。
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/order/application"
	"github.com/fajarrafsan02-bit/tokweb/internal/order/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderHandler HTTP 处理器
// 负责下单、webhook 回调、后台确认与营收查询
type OrderHandler struct {
	checkout   *application.CheckoutService
	settlement *application.SettlementService
	query      *application.OrderQueryService
}

// NewOrderHandler 创建 HTTP 处理器实例
func NewOrderHandler(
	checkout *application.CheckoutService,
	settlement *application.SettlementService,
	query *application.OrderQueryService,
) *OrderHandler {
	return &OrderHandler{checkout: checkout, settlement: settlement, query: query}
}

// RegisterRoutes 注册路由
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/orders")
	{
		api.POST("/checkout", h.Checkout)      // 下单
		api.GET("/:number", h.GetOrder)        // 订单详情
	}

	router.POST("/api/v1/payments/webhook", h.Webhook) // 网关回调

	admin := router.Group("/api/v1/admin")
	{
		admin.GET("/orders", h.ListOrders)                       // 订单列表
		admin.POST("/orders/:number/confirm", h.ConfirmPayment)  // 人工确认支付
		admin.GET("/revenues", h.ListRevenues)                   // 营收流水
		admin.GET("/revenues/daily", h.DailyRevenue)             // 当日营收
		admin.GET("/revenues/monthly", h.MonthlyRevenue)         // 当月营收
	}
}

// CheckoutItemRequest 下单行请求
type CheckoutItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items" binding:"required"`
	CustomerName    string                `json:"customer_name" binding:"required"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	ShippingAddress string                `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method" binding:"required"`
	Total           string                `json:"total"`
	Notes           string                `json:"notes"`
}

// Checkout 下单
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	cmd := application.CheckoutCommand{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, application.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	if req.Total != "" {
		if total, err := decimal.NewFromString(req.Total); err == nil {
			cmd.ClientTotal = &total
		}
	}

	result, err := h.checkout.Checkout(c.Request.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidItem) {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error(c.Request.Context(), "Failed to checkout", "error", err)
		response.ErrorWithStatus(c, http.StatusConflict, err.Error())
		return
	}
	response.Success(c, result)
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.query.GetOrder(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "order not found")
			return
		}
		logger.Error(c.Request.Context(), "Failed to get order", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, order)
}

// Webhook 支付网关回调
// 语义：200 表示已消化（含幂等重复），4xx 表示拒收需网关修数据后重发
func (h *OrderHandler) Webhook(c *gin.Context) {
	var event application.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if event.ExternalID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "external_id is required")
		return
	}

	if err := h.settlement.HandleWebhook(c.Request.Context(), event); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, "no order for external_id")
		case errors.Is(err, domain.ErrAmountMismatch):
			response.ErrorWithStatus(c, http.StatusUnprocessableEntity, err.Error())
		default:
			logger.Error(c.Request.Context(), "Failed to handle webhook", "external_id", event.ExternalID, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"acknowledged": true})
}

// ConfirmPaymentRequest 人工确认请求
type ConfirmPaymentRequest struct {
	AdminName string `json:"admin_name"`
}

// ConfirmPayment 后台人工确认支付
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	orderNumber := c.Param("number")

	var req ConfirmPaymentRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.settlement.ConfirmPayment(c.Request.Context(), orderNumber, req.AdminName); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			response.ErrorWithStatus(c, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrOrderTerminal):
			response.ErrorWithStatus(c, http.StatusConflict, err.Error())
		default:
			logger.Error(c.Request.Context(), "Failed to confirm payment", "order_number", orderNumber, "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		}
		return
	}
	response.Success(c, gin.H{"order_number": orderNumber, "status": "PAID"})
}

// ListOrders 订单列表
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := domain.OrderStatus(c.Query("status"))

	orders, pagination, err := h.query.ListOrders(c.Request.Context(), status, page, pageSize)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list orders", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"orders": orders, "pagination": pagination})
}

// ListRevenues 营收流水
func (h *OrderHandler) ListRevenues(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	from := time.Now().AddDate(0, -1, 0)
	to := time.Now()
	if v := c.Query("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			to = parsed
		}
	}

	revenues, pagination, err := h.query.ListRevenues(c.Request.Context(), from, to, page, pageSize)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list revenues", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"revenues": revenues, "pagination": pagination})
}

// DailyRevenue 当日营收合计
func (h *OrderHandler) DailyRevenue(c *gin.Context) {
	day := time.Now()
	if v := c.Query("date"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			day = parsed
		}
	}

	total, err := h.query.DailyRevenue(c.Request.Context(), day)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to sum daily revenue", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"date": day.Format("2006-01-02"), "total": total})
}

// MonthlyRevenue 当月营收合计
func (h *OrderHandler) MonthlyRevenue(c *gin.Context) {
	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if month < 1 || month > 12 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "month must be 1-12")
		return
	}

	total, err := h.query.MonthlyRevenue(c.Request.Context(), year, time.Month(month))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to sum monthly revenue", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"year": year, "month": month, "total": total})
}

// Package http 暴露金价上下文的 HTTP 接口。
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/application"
	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GoldPriceHandler HTTP 处理器
// 负责处理金价查询与管理接口
type GoldPriceHandler struct {
	ingest *application.IngestService
	query  *application.QueryService
}

// NewGoldPriceHandler 创建 HTTP 处理器实例
func NewGoldPriceHandler(ingest *application.IngestService, query *application.QueryService) *GoldPriceHandler {
	return &GoldPriceHandler{ingest: ingest, query: query}
}

// RegisterRoutes 注册路由
func (h *GoldPriceHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/gold-price")
	{
		api.GET("/latest", h.Latest)        // 最新金价
		api.GET("/history", h.History)      // 历史金价
		api.GET("/changes", h.Changes)      // 最近变动
		api.GET("/comparison", h.Comparison) // 今昨对比
		api.POST("/refresh", h.Refresh)     // 立即抓取
		api.POST("/manual", h.ManualIngest) // 手工录入
	}
}

// Latest 最新金价
func (h *GoldPriceHandler) Latest(c *gin.Context) {
	rate, err := h.query.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRateUnavailable) {
			response.ErrorWithStatus(c, http.StatusNotFound, "no gold rate available yet")
			return
		}
		logger.Error(c.Request.Context(), "Failed to get latest gold rate", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, rate)
}

// HistoryRequest 历史金价查询参数
type HistoryRequest struct {
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// History 历史金价
func (h *GoldPriceHandler) History(c *gin.Context) {
	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()
	var err error
	if req.From != "" {
		if from, err = time.Parse(time.RFC3339, req.From); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid from timestamp")
			return
		}
	}
	if req.To != "" {
		if to, err = time.Parse(time.RFC3339, req.To); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid to timestamp")
			return
		}
	}

	rates, pagination, err := h.query.History(c.Request.Context(), from, to, req.Page, req.PageSize)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list gold rate history", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"rates": rates, "pagination": pagination})
}

// Changes 最近变动记录
func (h *GoldPriceHandler) Changes(c *gin.Context) {
	limit := 20
	if v, ok := c.GetQuery("limit"); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	changes, err := h.query.RecentChanges(c.Request.Context(), limit)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list gold rate changes", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, changes)
}

// Comparison 今昨金价对比
func (h *GoldPriceHandler) Comparison(c *gin.Context) {
	cmp, err := h.query.CompareWithYesterday(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRateUnavailable) {
			response.ErrorWithStatus(c, http.StatusNotFound, "no gold rate available yet")
			return
		}
		logger.Error(c.Request.Context(), "Failed to compare gold rates", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, cmp)
}

// Refresh 立即从行情商抓取一次
func (h *GoldPriceHandler) Refresh(c *gin.Context) {
	rate, err := h.ingest.IngestFromProvider(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to refresh gold rate", "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error())
		return
	}
	response.Success(c, rate)
}

// ManualIngestRequest 手工录入请求
type ManualIngestRequest struct {
	Price24k string `json:"price_24k" binding:"required"`
}

// ManualIngest 管理员手工录入 24K 克价
func (h *GoldPriceHandler) ManualIngest(c *gin.Context) {
	var req ManualIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price24k)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price_24k")
		return
	}

	rate, err := h.ingest.IngestManual(c.Request.Context(), price)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRate) {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error(c.Request.Context(), "Failed to ingest manual gold rate", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, rate)
}

// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 业务指标
	OrdersTotal prometheus.Counter
	// 支付确认计数
	PaymentsConfirmedTotal prometheus.Counter
	// 过期取消计数
	OrdersExpiredTotal prometheus.Counter
	// 金价抓取计数
	RateIngestTotal prometheus.Counter
	// 产品价格重算计数
	ProductRepriceTotal prometheus.Counter
	// 库存预扣失败计数
	StockConflictsTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "orders_total",
			Help:      "Total orders created",
		}),
		PaymentsConfirmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "payments_confirmed_total",
			Help:      "Total payments confirmed via webhook or admin",
		}),
		OrdersExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "orders_expired_total",
			Help:      "Total orders cancelled by the expiry sweeper",
		}),
		RateIngestTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "rate_ingest_total",
			Help:      "Total gold rate snapshots ingested",
		}),
		ProductRepriceTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "product_reprice_total",
			Help:      "Total product prices recomputed",
		}),
		StockConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tokweb",
			Subsystem: serviceName,
			Name:      "stock_conflicts_total",
			Help:      "Total stock reservations rejected for insufficient stock",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.OrdersTotal,
		m.PaymentsConfirmedTotal,
		m.OrdersExpiredTotal,
		m.RateIngestTotal,
		m.ProductRepriceTotal,
		m.StockConflictsTotal,
	}

	for _, collector := range collectors {
		if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Prometheus HTTP server error", "error", err)
		}
	}()

	return nil
}

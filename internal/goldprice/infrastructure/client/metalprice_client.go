// Package client 对接外部贵金属行情商。
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/utils"
	"github.com/shopspring/decimal"
)

// 金衡盎司换算克
var gramsPerTroyOunce = decimal.NewFromFloat(31.1035)

// 合理区间（IDR/克），超出视为行情商数据异常
var (
	sanityFloor   = decimal.NewFromInt(1_000_000)
	sanityCeiling = decimal.NewFromInt(10_000_000)
)

// MetalPriceClient 行情商 HTTP 客户端
// 行情商以 IDR 为基础货币返回 XAU 汇率，1/(31.1035*rate) 即每克 IDR 价格
type MetalPriceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMetalPriceClient 创建行情商客户端
func NewMetalPriceClient(baseURL, apiKey string, timeout time.Duration) *MetalPriceClient {
	return &MetalPriceClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type latestRatesResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

// FetchSpot 实现 domain.RateProvider
func (c *MetalPriceClient) FetchSpot(ctx context.Context) (decimal.Decimal, error) {
	var spot decimal.Decimal

	err := utils.RetryWithBackoff(3, 500*time.Millisecond, 5*time.Second, func() error {
		price, err := c.fetchOnce(ctx)
		if err != nil {
			logger.Warn(ctx, "metal price fetch attempt failed", "error", err)
			return err
		}
		spot = price
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if spot.LessThan(sanityFloor) || spot.GreaterThan(sanityCeiling) {
		logger.Error(ctx, "metal price outside sanity band", "price", spot.String())
		return decimal.Zero, domain.ErrRateOutOfBand
	}
	return spot, nil
}

func (c *MetalPriceClient) fetchOnce(ctx context.Context) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v1/latest?%s", c.baseURL, url.Values{
		"api_key":    {c.apiKey},
		"base":       {"IDR"},
		"currencies": {"XAU"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call metal price api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("metal price api returned status %d", resp.StatusCode)
	}

	var body latestRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}
	if !body.Success {
		return decimal.Zero, fmt.Errorf("metal price api reported failure")
	}

	xauRate, ok := body.Rates["XAU"]
	if !ok || xauRate <= 0 {
		return decimal.Zero, fmt.Errorf("metal price api returned no usable XAU rate")
	}

	// rate 是 1 IDR 能换到的盎司数，倒数再除以克重得到每克价格
	perOunce := decimal.NewFromInt(1).Div(decimal.NewFromFloat(xauRate))
	return perOunce.Div(gramsPerTroyOunce), nil
}

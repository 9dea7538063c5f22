// Package http 暴露商品目录的 HTTP 接口。
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/application"
	"github.com/fajarrafsan02-bit/tokweb/internal/catalog/domain"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogHandler HTTP 处理器
type CatalogHandler struct {
	cmd   *application.CatalogCommandService
	query *application.CatalogQueryService
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(cmd *application.CatalogCommandService, query *application.CatalogQueryService) *CatalogHandler {
	return &CatalogHandler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/products")
	{
		api.GET("", h.ListProducts)    // 商品列表
		api.GET("/:id", h.GetProduct)  // 商品详情
	}

	admin := router.Group("/api/v1/admin/products")
	{
		admin.POST("", h.CreateProduct)          // 创建商品
		admin.PUT("/:id", h.UpdateProduct)       // 更新商品
		admin.DELETE("/:id", h.DeleteProduct)    // 删除商品
		admin.POST("/:id/stock", h.AddStock)     // 手工加库存
	}
}

// ListProducts 商品列表
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	category := domain.ProductCategory(c.Query("category"))
	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	products, pagination, err := h.query.ListProducts(c.Request.Context(), category, activeOnly, page, pageSize)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list products", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"products": products, "pagination": pagination})
}

// GetProduct 商品详情
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.query.GetProduct(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "product not found")
			return
		}
		logger.Error(c.Request.Context(), "Failed to get product", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, product)
}

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Category      string  `json:"category" binding:"required"`
	Weight        string  `json:"weight" binding:"required"`
	Purity        int     `json:"purity" binding:"required"`
	MarkupPercent string  `json:"markup_percent"`
	Stock         int     `json:"stock"`
	MinStock      int     `json:"min_stock"`
	Active        *bool   `json:"active"`
	ImageURL      string  `json:"image_url"`
}

func (r *ProductRequest) amounts() (weight, markup decimal.Decimal, err error) {
	weight, err = decimal.NewFromString(r.Weight)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.New("invalid weight")
	}
	markup = decimal.Zero
	if r.MarkupPercent != "" {
		markup, err = decimal.NewFromString(r.MarkupPercent)
		if err != nil {
			return decimal.Zero, decimal.Zero, errors.New("invalid markup_percent")
		}
	}
	return weight, markup, nil
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	weight, markup, err := req.amounts()
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.cmd.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		Name:          req.Name,
		Description:   req.Description,
		Category:      domain.ProductCategory(req.Category),
		Weight:        weight,
		Purity:        req.Purity,
		MarkupPercent: markup,
		Stock:         req.Stock,
		MinStock:      req.MinStock,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to create product", "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id")
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	weight, markup, err := req.amounts()
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.cmd.UpdateProduct(c.Request.Context(), application.UpdateProductCommand{
		ID:            uint(id),
		Name:          req.Name,
		Description:   req.Description,
		Category:      domain.ProductCategory(req.Category),
		Weight:        weight,
		Purity:        req.Purity,
		MarkupPercent: markup,
		MinStock:      req.MinStock,
		Active:        req.Active,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "product not found")
			return
		}
		logger.Error(c.Request.Context(), "Failed to update product", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(c, product)
}

// AddStockRequest 加库存请求
type AddStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// AddStock 手工加库存
func (h *CatalogHandler) AddStock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id")
		return
	}

	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.cmd.AddStock(c.Request.Context(), uint(id), req.Quantity); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.ErrorWithStatus(c, http.StatusNotFound, "product not found")
			return
		}
		logger.Error(c.Request.Context(), "Failed to add stock", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"product_id": id, "added": req.Quantity})
}

// DeleteProduct 删除商品
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.cmd.DeleteProduct(c.Request.Context(), uint(id)); err != nil {
		logger.Error(c.Request.Context(), "Failed to delete product", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"product_id": id, "deleted": true})
}

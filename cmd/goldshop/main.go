// GoldShop 主程序
// 功能：黄金计价商品目录、金价抓取、下单与支付清算
// 架构：基于 DDD + Gin + Kafka + MySQL + Redis
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/fajarrafsan02-bit/tokweb/internal/catalog/application"
	catalogmysql "github.com/fajarrafsan02-bit/tokweb/internal/catalog/infrastructure/persistence/mysql"
	catalogconsumer "github.com/fajarrafsan02-bit/tokweb/internal/catalog/interfaces/consumer"
	cataloghttp "github.com/fajarrafsan02-bit/tokweb/internal/catalog/interfaces/http"
	goldpriceapp "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/application"
	goldpricedomain "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/domain"
	goldpriceclient "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/infrastructure/client"
	goldpricemysql "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/infrastructure/persistence/mysql"
	goldpricemsg "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/infrastructure/messaging"
	goldpricehttp "github.com/fajarrafsan02-bit/tokweb/internal/goldprice/interfaces/http"
	orderapp "github.com/fajarrafsan02-bit/tokweb/internal/order/application"
	ordercatalog "github.com/fajarrafsan02-bit/tokweb/internal/order/infrastructure/catalogclient"
	ordergateway "github.com/fajarrafsan02-bit/tokweb/internal/order/infrastructure/gateway"
	ordermysql "github.com/fajarrafsan02-bit/tokweb/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/fajarrafsan02-bit/tokweb/internal/order/interfaces/http"
	"github.com/fajarrafsan02-bit/tokweb/pkg/cache"
	"github.com/fajarrafsan02-bit/tokweb/pkg/config"
	"github.com/fajarrafsan02-bit/tokweb/pkg/db"
	"github.com/fajarrafsan02-bit/tokweb/pkg/logger"
	"github.com/fajarrafsan02-bit/tokweb/pkg/metrics"
	"github.com/fajarrafsan02-bit/tokweb/pkg/middleware"
	"github.com/fajarrafsan02-bit/tokweb/pkg/mq"
	"github.com/fajarrafsan02-bit/tokweb/pkg/ratelimit"
)

func main() {
	// 1. 加载配置
	configPath := "configs/goldshop/config.toml"
	if v := os.Getenv("TOKWEB_CONFIG"); v != "" {
		configPath = v
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting GoldShop",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		LockWaitTimeout:    cfg.Database.LockWaitTimeout,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	// 4. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 5. 初始化 Kafka
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()

	rateConsumer, err := mq.NewConsumer(kafkaCfg, goldpricedomain.TopicGoldRateChanged)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka consumer", "error", err)
	}
	defer rateConsumer.Close()

	// 6. 初始化限流器
	rateLimiter := ratelimit.NewRedisLimiter(redisCache.GetClient(), cfg.RateLimit)

	// 7. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}

	// 8. 初始化金价上下文
	rateRepo := goldpricemysql.NewGoldRateRepository(database.DB)
	rateProvider := goldpriceclient.NewMetalPriceClient(
		cfg.GoldPrice.ProviderURL,
		cfg.GoldPrice.ProviderAPIKey,
		time.Duration(cfg.GoldPrice.FetchTimeout)*time.Second,
	)
	ratePublisher := goldpricemsg.NewKafkaEventPublisher(producer)
	ingestService := goldpriceapp.NewIngestService(rateRepo, rateProvider, ratePublisher, redisCache, metricsInstance)
	rateQueryService := goldpriceapp.NewQueryService(rateRepo, redisCache, time.Duration(cfg.GoldPrice.CacheTTL)*time.Second)
	rateScheduler := goldpriceapp.NewRateScheduler(ingestService, rateRepo, logger.Get(), cfg.GoldPrice.ScheduleTimes)

	// 9. 初始化商品目录上下文
	productRepo := catalogmysql.NewProductRepository(database.DB, database.LockWaitTimeout())
	catalogCmd := catalogapp.NewCatalogCommandService(productRepo, rateQueryService, metricsInstance)
	catalogQuery := catalogapp.NewCatalogQueryService(productRepo)
	rateChangedHandler := catalogconsumer.NewRateChangedHandler(catalogCmd, logger.Get())

	// 10. 初始化订单上下文
	orderRepo := ordermysql.NewOrderRepository(database.DB)
	revenueRepo := ordermysql.NewRevenueRepository(database.DB)
	catalogAdapter := ordercatalog.New(catalogCmd, catalogQuery)
	paymentGateway, err := ordergateway.ForName(cfg.Checkout.Gateway, cfg.ServiceName)
	if err != nil {
		logger.Fatal(ctx, "Failed to select payment gateway", "error", err)
	}
	checkoutService := orderapp.NewCheckoutService(
		orderRepo,
		catalogAdapter,
		catalogAdapter,
		paymentGateway,
		orderapp.CheckoutConfig{
			ReserveStock: cfg.Checkout.ReserveStock,
			PaymentTTL:   time.Duration(cfg.Checkout.PaymentTTLHours) * time.Hour,
		},
		metricsInstance,
	)
	settlementService := orderapp.NewSettlementService(orderRepo, revenueRepo, catalogAdapter, metricsInstance)
	orderQueryService := orderapp.NewOrderQueryService(orderRepo, revenueRepo)
	expiryJob := orderapp.NewExpiryJob(
		orderRepo,
		catalogAdapter,
		logger.Get(),
		metricsInstance,
		time.Duration(cfg.Checkout.SweepInterval)*time.Second,
	)

	// 11. 启动后台任务与消费者
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go rateScheduler.Start(jobCtx)
	go expiryJob.Start(jobCtx)
	go rateConsumer.Consume(jobCtx, rateChangedHandler.Handle)

	// 12. 创建并启动 HTTP 服务器
	httpServer := createHTTPServer(cfg, rateLimiter,
		goldpricehttp.NewGoldPriceHandler(ingestService, rateQueryService),
		cataloghttp.NewCatalogHandler(catalogCmd, catalogQuery),
		orderhttp.NewOrderHandler(checkoutService, settlementService, orderQueryService),
	)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info(ctx, "Starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 13. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down GoldShop")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error", "error", err)
	}

	logger.Info(ctx, "GoldShop stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	rateLimiter ratelimit.Limiter,
	goldPriceHandler *goldpricehttp.GoldPriceHandler,
	catalogHandler *cataloghttp.CatalogHandler,
	orderHandler *orderhttp.OrderHandler,
) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(ratelimit.GinMiddleware(rateLimiter, cfg.RateLimit.Enabled))

	// 注册路由
	root := router.Group("")
	goldPriceHandler.RegisterRoutes(root)
	catalogHandler.RegisterRoutes(root)
	orderHandler.RegisterRoutes(root)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

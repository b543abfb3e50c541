package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/apperrors"
	"checkout-service/auth"
	"checkout-service/checkout"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/events"
	"checkout-service/gateway"
	"checkout-service/logger"
	"checkout-service/metrics"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/notify"
	"checkout-service/payment"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Initialize("development")
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	awsCfg, err := awspkg.LoadAWSConfig(startCtx)
	if err != nil {
		logger.Initialize(cfg.Env)
		logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
	}

	// CloudWatch log shipping is optional; console logging always works
	cwLogs, err := awspkg.NewCloudWatchLogsClient(startCtx, awsCfg, cfg.ServiceName)
	if err == nil && cwLogs.IsEnabled() {
		logger.InitializeWithWriter(cfg.Env, cwLogs)
	} else {
		logger.Initialize(cfg.Env)
		if err != nil {
			logger.Log.Warn("CloudWatch logs disabled", zap.Error(err))
		}
	}
	defer logger.Log.Sync()

	log := logger.Log
	log.Info("Starting checkout service",
		zap.String("env", cfg.Env),
		zap.String("provider", cfg.PaymentProvider),
		zap.String("event_bus", cfg.EventBus),
	)

	cwMetrics := awspkg.NewMetricsClient(awsCfg)

	db, err := database.ConnectPostgres(cfg.PostgresDSN(), log,
		&models.Order{}, &models.OrderItem{}, &models.PaymentAttempt{})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Close(db)

	redisClient, err := database.NewRedisClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher := newPublisher(cfg, awsCfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg)

	// Gateway
	var factory gateway.ProviderFactory
	switch cfg.PaymentProvider {
	case gateway.ProviderStripe:
		factory = gateway.StripeFactory(cfg.StripeSecretKey, cfg.StripePublishable)
	default:
		factory = gateway.RazorpayFactory(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpaySecretName, awspkg.NewGatewayCredentials(awsCfg, cfg.RazorpaySecretTTL))
	}
	var checks []gateway.Check
	if cfg.GatewayCheckScript {
		checks = append(checks, gateway.ScriptCheck(&http.Client{Timeout: 5 * time.Second}, cfg.GatewayScriptURL))
	}
	loader := gateway.NewLoader(factory, checks...)
	bridge := gateway.NewBridge()
	adapter := gateway.NewAdapter(loader, bridge, gateway.AdapterConfig{
		StoreName: cfg.StoreName,
		ScriptURL: cfg.GatewayScriptURL,
	})

	// Payment control
	cartRepo := repository.NewCartRepository(redisClient, cfg.CartTTL)
	hub := notify.NewHub(publisher)
	paymentRepo := repository.NewGormPaymentRepo(db)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	registry := payment.NewRegistry(payment.Deps{
		Cart:      cartRepo,
		Auth:      auth.ContextAccessor{},
		Gateway:   adapter,
		Notifier:  hub,
		Navigator: hub,
		Recorder: &payment.AuditRecorder{
			Repo:       paymentRepo,
			Publisher:  publisher,
			Metrics:    serverMetrics,
			CloudWatch: cwMetrics,
			Provider:   cfg.PaymentProvider,
		},
		Currency: cfg.Currency,
		Base:     baseCtx,
	})

	orders := checkout.NewOrderService(repository.NewGormOrderRepository(db), publisher, cwMetrics)
	page := checkout.NewPage(cartRepo, auth.ContextAccessor{}, orders, registry)

	// Router
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	stopSweep := make(chan struct{})
	go limiter.Run(stopSweep)
	go sweepSessions(stopSweep, cfg.SessionTTL, registry, page, hub)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(limiter),
		middleware.PrometheusMetrics(serverMetrics),
		middleware.CloudWatchMetrics(cwMetrics, cfg.ServiceName),
		middleware.AuthState(auth.NewTokenParser(cfg.JWTSecret)),
		apperrors.ErrorMiddleware(),
	)
	r.GET("/metrics", gin.WrapH(serverMetrics.Handler()))

	routes.RegisterRoutes(r, routes.Controllers{
		Cart:          controllers.NewCartController(cartRepo),
		Checkout:      controllers.NewCheckoutController(page, orders),
		Payment:       controllers.NewPaymentController(page, registry, bridge, paymentRepo),
		Notifications: controllers.NewNotificationController(hub),
		Health: controllers.NewHealthController(cfg.ServiceName, map[string]controllers.Check{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"postgres": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Checkout service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// pending widget sessions resolve as closed once the base context ends
	cancelBase()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := registry.Wait(shutdownCtx); err != nil {
		log.Warn("Payment attempts still running at shutdown", zap.Error(err))
	}
	hub.Wait()
	close(stopSweep)
	if err := publisher.Close(); err != nil {
		log.Error("Event publisher close error", zap.Error(err))
	}

	log.Info("Checkout service stopped gracefully")
}

func newPublisher(cfg *config.Config, awsCfg sdkaws.Config) events.Publisher {
	switch cfg.EventBus {
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "none":
		return events.Nop{}
	default:
		return events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.PaymentSNSTopicARN)
	}
}

// sweepSessions forgets per-user state idle for longer than ttl.
func sweepSessions(stop <-chan struct{}, ttl time.Duration, registry *payment.Registry, page *checkout.Page, hub *notify.Hub) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			controls := registry.Sweep(ttl)
			forms := page.Sweep(ttl)
			inboxes := hub.Sweep(ttl)
			if controls+forms+inboxes > 0 {
				logger.Log.Debug("Swept idle sessions",
					zap.Int("controls", controls),
					zap.Int("shipping_forms", forms),
					zap.Int("inboxes", inboxes),
				)
			}
		}
	}
}

package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"checkout-system/config"
	"checkout-system/internal/handlers"
	"checkout-system/internal/services"
	"checkout-system/internal/services/gateway"
	"checkout-system/internal/services/gateway/phonepe"
	"checkout-system/internal/status"
	"checkout-system/monitoring"
	"checkout-system/security"
	"checkout-system/utils"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/dbx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	_ "checkout-system/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub publisher for outcome notifications
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)
	notifier := services.NewPubNubNotifier(pn, "payment-notifications")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register the payment gateway. Missing merchant credentials leave the
	// registry empty, and every callback then fails closed.
	registry := gateway.NewRegistry(gateway.NewFactory())
	err := registry.Register(ctx, gateway.ProviderPhonePe, &phonepe.Config{
		BaseURL:    cfg.PhonePeConfig.BaseURL,
		MerchantID: cfg.PhonePeConfig.MerchantID,
		SaltKey:    cfg.PhonePeConfig.SaltKey,
		SaltIndex:  cfg.PhonePeConfig.SaltIndex,
		Timeout:    cfg.PhonePeConfig.Timeout,

		PNSubKey:    cfg.PhonePeConfig.PNSubKey,
		PNSubSecret: cfg.PhonePeConfig.PNSubSecret,
		PNUUID:      cfg.PhonePeConfig.PNUUID,
		PNChannel:   cfg.PhonePeConfig.PNChannel,
		PNCipherKey: cfg.PhonePeConfig.PNCipherKey,
	})
	if err != nil {
		if !errors.Is(err, status.ErrMissingConfig) {
			return err
		}
		slog.Error("phonepe merchant configuration missing; callbacks will fail closed")
	}

	var gw gateway.PaymentGateway
	if g, gerr := registry.Primary(); gerr == nil {
		gw = g
	}

	if gw != nil {
		go func() {
			txChannel := make(chan *status.Transaction, 1)
			gw.SetTransactionChannel(txChannel)
			for {
				select {
				case t := <-txChannel:
					slog.Info("=> gateway settlement push", "txn_id", t.TxnID, "state", t.State)

				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Initialize services
	store := services.NewRecordStore(app)
	verifier := services.NewVerificationService(redisClient, gw, store, notifier)
	sessions := services.NewSessionService(cfg.Session, cfg.Environment)
	redirects := services.NewRedirects(cfg.Redirect)

	// Initialize handlers
	callbackHandler := handlers.NewCallbackHandler(app, verifier, sessions, redirects, notifier, cfg.PhonePeConfig.CallbackKey, cfg.SimulateSecretHash)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncSettledTransactionsToRedis(app, redisClient)

		// Payment callback endpoints. The gateway posts the redirect, a
		// reloading browser replays it as GET; both run the same pipeline.
		e.Router.GET("/api/v1/payment/callback/{userId}", callbackHandler.PaymentCallback).
			BindFunc(rateLimiter.AntiBot()).
			BindFunc(rateLimiter.CallbackRateLimit(60))
		e.Router.POST("/api/v1/payment/callback/{userId}", callbackHandler.PaymentCallback).
			BindFunc(rateLimiter.AntiBot()).
			BindFunc(rateLimiter.CallbackRateLimit(60))

		// Callback audit endpoint
		e.Router.GET("/api/v1/payment/{txnId}/audit", callbackHandler.GetCallbackAudit)

		// Test endpoint for payment simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", callbackHandler.SimulatePayment)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupTransactionHooks(app, redisClient)

		return e.Next()
	})

	// Start server
	return app.Start()
}

// serveMetrics exposes prometheus metrics on a separate port.
func serveMetrics(port string) {
	e := echo.New()

	e.GET("/metrics", func(c echo.Context) error {
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: e,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics server: %v", err)
	}
}

// syncSettledTransactionsToRedis seeds the settled set on startup so the
// ops dashboard survives restarts.
func syncSettledTransactionsToRedis(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	var records []dbx.NullStringMap
	if err := app.DB().NewQuery(
		"SELECT txn_id FROM transactions WHERE status = 'settled'",
	).All(&records); err != nil {
		log.Printf("Error fetching settled transactions: %v", err)
		return
	}

	redisClient.Del(ctx, "settled_transactions")

	if len(records) > 0 {
		var txnIDs []interface{}
		for _, record := range records {
			if id := record["txn_id"].String; id != "" {
				txnIDs = append(txnIDs, id)
			}
		}

		if len(txnIDs) > 0 {
			redisClient.SAdd(ctx, "settled_transactions", txnIDs...)
			log.Printf("Synced %d settled transactions to Redis", len(txnIDs))
		}
	}
}

func setupTransactionHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	// Fires after a transaction record update; mirrors settled state into
	// the Redis set. Redis sync failures are logged, never block the write.
	app.OnRecordUpdate("transactions").BindFunc(func(e *core.RecordEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := context.Background()
		txnID := e.Record.GetString("txn_id")

		if e.Record.GetString("status") == "settled" {
			if err := redisClient.SAdd(ctx, "settled_transactions", txnID).Err(); err != nil {
				slog.Error("Failed to add settled transaction to Redis",
					"txn_id", txnID,
					"error", err,
				)
				return nil
			}
			slog.Info("Marked transaction settled in Redis", "txn_id", txnID)
		} else {
			if err := redisClient.SRem(ctx, "settled_transactions", txnID).Err(); err != nil {
				slog.Error("Failed to remove transaction from Redis",
					"txn_id", txnID,
					"error", err,
				)
				return nil
			}
		}
		return nil
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}

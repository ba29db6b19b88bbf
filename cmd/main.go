package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/majorphones/topup/deposit"
	"github.com/majorphones/topup/handler"
	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/audit"
	"github.com/majorphones/topup/infra/config"
	"github.com/majorphones/topup/infra/httpclient"
	"github.com/majorphones/topup/infra/logger"
	"github.com/majorphones/topup/router"
	"github.com/majorphones/topup/wallet"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.GetAppConfig()
	logger.InitGlobalLogger()

	jwtService, err := identity.NewJWTService(cfg.JWTSecret, "topup", time.Hour)
	if err != nil {
		logger.Fatal("JWT service initialization failed", err)
	}

	var auditLogger *audit.Logger
	if cfg.EnableAudit {
		auditClient, err := audit.NewClient(cfg)
		if err != nil {
			logger.Warn("Audit trail disabled", logger.LogContext{
				Fields: map[string]any{"error": err.Error()},
			})
		} else {
			auditLogger = audit.NewLogger(auditClient)
			logger.Info("Audit trail initialized")
		}
	}

	orderStore, err := deposit.NewOrderStore(cfg.OrderStorePath)
	if err != nil {
		logger.Fatal("Order store initialization failed", err)
	}
	defer orderStore.Close()

	var walletStore wallet.Store
	switch cfg.WalletStore {
	case "postgres":
		pgStore, err := wallet.NewPostgresStore(context.Background(), cfg.WalletDSN)
		if err != nil {
			logger.Fatal("Wallet store initialization failed", err)
		}
		defer pgStore.Close()
		walletStore = pgStore
	default:
		sqliteStore, err := wallet.NewSQLiteStore(cfg.WalletDBPath)
		if err != nil {
			logger.Fatal("Wallet store initialization failed", err)
		}
		defer sqliteStore.Close()
		walletStore = sqliteStore
	}

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(cfg.HTTPTimeout))
	tokens := identity.ContextSource{}

	dispatcher := deposit.NewDispatcher(httpClient, tokens, map[deposit.Family]string{
		deposit.FamilyCryptomus: cfg.CryptomusOrderURL,
		deposit.FamilyGateway:   cfg.GatewayOrderURL,
	})
	widgetFlow := deposit.NewWidgetFlow(httpClient, tokens, cfg.WidgetSessionURL, cfg.WidgetCompleteURL, orderStore)
	walletService := wallet.NewService(walletStore, httpClient, tokens, cfg.WalletGenerateURL)

	sessions := deposit.NewManager(deposit.Deps{
		Catalog:    deposit.NewCatalog(),
		Dispatcher: dispatcher,
		Widget:     widgetFlow,
		Wallets:    walletService,
		Audit:      auditLogger,
	})

	validate := config.App().Validator
	depositHandler := handler.NewDepositHandler(sessions, validate)
	walletHandler := handler.NewWalletHandler(sessions, validate)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	router.Routes(r, jwtService, depositHandler, walletHandler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", logger.LogContext{
			Fields: map[string]any{"port": cfg.Port},
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
	logger.Info("Server stopped")
}

package main

import (
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"

	apphttp "mingshilin.com/app/internal/http"
	"mingshilin.com/app/internal/http/handlers"
	"mingshilin.com/app/internal/modules/fulfillment"
	ordersmod "mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/modules/payments"
	"mingshilin.com/app/internal/store"
	"mingshilin.com/app/internal/wechatpay"
)

const defaultStorageBaseURL = "https://636c-cloudbase-8geef97fbe06f6f1-1371111601.tcb.qcloud.la"

func main() {
	// .env is optional; prod uses real env vars
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := wechatpay.ConfigFromEnv()
	if err != nil {
		log.Fatalf("payment config: %v", err)
	}

	stores, err := store.FromEnv()
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	var gateway wechatpay.Gateway
	if cfg.Env == wechatpay.EnvLive {
		gateway = wechatpay.NewLiveGateway(cfg)
	} else {
		gateway = wechatpay.NewSandboxGateway(cfg)
	}

	storageBase := os.Getenv("STORAGE_BASE_URL")
	if storageBase == "" {
		storageBase = defaultStorageBaseURL
	}

	dispatcher := fulfillment.NewDispatcher(storageBase, logger)
	orderSvc := ordersmod.NewService(stores.Orders, logger)
	paySvc := payments.NewService(stores.Orders, stores.Payments, gateway, cfg, dispatcher, logger)

	r := apphttp.NewRouter(logger, apphttp.Deps{
		Orders:   handlers.NewOrdersHandler(orderSvc),
		Payments: handlers.NewPaymentsHandler(paySvc),
		Forest:   handlers.NewForestHandler(),
		Images:   handlers.NewImagesHandler(storageBase),
		Auth:     handlers.NewAuthHandler(wechatpay.NewLoginClient(cfg.AppID)),
	})

	addr := ":" + envOr("PORT", "8080")
	logger.Info("listening", "addr", addr, "payment_env", cfg.Env, "store_driver", stores.Driver)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

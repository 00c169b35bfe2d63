// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-ambassador-platform/internal/config"
	"course-ambassador-platform/internal/infra/adapters/wechatpay"
	"course-ambassador-platform/internal/infra/api"
	"course-ambassador-platform/internal/infra/cache"
	pg "course-ambassador-platform/internal/infra/db/postgres"
	"course-ambassador-platform/internal/infra/logging"
	"course-ambassador-platform/internal/infra/metrics"
	"course-ambassador-platform/internal/infra/notify"
	red "course-ambassador-platform/internal/infra/redis"
	"course-ambassador-platform/internal/infra/sched"
	"course-ambassador-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	tierRepo := pg.NewTierConfigCacheDecorator(pg.NewTierConfigRepo(pool), cache.New(cfg.Rewards.TierCacheTTL))
	ledgerRepo := pg.NewLedgerRepo(pool)
	quotaRepo := pg.NewQuotaRepo(pool)
	upgradeRepo := pg.NewUpgradeLogRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	enrollRepo := pg.NewEnrollmentRepo(pool)
	agreementRepo := pg.NewAgreementRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	gateway, err := wechatpay.NewClient(&cfg.WechatPay)
	if err != nil {
		logger.Fatal().Err(err).Msg("wechatpay gateway")
	}

	notifier := notify.NewLogNotifier(logger)

	// ---- Use cases ----
	eligUC := usecase.NewEligibilityUseCase(userRepo, tierRepo, orderRepo, agreementRepo)
	rewardUC := usecase.NewRewardUseCase(userRepo, tierRepo, ledgerRepo, quotaRepo, upgradeRepo, tm, notifier, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, enrollRepo, tierRepo, tm, cfg.Rewards.OrderNoPrefix, cfg.Rewards.OrderExpiry, logger)
	paymentUC := usecase.NewPaymentUseCase(orderRepo, userRepo, gateway, orderUC, rewardUC, eligUC, locker, logger)

	// ---- HTTP ----
	metrics.MustRegister()
	auth := api.NewAuthManager(cfg.Admin.SessionSecret, cfg.Admin.Password, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := api.NewServer(orderUC, paymentUC, rewardUC, eligUC, userRepo, tierRepo, ledgerRepo, auth, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Workers ----
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpirySweepCron, orderUC, logger)
	go func() { _ = expiryWorker.Start(ctx) }()

	notifyWorker := sched.NewNotificationWorker(cfg.Scheduler.QuotaNotifyEvery, quotaRepo, notifier, logger)
	go func() { _ = notifyWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

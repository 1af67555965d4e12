// Package main запускает HTTP-сервер сервиса учёта купонов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/mmeshcher/coupontracker/internal/config"
	"github.com/mmeshcher/coupontracker/internal/dashboard"
	"github.com/mmeshcher/coupontracker/internal/genai"
	"github.com/mmeshcher/coupontracker/internal/handler"
	"github.com/mmeshcher/coupontracker/internal/repository"
	"github.com/mmeshcher/coupontracker/internal/scheduler"
	"github.com/mmeshcher/coupontracker/internal/service"
	"github.com/mmeshcher/coupontracker/internal/view"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	lang, err := language.Parse(cfg.Locale)
	if err != nil {
		sugar.Fatalw("invalid locale", "locale", cfg.Locale, "error", err.Error())
	}

	formatter, err := dashboard.NewFormatter(lang, cfg.Currency)
	if err != nil {
		sugar.Fatalw("invalid currency", "currency", cfg.Currency, "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is empty, using in-memory storage with sample coupons")
		repo = repository.NewMemoryRepository(repository.SampleCoupons(time.Now())...)
	}

	if cfg.GenAIAddress == "" {
		sugar.Warn("GENAI_ADDRESS is empty, tag suggestions and company summaries are disabled")
	}
	flows := genai.NewFlows(
		genai.NewClient(cfg.GenAIAddress, cfg.GenAIModel),
		genai.StaticCompanyInfo{},
		cfg.SummaryCacheTTL,
	)

	engine := view.NewEngine(cfg.ExpiringSoonDays, lang)
	svc := service.NewService(repo, flows, engine, formatter, service.SystemClock{})
	defer svc.Close()

	h := handler.NewHandler(svc, logger)
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	watch := scheduler.NewExpiryWatchJob(svc, cfg.ExpiryWatchSchedule, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое обновление статусов и метрик по расписанию
	g.Go(func() error {
		if err := watch.RunOnce(ctx); err != nil {
			sugar.Warnw("initial expiry watch failed", "error", err)
		}
		if err := watch.Start(); err != nil {
			return fmt.Errorf("expiry watch: %w", err)
		}
		<-ctx.Done()
		watch.Stop()
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting coupon tracker server",
			"addr", cfg.RunAddress,
			"locale", lang.String(),
			"currency", formatter.Currency(),
			"expiringSoonDays", engine.WindowDays(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

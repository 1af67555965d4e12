// Package scheduler содержит фоновые задачи сервиса учёта купонов.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/coupontracker/internal/metrics"
	"github.com/mmeshcher/coupontracker/internal/model"
)

// DefaultExpiryWatchSchedule используется, если расписание не задано.
const DefaultExpiryWatchSchedule = "@every 5m"

const runTimeout = time.Minute

// Snapshotter возвращает текущую сводку по купонам.
type Snapshotter interface {
	StatusSnapshot(ctx context.Context) (*model.DashboardSummary, error)
}

// ExpiryWatchJob периодически пересчитывает статусы купонов и публикует их в метриках.
type ExpiryWatchJob struct {
	cron     *cron.Cron
	schedule string
	source   Snapshotter
	logger   *zap.Logger
}

// NewExpiryWatchJob создаёт задачу наблюдения за сроками действия купонов.
func NewExpiryWatchJob(source Snapshotter, schedule string, logger *zap.Logger) *ExpiryWatchJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultExpiryWatchSchedule
	}

	return &ExpiryWatchJob{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		source:   source,
		logger:   logger,
	}
}

// Start регистрирует задачу в планировщике и запускает его.
func (j *ExpiryWatchJob) Start() error {
	if j == nil || j.cron == nil || j.source == nil {
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, func() {
		defer j.recoverPanic()

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if err := j.RunOnce(ctx); err != nil {
			j.logger.Warn("expiry watch failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register expiry watch %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.logger.Info("expiry watch started", zap.String("schedule", j.schedule))
	return nil
}

// RunOnce выполняет один проход: получает сводку и обновляет метрики.
func (j *ExpiryWatchJob) RunOnce(ctx context.Context) error {
	start := time.Now()

	summary, err := j.source.StatusSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("status snapshot: %w", err)
	}

	metrics.SetStatusCounts(summary.ByStatus)
	metrics.ActiveCouponAmount.Set(summary.ActiveAmount)

	if summary.ExpiringSoon > 0 {
		j.logger.Info("coupons expiring soon",
			zap.Int("expiringSoon", summary.ExpiringSoon),
			zap.Int("expired", summary.Expired),
		)
	}
	j.logger.Debug("expiry watch finished",
		zap.Int("total", summary.Total),
		zap.Duration("cost", time.Since(start)),
	)

	return nil
}

// Stop останавливает планировщик, ожидая завершения текущего прохода не дольше двух секунд.
func (j *ExpiryWatchJob) Stop() {
	if j == nil || j.cron == nil {
		return
	}

	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
	}
}

func (j *ExpiryWatchJob) recoverPanic() {
	if recovered := recover(); recovered != nil {
		j.logger.Error("expiry watch panic recovered", zap.Any("panic", recovered))
	}
}

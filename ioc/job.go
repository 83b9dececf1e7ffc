package ioc

import (
	"context"

	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/job"
)

// InitScheduler 构建定时采集调度器。
func InitScheduler(cfg app.Config, svc *app.Service, logger *zap.Logger) *job.Scheduler {
	var collectFn func(context.Context) error
	if svc != nil {
		collectFn = func(ctx context.Context) error {
			_, err := svc.CollectAndImport(ctx)
			return err
		}
	}
	return job.NewScheduler(cfg, collectFn, logger)
}

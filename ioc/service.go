package ioc

import (
	"context"

	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/graph"
	"kube2neo/internal/k8s"
)

// InitAppService 构建资产图服务。
func InitAppService(ctx context.Context, cfg app.Config, collector k8s.Collector, store graph.Store, logger *zap.Logger) (*app.Service, error) {
	return app.NewService(ctx, cfg, collector, store, logger)
}

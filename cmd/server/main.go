package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/logging"
	"kube2neo/ioc"
	"kube2neo/pkg/server"
)

// 不经 wire 的手工装配入口，便于在单文件里看清依赖关系。
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := app.LoadConfig("configs/config.yaml")
	if err != nil {
		fmt.Printf("load config failed: %v\n", err)
		return
	}

	logger, err := logging.New()
	if err != nil {
		fmt.Printf("init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	store := ioc.InitGraphStore(cfg, logger)
	collector, err := ioc.InitCollector(cfg, logger)
	if err != nil {
		logger.Fatal("create kubernetes collector failed", zap.Error(err))
	}

	svc, err := app.NewService(ctx, cfg, collector, store, logger)
	if err != nil {
		logger.Fatal("create asset graph service failed", zap.Error(err))
	}
	defer svc.Close(context.Background())

	handler := ioc.InitAssetHandler(svc, logger)
	engine := ioc.InitGinEngine(handler)
	scheduler := ioc.InitScheduler(cfg, svc, logger)

	srv := server.NewHTTPServer(engine, logger, cfg, svc, scheduler)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
}

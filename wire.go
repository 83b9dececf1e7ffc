//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"kube2neo/ioc"
	"kube2neo/pkg/server"
)

func InitApp(ctx context.Context) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitGraphStore,
		ioc.InitCollector,
		ioc.InitAppService,
		ioc.InitAssetHandler,
		ioc.InitGinEngine,
		ioc.InitScheduler,
		server.NewHTTPServer,
	))
}

package ioc

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/metrics"
	"kube2neo/internal/router"
)

// InitAssetHandler 构建资产图 HTTP 处理器。
func InitAssetHandler(svc *app.Service, logger *zap.Logger) *router.AssetHandler {
	return router.NewAssetHandler(svc, logger)
}

// InitGinEngine 构建 gin 引擎并注册指标。
func InitGinEngine(assetHandler *router.AssetHandler) *gin.Engine {
	metrics.MustRegister(prometheus.DefaultRegisterer)
	return router.NewEngine(assetHandler)
}

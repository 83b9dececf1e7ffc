package ioc

import (
	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/k8s"
)

// InitCollector 构建集群采集器。既没有 kubeconfig 也不在集群内运行时
// 退化为空的静态采集器，HTTP 导入接口仍然可用。
func InitCollector(cfg app.Config, logger *zap.Logger) (k8s.Collector, error) {
	if cfg.Kubernetes.KubeconfigPath == "" && !cfg.Kubernetes.InCluster {
		if logger != nil {
			logger.Warn("kubernetes access not configured, falling back to static collector")
		}
		return &k8s.StaticCollector{}, nil
	}
	return k8s.NewClusterCollector(k8s.ClusterConfig{
		KubeconfigPath: cfg.Kubernetes.KubeconfigPath,
		InCluster:      cfg.Kubernetes.InCluster,
	}, logger)
}

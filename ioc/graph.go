package ioc

import (
	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/graph"
)

// InitGraphStore 根据配置构建图库。URI 为空时退化为内存图库，
// 便于离线调试。
func InitGraphStore(cfg app.Config, logger *zap.Logger) graph.Store {
	if cfg.Neo4j.URI == "" {
		if logger != nil {
			logger.Warn("neo4j uri not configured, falling back to in-memory store")
		}
		return graph.NewMemoryStore()
	}
	return graph.NewNeo4jStore(graph.Config{
		URI:                  cfg.Neo4j.URI,
		Username:             cfg.Neo4j.Username,
		Password:             cfg.Neo4j.Password,
		Database:             cfg.Neo4j.Database,
		MaxConnectionPool:    cfg.Neo4j.MaxConnectionPool,
		ConnectionTimeoutSec: cfg.Neo4j.ConnectTimeoutSecond,
	})
}

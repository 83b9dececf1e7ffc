package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kube2neo/internal/builder"
	"kube2neo/internal/domain"
	"kube2neo/internal/graph"
	"kube2neo/internal/k8s"
	"kube2neo/internal/util"
)

const (
	defaultPathDepth = 8
	namedPathLimit   = 10
	defaultPathLimit = 20
)

// Asset 是对外返回的资产视图，由图库顶点整形而来。
type Asset struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace,omitempty"`
	Kind       string            `json:"kind"`
	Properties map[string]string `json:"properties"`
}

// Service 装配采集器、图库和建图引擎，提供统一入口。
// 采集器和图库的生命周期由调用方通过构造参数注入，不使用全局单例。
type Service struct {
	cfg       Config
	collector k8s.Collector
	store     graph.Store
	builder   *builder.Builder
	logger    *zap.Logger
}

// NewService 构建服务并建立图库连接，连接失败按配置退避重试。
func NewService(ctx context.Context, cfg Config, collector k8s.Collector, store graph.Store, logger *zap.Logger) (*Service, error) {
	if collector == nil {
		return nil, fmt.Errorf("必须提供采集器")
	}
	if store == nil {
		return nil, fmt.Errorf("必须提供图库")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	backoff := time.Duration(cfg.Sync.Retry.BackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = time.Second
	}
	if err := util.Retry(ctx, cfg.Sync.Retry.Attempts, backoff, func() error {
		return store.Connect(ctx)
	}); err != nil {
		return nil, fmt.Errorf("连接图库失败: %w", err)
	}

	return &Service{
		cfg:       cfg,
		collector: collector,
		store:     store,
		builder:   builder.NewBuilder(store, logger, cfg.Sync.BatchSize),
		logger:    logger,
	}, nil
}

// Close 释放资源。
func (s *Service) Close(ctx context.Context) error {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return s.store.Close(ctx)
}

// StoreConnected 返回图库连接状态。
func (s *Service) StoreConnected() bool {
	return s.store.IsConnected()
}

// CollectorConnected 返回采集器状态。
func (s *Service) CollectorConnected() bool {
	return s.collector.IsConnected()
}

// CollectAndImport 采集集群快照并导入图库。
func (s *Service) CollectAndImport(ctx context.Context) (builder.ImportResult, error) {
	records, err := s.collector.CollectAll(ctx)
	if err != nil {
		return builder.ImportResult{}, fmt.Errorf("采集集群资源失败: %w", err)
	}
	return s.builder.ImportSnapshot(ctx, records)
}

// Import 导入调用方提供的记录集。
func (s *Service) Import(ctx context.Context, records []domain.ResourceRecord) (builder.ImportResult, error) {
	return s.builder.ImportSnapshot(ctx, records)
}

// Assets 列出图库中的资产，kind 为空时返回全部种类。
func (s *Service) Assets(ctx context.Context, kind string) ([]Asset, error) {
	kinds := make([]string, 0, len(domain.AllKinds))
	if kind != "" {
		kinds = append(kinds, kind)
	} else {
		for _, k := range domain.AllKinds {
			kinds = append(kinds, string(k))
		}
	}
	assets := make([]Asset, 0)
	for _, label := range kinds {
		vertices, err := s.store.VerticesByLabel(ctx, label)
		if err != nil {
			return nil, err
		}
		for _, v := range vertices {
			assets = append(assets, Asset{
				ID:         v.ID,
				Name:       v.Properties["name"],
				Namespace:  v.Properties["namespace"],
				Kind:       v.Label,
				Properties: v.Properties,
			})
		}
	}
	return assets, nil
}

// AttackPaths 查询攻击路径。source/target 同时给出时按名字匹配端点；
// 否则使用默认谓词：exposed=true 的顶点到 sensitive=true 的顶点。
func (s *Service) AttackPaths(ctx context.Context, source, target string) ([]graph.Path, error) {
	q := graph.PathQuery{MaxDepth: defaultPathDepth}
	if source != "" && target != "" {
		q.StartProperty, q.StartValue = "name", source
		q.EndProperty, q.EndValue = "name", target
		q.MaxResults = namedPathLimit
	} else {
		q.StartProperty, q.StartValue = "exposed", "true"
		q.EndProperty, q.EndValue = "sensitive", "true"
		q.MaxResults = defaultPathLimit
	}
	return s.store.FindPaths(ctx, q)
}

// Stats 返回图库规模统计。
func (s *Service) Stats(ctx context.Context) (graph.Stats, error) {
	return s.store.Stats(ctx)
}

// Clear 全量清空图库。
func (s *Service) Clear(ctx context.Context) (graph.ClearResult, error) {
	return s.store.Clear(ctx)
}

// RawQuery 透传操作员查询。
func (s *Service) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	return s.store.RawQuery(ctx, query)
}

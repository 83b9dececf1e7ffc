package builder

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kube2neo/internal/domain"
	"kube2neo/internal/graph"
	"kube2neo/pkg/util"
)

const defaultBatchSize = 100

// EdgeExecutor 把建边请求按批并发执行。批大小是唯一的限流手段，
// 批内单条失败只记日志，不影响同批其他请求。
type EdgeExecutor struct {
	store     graph.Store
	logger    *zap.Logger
	batchSize int
}

// NewEdgeExecutor 创建执行器，batchSize 不合法时退回默认值 100。
func NewEdgeExecutor(store graph.Store, logger *zap.Logger, batchSize int) *EdgeExecutor {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EdgeExecutor{store: store, logger: logger, batchSize: batchSize}
}

type resolvedEdge struct {
	sourceID string
	targetID string
	spec     domain.EdgeSpec
}

// Execute 执行建边请求并返回成功条数。
// 端点在索引中解析不到的请求静默丢弃——快照外的引用是预期情况，
// 不产生任何图库调用。
func (e *EdgeExecutor) Execute(ctx context.Context, specs []domain.EdgeSpec, index *domain.Index) int {
	resolved := make([]resolvedEdge, 0, len(specs))
	for _, spec := range specs {
		sourceID, ok := index.Resolve(spec.SourceKey)
		if !ok {
			continue
		}
		targetID, ok := index.Resolve(spec.TargetKey)
		if !ok {
			continue
		}
		resolved = append(resolved, resolvedEdge{sourceID: sourceID, targetID: targetID, spec: spec})
	}

	var created int64
	for _, chunk := range util.Batch(resolved, e.batchSize) {
		g := new(errgroup.Group)
		for _, edge := range chunk {
			edge := edge
			g.Go(func() error {
				props := toStringProps(edge.spec.Properties)
				if _, err := e.store.CreateEdge(ctx, edge.sourceID, edge.targetID, string(edge.spec.Type), props); err != nil {
					e.logger.Warn("创建边失败",
						zap.String("source", edge.spec.SourceKey),
						zap.String("target", edge.spec.TargetKey),
						zap.String("type", string(edge.spec.Type)),
						zap.Error(err))
					return nil
				}
				atomic.AddInt64(&created, 1)
				return nil
			})
		}
		_ = g.Wait()
	}
	return int(created)
}

func toStringProps(props map[string]any) map[string]string {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = stringify(v)
	}
	return out
}

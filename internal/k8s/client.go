package k8s

import (
	"context"

	"kube2neo/internal/domain"
)

// Collector 抽象资源采集数据源。采集层保证时间戳已归一化为可排序
// 文本，Secret/ConfigMap 只携带键名、绝不携带内容。
type Collector interface {
	CollectAll(ctx context.Context) ([]domain.ResourceRecord, error)
	IsConnected() bool
}

// StaticCollector 直接返回内存中的记录集，用于测试或最小运行。
type StaticCollector struct {
	Records []domain.ResourceRecord
}

// CollectAll 返回预设记录。
func (c *StaticCollector) CollectAll(context.Context) ([]domain.ResourceRecord, error) {
	return c.Records, nil
}

// IsConnected 恒为 true。
func (c *StaticCollector) IsConnected() bool {
	return true
}

package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kube2neo/internal/domain"
	"kube2neo/internal/graph"
	"kube2neo/pkg/util"
)

// ImportFailure 记录单条记录的导入失败，不会中断整个批次。
type ImportFailure struct {
	Kind      domain.Kind `json:"kind"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace,omitempty"`
	Reason    string      `json:"reason"`
}

// Importer 负责把资源记录逐条写成图顶点并填充 key 索引。
type Importer struct {
	store  graph.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewImporter 创建顶点导入器。
func NewImporter(store graph.Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger, now: time.Now}
}

// ImportAll 逐条导入记录。单条失败只记入 failures，永不中断批次；
// 成功的记录以 KeyOf(record) -> 顶点 ID 写入索引。
func (im *Importer) ImportAll(ctx context.Context, records []domain.ResourceRecord) (*domain.Index, int, []ImportFailure) {
	index := domain.NewIndex()
	imported := 0
	var failures []ImportFailure

	for _, record := range records {
		key, err := domain.KeyOf(record)
		if err != nil {
			im.logger.Warn("跳过非法记录",
				zap.String("kind", string(record.Kind)),
				zap.String("name", record.Name),
				zap.Error(err))
			failures = append(failures, failureOf(record, err))
			continue
		}

		props := im.buildProperties(record)
		vertexID, err := im.store.CreateVertex(ctx, string(record.Kind), props)
		if err != nil {
			im.logger.Warn("创建顶点失败",
				zap.String("kind", string(record.Kind)),
				zap.String("name", record.Name),
				zap.String("namespace", record.Namespace),
				zap.Error(err))
			failures = append(failures, failureOf(record, err))
			continue
		}

		if replaced := index.Put(key, vertexID); replaced {
			// 同一快照内 key 冲突：后写覆盖先写，留日志便于排查。
			im.logger.Warn("快照内出现重复 key，索引被覆盖", zap.String("key", key))
		}
		imported++
	}
	return index, imported, failures
}

// buildProperties 生成顶点属性包：基础字段加上记录自带属性。
// 图库属性模型只接受字符串，复合值序列化为 JSON 文本。
func (im *Importer) buildProperties(record domain.ResourceRecord) map[string]string {
	now := im.now().UTC().Format(time.RFC3339)
	props := map[string]string{
		"name":             record.Name,
		"created_at":       now,
		"import_timestamp": now,
	}
	if record.Namespace != "" {
		props["namespace"] = record.Namespace
	}
	for key, value := range record.Properties {
		if value == nil {
			continue
		}
		props[key] = stringify(value)
	}
	if len(record.Properties) > 0 {
		props["spec_hash"] = util.HashMap(record.Properties)
	}
	return props
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func failureOf(record domain.ResourceRecord, err error) ImportFailure {
	return ImportFailure{
		Kind:      record.Kind,
		Name:      record.Name,
		Namespace: record.Namespace,
		Reason:    err.Error(),
	}
}

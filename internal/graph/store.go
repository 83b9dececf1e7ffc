package graph

import (
	"context"
	"errors"
)

// Direction 控制邻居展开的方向。
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

var (
	// ErrNotConnected 表示在 Connect 成功之前调用了图库操作。
	ErrNotConnected = errors.New("图库尚未连接")
	// ErrStoreUnavailable 表示底层图库不可达。
	ErrStoreUnavailable = errors.New("图库不可用")
	// ErrStoreClosed 表示连接已关闭，不能再发起操作。
	ErrStoreClosed = errors.New("图库连接已关闭")
)

// Vertex 是图库顶点的只读视图，属性值统一为字符串。
type Vertex struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties"`
}

// Path 是一条攻击路径，按顺序记录途经顶点的 name。
type Path []string

// PathQuery 描述一次有界路径搜索：从满足起点谓词的顶点出发，
// 沿出边扩展至多 MaxDepth 跳，命中终点谓词即收集，最多返回 MaxResults 条。
type PathQuery struct {
	StartProperty string
	StartValue    string
	EndProperty   string
	EndValue      string
	MaxDepth      int
	MaxResults    int
}

// Stats 汇总图库当前规模。
type Stats struct {
	VertexCount int64            `json:"vertex_count"`
	EdgeCount   int64            `json:"edge_count"`
	LabelCounts map[string]int64 `json:"label_counts"`
}

// ClearResult 记录一次全量清空删除的数量。
type ClearResult struct {
	VerticesDeleted int64 `json:"vertices_deleted"`
	EdgesDeleted    int64 `json:"edges_deleted"`
}

// Store 是图数据库的统一抽象边界。除 Connect/IsConnected/Close 外，
// 所有操作要求处于已连接状态，否则返回 ErrNotConnected。
type Store interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Close(ctx context.Context) error

	CreateVertex(ctx context.Context, label string, properties map[string]string) (string, error)
	CreateEdge(ctx context.Context, sourceID, targetID, label string, properties map[string]string) (string, error)

	VerticesByLabel(ctx context.Context, label string) ([]Vertex, error)
	VerticesByProperty(ctx context.Context, key, value string) ([]Vertex, error)
	Neighbors(ctx context.Context, vertexID string, direction Direction) ([]Vertex, error)
	FindPaths(ctx context.Context, q PathQuery) ([]Path, error)
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) (ClearResult, error)
}

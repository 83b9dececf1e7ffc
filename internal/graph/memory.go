package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore 是 Store 的进程内实现，语义与 Neo4j 实现保持一致，
// 用于单元测试和未配置图库时的本地运行。
type MemoryStore struct {
	mu       sync.Mutex
	state    connState
	seq      int
	vertices map[string]*memVertex
	order    []string
	edges    []*memEdge
}

type memVertex struct {
	id    string
	label string
	props map[string]string
}

type memEdge struct {
	id     string
	source string
	target string
	label  string
	props  map[string]string
}

// NewMemoryStore 创建未连接的内存 Store。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Connect 初始化内部结构，重复调用幂等。
func (s *MemoryStore) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrStoreClosed
	}
	s.vertices = make(map[string]*memVertex)
	s.edges = nil
	s.order = nil
	s.state = stateConnected
	return nil
}

// IsConnected 返回当前是否可用。
func (s *MemoryStore) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateConnected
}

// Close 关闭存储。未连接或已关闭时为 no-op。
func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return nil
	}
	s.state = stateClosed
	return nil
}

func (s *MemoryStore) requireConnected() error {
	if s.state != stateConnected {
		return ErrNotConnected
	}
	return nil
}

// CreateVertex 创建顶点并返回分配的 ID。
func (s *MemoryStore) CreateVertex(_ context.Context, label string, properties map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	s.seq++
	id := fmt.Sprintf("v%d", s.seq)
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	s.vertices[id] = &memVertex{id: id, label: label, props: props}
	s.order = append(s.order, id)
	return id, nil
}

// CreateEdge 创建有向边，两个端点都必须已存在。
func (s *MemoryStore) CreateEdge(_ context.Context, sourceID, targetID, label string, properties map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	if _, ok := s.vertices[sourceID]; !ok {
		return "", fmt.Errorf("源顶点不存在: %s", sourceID)
	}
	if _, ok := s.vertices[targetID]; !ok {
		return "", fmt.Errorf("目标顶点不存在: %s", targetID)
	}
	s.seq++
	id := fmt.Sprintf("e%d", s.seq)
	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	s.edges = append(s.edges, &memEdge{id: id, source: sourceID, target: targetID, label: label, props: props})
	return id, nil
}

// VerticesByLabel 返回指定标签的全部顶点，按创建顺序。
func (s *MemoryStore) VerticesByLabel(_ context.Context, label string) ([]Vertex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	out := make([]Vertex, 0)
	for _, id := range s.order {
		if v := s.vertices[id]; v != nil && v.label == label {
			out = append(out, v.view())
		}
	}
	return out, nil
}

// VerticesByProperty 按属性键值对查询顶点。
func (s *MemoryStore) VerticesByProperty(_ context.Context, key, value string) ([]Vertex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	out := make([]Vertex, 0)
	for _, id := range s.order {
		if v := s.vertices[id]; v != nil && v.props[key] == value {
			out = append(out, v.view())
		}
	}
	return out, nil
}

// Neighbors 按方向展开一跳邻居，结果去重。
func (s *MemoryStore) Neighbors(_ context.Context, vertexID string, direction Direction) ([]Vertex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]Vertex, 0)
	add := func(id string) {
		if seen[id] {
			return
		}
		if v := s.vertices[id]; v != nil {
			seen[id] = true
			out = append(out, v.view())
		}
	}
	for _, e := range s.edges {
		if (direction == DirectionOut || direction == DirectionBoth) && e.source == vertexID {
			add(e.target)
		}
		if (direction == DirectionIn || direction == DirectionBoth) && e.target == vertexID {
			add(e.source)
		}
	}
	return out, nil
}

// FindPaths 从满足起点谓词的顶点出发沿出边做有界扩展，
// 命中终点谓词即收集路径并停止该分支，与图库的 repeat-until 语义一致。
func (s *MemoryStore) FindPaths(_ context.Context, q PathQuery) ([]Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	maxDepth := q.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	adjacency := make(map[string][]string)
	for _, e := range s.edges {
		adjacency[e.source] = append(adjacency[e.source], e.target)
	}

	starts := make([]string, 0)
	for _, id := range s.order {
		if v := s.vertices[id]; v != nil && v.props[q.StartProperty] == q.StartValue {
			starts = append(starts, id)
		}
	}
	sort.Strings(starts)

	paths := make([]Path, 0)
	var walk func(id string, trail []string, depth int)
	walk = func(id string, trail []string, depth int) {
		if len(paths) >= maxResults {
			return
		}
		v := s.vertices[id]
		if v == nil {
			return
		}
		trail = append(trail, id)
		if v.props[q.EndProperty] == q.EndValue {
			path := make(Path, 0, len(trail))
			for _, tid := range trail {
				path = append(path, s.vertices[tid].props["name"])
			}
			paths = append(paths, path)
			return
		}
		if depth >= maxDepth {
			return
		}
		for _, next := range adjacency[id] {
			if containsID(trail, next) {
				continue
			}
			walk(next, trail, depth+1)
		}
	}
	for _, start := range starts {
		walk(start, nil, 0)
	}
	return paths, nil
}

// RawQuery 内存实现没有查询引擎，始终报错。
func (s *MemoryStore) RawQuery(context.Context, string) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("内存图库不支持原始查询")
}

// Stats 返回顶点/边总数和按标签分布。
func (s *MemoryStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return Stats{}, err
	}
	stats := Stats{
		VertexCount: int64(len(s.vertices)),
		EdgeCount:   int64(len(s.edges)),
		LabelCounts: make(map[string]int64),
	}
	for _, v := range s.vertices {
		stats.LabelCounts[v.label]++
	}
	return stats, nil
}

// Clear 全量清空，先删边再删点。
func (s *MemoryStore) Clear(context.Context) (ClearResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return ClearResult{}, err
	}
	result := ClearResult{
		VerticesDeleted: int64(len(s.vertices)),
		EdgesDeleted:    int64(len(s.edges)),
	}
	s.edges = nil
	s.vertices = make(map[string]*memVertex)
	s.order = nil
	return result, nil
}

func (v *memVertex) view() Vertex {
	props := make(map[string]string, len(v.props))
	for k, val := range v.props {
		props[k] = val
	}
	return Vertex{ID: v.id, Label: v.label, Properties: props}
}

func containsID(trail []string, id string) bool {
	for _, t := range trail {
		if t == id {
			return true
		}
	}
	return false
}

package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"kube2neo/internal/cypher"
)

// Config 描述连接 Neo4j 的必要参数。
type Config struct {
	URI                  string
	Username             string
	Password             string
	Database             string
	MaxConnectionPool    int
	ConnectionTimeoutSec int
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateClosed
)

// Neo4jStore 基于 Neo4j 驱动实现 Store。
// 状态机：Disconnected -> Connected -> Closed，Closed 为终态。
type Neo4jStore struct {
	cfg Config

	mu     sync.Mutex
	state  connState
	driver neo4j.DriverWithContext
}

// NewNeo4jStore 创建未连接的 Neo4j Store，连接动作由 Connect 完成。
func NewNeo4jStore(cfg Config) *Neo4jStore {
	return &Neo4jStore{cfg: cfg}
}

// Connect 建立并校验连接，重复调用是幂等的。
func (s *Neo4jStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrStoreClosed
	}
	if s.cfg.URI == "" {
		return fmt.Errorf("%w: neo4j uri 不能为空", ErrStoreUnavailable)
	}
	auth := neo4j.BasicAuth(s.cfg.Username, s.cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(s.cfg.URI, auth, func(conf *neo4j.Config) {
		if s.cfg.MaxConnectionPool > 0 {
			conf.MaxConnectionPoolSize = s.cfg.MaxConnectionPool
		}
		if s.cfg.ConnectionTimeoutSec > 0 {
			conf.SocketConnectTimeout = time.Duration(s.cfg.ConnectionTimeoutSec) * time.Second
		}
	})
	if err != nil {
		return fmt.Errorf("%w: 创建 neo4j driver 失败: %v", ErrStoreUnavailable, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return fmt.Errorf("%w: neo4j 无法连通: %v", ErrStoreUnavailable, err)
	}
	s.driver = driver
	s.state = stateConnected
	return nil
}

// IsConnected 返回当前是否处于已连接状态。
func (s *Neo4jStore) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateConnected
}

// Close 关闭底层连接。未连接或已关闭时为 no-op。
func (s *Neo4jStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return nil
	}
	s.state = stateClosed
	driver := s.driver
	s.driver = nil
	return driver.Close(ctx)
}

func (s *Neo4jStore) connected() (neo4j.DriverWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return nil, ErrNotConnected
	}
	return s.driver, nil
}

func (s *Neo4jStore) writeRecords(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	driver, err := s.connected()
	if err != nil {
		return nil, err
	}
	sess := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Database, AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)
	resultAny, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectRecords(ctx, tx, query, params)
	})
	if err != nil {
		return nil, err
	}
	return resultAny.([]map[string]any), nil
}

func (s *Neo4jStore) readRecords(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	driver, err := s.connected()
	if err != nil {
		return nil, err
	}
	sess := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Database, AccessMode: neo4j.AccessModeRead})
	defer sess.Close(ctx)
	resultAny, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectRecords(ctx, tx, query, params)
	})
	if err != nil {
		return nil, err
	}
	return resultAny.([]map[string]any), nil
}

func collectRecords(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (any, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0)
	for res.Next(ctx) {
		records = append(records, res.Record().AsMap())
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateVertex 创建带标签的顶点并返回图库分配的 ID。
func (s *Neo4jStore) CreateVertex(ctx context.Context, label string, properties map[string]string) (string, error) {
	query := cypher.MustTemplate("create_vertex.cql", map[string]string{"Label": label})
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	records, err := s.writeRecords(ctx, query, map[string]any{"props": props})
	if err != nil {
		return "", fmt.Errorf("创建顶点失败 label=%s: %w", label, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("创建顶点未返回 ID label=%s", label)
	}
	return asString(records[0]["id"]), nil
}

// CreateEdge 在两个已存在的顶点之间创建有向边。
func (s *Neo4jStore) CreateEdge(ctx context.Context, sourceID, targetID, label string, properties map[string]string) (string, error) {
	query := cypher.MustTemplate("create_edge.cql", map[string]string{"Type": label})
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	params := map[string]any{"source_id": sourceID, "target_id": targetID, "props": props}
	records, err := s.writeRecords(ctx, query, params)
	if err != nil {
		return "", fmt.Errorf("创建边失败 type=%s: %w", label, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("创建边未命中端点 type=%s source=%s target=%s", label, sourceID, targetID)
	}
	return asString(records[0]["id"]), nil
}

const vertexReturn = "elementId(v) AS id, labels(v) AS labels, properties(v) AS props"

// VerticesByLabel 返回指定标签的全部顶点。
func (s *Neo4jStore) VerticesByLabel(ctx context.Context, label string) ([]Vertex, error) {
	query := "MATCH (v) WHERE $label IN labels(v) RETURN " + vertexReturn
	records, err := s.readRecords(ctx, query, map[string]any{"label": label})
	if err != nil {
		return nil, err
	}
	return toVertices(records), nil
}

// VerticesByProperty 按属性键值对查询顶点。
func (s *Neo4jStore) VerticesByProperty(ctx context.Context, key, value string) ([]Vertex, error) {
	query := "MATCH (v) WHERE v[$key] = $value RETURN " + vertexReturn
	records, err := s.readRecords(ctx, query, map[string]any{"key": key, "value": value})
	if err != nil {
		return nil, err
	}
	return toVertices(records), nil
}

// Neighbors 按方向展开一跳邻居。
func (s *Neo4jStore) Neighbors(ctx context.Context, vertexID string, direction Direction) ([]Vertex, error) {
	var pattern string
	switch direction {
	case DirectionOut:
		pattern = "MATCH (v)-[]->(n)"
	case DirectionIn:
		pattern = "MATCH (n)-[]->(v)"
	default:
		pattern = "MATCH (v)--(n)"
	}
	query := pattern + " WHERE elementId(v) = $id RETURN DISTINCT elementId(n) AS id, labels(n) AS labels, properties(n) AS props"
	records, err := s.readRecords(ctx, query, map[string]any{"id": vertexID})
	if err != nil {
		return nil, err
	}
	return toVertices(records), nil
}

// FindPaths 执行有界路径搜索，深度上限必须编进语句文本。
func (s *Neo4jStore) FindPaths(ctx context.Context, q PathQuery) ([]Path, error) {
	maxDepth := q.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	query := cypher.MustTemplate("find_paths.cql", map[string]int{"MaxDepth": maxDepth, "MaxResults": maxResults})
	params := map[string]any{
		"start_key":   q.StartProperty,
		"start_value": q.StartValue,
		"end_key":     q.EndProperty,
		"end_value":   q.EndValue,
	}
	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return nil, err
	}
	paths := make([]Path, 0, len(records))
	for _, rec := range records {
		names, _ := rec["names"].([]any)
		path := make(Path, 0, len(names))
		for _, n := range names {
			path = append(path, asString(n))
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RawQuery 透传操作员自带的 Cypher 语句，不做任何校验。
func (s *Neo4jStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	driver, err := s.connected()
	if err != nil {
		return nil, err
	}
	sess := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Database, AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("执行语句失败: %w", err)
	}
	records := make([]map[string]any, 0)
	for res.Next(ctx) {
		records = append(records, res.Record().AsMap())
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Stats 返回顶点/边总数及按标签的顶点分布。
func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	records, err := s.readRecords(ctx, "MATCH (n) RETURN count(n) AS c", nil)
	if err != nil {
		return stats, err
	}
	if len(records) > 0 {
		stats.VertexCount = asInt64(records[0]["c"])
	}
	records, err = s.readRecords(ctx, "MATCH ()-[r]->() RETURN count(r) AS c", nil)
	if err != nil {
		return stats, err
	}
	if len(records) > 0 {
		stats.EdgeCount = asInt64(records[0]["c"])
	}
	records, err = s.readRecords(ctx, "MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS c", nil)
	if err != nil {
		return stats, err
	}
	stats.LabelCounts = make(map[string]int64, len(records))
	for _, rec := range records {
		stats.LabelCounts[asString(rec["label"])] = asInt64(rec["c"])
	}
	return stats, nil
}

// Clear 全量清空，先删边再删点以满足引用约束。
func (s *Neo4jStore) Clear(ctx context.Context) (ClearResult, error) {
	var result ClearResult
	stats, err := s.Stats(ctx)
	if err != nil {
		return result, err
	}
	if _, err := s.writeRecords(ctx, "MATCH ()-[r]->() DELETE r", nil); err != nil {
		return result, fmt.Errorf("删除边失败: %w", err)
	}
	if _, err := s.writeRecords(ctx, "MATCH (n) DELETE n", nil); err != nil {
		return result, fmt.Errorf("删除顶点失败: %w", err)
	}
	result.EdgesDeleted = stats.EdgeCount
	result.VerticesDeleted = stats.VertexCount
	return result, nil
}

func toVertices(records []map[string]any) []Vertex {
	vertices := make([]Vertex, 0, len(records))
	for _, rec := range records {
		v := Vertex{ID: asString(rec["id"]), Properties: make(map[string]string)}
		if labels, ok := rec["labels"].([]any); ok && len(labels) > 0 {
			v.Label = asString(labels[0])
		}
		if props, ok := rec["props"].(map[string]any); ok {
			for k, val := range props {
				v.Properties[k] = asString(val)
			}
		}
		vertices = append(vertices, v)
	}
	return vertices
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

package builder

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"kube2neo/internal/domain"
	"kube2neo/internal/graph"
)

// countingStore 统计 CreateEdge 调用次数，可按边类型注入失败。
type countingStore struct {
	graph.Store
	mu       sync.Mutex
	calls    int
	failType string
}

func (s *countingStore) CreateEdge(ctx context.Context, sourceID, targetID, label string, props map[string]string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if label == s.failType {
		return "", fmt.Errorf("injected failure")
	}
	return s.Store.CreateEdge(ctx, sourceID, targetID, label, props)
}

func (s *countingStore) edgeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func seedVertices(t *testing.T, store graph.Store, index *domain.Index, keys ...string) {
	t.Helper()
	for _, key := range keys {
		id, err := store.CreateVertex(context.Background(), "Pod", map[string]string{"name": key})
		if err != nil {
			t.Fatalf("seed vertex failed: %v", err)
		}
		index.Put(key, id)
	}
}

func TestExecuteCreatesResolvedEdges(t *testing.T) {
	mem := newConnectedMemStore(t)
	store := &countingStore{Store: mem}
	index := domain.NewIndex()
	seedVertices(t, mem, index, "Pod:demo:a", "Pod:demo:b", "Pod:demo:c")

	specs := []domain.EdgeSpec{
		{SourceKey: "Pod:demo:a", TargetKey: "Pod:demo:b", Type: domain.EdgeUses},
		{SourceKey: "Pod:demo:b", TargetKey: "Pod:demo:c", Type: domain.EdgeUses},
	}
	created := NewEdgeExecutor(store, nil, 10).Execute(context.Background(), specs, index)
	if created != 2 {
		t.Fatalf("expected 2 edges created, got %d", created)
	}
	stats, err := mem.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.EdgeCount != 2 {
		t.Fatalf("expected 2 edges in store, got %d", stats.EdgeCount)
	}
}

// 端点解析不到的请求静默丢弃，不产生任何图库调用。
func TestExecuteDropsUnresolvedWithoutStoreCalls(t *testing.T) {
	mem := newConnectedMemStore(t)
	store := &countingStore{Store: mem}
	index := domain.NewIndex()
	seedVertices(t, mem, index, "Pod:demo:a")

	specs := []domain.EdgeSpec{
		{SourceKey: "Pod:demo:a", TargetKey: "Node::missing", Type: domain.EdgeRunsOn},
		{SourceKey: "Pod:demo:missing", TargetKey: "Pod:demo:a", Type: domain.EdgeUses},
	}
	created := NewEdgeExecutor(store, nil, 10).Execute(context.Background(), specs, index)
	if created != 0 {
		t.Fatalf("expected 0 edges created, got %d", created)
	}
	if store.edgeCalls() != 0 {
		t.Fatalf("unresolved specs must not reach the store, got %d calls", store.edgeCalls())
	}
}

// 批内单条失败不影响同批其他请求。
func TestExecuteIsolatesFailures(t *testing.T) {
	mem := newConnectedMemStore(t)
	store := &countingStore{Store: mem, failType: string(domain.EdgeRunsOn)}
	index := domain.NewIndex()
	seedVertices(t, mem, index, "Pod:demo:a", "Pod:demo:b", "Pod:demo:c")

	specs := []domain.EdgeSpec{
		{SourceKey: "Pod:demo:a", TargetKey: "Pod:demo:b", Type: domain.EdgeRunsOn},
		{SourceKey: "Pod:demo:a", TargetKey: "Pod:demo:c", Type: domain.EdgeUses},
		{SourceKey: "Pod:demo:b", TargetKey: "Pod:demo:c", Type: domain.EdgeUses},
	}
	created := NewEdgeExecutor(store, nil, 10).Execute(context.Background(), specs, index)
	if created != 2 {
		t.Fatalf("expected 2 edges created despite failure, got %d", created)
	}
	if store.edgeCalls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.edgeCalls())
	}
}

// 小批次也能完整消化全部请求。
func TestExecuteHonorsBatchSize(t *testing.T) {
	mem := newConnectedMemStore(t)
	store := &countingStore{Store: mem}
	index := domain.NewIndex()

	keys := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		keys = append(keys, fmt.Sprintf("Pod:demo:p%d", i))
	}
	seedVertices(t, mem, index, keys...)

	var specs []domain.EdgeSpec
	for i := 1; i < 7; i++ {
		specs = append(specs, domain.EdgeSpec{
			SourceKey: keys[0], TargetKey: keys[i], Type: domain.EdgeUses,
		})
	}
	created := NewEdgeExecutor(store, nil, 2).Execute(context.Background(), specs, index)
	if created != 6 {
		t.Fatalf("expected 6 edges created, got %d", created)
	}
}

func TestExecuteEdgeProperties(t *testing.T) {
	mem := newConnectedMemStore(t)
	index := domain.NewIndex()
	seedVertices(t, mem, index, "Pod:demo:a", "Pod:demo:b")

	specs := []domain.EdgeSpec{
		{SourceKey: "Pod:demo:a", TargetKey: "Pod:demo:b", Type: domain.EdgeGrantsTo,
			Properties: map[string]any{"subject_kind": "ServiceAccount"}},
	}
	created := NewEdgeExecutor(mem, nil, 10).Execute(context.Background(), specs, index)
	if created != 1 {
		t.Fatalf("expected 1 edge created, got %d", created)
	}
}

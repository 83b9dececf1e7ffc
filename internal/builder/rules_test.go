package builder

import (
	"testing"

	"kube2neo/internal/domain"
)

func findEdges(specs []domain.EdgeSpec, edgeType domain.EdgeType) []domain.EdgeSpec {
	var out []domain.EdgeSpec
	for _, s := range specs {
		if s.Type == edgeType {
			out = append(out, s)
		}
	}
	return out
}

func TestPodRuleRunsOnAndUses(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo", Properties: map[string]any{
			"node_name":       "node-1",
			"service_account": "web-sa",
		}},
	}
	specs := InferEdges(records)

	runsOn := findEdges(specs, domain.EdgeRunsOn)
	if len(runsOn) != 1 {
		t.Fatalf("expected 1 runs_on edge, got %d", len(runsOn))
	}
	if runsOn[0].SourceKey != "Pod:demo:web-0" || runsOn[0].TargetKey != "Node::node-1" {
		t.Fatalf("unexpected runs_on edge %+v", runsOn[0])
	}

	uses := findEdges(specs, domain.EdgeUses)
	if len(uses) != 1 {
		t.Fatalf("expected 1 uses edge, got %d", len(uses))
	}
	if uses[0].TargetKey != "ServiceAccount:demo:web-sa" {
		t.Fatalf("unexpected uses target %s", uses[0].TargetKey)
	}
}

func TestPodRuleWithoutNodeOrServiceAccount(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindPod, Name: "pending-0", Namespace: "demo"},
	}
	specs := InferEdges(records)
	if edges := findEdges(specs, domain.EdgeRunsOn); len(edges) != 0 {
		t.Fatalf("pod without node_name should not emit runs_on, got %v", edges)
	}
	if edges := findEdges(specs, domain.EdgeUses); len(edges) != 0 {
		t.Fatalf("pod without service_account should not emit uses, got %v", edges)
	}
}

func TestNamespaceRule(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo"},
		{Kind: domain.KindSecret, Name: "token", Namespace: "demo"},
		{Kind: domain.KindNode, Name: "node-1"},
		{Kind: domain.KindClusterRole, Name: "admin"},
	}
	edges := findEdges(InferEdges(records), domain.EdgeInNamespace)
	if len(edges) != 2 {
		t.Fatalf("expected 2 in_namespace edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.TargetKey != "Namespace::demo" {
			t.Fatalf("in_namespace must target the namespace vertex key, got %s", e.TargetKey)
		}
	}
}

func TestSelectorRuleMatchesSubset(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindService, Name: "web", Namespace: "demo", Properties: map[string]any{
			"selector": map[string]string{"app": "web"},
		}},
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo",
			Labels: map[string]string{"app": "web", "tier": "frontend"}},
		{Kind: domain.KindPod, Name: "db-0", Namespace: "demo",
			Labels: map[string]string{"app": "db"}},
		{Kind: domain.KindPod, Name: "web-other", Namespace: "other",
			Labels: map[string]string{"app": "web"}},
	}
	selects := findEdges(InferEdges(records), domain.EdgeSelects)
	if len(selects) != 1 {
		t.Fatalf("expected 1 selects edge, got %d", len(selects))
	}
	if selects[0].TargetKey != "Pod:demo:web-0" {
		t.Fatalf("selector matched wrong pod: %s", selects[0].TargetKey)
	}
}

// 空选择器不匹配任何 Pod。
func TestSelectorRuleEmptySelector(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindService, Name: "headless", Namespace: "demo"},
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo", Labels: map[string]string{"app": "web"}},
	}
	if edges := findEdges(InferEdges(records), domain.EdgeSelects); len(edges) != 0 {
		t.Fatalf("empty selector must match nothing, got %v", edges)
	}
}

func TestDeploymentRuleManages(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindDeployment, Name: "web", Namespace: "demo", Properties: map[string]any{
			"selector": map[string]string{"app": "web"},
		}},
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo", Labels: map[string]string{"app": "web"}},
	}
	manages := findEdges(InferEdges(records), domain.EdgeManages)
	if len(manages) != 1 {
		t.Fatalf("expected 1 manages edge, got %d", len(manages))
	}
	if manages[0].SourceKey != "Deployment:demo:web" || manages[0].TargetKey != "Pod:demo:web-0" {
		t.Fatalf("unexpected manages edge %+v", manages[0])
	}
}

func TestRoleBindingEdges(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindRoleBinding, Name: "rb", Namespace: "demo", Properties: map[string]any{
			"role_ref": map[string]any{"kind": "Role", "name": "reader"},
			"subjects": []any{
				map[string]any{"kind": "ServiceAccount", "name": "web-sa"},
				map[string]any{"kind": "User", "name": "alice"},
			},
		}},
	}
	specs := InferEdges(records)

	refs := findEdges(specs, domain.EdgeReferences)
	if len(refs) != 1 {
		t.Fatalf("expected 1 references edge, got %d", len(refs))
	}
	if refs[0].TargetKey != "Role:demo:reader" {
		t.Fatalf("unexpected references target %s", refs[0].TargetKey)
	}

	grants := findEdges(specs, domain.EdgeGrantsTo)
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants_to edges, got %d", len(grants))
	}
	// ServiceAccount 主体缺省命名空间时回落到绑定自身的命名空间。
	if grants[0].TargetKey != "ServiceAccount:demo:web-sa" {
		t.Fatalf("unexpected subject key %s", grants[0].TargetKey)
	}
	if grants[1].TargetKey != "User::alice" {
		t.Fatalf("unexpected subject key %s", grants[1].TargetKey)
	}
}

func TestRoleBindingClusterRoleRef(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindRoleBinding, Name: "rb", Namespace: "demo", Properties: map[string]any{
			"role_ref": map[string]any{"kind": "ClusterRole", "name": "view"},
		}},
	}
	refs := findEdges(InferEdges(records), domain.EdgeReferences)
	if len(refs) != 1 {
		t.Fatalf("expected 1 references edge, got %d", len(refs))
	}
	if refs[0].TargetKey != "ClusterRole::view" {
		t.Fatalf("unexpected references target %s", refs[0].TargetKey)
	}
}

// ClusterRoleBinding 引用 Role 是非法绑定，不应产出 references 边。
func TestClusterRoleBindingIgnoresRoleRef(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindClusterRoleBinding, Name: "crb", Properties: map[string]any{
			"role_ref": map[string]any{"kind": "Role", "name": "reader"},
			"subjects": []any{
				map[string]any{"kind": "ServiceAccount", "name": "ops", "namespace": "kube-system"},
			},
		}},
	}
	specs := InferEdges(records)
	if refs := findEdges(specs, domain.EdgeReferences); len(refs) != 0 {
		t.Fatalf("cluster role binding with Role ref must not emit references, got %v", refs)
	}
	grants := findEdges(specs, domain.EdgeGrantsTo)
	if len(grants) != 1 {
		t.Fatalf("expected 1 grants_to edge, got %d", len(grants))
	}
	if grants[0].TargetKey != "ServiceAccount:kube-system:ops" {
		t.Fatalf("unexpected subject key %s", grants[0].TargetKey)
	}
}

func TestIngressRule(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindIngress, Name: "web", Namespace: "demo", Properties: map[string]any{
			"backends": []any{
				map[string]any{"service_name": "web", "service_port": "80"},
				map[string]any{"service_name": ""},
			},
		}},
	}
	routes := findEdges(InferEdges(records), domain.EdgeRoutesTo)
	if len(routes) != 1 {
		t.Fatalf("expected 1 routes_to edge, got %d", len(routes))
	}
	if routes[0].TargetKey != "Service:demo:web" {
		t.Fatalf("unexpected routes_to target %s", routes[0].TargetKey)
	}
}

// 规则层不过滤悬空引用：指向快照外资源的请求照常产出，
// 由执行阶段对照索引丢弃。
func TestRulesEmitDanglingReferences(t *testing.T) {
	records := []domain.ResourceRecord{
		{Kind: domain.KindPod, Name: "web-0", Namespace: "demo", Properties: map[string]any{
			"node_name": "node-not-in-snapshot",
		}},
	}
	runsOn := findEdges(InferEdges(records), domain.EdgeRunsOn)
	if len(runsOn) != 1 {
		t.Fatalf("expected dangling runs_on candidate, got %d", len(runsOn))
	}
}

func TestInferEdgesEmptyInput(t *testing.T) {
	if specs := InferEdges(nil); len(specs) != 0 {
		t.Fatalf("expected no edges for empty snapshot, got %d", len(specs))
	}
}

package builder

import (
	"kube2neo/internal/domain"
)

// Rule 是一条按资源种类推导关系的规则。规则之间相互独立，
// 顺序只影响产出列表的排列，不影响最终图的内容。
type Rule struct {
	Name  string
	Apply func(records []domain.ResourceRecord) []domain.EdgeSpec
}

// Rules 返回固定顺序的规则表，便于测试逐条枚举。
func Rules() []Rule {
	return []Rule{
		{Name: "pod", Apply: podRule},
		{Name: "namespace", Apply: namespaceRule},
		{Name: "service", Apply: serviceRule},
		{Name: "deployment", Apply: deploymentRule},
		{Name: "rbac", Apply: rbacRule},
		{Name: "ingress", Apply: ingressRule},
	}
}

// InferEdges 依次应用全部规则，产出建边请求列表。
// 端点是否存在由执行阶段对照索引判定，规则层不做过滤。
func InferEdges(records []domain.ResourceRecord) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, rule := range Rules() {
		specs = append(specs, rule.Apply(records)...)
	}
	return specs
}

// podRule 推导 Pod 的调度与身份关系：
// runs_on 指向所在 Node，uses 指向同命名空间的 ServiceAccount。
func podRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, r := range records {
		if r.Kind != domain.KindPod {
			continue
		}
		podKey, err := domain.KeyOf(r)
		if err != nil {
			continue
		}
		if nodeName := r.StringProperty("node_name"); nodeName != "" {
			specs = append(specs, domain.EdgeSpec{
				SourceKey: podKey,
				TargetKey: domain.ClusterKey(domain.KindNode, nodeName),
				Type:      domain.EdgeRunsOn,
			})
		}
		if sa := r.StringProperty("service_account"); sa != "" {
			specs = append(specs, domain.EdgeSpec{
				SourceKey: podKey,
				TargetKey: domain.NamespacedKey(domain.KindServiceAccount, r.Namespace, sa),
				Type:      domain.EdgeUses,
			})
		}
	}
	return specs
}

var namespacedSources = map[domain.Kind]bool{
	domain.KindPod:            true,
	domain.KindService:        true,
	domain.KindDeployment:     true,
	domain.KindIngress:        true,
	domain.KindSecret:         true,
	domain.KindConfigMap:      true,
	domain.KindRole:           true,
	domain.KindServiceAccount: true,
}

// namespaceRule 为命名空间级资源建立 in_namespace 归属边。
func namespaceRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, r := range records {
		if !namespacedSources[r.Kind] || r.Namespace == "" {
			continue
		}
		key, err := domain.KeyOf(r)
		if err != nil {
			continue
		}
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.ClusterKey(domain.KindNamespace, r.Namespace),
			Type:      domain.EdgeInNamespace,
		})
	}
	return specs
}

// serviceRule 按标签选择器把 Service 连到同命名空间被选中的 Pod。
func serviceRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	return selectorRule(records, domain.KindService, domain.EdgeSelects)
}

// deploymentRule 与 serviceRule 同一匹配逻辑，边类型为 manages。
func deploymentRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	return selectorRule(records, domain.KindDeployment, domain.EdgeManages)
}

func selectorRule(records []domain.ResourceRecord, sourceKind domain.Kind, edgeType domain.EdgeType) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, r := range records {
		if r.Kind != sourceKind {
			continue
		}
		selector := r.MapProperty("selector")
		if len(selector) == 0 {
			// 空选择器不匹配任何 Pod。
			continue
		}
		sourceKey, err := domain.KeyOf(r)
		if err != nil {
			continue
		}
		for _, pod := range records {
			if pod.Kind != domain.KindPod || pod.Namespace != r.Namespace {
				continue
			}
			if !labelSubset(selector, pod.Labels) {
				continue
			}
			podKey, err := domain.KeyOf(pod)
			if err != nil {
				continue
			}
			specs = append(specs, domain.EdgeSpec{
				SourceKey: sourceKey,
				TargetKey: podKey,
				Type:      edgeType,
			})
		}
	}
	return specs
}

// labelSubset 判定选择器是否为标签集的子集：
// 选择器的每个键都必须在标签集中存在且取值相等。
func labelSubset(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// rbacRule 推导权限绑定关系：references 指向被引用的角色，
// grants_to 指向每个被授权主体。
func rbacRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, r := range records {
		switch r.Kind {
		case domain.KindRoleBinding:
			specs = append(specs, roleBindingEdges(r)...)
		case domain.KindClusterRoleBinding:
			specs = append(specs, clusterRoleBindingEdges(r)...)
		}
	}
	return specs
}

func roleBindingEdges(r domain.ResourceRecord) []domain.EdgeSpec {
	key, err := domain.KeyOf(r)
	if err != nil {
		return nil
	}
	var specs []domain.EdgeSpec
	roleRef := r.MapProperty("role_ref")
	switch roleRef["kind"] {
	case "Role":
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.NamespacedKey(domain.KindRole, r.Namespace, roleRef["name"]),
			Type:      domain.EdgeReferences,
		})
	case "ClusterRole":
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.ClusterKey(domain.KindClusterRole, roleRef["name"]),
			Type:      domain.EdgeReferences,
		})
	}
	for _, subject := range r.MapListProperty("subjects") {
		ns := subject["namespace"]
		if ns == "" {
			ns = r.Namespace
		}
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.SubjectKey(subject["kind"], subject["name"], ns),
			Type:      domain.EdgeGrantsTo,
		})
	}
	return specs
}

func clusterRoleBindingEdges(r domain.ResourceRecord) []domain.EdgeSpec {
	key, err := domain.KeyOf(r)
	if err != nil {
		return nil
	}
	var specs []domain.EdgeSpec
	// ClusterRoleBinding 只能引用 ClusterRole；引用 Role 在 RBAC 里本身
	// 就是非法绑定，不产出任何边。
	if roleRef := r.MapProperty("role_ref"); roleRef["kind"] == "ClusterRole" {
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.ClusterKey(domain.KindClusterRole, roleRef["name"]),
			Type:      domain.EdgeReferences,
		})
	}
	for _, subject := range r.MapListProperty("subjects") {
		specs = append(specs, domain.EdgeSpec{
			SourceKey: key,
			TargetKey: domain.SubjectKey(subject["kind"], subject["name"], subject["namespace"]),
			Type:      domain.EdgeGrantsTo,
		})
	}
	return specs
}

// ingressRule 把 Ingress 的每个后端连到同命名空间的 Service。
func ingressRule(records []domain.ResourceRecord) []domain.EdgeSpec {
	var specs []domain.EdgeSpec
	for _, r := range records {
		if r.Kind != domain.KindIngress {
			continue
		}
		key, err := domain.KeyOf(r)
		if err != nil {
			continue
		}
		for _, backend := range r.MapListProperty("backends") {
			svcName := backend["service_name"]
			if svcName == "" {
				continue
			}
			specs = append(specs, domain.EdgeSpec{
				SourceKey: key,
				TargetKey: domain.NamespacedKey(domain.KindService, r.Namespace, svcName),
				Type:      domain.EdgeRoutesTo,
			})
		}
	}
	return specs
}

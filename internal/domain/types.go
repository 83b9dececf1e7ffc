package domain

// Kind 表示资源记录的种类，建边规则按 Kind 分发。
type Kind string

const (
	KindPod                Kind = "Pod"
	KindService            Kind = "Service"
	KindDeployment         Kind = "Deployment"
	KindNamespace          Kind = "Namespace"
	KindNode               Kind = "Node"
	KindIngress            Kind = "Ingress"
	KindSecret             Kind = "Secret"
	KindConfigMap          Kind = "ConfigMap"
	KindRole               Kind = "Role"
	KindRoleBinding        Kind = "RoleBinding"
	KindClusterRole        Kind = "ClusterRole"
	KindClusterRoleBinding Kind = "ClusterRoleBinding"
	KindServiceAccount     Kind = "ServiceAccount"
)

// AllKinds 列出全部支持的资源种类，顺序即统计与查询时的遍历顺序。
var AllKinds = []Kind{
	KindPod, KindService, KindDeployment, KindNamespace, KindNode,
	KindIngress, KindSecret, KindConfigMap, KindRole, KindRoleBinding,
	KindClusterRole, KindClusterRoleBinding, KindServiceAccount,
}

var clusterScoped = map[Kind]bool{
	KindNode:               true,
	KindNamespace:          true,
	KindClusterRole:        true,
	KindClusterRoleBinding: true,
}

// ClusterScoped 返回该种类是否为集群级资源（key 中不带命名空间）。
func (k Kind) ClusterScoped() bool {
	return clusterScoped[k]
}

// EdgeType 表示图中有向关系的类型。
type EdgeType string

const (
	EdgeRunsOn      EdgeType = "runs_on"
	EdgeUses        EdgeType = "uses"
	EdgeInNamespace EdgeType = "in_namespace"
	EdgeSelects     EdgeType = "selects"
	EdgeManages     EdgeType = "manages"
	EdgeReferences  EdgeType = "references"
	EdgeGrantsTo    EdgeType = "grants_to"
	EdgeRoutesTo    EdgeType = "routes_to"
)

// ResourceRecord 是采集层交给建图引擎的统一输入单元，
// 一次导入过程中视为不可变。
type ResourceRecord struct {
	Kind        Kind              `json:"kind"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty"`
}

// StringProperty 取出字符串类型的属性，不存在或类型不符返回空串。
func (r ResourceRecord) StringProperty(key string) string {
	if v, ok := r.Properties[key].(string); ok {
		return v
	}
	return ""
}

// MapProperty 取出 string->string 的映射属性。
// 经 JSON 反序列化的记录里嵌套 map 的值类型是 any，需要兼容。
func (r ResourceRecord) MapProperty(key string) map[string]string {
	return toStringMap(r.Properties[key])
}

// MapListProperty 取出映射列表属性（subjects、backends 等）。
func (r ResourceRecord) MapListProperty(key string) []map[string]string {
	switch list := r.Properties[key].(type) {
	case []map[string]string:
		return list
	case []map[string]any:
		out := make([]map[string]string, 0, len(list))
		for _, item := range list {
			if m := toStringMap(item); m != nil {
				out = append(out, m)
			}
		}
		return out
	case []any:
		out := make([]map[string]string, 0, len(list))
		for _, item := range list {
			if m := toStringMap(item); m != nil {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func toStringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// EdgeSpec 是规则引擎产出的建边请求，端点以 VertexKey 表示，
// 执行阶段才解析成图库内部的顶点 ID。
type EdgeSpec struct {
	SourceKey  string         `json:"source_key"`
	TargetKey  string         `json:"target_key"`
	Type       EdgeType       `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

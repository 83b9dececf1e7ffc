package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord 表示记录缺少 kind 或 name，无法生成 VertexKey。
var ErrMalformedRecord = errors.New("资源记录缺少 kind 或 name")

// KeyOf 为记录生成稳定的复合 key：
// 命名空间级资源为 kind:namespace:name，集群级资源为 kind::name。
// 同一条记录多次调用结果一致。
func KeyOf(r ResourceRecord) (string, error) {
	if r.Kind == "" || r.Name == "" {
		return "", fmt.Errorf("%w: kind=%q name=%q", ErrMalformedRecord, r.Kind, r.Name)
	}
	if r.Kind.ClusterScoped() {
		return ClusterKey(r.Kind, r.Name), nil
	}
	return NamespacedKey(r.Kind, r.Namespace, r.Name), nil
}

// NamespacedKey 拼接命名空间级资源的 key。
func NamespacedKey(kind Kind, namespace, name string) string {
	return fmt.Sprintf("%s:%s:%s", kind, namespace, name)
}

// ClusterKey 拼接集群级资源的 key。
func ClusterKey(kind Kind, name string) string {
	return fmt.Sprintf("%s::%s", kind, name)
}

// SubjectKey 为 RBAC 主体生成 key。ServiceAccount 走命名空间级，
// User/Group 等没有命名空间，统一按集群级格式拼接。
func SubjectKey(subjectKind, name, namespace string) string {
	if Kind(subjectKind) == KindServiceAccount {
		return NamespacedKey(KindServiceAccount, namespace, name)
	}
	return fmt.Sprintf("%s::%s", subjectKind, name)
}

// Index 维护一次导入过程中 VertexKey 到图库顶点 ID 的映射。
// 顶点导入阶段写入，边推导阶段只读；重复 key 后写覆盖先写。
type Index struct {
	ids map[string]string
}

// NewIndex 创建空索引。
func NewIndex() *Index {
	return &Index{ids: make(map[string]string)}
}

// Put 写入映射，返回该 key 是否覆盖了已有条目。
func (i *Index) Put(key, vertexID string) bool {
	_, replaced := i.ids[key]
	i.ids[key] = vertexID
	return replaced
}

// Resolve 查询 key 对应的顶点 ID。
func (i *Index) Resolve(key string) (string, bool) {
	id, ok := i.ids[key]
	return id, ok
}

// Len 返回索引条目数。
func (i *Index) Len() int {
	return len(i.ids)
}

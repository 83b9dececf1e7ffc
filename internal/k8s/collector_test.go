package k8s

import (
	"context"
	"testing"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"kube2neo/internal/domain"
)

func testCollector(objects ...runtime.Object) *ClusterCollector {
	return &ClusterCollector{
		clientset: fake.NewSimpleClientset(objects...),
		logger:    zap.NewNop(),
	}
}

func recordsOfKind(records []domain.ResourceRecord, kind domain.Kind) []domain.ResourceRecord {
	var out []domain.ResourceRecord
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func TestCollectPods(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "web-0",
			Namespace: "demo",
			Labels:    map[string]string{"app": "web"},
		},
		Spec: corev1.PodSpec{
			NodeName:           "node-1",
			ServiceAccountName: "web-sa",
			Containers:         []corev1.Container{{Name: "web", Image: "nginx:1.25"}},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			PodIP: "10.0.0.5",
		},
	}
	c := testCollector(pod)

	records, err := c.collectPods(context.Background())
	if err != nil {
		t.Fatalf("collect pods failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Kind != domain.KindPod || r.Name != "web-0" || r.Namespace != "demo" {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.StringProperty("node_name") != "node-1" {
		t.Fatalf("unexpected node_name %q", r.StringProperty("node_name"))
	}
	if r.StringProperty("service_account") != "web-sa" {
		t.Fatalf("unexpected service_account %q", r.StringProperty("service_account"))
	}
	if r.StringProperty("phase") != "Running" {
		t.Fatalf("unexpected phase %q", r.StringProperty("phase"))
	}
	if r.Labels["app"] != "web" {
		t.Fatalf("labels not carried: %v", r.Labels)
	}
}

// NodePort/LoadBalancer 类型对集群外可达，必须打上 exposed 标记；
// ClusterIP 不打。
func TestCollectServicesExposureFlag(t *testing.T) {
	nodePort := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "edge", Namespace: "demo"},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeNodePort,
			Selector: map[string]string{"app": "web"},
		},
	}
	internal := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "internal", Namespace: "demo"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP},
	}
	c := testCollector(nodePort, internal)

	records, err := c.collectServices(context.Background())
	if err != nil {
		t.Fatalf("collect services failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		exposed := r.StringProperty("exposed")
		switch r.Name {
		case "edge":
			if exposed != "true" {
				t.Fatalf("node port service must be exposed")
			}
			if sel := r.MapProperty("selector"); sel["app"] != "web" {
				t.Fatalf("unexpected selector %v", sel)
			}
		case "internal":
			if exposed != "" {
				t.Fatalf("cluster ip service must not be exposed")
			}
		}
	}
}

// Secret 记录只携带键名，绝不携带内容，且恒为 sensitive。
func TestCollectSecretsKeysOnly(t *testing.T) {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "db-credentials", Namespace: "demo"},
		Type:       corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"password": []byte("super-secret"),
			"username": []byte("admin"),
		},
	}
	c := testCollector(secret)

	records, err := c.collectSecrets(context.Background())
	if err != nil {
		t.Fatalf("collect secrets failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.StringProperty("sensitive") != "true" {
		t.Fatalf("secret must be sensitive")
	}
	keys, ok := r.Properties["data_keys"].([]string)
	if !ok || len(keys) != 2 || keys[0] != "password" || keys[1] != "username" {
		t.Fatalf("unexpected data_keys %v", r.Properties["data_keys"])
	}
	for _, v := range keys {
		if v == "super-secret" || v == "admin" {
			t.Fatalf("secret content leaked into record")
		}
	}
}

func TestCollectRoleBindings(t *testing.T) {
	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: "web-reads-secrets", Namespace: "demo"},
		RoleRef:    rbacv1.RoleRef{Kind: "Role", Name: "secret-reader", APIGroup: "rbac.authorization.k8s.io"},
		Subjects: []rbacv1.Subject{
			{Kind: "ServiceAccount", Name: "web-sa", Namespace: "demo"},
		},
	}
	c := testCollector(rb)

	records, err := c.collectRoleBindings(context.Background())
	if err != nil {
		t.Fatalf("collect role bindings failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	ref := r.MapProperty("role_ref")
	if ref["kind"] != "Role" || ref["name"] != "secret-reader" {
		t.Fatalf("unexpected role_ref %v", ref)
	}
	subjects := r.MapListProperty("subjects")
	if len(subjects) != 1 || subjects[0]["name"] != "web-sa" {
		t.Fatalf("unexpected subjects %v", subjects)
	}
}

// 采集产出的记录可以直接生成 key 并进入推导规则。
func TestCollectAllFeedsRules(t *testing.T) {
	c := testCollector(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "demo"}},
		&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-1"}},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "web-0", Namespace: "demo"},
			Spec:       corev1.PodSpec{NodeName: "node-1"},
		},
	)
	records, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("collect all failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if _, err := domain.KeyOf(r); err != nil {
			t.Fatalf("record has no key: %+v", r)
		}
	}
	pods := recordsOfKind(records, domain.KindPod)
	if len(pods) != 1 || pods[0].StringProperty("node_name") != "node-1" {
		t.Fatalf("unexpected pod records %v", pods)
	}
}

package k8s

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"kube2neo/internal/domain"
	"kube2neo/internal/metrics"
)

// ClusterConfig 控制访问集群的方式。
type ClusterConfig struct {
	KubeconfigPath string
	InCluster      bool
}

// ClusterCollector 通过 client-go 从集群采集全部支持的资源种类。
type ClusterCollector struct {
	clientset kubernetes.Interface
	logger    *zap.Logger
}

// NewClusterCollector 按配置构建集群采集器。
func NewClusterCollector(cfg ClusterConfig, logger *zap.Logger) (*ClusterCollector, error) {
	var (
		restCfg *rest.Config
		err     error
	)
	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeconfigPath)
	}
	if err != nil {
		return nil, fmt.Errorf("加载集群配置失败: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("创建 kubernetes client 失败: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClusterCollector{clientset: clientset, logger: logger}, nil
}

// IsConnected 返回 client 是否已初始化。
func (c *ClusterCollector) IsConnected() bool {
	return c != nil && c.clientset != nil
}

// CollectAll 并发采集全部资源种类。单个种类失败只记日志并跳过，
// 不影响其余种类；结果按种类的固定顺序拼接。
func (c *ClusterCollector) CollectAll(ctx context.Context) ([]domain.ResourceRecord, error) {
	collectors := []struct {
		name string
		fn   func(context.Context) ([]domain.ResourceRecord, error)
	}{
		{"pods", c.collectPods},
		{"services", c.collectServices},
		{"deployments", c.collectDeployments},
		{"namespaces", c.collectNamespaces},
		{"nodes", c.collectNodes},
		{"ingresses", c.collectIngresses},
		{"secrets", c.collectSecrets},
		{"configmaps", c.collectConfigMaps},
		{"roles", c.collectRoles},
		{"rolebindings", c.collectRoleBindings},
		{"clusterroles", c.collectClusterRoles},
		{"clusterrolebindings", c.collectClusterRoleBindings},
		{"serviceaccounts", c.collectServiceAccounts},
	}

	results := make([][]domain.ResourceRecord, len(collectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, collector := range collectors {
		i, collector := i, collector
		g.Go(func() error {
			records, err := collector.fn(gctx)
			if err != nil {
				metrics.CollectErrors.Inc()
				c.logger.Error("采集资源失败", zap.String("resource", collector.name), zap.Error(err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var records []domain.ResourceRecord
	for _, chunk := range results {
		records = append(records, chunk...)
	}
	c.logger.Info("集群采集完成", zap.Int("records", len(records)))
	return records, nil
}

func (c *ClusterCollector) collectPods(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, pod := range list.Items {
		images := make([]string, 0, len(pod.Spec.Containers))
		for _, container := range pod.Spec.Containers {
			images = append(images, container.Image)
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindPod,
			Name:        pod.Name,
			Namespace:   pod.Namespace,
			Labels:      pod.Labels,
			Annotations: pod.Annotations,
			Properties: map[string]any{
				"pod_ip":             pod.Status.PodIP,
				"host_ip":            pod.Status.HostIP,
				"phase":              string(pod.Status.Phase),
				"node_name":          pod.Spec.NodeName,
				"service_account":    pod.Spec.ServiceAccountName,
				"container_images":   images,
				"creation_timestamp": formatTime(pod.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectServices(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, svc := range list.Items {
		ports := make([]map[string]any, 0, len(svc.Spec.Ports))
		for _, port := range svc.Spec.Ports {
			ports = append(ports, map[string]any{
				"name":        port.Name,
				"port":        int(port.Port),
				"target_port": port.TargetPort.String(),
				"protocol":    string(port.Protocol),
				"node_port":   int(port.NodePort),
			})
		}
		props := map[string]any{
			"cluster_ip":         svc.Spec.ClusterIP,
			"external_ips":       svc.Spec.ExternalIPs,
			"ports":              ports,
			"selector":           svc.Spec.Selector,
			"type":               string(svc.Spec.Type),
			"creation_timestamp": formatTime(svc.CreationTimestamp),
		}
		// NodePort/LoadBalancer 对集群外可达，标记为攻击路径起点。
		if svc.Spec.Type == corev1.ServiceTypeNodePort || svc.Spec.Type == corev1.ServiceTypeLoadBalancer {
			props["exposed"] = "true"
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindService,
			Name:        svc.Name,
			Namespace:   svc.Namespace,
			Labels:      svc.Labels,
			Annotations: svc.Annotations,
			Properties:  props,
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectDeployments(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, deploy := range list.Items {
		selector := map[string]string{}
		if deploy.Spec.Selector != nil {
			selector = deploy.Spec.Selector.MatchLabels
		}
		replicas := 0
		if deploy.Spec.Replicas != nil {
			replicas = int(*deploy.Spec.Replicas)
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindDeployment,
			Name:        deploy.Name,
			Namespace:   deploy.Namespace,
			Labels:      deploy.Labels,
			Annotations: deploy.Annotations,
			Properties: map[string]any{
				"replicas":           replicas,
				"ready_replicas":     int(deploy.Status.ReadyReplicas),
				"selector":           selector,
				"strategy":           string(deploy.Spec.Strategy.Type),
				"template_labels":    deploy.Spec.Template.Labels,
				"creation_timestamp": formatTime(deploy.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectNamespaces(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, ns := range list.Items {
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindNamespace,
			Name:        ns.Name,
			Labels:      ns.Labels,
			Annotations: ns.Annotations,
			Properties: map[string]any{
				"status":             string(ns.Status.Phase),
				"creation_timestamp": formatTime(ns.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectNodes(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, node := range list.Items {
		nodeIP := ""
		for _, addr := range node.Status.Addresses {
			if addr.Type == corev1.NodeInternalIP {
				nodeIP = addr.Address
				break
			}
		}
		taints := make([]map[string]string, 0, len(node.Spec.Taints))
		for _, taint := range node.Spec.Taints {
			taints = append(taints, map[string]string{
				"key":    taint.Key,
				"value":  taint.Value,
				"effect": string(taint.Effect),
			})
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindNode,
			Name:        node.Name,
			Labels:      node.Labels,
			Annotations: node.Annotations,
			Properties: map[string]any{
				"node_ip":            nodeIP,
				"os_image":           node.Status.NodeInfo.OSImage,
				"kernel_version":     node.Status.NodeInfo.KernelVersion,
				"container_runtime":  node.Status.NodeInfo.ContainerRuntimeVersion,
				"taints":             taints,
				"creation_timestamp": formatTime(node.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectIngresses(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.NetworkingV1().Ingresses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, ing := range list.Items {
		backends := make([]map[string]any, 0)
		for _, rule := range ing.Spec.Rules {
			if rule.HTTP == nil {
				continue
			}
			for _, path := range rule.HTTP.Paths {
				backend := map[string]any{
					"host": rule.Host,
					"path": path.Path,
				}
				if path.Backend.Service != nil {
					backend["service_name"] = path.Backend.Service.Name
					backend["service_port"] = int(path.Backend.Service.Port.Number)
				}
				backends = append(backends, backend)
			}
		}
		ingressClass := ""
		if ing.Spec.IngressClassName != nil {
			ingressClass = *ing.Spec.IngressClassName
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindIngress,
			Name:        ing.Name,
			Namespace:   ing.Namespace,
			Labels:      ing.Labels,
			Annotations: ing.Annotations,
			Properties: map[string]any{
				"backends":           backends,
				"ingress_class":      ingressClass,
				"exposed":            "true",
				"creation_timestamp": formatTime(ing.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectSecrets(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().Secrets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, secret := range list.Items {
		// 只带键名，绝不携带 secret 内容。
		keys := make([]string, 0, len(secret.Data))
		for k := range secret.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindSecret,
			Name:        secret.Name,
			Namespace:   secret.Namespace,
			Labels:      secret.Labels,
			Annotations: secret.Annotations,
			Properties: map[string]any{
				"type":               string(secret.Type),
				"data_keys":          keys,
				"sensitive":          "true",
				"creation_timestamp": formatTime(secret.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectConfigMaps(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().ConfigMaps(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, cm := range list.Items {
		keys := make([]string, 0, len(cm.Data))
		for k := range cm.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindConfigMap,
			Name:        cm.Name,
			Namespace:   cm.Namespace,
			Labels:      cm.Labels,
			Annotations: cm.Annotations,
			Properties: map[string]any{
				"data_keys":          keys,
				"creation_timestamp": formatTime(cm.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectRoles(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.RbacV1().Roles(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, role := range list.Items {
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindRole,
			Name:        role.Name,
			Namespace:   role.Namespace,
			Labels:      role.Labels,
			Annotations: role.Annotations,
			Properties: map[string]any{
				"rules":              policyRules(role.Rules),
				"creation_timestamp": formatTime(role.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectRoleBindings(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.RbacV1().RoleBindings(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, rb := range list.Items {
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindRoleBinding,
			Name:        rb.Name,
			Namespace:   rb.Namespace,
			Labels:      rb.Labels,
			Annotations: rb.Annotations,
			Properties: map[string]any{
				"role_ref":           roleRef(rb.RoleRef),
				"subjects":           subjects(rb.Subjects),
				"creation_timestamp": formatTime(rb.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectClusterRoles(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.RbacV1().ClusterRoles().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, cr := range list.Items {
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindClusterRole,
			Name:        cr.Name,
			Labels:      cr.Labels,
			Annotations: cr.Annotations,
			Properties: map[string]any{
				"rules":              policyRules(cr.Rules),
				"creation_timestamp": formatTime(cr.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectClusterRoleBindings(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.RbacV1().ClusterRoleBindings().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, crb := range list.Items {
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindClusterRoleBinding,
			Name:        crb.Name,
			Labels:      crb.Labels,
			Annotations: crb.Annotations,
			Properties: map[string]any{
				"role_ref":           roleRef(crb.RoleRef),
				"subjects":           subjects(crb.Subjects),
				"creation_timestamp": formatTime(crb.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func (c *ClusterCollector) collectServiceAccounts(ctx context.Context) ([]domain.ResourceRecord, error) {
	list, err := c.clientset.CoreV1().ServiceAccounts(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ResourceRecord, 0, len(list.Items))
	for _, sa := range list.Items {
		secretNames := make([]string, 0, len(sa.Secrets))
		for _, s := range sa.Secrets {
			secretNames = append(secretNames, s.Name)
		}
		pullSecrets := make([]string, 0, len(sa.ImagePullSecrets))
		for _, s := range sa.ImagePullSecrets {
			pullSecrets = append(pullSecrets, s.Name)
		}
		records = append(records, domain.ResourceRecord{
			Kind:        domain.KindServiceAccount,
			Name:        sa.Name,
			Namespace:   sa.Namespace,
			Labels:      sa.Labels,
			Annotations: sa.Annotations,
			Properties: map[string]any{
				"secrets":            secretNames,
				"image_pull_secrets": pullSecrets,
				"creation_timestamp": formatTime(sa.CreationTimestamp),
			},
		})
	}
	return records, nil
}

func policyRules(rules []rbacv1.PolicyRule) []map[string]any {
	out := make([]map[string]any, 0, len(rules))
	for _, rule := range rules {
		out = append(out, map[string]any{
			"verbs":          rule.Verbs,
			"api_groups":     rule.APIGroups,
			"resources":      rule.Resources,
			"resource_names": rule.ResourceNames,
		})
	}
	return out
}

func roleRef(ref rbacv1.RoleRef) map[string]string {
	return map[string]string{
		"kind":      ref.Kind,
		"name":      ref.Name,
		"api_group": ref.APIGroup,
	}
}

func subjects(list []rbacv1.Subject) []map[string]string {
	out := make([]map[string]string, 0, len(list))
	for _, subject := range list {
		out = append(out, map[string]string{
			"kind":      subject.Kind,
			"name":      subject.Name,
			"namespace": subject.Namespace,
			"api_group": subject.APIGroup,
		})
	}
	return out
}

func formatTime(t metav1.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

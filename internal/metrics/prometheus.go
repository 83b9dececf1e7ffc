package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ImportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kube2neo_import_duration_seconds",
		Help:    "单次快照导入耗时",
		Buckets: prometheus.DefBuckets,
	})

	ImportErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kube2neo_import_errors_total",
		Help: "快照导入失败次数",
	})

	CollectErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kube2neo_collect_errors_total",
		Help: "集群采集失败次数",
	})

	VerticesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kube2neo_vertices_created_total",
		Help: "累计创建的顶点数",
	})

	EdgesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kube2neo_edges_created_total",
		Help: "累计创建的边数",
	})
)

// MustRegister 注册全部指标，在装配阶段调用一次。
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ImportDuration, ImportErrors, CollectErrors, VerticesCreated, EdgesCreated)
}

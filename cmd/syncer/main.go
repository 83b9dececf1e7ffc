package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"kube2neo/internal/app"
	"kube2neo/internal/domain"
	"kube2neo/internal/k8s"
	"kube2neo/internal/logging"
	"kube2neo/ioc"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store := ioc.InitGraphStore(cfg, logger)

	var collector k8s.Collector
	if cmd == "collect" {
		collector, err = ioc.InitCollector(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "构建采集器失败: %v\n", err)
			os.Exit(1)
		}
	} else {
		collector = &k8s.StaticCollector{Records: mockRecords()}
	}

	svc, err := app.NewService(ctx, cfg, collector, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "构建服务失败: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close(ctx)

	switch cmd {
	case "collect", "import":
		var result any
		result, err = svc.CollectAndImport(ctx)
		if err == nil {
			printJSON(result)
		}
	case "stats":
		var stats any
		stats, err = svc.Stats(ctx)
		if err == nil {
			printJSON(stats)
		}
	case "clear":
		var cleared any
		cleared, err = svc.Clear(ctx)
		if err == nil {
			printJSON(cleared)
		}
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s 执行失败: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("用法: syncer [-config configs/config.yaml] {collect|import|stats|clear}")
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "序列化结果失败: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// mockRecords 提供一份最小演示快照：暴露的 Service 经 Pod 链路
// 触达敏感 Secret，可直接验证攻击路径查询。
func mockRecords() []domain.ResourceRecord {
	return []domain.ResourceRecord{
		{Kind: domain.KindNamespace, Name: "demo", Properties: map[string]any{"phase": "Active"}},
		{Kind: domain.KindNode, Name: "node-1", Properties: map[string]any{"os_image": "linux"}},
		{
			Kind: domain.KindPod, Name: "web-0", Namespace: "demo",
			Labels:     map[string]string{"app": "web"},
			Properties: map[string]any{"node_name": "node-1", "service_account": "web-sa", "phase": "Running"},
		},
		{
			Kind: domain.KindService, Name: "web", Namespace: "demo",
			Properties: map[string]any{
				"type":     "NodePort",
				"exposed":  "true",
				"selector": map[string]string{"app": "web"},
			},
		},
		{Kind: domain.KindServiceAccount, Name: "web-sa", Namespace: "demo"},
		{
			Kind: domain.KindSecret, Name: "db-credentials", Namespace: "demo",
			Properties: map[string]any{"type": "Opaque", "sensitive": "true"},
		},
		{
			Kind: domain.KindRole, Name: "secret-reader", Namespace: "demo",
			Properties: map[string]any{
				"rules": []any{
					map[string]any{"verbs": "get,list", "resources": "secrets"},
				},
			},
		},
		{
			Kind: domain.KindRoleBinding, Name: "web-reads-secrets", Namespace: "demo",
			Properties: map[string]any{
				"role_ref": map[string]any{"kind": "Role", "name": "secret-reader"},
				"subjects": []any{
					map[string]any{"kind": "ServiceAccount", "name": "web-sa", "namespace": "demo"},
				},
			},
		},
	}
}

package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kube2neo/internal/app"
	"kube2neo/internal/domain"
)

// AssetHandler 负责资产图相关的 HTTP 请求。
type AssetHandler struct {
	service *app.Service
	logger  *zap.Logger
}

// NewAssetHandler 构建一个新的 AssetHandler。
func NewAssetHandler(service *app.Service, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{service: service, logger: logger}
}

// RegisterRoutes 将资产图路由注册到给定的路由组。
func (h *AssetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.handleHealth)
	rg.POST("/assets/collect", h.handleCollect)
	rg.POST("/assets/import", h.handleImport)
	rg.GET("/assets", h.handleAssets)
	rg.GET("/attack-paths", h.handleAttackPaths)
	rg.POST("/query", h.handleQuery)
	rg.GET("/graph/stats", h.handleStats)
	rg.DELETE("/graph", h.handleClear)
}

func (h *AssetHandler) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":          "healthy",
		"store_connected": h.service.StoreConnected(),
		"k8s_connected":   h.service.CollectorConnected(),
	})
}

func (h *AssetHandler) handleCollect(c *gin.Context) {
	result, err := h.service.CollectAndImport(c.Request.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("collect failed", zap.Error(err))
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"message": "assets collected and imported", "result": result})
}

func (h *AssetHandler) handleImport(c *gin.Context) {
	var records []domain.ResourceRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(400, gin.H{"error": "invalid request payload"})
		return
	}
	if len(records) == 0 {
		c.JSON(400, gin.H{"error": "records payload is empty"})
		return
	}
	result, err := h.service.Import(c.Request.Context(), records)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("import failed", zap.Error(err))
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"message": "records imported", "result": result})
}

func (h *AssetHandler) handleAssets(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("kind"))
	assets, err := h.service.Assets(c.Request.Context(), kind)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, assets)
}

func (h *AssetHandler) handleAttackPaths(c *gin.Context) {
	source := strings.TrimSpace(c.Query("source"))
	target := strings.TrimSpace(c.Query("target"))
	paths, err := h.service.AttackPaths(c.Request.Context(), source, target)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("find attack paths failed", zap.Error(err))
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"paths": paths})
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Data  []map[string]any `json:"data"`
	Total int              `json:"total"`
}

func (h *AssetHandler) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request payload"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(400, gin.H{"error": "query is empty"})
		return
	}
	records, err := h.service.RawQuery(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, queryResponse{Data: records, Total: len(records)})
}

func (h *AssetHandler) handleStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, stats)
}

func (h *AssetHandler) handleClear(c *gin.Context) {
	result, err := h.service.Clear(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"message": "graph cleared", "result": result})
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/labstack/echo/v4"
)

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	orchestrator *fanout.Orchestrator
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(orchestrator *fanout.Orchestrator) *HealthHandler {
	return &HealthHandler{
		orchestrator: orchestrator,
	}
}

// HealthCheck 基础存活检查
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"version":    "1.0.0",
			"uptime":     time.Since(startTime).String(),
			"resources":  getResourceUsage(),
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

// FanoutHealth 返回多端点写入链路的健康状态，
// 包含每个端点的熔断器状态和延迟统计
func (h *HealthHandler) FanoutHealth(c echo.Context) error {
	// 限定健康检查的耗时，避免注册表阻塞拖慢探测
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status, err := h.orchestrator.HealthStatus(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now(),
			Details: map[string]interface{}{
				"error":     err.Error(),
				"component": "registry",
			},
		})
	}

	// 任何端点的熔断器不在关闭状态即视为降级
	overall := "healthy"
	for _, snapshot := range status.CircuitBreakers {
		if snapshot.State != fanout.StateClosed {
			overall = "degraded"
			break
		}
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"total_endpoints":        status.TotalEndpoints,
			"active_endpoints":       status.ActiveEndpoints,
			"healthy_endpoints":      status.HealthyEndpoints,
			"circuit_breaker_status": status.CircuitBreakers,
			"performance_summary":    status.Performance,
		},
	})
}

// 应用启动时间
var startTime = time.Now()

// getResourceUsage 获取资源使用情况
func getResourceUsage() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"memory_alloc":   formatBytes(memStats.Alloc),
		"memory_sys":     formatBytes(memStats.Sys),
		"memory_heap":    formatBytes(memStats.HeapAlloc),
		"num_gc":         memStats.NumGC,
		"num_goroutines": runtime.NumGoroutine(),
	}
}

// formatBytes 将字节数格式化为可读形式
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/labstack/echo/v4"
)

// MetricsHandler 指标处理器
type MetricsHandler struct {
	orchestrator   *fanout.Orchestrator
	metrics        *Metrics
	metricsLock    sync.RWMutex
	lastUpdateTime time.Time
}

// Metrics 系统指标
type Metrics struct {
	EndpointCount     int                    `json:"endpoint_count"`
	ActiveEndpoints   int                    `json:"active_endpoints"`
	OpenCircuits      int                    `json:"open_circuits"`
	SuccessfulCalls   int64                  `json:"successful_calls"`
	AvgResponseTime   float64                `json:"avg_response_time"`
	ResourceUsage     map[string]interface{} `json:"resource_usage"`
	LastCollectedTime time.Time              `json:"last_collected_time"`
}

// NewMetricsHandler 创建指标处理器
func NewMetricsHandler(orchestrator *fanout.Orchestrator) *MetricsHandler {
	handler := &MetricsHandler{
		orchestrator:   orchestrator,
		metrics:        &Metrics{},
		lastUpdateTime: time.Now(),
	}

	// 初始化指标数据
	handler.updateMetrics()

	// 启动指标收集协程
	go handler.startMetricsCollector()

	return handler
}

// GetMetrics 获取系统指标
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	// 如果距离上次更新时间超过5秒，则更新指标
	if time.Since(h.lastUpdateTime) > 5*time.Second {
		h.updateMetrics()
	}

	// 读取指标数据
	h.metricsLock.RLock()
	metrics := h.metrics
	h.metricsLock.RUnlock()

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    metrics,
	})
}

// 更新指标数据
func (h *MetricsHandler) updateMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := h.orchestrator.HealthStatus(ctx)
	if err != nil {
		return
	}

	openCircuits := 0
	var successfulCalls int64
	for _, snapshot := range health.CircuitBreakers {
		if snapshot.State == fanout.StateOpen {
			openCircuits++
		}
		successfulCalls += snapshot.SuccessfulCalls
	}

	// 按调用次数加权的整体平均响应时间
	var weightedTotal float64
	totalCalls := 0
	for _, perf := range health.Performance {
		weightedTotal += perf.AvgResponseTime * float64(perf.TotalCalls)
		totalCalls += perf.TotalCalls
	}
	avgResponseTime := 0.0
	if totalCalls > 0 {
		avgResponseTime = weightedTotal / float64(totalCalls)
	}

	h.metricsLock.Lock()
	h.metrics = &Metrics{
		EndpointCount:     health.TotalEndpoints,
		ActiveEndpoints:   health.ActiveEndpoints,
		OpenCircuits:      openCircuits,
		SuccessfulCalls:   successfulCalls,
		AvgResponseTime:   avgResponseTime,
		ResourceUsage:     getResourceUsage(),
		LastCollectedTime: time.Now(),
	}
	h.lastUpdateTime = time.Now()
	h.metricsLock.Unlock()
}

// 启动指标收集协程，定期更新指标
func (h *MetricsHandler) startMetricsCollector() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.updateMetrics()
	}
}

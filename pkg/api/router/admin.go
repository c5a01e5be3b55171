package router

import (
	"github.com/dnsmate/pdns-fanout/pkg/api/handler"
	"github.com/labstack/echo/v4"
)

// RegisterAdminRoutes 配置端点管理相关路由
func RegisterAdminRoutes(e *echo.Echo, endpointHandler *handler.EndpointHandler, metricsHandler *handler.MetricsHandler) {
	// API分组，版本v1
	api := e.Group("/api/v1")

	// 端点管理相关路由
	endpoints := api.Group("/endpoints")
	endpoints.GET("", endpointHandler.ListEndpoints)          // 查询端点列表
	endpoints.POST("", endpointHandler.CreateEndpoint)        // 创建端点
	endpoints.GET("/status", endpointHandler.EndpointsStatus) // 端点配置状况
	endpoints.GET("/:id", endpointHandler.GetEndpoint)        // 查询端点详情
	endpoints.PUT("/:id", endpointHandler.UpdateEndpoint)     // 更新端点
	endpoints.DELETE("/:id", endpointHandler.DeleteEndpoint)  // 删除端点
	endpoints.POST("/:id/test", endpointHandler.TestEndpoint) // 测试端点连接

	// 统计指标相关路由
	api.GET("/metrics", metricsHandler.GetMetrics) // 获取系统指标
}

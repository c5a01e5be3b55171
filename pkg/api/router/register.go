package router

import (
	"github.com/dnsmate/pdns-fanout/pkg/api/handler"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes 配置区域和记录操作相关路由
func RegisterRoutes(e *echo.Echo, zoneHandler *handler.ZoneHandler, recordHandler *handler.RecordHandler, healthHandler *handler.HealthHandler) {
	// API分组，版本v1
	api := e.Group("/api/v1")

	// 健康检查
	api.GET("/health", healthHandler.HealthCheck)         // 基础存活检查
	api.GET("/health/fanout", healthHandler.FanoutHealth) // 多端点链路健康

	// 区域管理相关路由
	zones := api.Group("/zones")
	zones.GET("", zoneHandler.ListZones)           // 查询区域列表
	zones.POST("", zoneHandler.CreateZone)         // 创建区域（下发到所有端点）
	zones.GET("/:zone", zoneHandler.GetZone)       // 查询区域详情
	zones.DELETE("/:zone", zoneHandler.DeleteZone) // 删除区域（下发到所有端点）

	// 记录管理相关路由
	zones.GET("/:zone/records", recordHandler.ListRecords)     // 查询记录列表
	zones.POST("/:zone/records", recordHandler.AddRecord)      // 添加记录（下发到所有端点）
	zones.PUT("/:zone/records", recordHandler.UpdateRecord)    // 更新记录（下发到所有端点）
	zones.DELETE("/:zone/records", recordHandler.DeleteRecord) // 删除记录（下发到所有端点）
}

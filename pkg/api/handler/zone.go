package handler

import (
	"net/http"
	"strings"

	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/pdns"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ZoneRequest 创建区域请求
type ZoneRequest struct {
	Name        string   `json:"name" validate:"required"`
	Kind        string   `json:"kind" validate:"omitempty,oneof=Native Master Slave"`
	Nameservers []string `json:"nameservers"`
	Masters     []string `json:"masters"`
	Account     string   `json:"account"`
}

// ZoneView 区域的公开视图，名称不带末尾的点
type ZoneView struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Serial int    `json:"serial,omitempty"`
}

// newZoneView 从PowerDNS区域数据构造视图
func newZoneView(zone *pdns.Zone) *ZoneView {
	return &ZoneView{
		Name:   strings.TrimSuffix(zone.Name, "."),
		Kind:   zone.Kind,
		Serial: zone.Serial,
	}
}

// normalizeZoneName 规范化区域名称：转小写并补齐末尾的点
func normalizeZoneName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}

// ZoneHandler 处理区域管理API。
// 写操作经编排器下发到所有端点，读操作只访问默认端点。
type ZoneHandler struct {
	registry     registry.EndpointRegistry
	orchestrator *fanout.Orchestrator
	logger       config.Logger
}

// NewZoneHandler 创建区域处理器
func NewZoneHandler(reg registry.EndpointRegistry, orchestrator *fanout.Orchestrator, logger config.Logger) *ZoneHandler {
	return &ZoneHandler{
		registry:     reg,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// defaultClient 获取默认端点的PowerDNS客户端
func (h *ZoneHandler) defaultClient(c echo.Context) (*pdns.Client, error) {
	endpoint, err := h.registry.GetDefaultEndpoint(c.Request().Context())
	if err != nil {
		return nil, err
	}
	return clientForEndpoint(endpoint)
}

// ListZones 获取默认端点上的所有区域
func (h *ZoneHandler) ListZones(c echo.Context) error {
	client, err := h.defaultClient(c)
	if err != nil {
		return registryErrorJSON(c, err, "获取默认端点失败")
	}

	zones, err := client.GetZones(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, APIResponse{
			Code:    http.StatusBadGateway,
			Message: "获取区域列表失败: " + err.Error(),
		})
	}

	views := make([]*ZoneView, 0, len(zones))
	for i := range zones {
		views = append(views, newZoneView(&zones[i]))
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    views,
	})
}

// GetZone 获取默认端点上的指定区域
func (h *ZoneHandler) GetZone(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	client, err := h.defaultClient(c)
	if err != nil {
		return registryErrorJSON(c, err, "获取默认端点失败")
	}

	zone, err := client.GetZone(c.Request().Context(), zoneName)
	if err != nil {
		return c.JSON(http.StatusNotFound, APIResponse{
			Code:    http.StatusNotFound,
			Message: "区域不存在: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    newZoneView(zone),
	})
}

// CreateZone 在所有端点上创建区域
func (h *ZoneHandler) CreateZone(c echo.Context) error {
	var req ZoneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "请求参数无效: " + err.Error(),
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "参数验证失败: " + err.Error(),
		})
	}

	if req.Kind == "" {
		req.Kind = pdns.KindNative
	}

	zone := pdns.ZoneSpec{
		Name:        normalizeZoneName(req.Name),
		Kind:        req.Kind,
		Nameservers: req.Nameservers,
		Masters:     req.Masters,
		Account:     req.Account,
	}

	result, err := h.orchestrator.CreateZoneOnAll(c.Request().Context(), zone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "创建区域失败: " + err.Error(),
		})
	}

	h.logger.Info("区域创建操作完成",
		zap.String("zone", zone.Name),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints))

	return fanoutJSON(c, result, http.StatusCreated)
}

// DeleteZone 从所有端点删除区域
func (h *ZoneHandler) DeleteZone(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	result, err := h.orchestrator.DeleteZoneFromAll(c.Request().Context(), zoneName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "删除区域失败: " + err.Error(),
		})
	}

	h.logger.Info("区域删除操作完成",
		zap.String("zone", zoneName),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints))

	return fanoutJSON(c, result, http.StatusOK)
}

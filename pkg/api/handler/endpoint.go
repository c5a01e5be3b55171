package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EndpointRequest 创建端点请求
type EndpointRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	APIURL          string `json:"api_url" validate:"required,url,startswith=http"`
	APIKey          string `json:"api_key" validate:"required,max=255"`
	Description     string `json:"description"`
	IsDefault       bool   `json:"is_default"`
	IsActive        *bool  `json:"is_active"`
	MultiServerMode bool   `json:"multi_server_mode"`
	Timeout         int    `json:"timeout" validate:"omitempty,min=5,max=300"`
	VerifySSL       *bool  `json:"verify_ssl"`
}

// EndpointUpdateRequest 更新端点请求，所有字段均可选
type EndpointUpdateRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=100"`
	APIURL          *string `json:"api_url" validate:"omitempty,url,startswith=http"`
	APIKey          *string `json:"api_key" validate:"omitempty,min=1,max=255"`
	Description     *string `json:"description"`
	IsDefault       *bool   `json:"is_default"`
	IsActive        *bool   `json:"is_active"`
	MultiServerMode *bool   `json:"multi_server_mode"`
	Timeout         *int    `json:"timeout" validate:"omitempty,min=5,max=300"`
	VerifySSL       *bool   `json:"verify_ssl"`
}

// EndpointView 对外展示的端点信息，不包含API密钥
type EndpointView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	APIURL          string    `json:"api_url"`
	Description     string    `json:"description,omitempty"`
	IsDefault       bool      `json:"is_default"`
	IsActive        bool      `json:"is_active"`
	MultiServerMode bool      `json:"multi_server_mode"`
	Timeout         int       `json:"timeout"`
	VerifySSL       bool      `json:"verify_ssl"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// newEndpointView 从端点构造公开视图
func newEndpointView(endpoint *registry.Endpoint) *EndpointView {
	return &EndpointView{
		ID:              endpoint.ID,
		Name:            endpoint.Name,
		APIURL:          endpoint.APIURL,
		Description:     endpoint.Description,
		IsDefault:       endpoint.IsDefault,
		IsActive:        endpoint.IsActive,
		MultiServerMode: endpoint.MultiServerMode,
		Timeout:         endpoint.Timeout,
		VerifySSL:       endpoint.VerifySSL,
		CreatedAt:       endpoint.CreatedAt,
		UpdatedAt:       endpoint.UpdatedAt,
	}
}

// EndpointHandler 处理端点管理API
type EndpointHandler struct {
	registry registry.EndpointRegistry
	logger   config.Logger
}

// NewEndpointHandler 创建端点处理器
func NewEndpointHandler(reg registry.EndpointRegistry, logger config.Logger) *EndpointHandler {
	return &EndpointHandler{
		registry: reg,
		logger:   logger,
	}
}

// parseEndpointID 从路径参数解析端点ID
func parseEndpointID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// CreateEndpoint 创建端点
func (h *EndpointHandler) CreateEndpoint(c echo.Context) error {
	var req EndpointRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "请求参数无效: " + err.Error(),
		})
	}

	// 参数验证
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "参数验证失败: " + err.Error(),
		})
	}

	// 未显式指定时，端点默认激活且校验SSL证书
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	verifySSL := true
	if req.VerifySSL != nil {
		verifySSL = *req.VerifySSL
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = 30
	}

	endpoint := &registry.Endpoint{
		Name:            req.Name,
		APIURL:          req.APIURL,
		APIKey:          req.APIKey,
		Description:     req.Description,
		IsDefault:       req.IsDefault,
		IsActive:        isActive,
		MultiServerMode: req.MultiServerMode,
		Timeout:         timeout,
		VerifySSL:       verifySSL,
	}

	if err := h.registry.CreateEndpoint(c.Request().Context(), endpoint); err != nil {
		return registryErrorJSON(c, err, "创建端点失败")
	}

	h.logger.Info("端点已创建",
		zap.Int64("endpoint_id", endpoint.ID),
		zap.String("name", endpoint.Name))

	return c.JSON(http.StatusCreated, APIResponse{
		Code:    http.StatusCreated,
		Message: "端点创建成功",
		Data:    newEndpointView(endpoint),
	})
}

// ListEndpoints 获取所有端点
func (h *EndpointHandler) ListEndpoints(c echo.Context) error {
	endpoints, err := h.registry.ListEndpoints(c.Request().Context())
	if err != nil {
		return registryErrorJSON(c, err, "获取端点列表失败")
	}

	views := make([]*EndpointView, 0, len(endpoints))
	for _, endpoint := range endpoints {
		views = append(views, newEndpointView(endpoint))
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    views,
	})
}

// GetEndpoint 获取指定端点
func (h *EndpointHandler) GetEndpoint(c echo.Context) error {
	id, err := parseEndpointID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "端点ID无效: " + c.Param("id"),
		})
	}

	endpoint, err := h.registry.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return registryErrorJSON(c, err, "获取端点失败")
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    newEndpointView(endpoint),
	})
}

// UpdateEndpoint 更新端点
func (h *EndpointHandler) UpdateEndpoint(c echo.Context) error {
	id, err := parseEndpointID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "端点ID无效: " + c.Param("id"),
		})
	}

	var req EndpointUpdateRequest
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

	update := &registry.EndpointUpdate{
		Name:            req.Name,
		APIURL:          req.APIURL,
		APIKey:          req.APIKey,
		Description:     req.Description,
		IsDefault:       req.IsDefault,
		IsActive:        req.IsActive,
		MultiServerMode: req.MultiServerMode,
		Timeout:         req.Timeout,
		VerifySSL:       req.VerifySSL,
	}

	endpoint, err := h.registry.UpdateEndpoint(c.Request().Context(), id, update)
	if err != nil {
		return registryErrorJSON(c, err, "更新端点失败")
	}

	h.logger.Info("端点已更新",
		zap.Int64("endpoint_id", endpoint.ID),
		zap.String("name", endpoint.Name))

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "端点更新成功",
		Data:    newEndpointView(endpoint),
	})
}

// DeleteEndpoint 删除端点
func (h *EndpointHandler) DeleteEndpoint(c echo.Context) error {
	id, err := parseEndpointID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "端点ID无效: " + c.Param("id"),
		})
	}

	if err := h.registry.DeleteEndpoint(c.Request().Context(), id); err != nil {
		return registryErrorJSON(c, err, "删除端点失败")
	}

	h.logger.Info("端点已删除", zap.Int64("endpoint_id", id))

	return c.NoContent(http.StatusNoContent)
}

// EndpointsStatus 检查端点配置状况
func (h *EndpointHandler) EndpointsStatus(c echo.Context) error {
	endpoints, err := h.registry.ListEndpoints(c.Request().Context())
	if err != nil {
		return registryErrorJSON(c, err, "获取端点列表失败")
	}

	activeCount := 0
	hasDefault := false
	for _, endpoint := range endpoints {
		if endpoint.IsActive {
			activeCount++
		}
		if endpoint.IsDefault {
			hasDefault = true
		}
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data: map[string]interface{}{
			"configured":   len(endpoints) > 0,
			"count":        len(endpoints),
			"active_count": activeCount,
			"has_default":  hasDefault,
		},
	})
}

// TestEndpoint 测试端点连接
func (h *EndpointHandler) TestEndpoint(c echo.Context) error {
	id, err := parseEndpointID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "端点ID无效: " + c.Param("id"),
		})
	}

	endpoint, err := h.registry.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return registryErrorJSON(c, err, "获取端点失败")
	}

	client, err := clientForEndpoint(endpoint)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "创建端点客户端失败: " + err.Error(),
		})
	}

	result := client.TestConnection(c.Request().Context())

	h.logger.Info("端点连接测试完成",
		zap.Int64("endpoint_id", id),
		zap.Bool("success", result.Success),
		zap.Float64("response_time_ms", result.ResponseTimeMS))

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "连接测试完成",
		Data:    result,
	})
}

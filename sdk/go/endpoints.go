package sdk

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// EndpointSpec 创建端点请求
type EndpointSpec struct {
	Name            string `json:"name"`
	APIURL          string `json:"api_url"`
	APIKey          string `json:"api_key"`
	Description     string `json:"description,omitempty"`
	IsDefault       bool   `json:"is_default,omitempty"`
	MultiServerMode bool   `json:"multi_server_mode,omitempty"`
	Timeout         int    `json:"timeout,omitempty"`
}

// Endpoint 端点信息，服务端不会返回API密钥
type Endpoint struct {
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

// ConnectionTest 端点连接测试结果
type ConnectionTest struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	ServerVersion  string  `json:"server_version,omitempty"`
	ZonesCount     *int    `json:"zones_count,omitempty"`
}

// EndpointsStatus 端点配置状况
type EndpointsStatus struct {
	Configured  bool `json:"configured"`
	Count       int  `json:"count"`
	ActiveCount int  `json:"active_count"`
	HasDefault  bool `json:"has_default"`
}

// CreateEndpoint 注册一个PowerDNS服务端点
func (c *Client) CreateEndpoint(ctx context.Context, spec *EndpointSpec) (*Endpoint, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/endpoints", spec)
	if err != nil {
		return nil, fmt.Errorf("创建端点失败: %w", err)
	}

	var endpoint Endpoint
	if err := decodeData(resp, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// ListEndpoints 查询所有端点
func (c *Client) ListEndpoints(ctx context.Context) ([]*Endpoint, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/endpoints", nil)
	if err != nil {
		return nil, fmt.Errorf("查询端点列表失败: %w", err)
	}

	var endpoints []*Endpoint
	if err := decodeData(resp, &endpoints); err != nil {
		return nil, err
	}
	return endpoints, nil
}

// GetEndpoint 查询指定端点
func (c *Client) GetEndpoint(ctx context.Context, id int64) (*Endpoint, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/endpoints/%d", id), nil)
	if err != nil {
		return nil, fmt.Errorf("查询端点失败: %w", err)
	}

	var endpoint Endpoint
	if err := decodeData(resp, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// DeleteEndpoint 删除端点
func (c *Client) DeleteEndpoint(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/endpoints/%d", id), nil)
	if err != nil {
		return fmt.Errorf("删除端点失败: %w", err)
	}
	return nil
}

// TestEndpoint 测试端点连接
func (c *Client) TestEndpoint(ctx context.Context, id int64) (*ConnectionTest, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/v1/endpoints/%d/test", id), nil)
	if err != nil {
		return nil, fmt.Errorf("测试端点连接失败: %w", err)
	}

	var result ConnectionTest
	if err := decodeData(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status 查询端点配置状况
func (c *Client) Status(ctx context.Context) (*EndpointsStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/endpoints/status", nil)
	if err != nil {
		return nil, fmt.Errorf("查询端点配置状况失败: %w", err)
	}

	var status EndpointsStatus
	if err := decodeData(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

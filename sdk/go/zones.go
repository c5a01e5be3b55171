package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ZoneSpec 创建区域请求
type ZoneSpec struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	Masters     []string `json:"masters,omitempty"`
	Account     string   `json:"account,omitempty"`
}

// Zone 区域信息
type Zone struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Serial int    `json:"serial,omitempty"`
}

// RecordSpec 记录请求
type RecordSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Record 记录信息
type Record struct {
	ZoneName string `json:"zone_name"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Disabled bool   `json:"disabled"`
}

// EndpointOutcome 单个端点上一次操作的结果
type EndpointOutcome struct {
	EndpointID     int64     `json:"endpoint_id"`
	EndpointName   string    `json:"endpoint_name"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// FanoutReport 一次下发操作在所有端点上的汇总结果
type FanoutReport struct {
	OperationID       string            `json:"operation_id"`
	Operation         string            `json:"operation"`
	Outcomes          []EndpointOutcome `json:"outcomes"`
	SuccessCount      int               `json:"success_count"`
	FailureCount      int               `json:"failure_count"`
	TotalEndpoints    int               `json:"total_endpoints"`
	ExecutionTimeMS   float64           `json:"execution_time_ms"`
	AvgResponseTimeMS float64           `json:"avg_response_time_ms"`
	FastestEndpoint   string            `json:"fastest_endpoint,omitempty"`
}

// IsCompleteSuccess 所有端点都成功
func (r *FanoutReport) IsCompleteSuccess() bool {
	return r.TotalEndpoints > 0 && r.SuccessCount == r.TotalEndpoints
}

// decodeFanoutReport 解析下发操作的响应，207部分失败时同样返回汇总结果
func decodeFanoutReport(resp *Response) (*FanoutReport, error) {
	var report FanoutReport
	if err := decodeData(resp, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateZone 在所有端点上创建区域
func (c *Client) CreateZone(ctx context.Context, spec *ZoneSpec) (*FanoutReport, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/zones", spec)
	if err != nil {
		return nil, fmt.Errorf("创建区域失败: %w", err)
	}
	return decodeFanoutReport(resp)
}

// DeleteZone 从所有端点删除区域
func (c *Client) DeleteZone(ctx context.Context, zoneName string) (*FanoutReport, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/zones/"+url.PathEscape(zoneName), nil)
	if err != nil {
		return nil, fmt.Errorf("删除区域失败: %w", err)
	}
	return decodeFanoutReport(resp)
}

// ListZones 查询默认端点上的所有区域
func (c *Client) ListZones(ctx context.Context) ([]*Zone, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/zones", nil)
	if err != nil {
		return nil, fmt.Errorf("查询区域列表失败: %w", err)
	}

	var zones []*Zone
	if err := decodeData(resp, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// GetZone 查询默认端点上的指定区域
func (c *Client) GetZone(ctx context.Context, zoneName string) (*Zone, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/zones/"+url.PathEscape(zoneName), nil)
	if err != nil {
		return nil, fmt.Errorf("查询区域失败: %w", err)
	}

	var zone Zone
	if err := decodeData(resp, &zone); err != nil {
		return nil, err
	}
	return &zone, nil
}

// ListRecords 查询默认端点上指定区域的所有记录
func (c *Client) ListRecords(ctx context.Context, zoneName string) ([]*Record, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/zones/"+url.PathEscape(zoneName)+"/records", nil)
	if err != nil {
		return nil, fmt.Errorf("查询记录列表失败: %w", err)
	}

	var records []*Record
	if err := decodeData(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AddRecord 在所有端点上添加记录
func (c *Client) AddRecord(ctx context.Context, zoneName string, record *RecordSpec) (*FanoutReport, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/zones/"+url.PathEscape(zoneName)+"/records", record)
	if err != nil {
		return nil, fmt.Errorf("添加记录失败: %w", err)
	}
	return decodeFanoutReport(resp)
}

// UpdateRecord 在所有端点上更新记录
func (c *Client) UpdateRecord(ctx context.Context, zoneName string, record *RecordSpec) (*FanoutReport, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, "/api/v1/zones/"+url.PathEscape(zoneName)+"/records", record)
	if err != nil {
		return nil, fmt.Errorf("更新记录失败: %w", err)
	}
	return decodeFanoutReport(resp)
}

// DeleteRecord 从所有端点删除记录
func (c *Client) DeleteRecord(ctx context.Context, zoneName, recordName, recordType string) (*FanoutReport, error) {
	query := url.Values{}
	query.Set("name", recordName)
	query.Set("type", recordType)

	path := "/api/v1/zones/" + url.PathEscape(zoneName) + "/records?" + query.Encode()
	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, fmt.Errorf("删除记录失败: %w", err)
	}
	return decodeFanoutReport(resp)
}

package pdns

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ZoneRecordOperator 定义一个端点支持的区域和记录写操作
type ZoneRecordOperator interface {
	// CreateZone 创建区域
	CreateZone(ctx context.Context, zone ZoneSpec) (json.RawMessage, error)

	// DeleteZone 删除区域
	DeleteZone(ctx context.Context, zoneName string) error

	// AddRecord 添加记录，PATCH语义下会替换同名同类型的记录
	AddRecord(ctx context.Context, zoneName string, record RecordSpec) (json.RawMessage, error)

	// UpdateRecord 更新记录，等价于AddRecord
	UpdateRecord(ctx context.Context, zoneName string, record RecordSpec) (json.RawMessage, error)

	// DeleteRecord 删除指定名称和类型的记录
	DeleteRecord(ctx context.Context, zoneName, recordName, recordType string) error
}

// ClientConfig 客户端配置
type ClientConfig struct {
	// PowerDNS API地址，如 http://ns1.example.com:8081
	APIURL string
	// API密钥，通过X-API-Key头传递
	APIKey string
	// 单次请求超时时间
	Timeout time.Duration
	// 是否校验TLS证书
	VerifySSL bool
}

// Client PowerDNS API客户端，对应一个服务端点
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

var _ ZoneRecordOperator = (*Client)(nil)

// StatusError 表示PowerDNS API返回的非2xx响应
type StatusError struct {
	StatusCode int
	Body       string
}

// Error 实现error接口
func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("PowerDNS API请求失败: HTTP %d: %s", e.StatusCode, body)
}

// NewClient 创建PowerDNS API客户端
func NewClient(config *ClientConfig) (*Client, error) {
	// 验证必填配置
	if config.APIURL == "" {
		return nil, fmt.Errorf("API地址不能为空")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	// 设置默认值
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	// 创建HTTP客户端
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}
	if !config.VerifySSL {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		httpClient.Transport = transport
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// 构建API地址
func (c *Client) buildURL(path string) string {
	return strings.TrimSuffix(c.config.APIURL, "/") + "/api/v1" + path
}

// 发送HTTP请求并返回原始响应体
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	// 构建URL
	url := c.buildURL(path)

	// 准备请求体
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	// 创建请求
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	// 读取响应体
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	// 检查HTTP状态码
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	// 204等空响应体返回nil，避免携带非法的JSON片段
	if len(respBody) == 0 {
		return nil, nil
	}

	return respBody, nil
}

// Ping 检查端点的API连通性
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/servers", nil)
	return err
}

// ServerInfo 获取服务器信息
func (c *Client) ServerInfo(ctx context.Context) (*Server, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/servers/localhost", nil)
	if err != nil {
		return nil, err
	}

	var server Server
	if err := json.Unmarshal(data, &server); err != nil {
		return nil, fmt.Errorf("解析服务器信息失败: %w", err)
	}

	return &server, nil
}

// GetZones 获取所有区域
func (c *Client) GetZones(ctx context.Context) ([]Zone, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/servers/localhost/zones", nil)
	if err != nil {
		return nil, err
	}

	var zones []Zone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("解析区域列表失败: %w", err)
	}

	return zones, nil
}

// GetZone 获取指定区域详情
func (c *Client) GetZone(ctx context.Context, zoneName string) (*Zone, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/servers/localhost/zones/"+zoneName, nil)
	if err != nil {
		return nil, err
	}

	var zone Zone
	if err := json.Unmarshal(data, &zone); err != nil {
		return nil, fmt.Errorf("解析区域详情失败: %w", err)
	}

	return &zone, nil
}

// GetRecords 获取区域内的所有记录
func (c *Client) GetRecords(ctx context.Context, zoneName string) ([]RRSet, error) {
	zone, err := c.GetZone(ctx, zoneName)
	if err != nil {
		return nil, err
	}

	return zone.RRSets, nil
}

// CreateZone 创建区域
func (c *Client) CreateZone(ctx context.Context, zone ZoneSpec) (json.RawMessage, error) {
	// PowerDNS要求nameservers字段存在，即使为空
	if zone.Nameservers == nil {
		zone.Nameservers = []string{}
	}

	return c.doRequest(ctx, http.MethodPost, "/servers/localhost/zones", zone)
}

// DeleteZone 删除区域
func (c *Client) DeleteZone(ctx context.Context, zoneName string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/servers/localhost/zones/"+zoneName, nil)
	return err
}

// AddRecord 添加记录
func (c *Client) AddRecord(ctx context.Context, zoneName string, record RecordSpec) (json.RawMessage, error) {
	body := map[string]interface{}{
		"rrsets": []RRSet{{
			Name:       record.Name,
			Type:       record.Type,
			TTL:        record.TTL,
			Changetype: ChangeTypeReplace,
			Records: []Record{{
				Content:  record.Content,
				Disabled: record.Disabled,
			}},
		}},
	}

	return c.doRequest(ctx, http.MethodPatch, "/servers/localhost/zones/"+zoneName, body)
}

// UpdateRecord 更新记录，PATCH会替换同名同类型的已有记录
func (c *Client) UpdateRecord(ctx context.Context, zoneName string, record RecordSpec) (json.RawMessage, error) {
	return c.AddRecord(ctx, zoneName, record)
}

// DeleteRecord 删除指定名称和类型的记录
func (c *Client) DeleteRecord(ctx context.Context, zoneName, recordName, recordType string) error {
	body := map[string]interface{}{
		"rrsets": []map[string]interface{}{{
			"name":       recordName,
			"type":       recordType,
			"changetype": ChangeTypeDelete,
		}},
	}

	_, err := c.doRequest(ctx, http.MethodPatch, "/servers/localhost/zones/"+zoneName, body)
	return err
}

// TestConnection 测试端点连通性，返回延迟、版本和区域数量
func (c *Client) TestConnection(ctx context.Context) *ConnectionTestResult {
	start := time.Now()

	server, err := c.ServerInfo(ctx)
	if err != nil {
		message := fmt.Sprintf("连接失败: %v", err)
		if IsTimeout(err) {
			message = fmt.Sprintf("连接超时: 超过%s未响应", c.config.Timeout)
		}
		return &ConnectionTestResult{
			Success: false,
			Message: message,
		}
	}

	result := &ConnectionTestResult{
		Success:        true,
		Message:        "连接成功",
		ResponseTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		ServerVersion:  server.Version,
	}

	// 区域数量获取失败不影响测试结果
	if zones, err := c.GetZones(ctx); err == nil {
		count := len(zones)
		result.ZonesCount = &count
	}

	return result
}

// IsTimeout 判断错误是否由超时引起
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

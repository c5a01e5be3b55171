package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config SDK客户端配置
type Config struct {
	// 管理API服务器地址，例如 "localhost:8080"
	ServerAddr string `json:"server_addr"`
	// 操作超时时间
	Timeout time.Duration `json:"timeout"`
	// 是否使用HTTPS
	Secure bool `json:"secure"`
}

// Client 管理API客户端
type Client struct {
	config     *Config
	httpClient *http.Client
	stopChan   chan struct{}
}

// Response API响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewClient 创建SDK客户端
func NewClient(config *Config) (*Client, error) {
	// 验证必填配置
	if config.ServerAddr == "" {
		return nil, fmt.Errorf("服务器地址不能为空")
	}

	// 设置默认值
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	// 创建HTTP客户端
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// 构建API地址
func (c *Client) buildURL(path string) string {
	protocol := "http"
	if c.config.Secure {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.config.ServerAddr, path)
}

// 发送HTTP请求。
// 207表示部分端点失败，不作为错误返回，由调用方检查结果明细
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*Response, error) {
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

	// 解析响应，204等空响应体直接返回状态码
	apiResp := &Response{Code: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("解析响应失败: %w, 响应内容: %s", err, string(respBody))
		}
	}

	// 检查HTTP状态码
	if resp.StatusCode >= http.StatusBadRequest {
		return apiResp, fmt.Errorf("API请求失败: %s (状态码: %d)", apiResp.Message, resp.StatusCode)
	}

	return apiResp, nil
}

// decodeData 将响应中的数据解析到目标结构
func decodeData(resp *Response, target interface{}) error {
	if len(resp.Data) == 0 {
		return fmt.Errorf("响应中没有数据")
	}
	if err := json.Unmarshal(resp.Data, target); err != nil {
		return fmt.Errorf("解析响应数据失败: %w", err)
	}
	return nil
}

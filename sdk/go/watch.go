package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HealthReport 多端点链路健康视图
type HealthReport struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// FanoutHealth 查询多端点链路健康。
// 健康检查接口直接返回健康文档而非统一响应结构，
// 503同样携带文档，状态由Status字段表达
func (c *Client) FanoutHealth(ctx context.Context) (*HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("/api/v1/health/fanout"), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var report HealthReport
	if err := json.Unmarshal(respBody, &report); err != nil {
		return nil, fmt.Errorf("解析健康检查响应失败: %w, 响应内容: %s", err, string(respBody))
	}

	return &report, nil
}

// StartHealthWatch 启动健康轮询任务，整体状态变化时回调
func (c *Client) StartHealthWatch(interval time.Duration, onChange func(previous, current string)) {
	// 停止已有轮询任务
	c.StopHealthWatch()

	// 创建新的停止通道
	c.stopChan = make(chan struct{})

	// 启动轮询协程
	go func() {
		last := ""
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// 创建超时上下文
				ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
				report, err := c.FanoutHealth(ctx)
				cancel()

				if err != nil {
					log.Printf("健康检查失败: %v, 将在下一个周期重试", err)
					continue
				}

				if report.Status != last {
					if last != "" && onChange != nil {
						onChange(last, report.Status)
					}
					last = report.Status
				}
			case <-c.stopChan:
				return
			}
		}
	}()
}

// StopHealthWatch 停止健康轮询任务
func (c *Client) StopHealthWatch() {
	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
}

// Close 关闭客户端，停止后台轮询
func (c *Client) Close() {
	c.StopHealthWatch()
}

package handler

import (
	"net/http"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/pdns"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/labstack/echo/v4"
)

// APIResponse 统一的API响应格式
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// FanoutReport 多端点操作的完整响应，在聚合结果上附加统计信息
type FanoutReport struct {
	*fanout.Result
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	FastestEndpoint   string  `json:"fastest_endpoint,omitempty"`
}

// newFanoutReport 从聚合结果构造响应数据
func newFanoutReport(result *fanout.Result) *FanoutReport {
	report := &FanoutReport{
		Result:            result,
		AvgResponseTimeMS: result.AverageResponseTime(),
	}
	if name, ok := result.FastestEndpoint(); ok {
		report.FastestEndpoint = name
	}
	return report
}

// fanoutStatusCode 根据聚合结果决定HTTP状态码。
// 全部成功返回successCode，部分成功返回207，
// 全部失败返回502，没有端点参与返回503。
func fanoutStatusCode(result *fanout.Result, successCode int) int {
	switch {
	case result.TotalEndpoints == 0:
		return http.StatusServiceUnavailable
	case result.IsCompleteSuccess():
		return successCode
	case result.IsCompleteFailure():
		return http.StatusBadGateway
	default:
		return http.StatusMultiStatus
	}
}

// fanoutMessage 根据聚合结果生成提示信息
func fanoutMessage(result *fanout.Result) string {
	switch {
	case result.TotalEndpoints == 0:
		return "没有可用的端点执行操作"
	case result.IsCompleteSuccess():
		return "全部端点操作成功"
	case result.IsCompleteFailure():
		return "所有端点操作失败"
	default:
		return "部分端点操作失败"
	}
}

// fanoutJSON 将聚合结果写为统一响应
func fanoutJSON(c echo.Context, result *fanout.Result, successCode int) error {
	code := fanoutStatusCode(result, successCode)
	return c.JSON(code, APIResponse{
		Code:    code,
		Message: fanoutMessage(result),
		Data:    newFanoutReport(result),
	})
}

// registryErrorJSON 将注册表错误映射为HTTP响应
func registryErrorJSON(c echo.Context, err error, fallback string) error {
	if re, ok := err.(*registry.RegistryError); ok {
		switch re.Code {
		case registry.ErrNotFound:
			return c.JSON(http.StatusNotFound, APIResponse{
				Code:    http.StatusNotFound,
				Message: re.Error(),
			})
		case registry.ErrAlreadyExists:
			return c.JSON(http.StatusConflict, APIResponse{
				Code:    http.StatusConflict,
				Message: re.Error(),
			})
		case registry.ErrInvalidArgument:
			return c.JSON(http.StatusBadRequest, APIResponse{
				Code:    http.StatusBadRequest,
				Message: re.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, APIResponse{
				Code:    http.StatusInternalServerError,
				Message: fallback + ": " + re.Error(),
			})
		}
	}

	return c.JSON(http.StatusInternalServerError, APIResponse{
		Code:    http.StatusInternalServerError,
		Message: fallback + ": " + err.Error(),
	})
}

// clientForEndpoint 根据端点配置创建PowerDNS客户端
func clientForEndpoint(endpoint *registry.Endpoint) (*pdns.Client, error) {
	return pdns.NewClient(&pdns.ClientConfig{
		APIURL:    endpoint.APIURL,
		APIKey:    endpoint.APIKey,
		Timeout:   time.Duration(endpoint.Timeout) * time.Second,
		VerifySSL: endpoint.VerifySSL,
	})
}

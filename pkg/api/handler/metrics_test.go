package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMetrics(t *testing.T) {
	e, reg, orchestrator := newZoneRecordTestServer(t)

	fakeA := newFakePowerDNS(t)
	fakeB := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "ns1", fakeA)
	registerFakeEndpoint(t, reg, "ns2", fakeB)

	// 先执行一次下发操作，产生熔断器和延迟数据
	rec := performRequest(e, http.MethodPost, "/api/v1/zones", map[string]interface{}{
		"name": "metrics.example",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 构造时即采集一次指标
	metricsHandler := NewMetricsHandler(orchestrator)
	e.GET("/api/v1/metrics", metricsHandler.GetMetrics)

	rec = performRequest(e, http.MethodGet, "/api/v1/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["endpoint_count"])
	assert.Equal(t, float64(2), data["active_endpoints"])
	assert.Equal(t, float64(0), data["open_circuits"])
	assert.Equal(t, float64(2), data["successful_calls"], "两个端点各记录一次成功调用")
	assert.Greater(t, data["avg_response_time"].(float64), 0.0)
	assert.NotNil(t, data["resource_usage"])
	assert.NotEmpty(t, data["last_collected_time"])
}

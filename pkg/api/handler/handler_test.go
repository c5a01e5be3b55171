package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/dnsmate/pdns-fanout/pkg/registry/memory"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// MockLogger 实现config.Logger接口，用于测试
type MockLogger struct{}

func (l *MockLogger) Debug(msg string, fields ...zapcore.Field) {}
func (l *MockLogger) Info(msg string, fields ...zapcore.Field)  {}
func (l *MockLogger) Warn(msg string, fields ...zapcore.Field)  {}
func (l *MockLogger) Error(msg string, fields ...zapcore.Field) {}
func (l *MockLogger) Fatal(msg string, fields ...zapcore.Field) {}

// testValidator 将go-playground验证器接入测试用echo实例
type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

// newTestEcho 创建带验证器的echo实例
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

// performRequest 对echo实例执行一次HTTP请求
func performRequest(e *echo.Echo, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decodeResponse 解析统一响应格式
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "响应应为合法的JSON")
	return resp
}

// fakePowerDNS 模拟PowerDNS认证服务器的API
type fakePowerDNS struct {
	server *httptest.Server

	mu      sync.Mutex
	creates [][]byte // 创建区域的请求体
	patches [][]byte // 修改rrsets的请求体
	deletes []string // 删除区域的路径
	failAll bool     // 所有请求都返回500
}

func newFakePowerDNS(t *testing.T) *fakePowerDNS {
	t.Helper()

	f := &fakePowerDNS{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePowerDNS) setFailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

func (f *fakePowerDNS) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func (f *fakePowerDNS) lastPatch() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) == 0 {
		return nil
	}
	return f.patches[len(f.patches)-1]
}

func (f *fakePowerDNS) lastCreate() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.creates) == 0 {
		return nil
	}
	return f.creates[len(f.creates)-1]
}

func (f *fakePowerDNS) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"backend unavailable"}`))
		return
	}

	const zonesPath = "/api/v1/servers/localhost/zones"

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/servers":
		w.Write([]byte(`[{"id":"localhost","url":"/api/v1/servers/localhost"}]`))

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/servers/localhost":
		w.Write([]byte(`{"id":"localhost","url":"/api/v1/servers/localhost","daemon_type":"authoritative","version":"4.8.3"}`))

	case r.Method == http.MethodGet && r.URL.Path == zonesPath:
		w.Write([]byte(`[{"id":"example.com.","name":"example.com.","kind":"Native","serial":2024010101}]`))

	case r.Method == http.MethodPost && r.URL.Path == zonesPath:
		body, _ := io.ReadAll(r.Body)
		f.creates = append(f.creates, body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"example.com.","name":"example.com.","kind":"Native","serial":0}`))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, zonesPath+"/"):
		if strings.TrimPrefix(r.URL.Path, zonesPath+"/") != "example.com." {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not Found"}`))
			return
		}
		w.Write([]byte(`{"id":"example.com.","name":"example.com.","kind":"Native","serial":2024010101,` +
			`"rrsets":[{"name":"www.example.com.","type":"A","ttl":300,` +
			`"records":[{"content":"192.0.2.1","disabled":false},{"content":"192.0.2.2","disabled":false}]}]}`))

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, zonesPath+"/"):
		body, _ := io.ReadAll(r.Body)
		f.patches = append(f.patches, body)
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, zonesPath+"/"):
		f.deletes = append(f.deletes, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// registerFakeEndpoint 将模拟服务器注册为一个端点
func registerFakeEndpoint(t *testing.T, reg registry.EndpointRegistry, name string, fake *fakePowerDNS, mutators ...func(*registry.Endpoint)) *registry.Endpoint {
	t.Helper()

	endpoint := &registry.Endpoint{
		Name:            name,
		APIURL:          fake.server.URL,
		APIKey:          "test-key",
		IsActive:        true,
		MultiServerMode: true,
		Timeout:         5,
	}
	for _, mutate := range mutators {
		mutate(endpoint)
	}
	require.NoError(t, reg.CreateEndpoint(context.Background(), endpoint))
	return endpoint
}

// newZoneRecordTestServer 搭建带区域和记录路由的测试环境
func newZoneRecordTestServer(t *testing.T) (*echo.Echo, *memory.MemoryRegistry, *fanout.Orchestrator) {
	t.Helper()

	reg := memory.NewMemoryRegistry()
	orchestrator := fanout.NewOrchestrator(reg, &MockLogger{}, fanout.Config{})

	e := newTestEcho()
	zoneHandler := NewZoneHandler(reg, orchestrator, &MockLogger{})
	recordHandler := NewRecordHandler(reg, orchestrator, &MockLogger{})

	e.GET("/api/v1/zones", zoneHandler.ListZones)
	e.POST("/api/v1/zones", zoneHandler.CreateZone)
	e.GET("/api/v1/zones/:zone", zoneHandler.GetZone)
	e.DELETE("/api/v1/zones/:zone", zoneHandler.DeleteZone)
	e.GET("/api/v1/zones/:zone/records", recordHandler.ListRecords)
	e.POST("/api/v1/zones/:zone/records", recordHandler.AddRecord)
	e.PUT("/api/v1/zones/:zone/records", recordHandler.UpdateRecord)
	e.DELETE("/api/v1/zones/:zone/records", recordHandler.DeleteRecord)

	return e, reg, orchestrator
}

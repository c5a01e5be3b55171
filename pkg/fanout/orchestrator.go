package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/pdns"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"go.uber.org/zap"
)

// Config 编排器配置
type Config struct {
	// OperationTimeout 一次多端点操作的整体超时
	OperationTimeout time.Duration
	// FailureThreshold 熔断器连续失败阈值
	FailureThreshold int
	// RecoveryTimeout 熔断器恢复窗口
	RecoveryTimeout time.Duration
}

// ClientFactory 根据端点配置构造API客户端
type ClientFactory func(endpoint *registry.Endpoint) (pdns.ZoneRecordOperator, error)

// Operation 一次逻辑写操作
type Operation struct {
	// Name 操作名称，用于日志和结果标识
	Name string
	// Run 在单个端点的客户端上执行操作
	Run func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error)
}

// HealthStatus 所有端点的整体健康视图
type HealthStatus struct {
	TotalEndpoints   int                           `json:"total_endpoints"`
	ActiveEndpoints  int                           `json:"active_endpoints"`
	HealthyEndpoints int                           `json:"healthy_endpoints"`
	CircuitBreakers  map[string]BreakerSnapshot    `json:"circuit_breaker_status"`
	Performance      map[string]PerformanceMetrics `json:"performance_summary"`
}

// Orchestrator 将一次逻辑DNS写操作复制到多个PowerDNS端点，
// 按端点维护熔断器和延迟统计，并聚合各端点的结果
type Orchestrator struct {
	registry      registry.EndpointRegistry
	logger        config.Logger
	cfg           Config
	clientFactory ClientFactory

	mutex       sync.Mutex
	breakers    map[int64]*CircuitBreaker
	performance map[int64]*performanceWindow
}

// NewOrchestrator 创建编排器，配置项非正时使用默认值
func NewOrchestrator(reg registry.EndpointRegistry, logger config.Logger, cfg Config) *Orchestrator {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}

	return &Orchestrator{
		registry:      reg,
		logger:        logger,
		cfg:           cfg,
		clientFactory: defaultClientFactory,
		breakers:      make(map[int64]*CircuitBreaker),
		performance:   make(map[int64]*performanceWindow),
	}
}

// defaultClientFactory 根据端点配置创建真实的PowerDNS客户端
func defaultClientFactory(endpoint *registry.Endpoint) (pdns.ZoneRecordOperator, error) {
	return pdns.NewClient(&pdns.ClientConfig{
		APIURL:    endpoint.APIURL,
		APIKey:    endpoint.APIKey,
		Timeout:   time.Duration(endpoint.Timeout) * time.Second,
		VerifySSL: endpoint.VerifySSL,
	})
}

// SetClientFactory 替换客户端工厂，仅用于测试
func (o *Orchestrator) SetClientFactory(factory ClientFactory) {
	o.clientFactory = factory
}

// getCircuitBreaker 获取端点的熔断器，首次引用时创建
func (o *Orchestrator) getCircuitBreaker(endpointID int64) *CircuitBreaker {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	breaker, exists := o.breakers[endpointID]
	if !exists {
		breaker = NewCircuitBreaker(o.cfg.FailureThreshold, o.cfg.RecoveryTimeout)
		o.breakers[endpointID] = breaker
	}
	return breaker
}

// lookupBreaker 查找端点的熔断器，不存在时不创建
func (o *Orchestrator) lookupBreaker(endpointID int64) (*CircuitBreaker, bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	breaker, exists := o.breakers[endpointID]
	return breaker, exists
}

// recordPerformance 记录端点一次成功调用的延迟
func (o *Orchestrator) recordPerformance(endpointID int64, responseTimeMS float64) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	window, exists := o.performance[endpointID]
	if !exists {
		window = &performanceWindow{}
		o.performance[endpointID] = window
	}
	window.add(responseTimeMS)
}

// endpointPerformance 返回端点的延迟统计，无样本时为零值
func (o *Orchestrator) endpointPerformance(endpointID int64) PerformanceMetrics {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	window, exists := o.performance[endpointID]
	if !exists {
		return PerformanceMetrics{}
	}
	return window.metrics()
}

// recordOutcome 根据端点结果更新熔断器和延迟统计，
// 每个端点每次操作只记录一次
func (o *Orchestrator) recordOutcome(outcome EndpointOutcome) {
	breaker := o.getCircuitBreaker(outcome.EndpointID)
	if outcome.Success {
		breaker.RecordSuccess()
		o.recordPerformance(outcome.EndpointID, outcome.ResponseTimeMS)
	} else {
		breaker.RecordFailure()
	}
}

// ExecuteOnAll 执行一次逻辑操作：
// 至少两个激活且启用多服务器模式的端点时并发写入全部激活端点，
// 否则只写入默认端点。只有端点列表获取失败会返回错误，
// 单个端点的失败会作为失败结果聚合在返回值中
func (o *Orchestrator) ExecuteOnAll(ctx context.Context, op Operation) (*Result, error) {
	endpoints, err := o.registry.ListEndpoints(ctx)
	if err != nil {
		o.logger.Error("获取端点列表失败", zap.String("operation", op.Name), zap.Error(err))
		return nil, fmt.Errorf("获取端点列表失败: %w", err)
	}

	// 每次调用重新判定执行模式
	multiCount := 0
	for _, endpoint := range endpoints {
		if endpoint.IsActive && endpoint.MultiServerMode {
			multiCount++
		}
	}

	if multiCount < 2 {
		return o.executeOnDefault(ctx, op, endpoints), nil
	}
	return o.fanOut(ctx, op, endpoints), nil
}

// executeOnDefault 单端点模式：只在默认端点上执行，
// 不经过熔断器和延迟统计
func (o *Orchestrator) executeOnDefault(ctx context.Context, op Operation, endpoints []*registry.Endpoint) *Result {
	start := time.Now()
	result := NewResult(op.Name)

	target := defaultEndpoint(endpoints)
	if target == nil {
		o.logger.Warn("未配置PowerDNS服务端点", zap.String("operation", op.Name))
		result.AddOutcome(EndpointOutcome{
			EndpointID:   0,
			EndpointName: "no-default-endpoint",
			Success:      false,
			Error:        "未配置默认PowerDNS服务端点",
		})
		result.ExecutionTimeMS = elapsedMS(start)
		return result
	}

	outcome := EndpointOutcome{
		EndpointID:   target.ID,
		EndpointName: target.Name,
	}

	client, err := o.clientFactory(target)
	if err != nil {
		outcome.Error = fmt.Sprintf("创建端点客户端失败: %v", err)
		result.AddOutcome(outcome)
		result.ExecutionTimeMS = elapsedMS(start)
		return result
	}

	raw, err := op.Run(ctx, client)
	outcome.ResponseTimeMS = elapsedMS(start)
	if err != nil {
		o.logger.Error("默认端点操作失败",
			zap.String("endpoint", target.Name),
			zap.String("operation", op.Name),
			zap.Error(err))
		outcome.Error = err.Error()
	} else {
		outcome.Success = true
		outcome.Result = raw
	}

	result.AddOutcome(outcome)
	result.ExecutionTimeMS = elapsedMS(start)
	return result
}

// fanOut 多端点模式：并发写入所有激活且熔断器放行的端点
func (o *Orchestrator) fanOut(ctx context.Context, op Operation, endpoints []*registry.Endpoint) *Result {
	start := time.Now()
	result := NewResult(op.Name)

	// 选择激活且熔断器放行的端点，熔断中的端点静默跳过
	selected := make([]*registry.Endpoint, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if !endpoint.IsActive {
			continue
		}
		breaker := o.getCircuitBreaker(endpoint.ID)
		if !breaker.CanExecute() {
			o.logger.Warn("端点熔断器打开，跳过",
				zap.String("endpoint", endpoint.Name),
				zap.String("operation", op.Name))
			continue
		}
		selected = append(selected, endpoint)
	}

	if len(selected) == 0 {
		o.logger.Warn("没有可用的PowerDNS服务端点", zap.String("operation", op.Name))
		result.ExecutionTimeMS = elapsedMS(start)
		return result
	}

	fanoutCtx, cancel := context.WithTimeout(ctx, o.cfg.OperationTimeout)
	defer cancel()

	// 缓冲区容纳所有结果，超时后晚到的goroutine不会阻塞
	outcomeChan := make(chan EndpointOutcome, len(selected))
	for _, endpoint := range selected {
		go o.executeOnEndpoint(fanoutCtx, endpoint, op, outcomeChan)
	}

	// 收集结果；整体超时后已完成的结果保留，
	// 未返回的端点补记超时失败
	received := make(map[int64]bool, len(selected))
	timedOut := false
	for !timedOut && len(received) < len(selected) {
		select {
		case outcome := <-outcomeChan:
			received[outcome.EndpointID] = true
			o.recordOutcome(outcome)
			result.AddOutcome(outcome)
		case <-fanoutCtx.Done():
			timedOut = true
		}
	}

	if timedOut {
		// 先收取超时前已写入通道的结果
	drain:
		for len(received) < len(selected) {
			select {
			case outcome := <-outcomeChan:
				received[outcome.EndpointID] = true
				o.recordOutcome(outcome)
				result.AddOutcome(outcome)
			default:
				break drain
			}
		}

		o.logger.Error("多服务器操作整体超时",
			zap.String("operation", op.Name),
			zap.Duration("timeout", o.cfg.OperationTimeout))

		for _, endpoint := range selected {
			if received[endpoint.ID] {
				continue
			}
			outcome := EndpointOutcome{
				EndpointID:   endpoint.ID,
				EndpointName: endpoint.Name,
				Success:      false,
				Error:        fmt.Sprintf("操作超时: 超过%s未完成", o.cfg.OperationTimeout),
			}
			o.recordOutcome(outcome)
			result.AddOutcome(outcome)
		}
	}

	result.ExecutionTimeMS = elapsedMS(start)
	o.logger.Info("多服务器操作完成",
		zap.String("operation", op.Name),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints),
		zap.Float64("execution_time_ms", result.ExecutionTimeMS))
	return result
}

// executeOnEndpoint 在单个端点上执行操作并把结果写入通道
func (o *Orchestrator) executeOnEndpoint(ctx context.Context, endpoint *registry.Endpoint, op Operation, outcomes chan<- EndpointOutcome) {
	start := time.Now()
	outcome := EndpointOutcome{
		EndpointID:   endpoint.ID,
		EndpointName: endpoint.Name,
	}

	// 选择和执行之间熔断器可能已打开
	breaker := o.getCircuitBreaker(endpoint.ID)
	if !breaker.CanExecute() {
		outcome.Error = fmt.Sprintf("端点%s的熔断器已打开", endpoint.Name)
		outcome.Timestamp = time.Now()
		outcomes <- outcome
		return
	}

	client, err := o.clientFactory(endpoint)
	if err != nil {
		outcome.Error = fmt.Sprintf("创建端点客户端失败: %v", err)
		outcome.Timestamp = time.Now()
		outcomes <- outcome
		return
	}

	// 端点级超时叠加在整体超时之内
	opCtx, cancel := context.WithTimeout(ctx, time.Duration(endpoint.Timeout)*time.Second)
	defer cancel()

	raw, err := op.Run(opCtx, client)
	outcome.ResponseTimeMS = elapsedMS(start)
	outcome.Timestamp = time.Now()
	if err != nil {
		o.logger.Error("端点操作失败",
			zap.String("endpoint", endpoint.Name),
			zap.String("operation", op.Name),
			zap.Error(err))
		outcome.Error = err.Error()
	} else {
		outcome.Success = true
		outcome.Result = raw
	}

	outcomes <- outcome
}

// HealthStatus 汇总所有端点的熔断器状态和延迟统计。
// 健康端点数只统计已创建熔断器且处于关闭状态的端点
func (o *Orchestrator) HealthStatus(ctx context.Context) (*HealthStatus, error) {
	endpoints, err := o.registry.ListEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取端点列表失败: %w", err)
	}

	status := &HealthStatus{
		TotalEndpoints:  len(endpoints),
		CircuitBreakers: make(map[string]BreakerSnapshot),
		Performance:     make(map[string]PerformanceMetrics),
	}

	for _, endpoint := range endpoints {
		if endpoint.IsActive {
			status.ActiveEndpoints++
		}

		if breaker, exists := o.lookupBreaker(endpoint.ID); exists {
			snapshot := breaker.Snapshot()
			status.CircuitBreakers[endpoint.Name] = snapshot
			if snapshot.State == StateClosed {
				status.HealthyEndpoints++
			}
		}

		status.Performance[endpoint.Name] = o.endpointPerformance(endpoint.ID)
	}

	return status, nil
}

// CreateZoneOnAll 在所有端点上创建区域
func (o *Orchestrator) CreateZoneOnAll(ctx context.Context, zone pdns.ZoneSpec) (*Result, error) {
	return o.ExecuteOnAll(ctx, Operation{
		Name: "create_zone",
		Run: func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error) {
			return client.CreateZone(ctx, zone)
		},
	})
}

// DeleteZoneFromAll 从所有端点删除区域
func (o *Orchestrator) DeleteZoneFromAll(ctx context.Context, zoneName string) (*Result, error) {
	return o.ExecuteOnAll(ctx, Operation{
		Name: "delete_zone",
		Run: func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error) {
			return nil, client.DeleteZone(ctx, zoneName)
		},
	})
}

// AddRecordToAll 在所有端点上添加记录
func (o *Orchestrator) AddRecordToAll(ctx context.Context, zoneName string, record pdns.RecordSpec) (*Result, error) {
	return o.ExecuteOnAll(ctx, Operation{
		Name: "add_record",
		Run: func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error) {
			return client.AddRecord(ctx, zoneName, record)
		},
	})
}

// UpdateRecordOnAll 在所有端点上更新记录
func (o *Orchestrator) UpdateRecordOnAll(ctx context.Context, zoneName string, record pdns.RecordSpec) (*Result, error) {
	return o.ExecuteOnAll(ctx, Operation{
		Name: "update_record",
		Run: func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error) {
			return client.UpdateRecord(ctx, zoneName, record)
		},
	})
}

// DeleteRecordFromAll 从所有端点删除记录
func (o *Orchestrator) DeleteRecordFromAll(ctx context.Context, zoneName, recordName, recordType string) (*Result, error) {
	return o.ExecuteOnAll(ctx, Operation{
		Name: "delete_record",
		Run: func(ctx context.Context, client pdns.ZoneRecordOperator) (json.RawMessage, error) {
			return nil, client.DeleteRecord(ctx, zoneName, recordName, recordType)
		},
	})
}

// defaultEndpoint 从端点列表中解析默认端点：
// 优先带默认标记且激活的端点，否则ID最小的激活端点
func defaultEndpoint(endpoints []*registry.Endpoint) *registry.Endpoint {
	var fallback *registry.Endpoint
	for _, endpoint := range endpoints {
		if !endpoint.IsActive {
			continue
		}
		if endpoint.IsDefault {
			return endpoint
		}
		if fallback == nil || endpoint.ID < fallback.ID {
			fallback = endpoint
		}
	}
	return fallback
}

// elapsedMS 返回自start以来的毫秒数
func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

package fanout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EndpointOutcome 单个端点上一次操作的结果
type EndpointOutcome struct {
	EndpointID     int64           `json:"endpoint_id"`
	EndpointName   string          `json:"endpoint_name"`
	Success        bool            `json:"success"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	ResponseTimeMS float64         `json:"response_time_ms"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Result 一次逻辑操作在多个端点上的聚合结果
type Result struct {
	OperationID     string            `json:"operation_id"`
	Operation       string            `json:"operation"`
	Outcomes        []EndpointOutcome `json:"outcomes"`
	SuccessCount    int               `json:"success_count"`
	FailureCount    int               `json:"failure_count"`
	TotalEndpoints  int               `json:"total_endpoints"`
	ExecutionTimeMS float64           `json:"execution_time_ms"`
}

// NewResult 创建聚合结果并分配操作ID
func NewResult(operation string) *Result {
	return &Result{
		OperationID: uuid.NewString(),
		Operation:   operation,
		Outcomes:    make([]EndpointOutcome, 0),
	}
}

// AddOutcome 追加一个端点结果并更新计数
func (r *Result) AddOutcome(outcome EndpointOutcome) {
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = time.Now()
	}
	r.Outcomes = append(r.Outcomes, outcome)

	if outcome.Success {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
	r.TotalEndpoints++
}

// IsCompleteSuccess 所有端点都成功
func (r *Result) IsCompleteSuccess() bool {
	return r.TotalEndpoints > 0 && r.SuccessCount == r.TotalEndpoints
}

// IsPartialSuccess 部分端点成功
func (r *Result) IsPartialSuccess() bool {
	return r.SuccessCount > 0 && r.SuccessCount < r.TotalEndpoints
}

// IsCompleteFailure 所有端点都失败
func (r *Result) IsCompleteFailure() bool {
	return r.TotalEndpoints > 0 && r.FailureCount == r.TotalEndpoints
}

// AverageResponseTime 所有端点结果的平均响应时间（毫秒），无结果时为0
func (r *Result) AverageResponseTime() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}

	var total float64
	for _, outcome := range r.Outcomes {
		total += outcome.ResponseTimeMS
	}
	return total / float64(len(r.Outcomes))
}

// FastestEndpoint 返回响应最快的成功端点名称，没有成功结果时第二个返回值为false
func (r *Result) FastestEndpoint() (string, bool) {
	var name string
	var best float64
	found := false

	for _, outcome := range r.Outcomes {
		if !outcome.Success {
			continue
		}
		if !found || outcome.ResponseTimeMS < best {
			name = outcome.EndpointName
			best = outcome.ResponseTimeMS
			found = true
		}
	}

	return name, found
}

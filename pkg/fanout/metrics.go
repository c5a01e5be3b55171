package fanout

// performanceWindowSize 每个端点保留的最近延迟样本数
const performanceWindowSize = 100

// performanceWindow 保存单个端点最近成功调用的延迟样本
type performanceWindow struct {
	samples []float64
}

// add 追加一个延迟样本，超出窗口时丢弃最旧的
func (w *performanceWindow) add(responseTimeMS float64) {
	w.samples = append(w.samples, responseTimeMS)
	if len(w.samples) > performanceWindowSize {
		w.samples = w.samples[len(w.samples)-performanceWindowSize:]
	}
}

// PerformanceMetrics 单个端点的延迟统计
type PerformanceMetrics struct {
	AvgResponseTime float64 `json:"avg_response_time"`
	MinResponseTime float64 `json:"min_response_time"`
	MaxResponseTime float64 `json:"max_response_time"`
	TotalCalls      int     `json:"total_calls"`
}

// metrics 计算窗口内样本的统计值
func (w *performanceWindow) metrics() PerformanceMetrics {
	if len(w.samples) == 0 {
		return PerformanceMetrics{}
	}

	var total float64
	min := w.samples[0]
	max := w.samples[0]
	for _, sample := range w.samples {
		total += sample
		if sample < min {
			min = sample
		}
		if sample > max {
			max = sample
		}
	}

	return PerformanceMetrics{
		AvgResponseTime: total / float64(len(w.samples)),
		MinResponseTime: min,
		MaxResponseTime: max,
		TotalCalls:      len(w.samples),
	}
}

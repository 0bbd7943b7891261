package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// InstrumentMetrics 仪器侧业务指标
type InstrumentMetrics struct {
	CommandTotal   *prometheus.CounterVec // labels: device, cmd, result=ok|invalid_argument|connection_error|malformed_reply
	CommandSeconds *prometheus.HistogramVec
	DeviceUp       *prometheus.GaugeVec // 最近一次轮询仪器是否可达
	ReadingsTotal  prometheus.Counter   // 记录仪已落库的读数条数
}

// NewInstrumentMetrics 注册并返回仪器指标
func NewInstrumentMetrics(reg *prometheus.Registry) *InstrumentMetrics {
	m := &InstrumentMetrics{
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labline_command_total",
			Help: "Protocol commands dispatched, by device, command and result.",
		}, []string{"device", "cmd", "result"}),
		CommandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labline_command_duration_seconds",
			Help:    "Wall time of one command round trip over the serial link.",
			Buckets: prometheus.DefBuckets,
		}, []string{"device"}),
		DeviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "device_up",
			Help: "Whether the instrument answered its last liveness probe.",
		}, []string{"device"}),
		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recorder_readings_total",
			Help: "Readings persisted by the background recorder.",
		}),
	}
	reg.MustRegister(m.CommandTotal, m.CommandSeconds, m.DeviceUp, m.ReadingsTotal)
	return m
}

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

// AppMetrics 网关业务指标
type AppMetrics struct {
	DatagramsReceived prometheus.Counter
	DatagramsSent     prometheus.Counter
	BytesReceived     prometheus.Counter
	ForeignDropped    prometheus.Counter     // 非指令站来源被丢弃的数据报
	ExtractErrors     prometheus.Counter     // 数据报切分失败
	DecodeTotal       *prometheus.CounterVec // labels: message, result=ok|error|unrecognized
	CommandsTotal     *prometheus.CounterVec // labels: command, result=ok|error|dropped
	QueueDepth        prometheus.Gauge       // 下行队列长度
	LastDatagram      prometheus.Gauge       // 最近一次收到数据报的 unix 时间
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		DatagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z21_datagrams_received_total",
			Help: "Total datagrams received from the command station.",
		}),
		DatagramsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z21_datagrams_sent_total",
			Help: "Total datagrams sent to the command station.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z21_bytes_received_total",
			Help: "Total bytes received over UDP.",
		}),
		ForeignDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z21_foreign_datagrams_dropped_total",
			Help: "Datagrams dropped because the sender is not the command station.",
		}),
		ExtractErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "z21_extract_errors_total",
			Help: "Datagrams whose record framing was truncated.",
		}),
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "z21_decode_total",
			Help: "Decoded records by message and result.",
		}, []string{"message", "result"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "z21_commands_total",
			Help: "Outgoing commands by kind and result.",
		}, []string{"command", "result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "z21_outbound_queue_depth",
			Help: "Commands waiting in the outbound queue.",
		}),
		LastDatagram: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "z21_last_datagram_timestamp_seconds",
			Help: "Unix time of the last datagram received from the command station.",
		}),
	}
	reg.MustRegister(
		m.DatagramsReceived, m.DatagramsSent, m.BytesReceived, m.ForeignDropped, m.ExtractErrors,
		m.DecodeTotal, m.CommandsTotal, m.QueueDepth, m.LastDatagram,
	)
	return m
}

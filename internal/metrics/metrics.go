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

// AppMetrics 自定义业务指标
type AppMetrics struct {
	BytesReadTotal     *prometheus.CounterVec // labels: source
	FramesDecodedTotal *prometheus.CounterVec // labels: message
	DecodeErrorsTotal  *prometheus.CounterVec // labels: kind=checksum|oversize|other
	PollRequestsTotal  *prometheus.CounterVec // labels: receiver, message
	PollTimeoutsTotal  *prometheus.CounterVec // labels: receiver
	PollRoundTrip      *prometheus.HistogramVec
	TrackPointsWritten prometheus.Counter
	PushEventsTotal    *prometheus.CounterVec // labels: result=ok|error|dropped|dedup
	HTTPRequestsTotal  *prometheus.CounterVec // labels: method, path, status
	HTTPDuration       *prometheus.HistogramVec
	ConnectedReceivers prometheus.Gauge
	IngestQueueDepth   prometheus.Gauge
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		BytesReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_bytes_read_total",
			Help: "Total bytes read from receiver transports.",
		}, []string{"source"}),
		FramesDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_frames_decoded_total",
			Help: "Decoded frames by message name.",
		}, []string{"message"}),
		DecodeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_decode_errors_total",
			Help: "Frame decode errors by kind.",
		}, []string{"kind"}),
		PollRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_poll_requests_total",
			Help: "Poll requests written to receivers.",
		}, []string{"receiver", "message"}),
		PollTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_poll_timeouts_total",
			Help: "Poll requests that expired without a reply.",
		}, []string{"receiver"}),
		PollRoundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_poll_round_trip_seconds",
			Help:    "Latency between poll write and matching reply.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"receiver"}),
		TrackPointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_track_points_written_total",
			Help: "Track points persisted to the database.",
		}),
		PushEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_push_events_total",
			Help: "Webhook push attempts by result.",
		}, []string{"result"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		ConnectedReceivers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_connected_receivers",
			Help: "Receivers currently marked present.",
		}),
		IngestQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ingest_queue_depth",
			Help: "Track points waiting in the Redis ingest queue.",
		}),
	}
	reg.MustRegister(
		m.BytesReadTotal, m.FramesDecodedTotal, m.DecodeErrorsTotal,
		m.PollRequestsTotal, m.PollTimeoutsTotal, m.PollRoundTrip,
		m.TrackPointsWritten, m.PushEventsTotal,
		m.HTTPRequestsTotal, m.HTTPDuration,
		m.ConnectedReceivers, m.IngestQueueDepth,
	)
	return m
}

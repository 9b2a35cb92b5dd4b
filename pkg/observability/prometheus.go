package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	errs "github.com/matzehuels/segmenter/pkg/errors"
)

const namespace = "segmenter"

// PrometheusHooks records pipeline, cache and HTTP events as Prometheus
// metrics. It implements PipelineHooks, CacheHooks and HTTPHooks.
type PrometheusHooks struct {
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	graphNodes    prometheus.Histogram
	segments      prometheus.Histogram

	cacheTotal *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) (*PrometheusHooks, error) {
	h := &PrometheusHooks{
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Pipeline stages run, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		graphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in partitioned graphs.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		segments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segments",
			Help:      "Number of segments found per run.",
			Buckets:   prometheus.LinearBuckets(0, 2, 12),
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes, by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache, by key type.",
		}, []string{"key_type"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_total",
			Help:      "Requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve a request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Failed requests, by route and error code.",
		}, []string{"route", "error_code"}),
	}

	for _, c := range []prometheus.Collector{
		h.stageTotal, h.stageDuration, h.graphNodes, h.segments,
		h.cacheTotal, h.cacheBytes,
		h.requestTotal, h.requestDuration, h.requestErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PrometheusHooks) stage(name string, d time.Duration, err error) {
	h.stageTotal.WithLabelValues(name, outcome(err)).Inc()
	h.stageDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnLoadStart(context.Context, string) {}

func (h *PrometheusHooks) OnLoadComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	h.stage("load", d, err)
	if err == nil {
		h.graphNodes.Observe(float64(nodeCount))
	}
}

func (h *PrometheusHooks) OnSegmentStart(context.Context, int) {}

func (h *PrometheusHooks) OnSegmentComplete(_ context.Context, segmentCount int, d time.Duration, err error) {
	h.stage("segment", d, err)
	if err == nil {
		h.segments.Observe(float64(segmentCount))
	}
}

func (h *PrometheusHooks) OnRenderStart(context.Context, []string) {}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	h.stage("render", d, err)
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheTotal.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	h.requestTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	h.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnError(_ context.Context, _, route string, err error) {
	code := string(errs.GetCode(err))
	if code == "" {
		code = "UNKNOWN"
	}
	h.requestErrors.WithLabelValues(route, code).Inc()
}

var (
	_ PipelineHooks = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
	_ HTTPHooks     = (*PrometheusHooks)(nil)
)

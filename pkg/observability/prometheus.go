package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// Prometheus implements every hook interface on top of client_golang
// collectors.
type Prometheus struct {
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	collected     *prometheus.GaugeVec
	density       prometheus.Gauge
	cacheTotal    *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	backendTotal  *prometheus.CounterVec
	backendTime   *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg. When
// reg is nil the default registerer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdiagram_stage_total",
				Help: "Pipeline stages run, by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azdiagram_stage_duration_seconds",
				Help:    "Pipeline stage latency",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"stage"},
		),
		collected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "azdiagram_collected",
				Help: "Nodes and edges in the last collected graph",
			},
			[]string{"kind"},
		),
		density: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "azdiagram_layout_density",
			Help: "Density step chosen by the last layout",
		}),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdiagram_cache_total",
				Help: "Cache lookups, by key type and result",
			},
			[]string{"key_type", "result"},
		),
		cacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdiagram_cache_written_bytes_total",
				Help: "Bytes written to the cache",
			},
			[]string{"key_type"},
		),
		backendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azdiagram_backend_calls_total",
				Help: "Inventory backend calls, by operation and error code",
			},
			[]string{"op", "code"},
		),
		backendTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azdiagram_backend_call_duration_seconds",
				Help:    "Inventory backend call latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 3, 8),
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(
		p.stageTotal, p.stageDuration, p.collected, p.density,
		p.cacheTotal, p.cacheBytes, p.backendTotal, p.backendTime,
	)
	return p
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) stage(name string, d time.Duration, err error) {
	p.stageTotal.WithLabelValues(name, outcome(err)).Inc()
	p.stageDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (p *Prometheus) OnCollectStart(context.Context, string, string) {}

func (p *Prometheus) OnCollectComplete(_ context.Context, _, _ string, nodes, edges int, d time.Duration, err error) {
	p.stage("collect", d, err)
	if err == nil {
		p.collected.WithLabelValues("nodes").Set(float64(nodes))
		p.collected.WithLabelValues("edges").Set(float64(edges))
	}
}

func (p *Prometheus) OnLayoutStart(context.Context, int) {}

func (p *Prometheus) OnLayoutComplete(_ context.Context, density int, d time.Duration, err error) {
	p.stage("layout", d, err)
	if err == nil {
		p.density.Set(float64(density))
	}
}

func (p *Prometheus) OnRenderStart(context.Context, []string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	p.stage("render", d, err)
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnCall(context.Context, string) {}

func (p *Prometheus) OnResult(_ context.Context, op string, d time.Duration, err error) {
	code := "OK"
	if err != nil {
		code = string(errors.GetCode(err))
		if code == "" {
			code = "UNKNOWN"
		}
	}
	p.backendTotal.WithLabelValues(op, code).Inc()
	p.backendTime.WithLabelValues(op).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ BackendHooks  = (*Prometheus)(nil)
)

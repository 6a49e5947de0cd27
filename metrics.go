package hxpage

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "hxpage"

// metrics holds the renderer's Prometheus collectors. A nil *metrics
// records nothing.
type metrics struct {
	rendersTotal     *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	hookDuration     *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	prerenderedPages prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "renders_total",
			Help:      "Total number of page renders by HTTP status",
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Page render duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		hookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "hook_duration_seconds",
			Help:      "Hook execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"hook"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of render errors by kind",
		}, []string{"kind"}),

		prerenderedPages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "prerendered_pages_total",
			Help:      "Total number of prerendered pages",
		}),
	}
}

func (m *metrics) observeRender(status int, took time.Duration) {
	if m == nil {
		return
	}
	label := "none"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.rendersTotal.WithLabelValues(label).Inc()
	m.renderDuration.Observe(took.Seconds())
}

func (m *metrics) observeHook(hookName string, took time.Duration) {
	if m == nil {
		return
	}
	m.hookDuration.WithLabelValues(hookName).Observe(took.Seconds())
}

func (m *metrics) observeError(err error) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errorKind(err)).Inc()
}

func (m *metrics) observePrerendered() {
	if m == nil {
		return
	}
	m.prerenderedPages.Inc()
}

func errorKind(err error) string {
	switch {
	case IsStreamingError(err):
		return "streaming"
	case IsHookError(err):
		return "hook"
	case IsUsageError(err):
		return "usage"
	case IsConfigError(err):
		return "config"
	default:
		return "internal"
	}
}

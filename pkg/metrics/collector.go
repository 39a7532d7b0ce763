// Package metrics exports store and datasource activity as Prometheus
// metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	templating "github.com/goliatone/go-templating"
)

const (
	namespace = "templating"

	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeStale   = "stale"
)

// Collector implements templating.MetricsCollector and, for datasource
// query events, templating.DispatchLogger.
type Collector struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	optionCount      *prometheus.GaugeVec
	queryDuration    *prometheus.HistogramVec
}

// NewCollector registers the collector's metrics with registerer. A nil
// registerer leaves them unregistered.
func NewCollector(registerer prometheus.Registerer) *Collector {
	factory := promauto.With(registerer)
	return &Collector{
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Total number of dispatched intents by action, kind and outcome",
			},
			[]string{"action", "kind", "outcome"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of reducer application in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"action", "kind"},
		),
		optionCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "variable_options",
				Help:      "Number of options of a variable after its last update",
			},
			[]string{"kind", "variable"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "datasource_query_duration_seconds",
				Help:      "Duration of datasource variable queries in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"variable", "outcome"},
		),
	}
}

// ObserveDispatch implements templating.MetricsCollector.
func (c *Collector) ObserveDispatch(action templating.ActionType, kind templating.VariableType, duration time.Duration, err error) {
	c.dispatchTotal.WithLabelValues(string(action), string(kind), outcome(err)).Inc()
	c.dispatchDuration.WithLabelValues(string(action), string(kind)).Observe(duration.Seconds())
}

// ObserveOptions implements templating.MetricsCollector.
func (c *Collector) ObserveOptions(id templating.Identifier, count int) {
	c.optionCount.WithLabelValues(string(id.Type), id.Name).Set(float64(count))
}

// LogDispatch records the duration of datasource queries. Other events are
// ignored, as the store reports them through ObserveDispatch.
func (c *Collector) LogDispatch(event templating.DispatchLogEvent) {
	if event.Action != templating.ActionMetricFindQuery {
		return
	}
	c.queryDuration.WithLabelValues(event.Variable.Name, outcome(event.Err)).Observe(event.Duration.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, templating.ErrStaleResponse):
		return outcomeStale
	default:
		return outcomeError
	}
}

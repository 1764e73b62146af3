package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes recorded by the channel.
const (
	OutcomeOK          = "ok"
	OutcomeRemoteError = "remote_error"
	OutcomeMalformed   = "malformed"
	OutcomeTimeout     = "timeout"
	OutcomeCanceled    = "canceled"
	OutcomeCrashed     = "crashed"
	OutcomeClosed      = "closed"
	OutcomeWriteError  = "write_error"
)

var (
	registerOnce sync.Once

	channelCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hslremote",
			Subsystem: "channel",
			Name:      "commands_total",
			Help:      "Commands exchanged with the device runtime by outcome.",
		},
		[]string{"outcome"},
	)
	channelWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hslremote",
			Subsystem: "channel",
			Name:      "response_wait_seconds",
			Help:      "Time between writing a request file and reading its response.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"outcome"},
	)
	runtimeLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hslremote",
			Subsystem: "runtime",
			Name:      "launches_total",
			Help:      "Device runtime launch attempts.",
		},
		[]string{"success"},
	)
	runtimeExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hslremote",
			Subsystem: "runtime",
			Name:      "exits_total",
			Help:      "Device runtime exits observed by the supervisor.",
		},
		[]string{"clean"},
	)
	resourceConversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hslremote",
			Subsystem: "resources",
			Name:      "conversions_total",
			Help:      "Binary resource conversions by cache result.",
		},
		[]string{"cache"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(channelCommands, channelWait, runtimeLaunches, runtimeExits, resourceConversions)
	})
}

func RecordCommand(outcome string, wait time.Duration) {
	RegisterMetrics()
	channelCommands.WithLabelValues(outcome).Inc()
	if wait > 0 {
		channelWait.WithLabelValues(outcome).Observe(wait.Seconds())
	}
}

func RecordLaunch(success bool) {
	RegisterMetrics()
	runtimeLaunches.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordRuntimeExit(clean bool) {
	RegisterMetrics()
	runtimeExits.WithLabelValues(strconv.FormatBool(clean)).Inc()
}

func RecordConversion(cacheHit bool) {
	RegisterMetrics()
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	resourceConversions.WithLabelValues(label).Inc()
}

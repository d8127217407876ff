// Package metrics provides Prometheus metrics for chatstream.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverfjs/chatstream-go"
)

var (
	// PiecesTotal counts delivered pieces.
	PiecesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatstream",
			Name:      "pieces_total",
			Help:      "Total number of message pieces handed to a sink",
		},
		[]string{"sink", "status"},
	)

	// PieceLength observes piece sizes in UTF-16 code units.
	PieceLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatstream",
			Name:      "piece_length_units",
			Help:      "Distribution of delivered piece lengths in UTF-16 code units",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 1500, 1950, 2000},
		},
		[]string{"sink"},
	)

	// DeliveryDuration measures sink latency.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatstream",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of piece deliveries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	// CommandsTotal counts handled bot commands.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatstream",
			Name:      "commands_total",
			Help:      "Total number of bot commands handled",
		},
		[]string{"command", "status"},
	)

	// QueueDepth tracks the admission waiting list length.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatstream",
			Name:      "queue_depth",
			Help:      "Number of requests in the waiting list",
		},
	)
)

// RecordDelivery records one delivery attempt.
func RecordDelivery(sink string, units int, err error, duration time.Duration) {
	status := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	PiecesTotal.WithLabelValues(sink, status).Inc()
	DeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err == nil {
		PieceLength.WithLabelValues(sink).Observe(float64(units))
	}
}

// RecordCommand records a handled command.
func RecordCommand(command, status string) {
	CommandsTotal.WithLabelValues(command, status).Inc()
}

// SetQueueDepth sets the waiting list length.
func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentedSink records every delivery made through the wrapped sink.
type InstrumentedSink struct {
	name string
	next chatstream.Sink
}

// Instrument wraps next; name becomes the "sink" label.
func Instrument(name string, next chatstream.Sink) *InstrumentedSink {
	return &InstrumentedSink{name: name, next: next}
}

// Deliver forwards to the wrapped sink.
func (s *InstrumentedSink) Deliver(ctx context.Context, message string) error {
	start := time.Now()
	err := s.next.Deliver(ctx, message)
	RecordDelivery(s.name, chatstream.UTF16Len(message), err, time.Since(start))
	return err
}

package server

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ss2beacon-go/internal/beacon"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	BeaconsDecoded *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec
	ImageChunks    prometheus.Counter
	WSClients      prometheus.Gauge
	Broadcasts     prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BeaconsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ss2beacon_decoded_total",
			Help: "Beacon frames decoded, by schema",
		}, []string{"schema"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ss2beacon_decode_errors_total",
			Help: "Beacon lines rejected, by reason",
		}, []string{"reason"}),
		ImageChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ss2beacon_image_chunks_total",
			Help: "Image payload chunks accumulated",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ss2beacon_ws_clients",
			Help: "Connected websocket clients",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ss2beacon_broadcasts_total",
			Help: "Messages broadcast to websocket clients",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ss2beacon_http_requests_total",
			Help: "HTTP requests by endpoint",
		}, []string{"endpoint"}),
	}
}

// ObserveDecode counts one decode outcome.
func (m *Metrics) ObserveDecode(schema string, err error) {
	if err == nil {
		m.BeaconsDecoded.WithLabelValues(schema).Inc()
		return
	}
	m.DecodeErrors.WithLabelValues(ErrorReason(err)).Inc()
}

// ErrorReason maps decode errors onto a small label set.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, beacon.ErrInvalidCharacter):
		return "invalid_character"
	case errors.Is(err, beacon.ErrOddLength):
		return "odd_length"
	case errors.Is(err, beacon.ErrUnrecognizedFrameLength):
		return "frame_length"
	case errors.Is(err, beacon.ErrShortImageFrame):
		return "short_image_frame"
	case errors.Is(err, beacon.ErrSchemaBounds):
		return "schema_bounds"
	default:
		return "other"
	}
}

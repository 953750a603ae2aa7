package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for PacketsDropped
const (
	ReasonEncoding = "encoding"
	ReasonFormat   = "format"
)

// Store operations for StoreDuration
const (
	OpInsert = "insert"
	OpRecent = "recent"
)

// Forward results for Forwards
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultNoMatch   = "no_match"
)

var (
	// Ingestion metrics
	PacketsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshrelay_packets_received_total",
			Help: "Total number of UDP datagrams received",
		},
	)

	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshrelay_packets_dropped_total",
			Help: "Total number of datagrams dropped by reason",
		},
		[]string{"reason"},
	)

	PacketProcessing = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshrelay_packet_processing_seconds",
			Help:    "Time taken to process one datagram in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Storage metrics
	MessagesStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshrelay_messages_stored_total",
			Help: "Total number of messages stored by type",
		},
		[]string{"type"},
	)

	StoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshrelay_store_errors_total",
			Help: "Total number of failed store inserts",
		},
	)

	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meshrelay_store_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	LastStoredTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meshrelay_last_stored_timestamp_seconds",
			Help: "Receive time of the newest stored message as a Unix timestamp",
		},
	)

	// Forwarding metrics
	Forwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshrelay_forwards_total",
			Help: "Total number of forwarding decisions by result",
		},
		[]string{"result"},
	)

	RenderFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshrelay_render_fallbacks_total",
			Help: "Total number of notifications rendered with the error template",
		},
	)

	DeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshrelay_delivery_duration_seconds",
			Help:    "Telegram sendMessage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(PacketsReceived)
	prometheus.MustRegister(PacketsDropped)
	prometheus.MustRegister(PacketProcessing)
	prometheus.MustRegister(MessagesStored)
	prometheus.MustRegister(StoreErrors)
	prometheus.MustRegister(StoreDuration)
	prometheus.MustRegister(LastStoredTimestamp)
	prometheus.MustRegister(Forwards)
	prometheus.MustRegister(RenderFallbacks)
	prometheus.MustRegister(DeliveryDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

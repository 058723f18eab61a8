package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "bloog"

	metricLabelOperation = "operation"
	metricLabelStatus    = "status"
	metricLabelKind      = "kind"
	metricLabelVariant   = "variant"
	metricLabelHandler   = "handler"
	metricLabelRoute     = "route"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics is the structure that holds all prometheus metrics
var (
	// StoreOperationCounter counts the number of store operations
	StoreOperationCounter = newCounterVec(
		"store_operation_count",
		"Count of store operations by operation and status",
		metricLabelOperation, metricLabelStatus,
	)
	// StoreOperationDuration observe the duration of each store operation
	StoreOperationDuration = newSummaryVec(
		"store_operation_duration_seconds",
		"Seconds spent in each store operation including all storage calls",
		metricLabelOperation, metricLabelStatus,
	)
	// ConversionFailureCounter counts markdown documents rejected by the converter
	ConversionFailureCounter = newCounterVec(
		"conversion_failure_count",
		"Number of markdown conversions that failed validation",
		metricLabelKind,
	)
	// ImageBytesCounter counts the bytes written for each image variant
	ImageBytesCounter = newCounterVec(
		"image_bytes_written_total",
		"Number of image bytes written by variant",
		metricLabelVariant,
	)
	// InvalidPostsGauge keeps track of the number of stored posts failing validation
	InvalidPostsGauge = newGaugeVec(
		"invalid_posts_total",
		"Number of stored posts that failed validation on the last check",
	)
	// ServiceRequestCounter count the number of requests for each route
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler and route",
		metricLabelHandler, metricLabelRoute, metricLabelStatus,
	)
	// ServiceRequestDuration observe the duration of each request
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to unmarshal requests, execute a service function and marshal its responses",
		metricLabelHandler, metricLabelRoute, metricLabelStatus,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

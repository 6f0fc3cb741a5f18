// Package metrics declares the bridge's Prometheus metrics.
//
// The teacher registered its metrics against controller-runtime's
// shared registry (internal/pkg/metrics); this module has no
// Kubernetes controller, so the metrics register against
// prometheus.DefaultRegisterer instead and are served by
// internal/adminserver's /metrics handler.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// MqttMessagesPublishedTotal counts outbound MQTT publishes, per
	// peer cloud and verb (observation, state, reply, etc).
	MqttMessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowbridge_mqtt_messages_published_total",
			Help: "Total number of MQTT messages published, by cloud and verb.",
		},
		[]string{"cloud", "verb"},
	)

	// MqttMessagesReceivedTotal counts inbound MQTT messages, per peer
	// cloud, before routing to the API-request or CoAP-command path.
	MqttMessagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowbridge_mqtt_messages_received_total",
			Help: "Total number of MQTT messages received, by cloud.",
		},
		[]string{"cloud"},
	)

	// EndpointsRegistered is the current size of the endpoint registry.
	EndpointsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadowbridge_endpoints_registered",
			Help: "Number of endpoints currently tracked in the endpoint registry.",
		},
	)

	// SubscriptionsActive is the current size of the subscription manager.
	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadowbridge_subscriptions_active",
			Help: "Number of (domain, endpoint, type, resource-path) subscriptions currently tracked.",
		},
	)

	// AsyncPending is the number of outstanding AsyncRecord entries
	// awaiting a backend completion.
	AsyncPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadowbridge_async_pending",
			Help: "Number of async CoAP replies currently awaiting a backend completion.",
		},
	)

	// JwtRefreshTotal counts JWT mint/refresh attempts, per endpoint and
	// result (ok, error).
	JwtRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowbridge_jwt_refresh_total",
			Help: "Total number of JWT credential refreshes attempted, by endpoint and result.",
		},
		[]string{"ep", "result"},
	)

	// LongpollStatusTotal counts backend long-poll responses by HTTP
	// status code.
	LongpollStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowbridge_longpoll_status_total",
			Help: "Total number of backend long-poll responses, by status code.",
		},
		[]string{"code"},
	)

	// CommandLockWaitSeconds observes how long the command-dispatch
	// critical section waited to acquire its lock.
	CommandLockWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shadowbridge_command_lock_wait_seconds",
			Help:    "Time spent waiting to acquire the command-dispatch lock.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		MqttMessagesPublishedTotal,
		MqttMessagesReceivedTotal,
		EndpointsRegistered,
		SubscriptionsActive,
		AsyncPending,
		JwtRefreshTotal,
		LongpollStatusTotal,
		CommandLockWaitSeconds,
	)
}

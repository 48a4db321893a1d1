package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devroom_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Room metrics
	ConnectedMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devroom_connected_members",
			Help: "Currently connected room members",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devroom_active_rooms",
			Help: "Rooms with at least one connected member",
		},
	)

	MessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_messages_relayed_total",
			Help: "Total chat events relayed to room members",
		},
		[]string{"kind"}, // "human" or "ai"
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devroom_users_registered_total",
			Help: "Total users registered",
		},
	)

	ProjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devroom_projects_created_total",
			Help: "Total projects created",
		},
	)

	AIInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_ai_invocations_total",
			Help: "Total generation upstream invocations",
		},
		[]string{"outcome"}, // "ok" or "error"
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_persistence_failures_total",
			Help: "Best-effort persistence failures (logged, never surfaced)",
		},
		[]string{"op"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devroom_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devroom_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	DatabaseLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devroom_database_latency_seconds",
			Help:    "Database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)

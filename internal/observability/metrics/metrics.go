package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (o Outcome) String() string {
	return string(o)
}

var (
	once                       sync.Once
	metricsRouter              *chi.Mux
	venueClientLatency         *prometheus.HistogramVec
	syncCycleDurationHistogram *prometheus.HistogramVec
	dbLatency                  *prometheus.HistogramVec
	publishErrorCounter        prometheus.Counter
	webhookReplayCounter       prometheus.Counter
	registrationFullCounter    prometheus.Counter
	inconsistentRankingCounter prometheus.Counter
	participantSyncDisabled    prometheus.Counter
	activeTournamentsGauge     prometheus.Gauge
	leaderboardVersionGauge    *prometheus.GaugeVec
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and registers the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	venueClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venue_client_latency_seconds",
			Help:    "Histogram of venue client call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	syncCycleDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_cycle_duration_seconds",
			Help:    "Histogram of per-tournament sync cycle durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_latency_seconds",
			Help:    "Histogram of db call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	publishErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standings_publish_error_count",
			Help: "The total number of errors while publishing standings updates",
		},
	)

	webhookReplayCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_event_replay_count",
			Help: "The total number of registration events acknowledged as idempotent replays",
		},
	)

	registrationFullCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_capacity_full_count",
			Help: "The total number of confirmed registrations rejected because the tournament was full",
		},
	)

	inconsistentRankingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inconsistent_ranking_count",
			Help: "The total number of ranking passes that observed fewer snapshots than active participants",
		},
	)

	participantSyncDisabled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "participant_sync_disabled_count",
			Help: "The total number of participants whose sync was disabled by a permanent venue error",
		},
	)

	activeTournamentsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tournaments",
			Help: "Number of tournaments currently scheduled for sync",
		},
	)

	leaderboardVersionGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leaderboard_version",
			Help: "Latest published leaderboard version per tournament",
		},
		[]string{"tournament"},
	)

	prometheus.MustRegister(
		venueClientLatency,
		syncCycleDurationHistogram,
		dbLatency,
		publishErrorCounter,
		webhookReplayCounter,
		registrationFullCounter,
		inconsistentRankingCounter,
		participantSyncDisabled,
		activeTournamentsGauge,
		leaderboardVersionGauge,
	)
}

func RecordVenueClientLatency(method string, duration time.Duration, err error) {
	if venueClientLatency == nil {
		return
	}
	status := Success
	if err != nil {
		status = Error
	}
	venueClientLatency.WithLabelValues(method, status.String()).Observe(duration.Seconds())
}

func RecordSyncCycleDuration(duration time.Duration, err error) {
	if syncCycleDurationHistogram == nil {
		return
	}
	status := Success
	if err != nil {
		status = Error
	}
	syncCycleDurationHistogram.WithLabelValues(status.String()).Observe(duration.Seconds())
}

func RecordDbLatency(method string, duration time.Duration, err error) {
	if dbLatency == nil {
		return
	}
	status := Success
	if err != nil {
		status = Error
	}
	dbLatency.WithLabelValues(method, status.String()).Observe(duration.Seconds())
}

func IncPublishError() {
	if publishErrorCounter != nil {
		publishErrorCounter.Inc()
	}
}

func IncWebhookReplay() {
	if webhookReplayCounter != nil {
		webhookReplayCounter.Inc()
	}
}

func IncRegistrationFull() {
	if registrationFullCounter != nil {
		registrationFullCounter.Inc()
	}
}

func IncInconsistentRanking() {
	if inconsistentRankingCounter != nil {
		inconsistentRankingCounter.Inc()
	}
}

func IncParticipantSyncDisabled() {
	if participantSyncDisabled != nil {
		participantSyncDisabled.Inc()
	}
}

func SetActiveTournaments(n int) {
	if activeTournamentsGauge != nil {
		activeTournamentsGauge.Set(float64(n))
	}
}

func SetLeaderboardVersion(tournamentID string, version int64) {
	if leaderboardVersionGauge != nil {
		leaderboardVersionGauge.WithLabelValues(tournamentID).Set(float64(version))
	}
}

package metrics

import (
	"net/http"
	"time"

	"SongBracket/api/tournament"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "songbracket"

// Recorder exports engine events as prometheus metrics. A nil Recorder
// drops everything.
type Recorder struct {
	registry *prometheus.Registry

	votes       *prometheus.CounterVec
	voteLatency prometheus.Histogram
	retries     *prometheus.CounterVec
	sessions    *prometheus.CounterVec
	completed   prometheus.Counter
	abandoned   *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg, or on a fresh registry with
// the Go and process collectors when reg is nil.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	r := &Recorder{
		registry: reg,
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes processed, by result.",
		}, []string{"result"}),
		voteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_duration_seconds",
			Help:      "Time spent applying a vote, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_retries_total",
			Help:      "Storage transactions retried after a transient failure.",
		}, []string{"op"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions handed out, by preference and whether they already existed.",
		}, []string{"preference", "existing"}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_completed_total",
			Help:      "Sessions that reached a champion.",
		}),
		abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_abandoned_total",
			Help:      "Sessions moved to ABANDONED, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.votes, r.voteLatency, r.retries, r.sessions, r.completed, r.abandoned)
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) VoteCast(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.votes.WithLabelValues(result).Inc()
	r.voteLatency.Observe(elapsed.Seconds())
}

func (r *Recorder) VoteRetried(op string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(op).Inc()
}

func (r *Recorder) SessionStarted(preference tournament.Preference, existing bool) {
	if r == nil {
		return
	}
	label := "false"
	if existing {
		label = "true"
	}
	r.sessions.WithLabelValues(string(preference), label).Inc()
}

func (r *Recorder) TournamentCompleted() {
	if r == nil {
		return
	}
	r.completed.Inc()
}

func (r *Recorder) SessionsAbandoned(reason string, count int64) {
	if r == nil || count <= 0 {
		return
	}
	r.abandoned.WithLabelValues(reason).Add(float64(count))
}

var _ tournament.Observer = (*Recorder)(nil)

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "worktime"

var (
	ClockIns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "clock_ins_total", Help: "Work sessions opened",
	})
	ClockOuts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "clock_outs_total", Help: "Work sessions closed by their owner",
	})
	AutoClosedSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "sessions_auto_closed_total", Help: "Stale sessions closed by the nightly job",
	})
	RequestDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "attendance_request_decisions_total", Help: "Attendance request decisions",
	}, []string{"decision"})
	MetricCalculations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "metric_calculations_total", Help: "Daily metric calculations",
	}, []string{"result"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "notifications_total", Help: "Notification deliveries",
	}, []string{"event", "result"})
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cron_job_runs_total", Help: "Scheduled job runs",
	}, []string{"job", "result"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "cron_job_duration_seconds", Help: "Scheduled job run time",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		ClockIns, ClockOuts, AutoClosedSessions,
		RequestDecisions, MetricCalculations, Notifications,
		JobRuns, JobDuration, DBPing,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveJob records a finished scheduled job.
func ObserveJob(job string, d time.Duration, err error) {
	JobDuration.WithLabelValues(job).Observe(d.Seconds())
	JobRuns.WithLabelValues(job, Result(err)).Inc()
}

// Result labels err as "ok" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

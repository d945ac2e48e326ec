// Package metrics exposes attempt lifecycle counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

type Collector struct {
	questions  *prometheus.CounterVec
	completed  *prometheus.CounterVec
	closed     *prometheus.CounterVec
	percentage *prometheus.HistogramVec
}

// NewCollector registers the attempt collectors with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_questions_finalized_total",
			Help: "Questions that left the current state, by outcome.",
		}, []string{"kind", "status"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_attempts_completed_total",
			Help: "Attempts graded and sealed, by submission status.",
		}, []string{"kind", "status"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_attempts_closed_total",
			Help: "Attempts abandoned before submission.",
		}, []string{"kind"}),
		percentage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_attempt_percentage",
			Help:    "Percentage of the point pool scored per completed attempt.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}, []string{"kind"}),
	}
	reg.MustRegister(c.questions, c.completed, c.closed, c.percentage)
	return c
}

func (c *Collector) QuestionFinalized(kind exam.SubjectKind, status exam.QuestionStatus) {
	c.questions.WithLabelValues(string(kind), string(status)).Inc()
}

func (c *Collector) AttemptFinished(sub exam.Submission) {
	c.completed.WithLabelValues(string(sub.SubjectKind), string(sub.Status)).Inc()
	c.percentage.WithLabelValues(string(sub.SubjectKind)).Observe(sub.Percentage)
}

func (c *Collector) AttemptClosed(kind exam.SubjectKind) {
	c.closed.WithLabelValues(string(kind)).Inc()
}

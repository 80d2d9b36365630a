package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReviewsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Сохранённые отзывы по локациям",
	}, []string{"location"})

	ReviewFlowEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "review_flow_events_total",
		Help: "События анкеты: старт, выбор локации, оценки, отклонённый ввод",
	}, []string{"event"})

	AdminNotifyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admin_notify_errors_total",
		Help: "Ошибки отправки уведомлений в админ-чат",
	})

	PersistErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "review_persist_errors_total",
		Help: "Ошибки сохранения отзывов и сессий",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// Flow events.
const (
	EventStart        = "start"
	EventLocation     = "location"
	EventRating       = "rating"
	EventRejected     = "rejected"
	EventDigest       = "digest"
	EventImplicitFlow = "implicit_comment"
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ReviewsSubmitted,
		ReviewFlowEvents,
		AdminNotifyErrors,
		PersistErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncReviewSubmitted увеличивает счётчик сохранённых отзывов.
func IncReviewSubmitted(locationID string) {
	if locationID == "" {
		locationID = "unknown"
	}
	ReviewsSubmitted.WithLabelValues(locationID).Inc()
}

// IncFlowEvent увеличивает счётчик событий анкеты.
func IncFlowEvent(event string) {
	ReviewFlowEvents.WithLabelValues(event).Inc()
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SuggestionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suggestions_created_total",
		Help: "Созданные предложения",
	})
	IngestSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_skipped_total",
		Help: "Сообщения в каналах без настройки предложений",
	})
	SuggestionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "suggestion_decisions_total",
		Help: "Принятые решения по предложениям",
	}, []string{"outcome"})
	SuggestionDecisionRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "suggestion_decision_rejections_total",
		Help: "Отклонённые попытки принять решение",
	}, []string{"reason"})
	NotificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Ошибки постановки и доставки уведомлений",
	}, []string{"stage"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SuggestionsCreated,
		IngestSkipped,
		SuggestionDecisions,
		SuggestionDecisionRejections,
		NotificationFailures,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
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

// IncDecision увеличивает счётчик решений.
func IncDecision(outcome string) {
	SuggestionDecisions.WithLabelValues(outcome).Inc()
}

// IncDecisionRejected увеличивает счётчик отклонённых попыток.
func IncDecisionRejected(reason string) {
	SuggestionDecisionRejections.WithLabelValues(reason).Inc()
}

// IncNotificationFailure увеличивает счётчик ошибок уведомлений.
func IncNotificationFailure(stage string) {
	NotificationFailures.WithLabelValues(stage).Inc()
}

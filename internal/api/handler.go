package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/order-notify/internal/common"
	"github.com/example/order-notify/internal/notify"
)

var (
	reqCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_requests_total",
		Help: "Total notification requests received, by route and outcome",
	}, []string{"route", "status"})
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_request_duration_seconds",
		Help:    "Latency of notification routes",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fanoutAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_fanout_appends_total",
		Help: "Per-user notification log appends during broadcast fan-out",
	}, []string{"status"})
)

const (
	routeOrderAlert   = "send-notification"
	routeBroadcast    = "send-to-users"
	routeStatusUpdate = "send-user-status-update"
)

type Handler struct {
	dispatcher     *notify.Dispatcher
	logger         zerolog.Logger
	tracer         trace.Tracer
	allowedOrigins []string
}

func NewHandler(d *notify.Dispatcher, cfg *common.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		dispatcher:     d,
		logger:         logger,
		tracer:         otel.Tracer("api"),
		allowedOrigins: cfg.AllowedOrigins,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/healthz", h.healthz)
	r.Post("/send-notification", h.sendOrderAlert)
	r.Post("/send-to-users", h.sendBroadcast)
	r.Post("/send-user-status-update", h.sendStatusUpdate)
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sendOrderAlert(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), routeOrderAlert)
	defer span.End()
	start := time.Now()

	var req notify.OrderPlacedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondBadRequest(ctx, w, routeOrderAlert, err)
		return
	}
	if err := notify.Validate(req); err != nil {
		h.respondBadRequest(ctx, w, routeOrderAlert, err)
		return
	}

	receipt, err := h.dispatcher.DispatchOrderPlaced(ctx, req)
	if err != nil {
		h.respondDeliveryError(ctx, w, routeOrderAlert, err)
		return
	}

	span.SetAttributes(attribute.String("push.receipt", receipt))
	h.respondOK(w, routeOrderAlert, receipt, start)
}

func (h *Handler) sendBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), routeBroadcast)
	defer span.End()
	start := time.Now()

	var req notify.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondBadRequest(ctx, w, routeBroadcast, err)
		return
	}
	if err := notify.Validate(req); err != nil {
		h.respondBadRequest(ctx, w, routeBroadcast, err)
		return
	}

	receipt, result, err := h.dispatcher.DispatchBroadcast(ctx, req)
	if err != nil {
		h.respondDeliveryError(ctx, w, routeBroadcast, err)
		return
	}

	fanoutAppends.WithLabelValues("ok").Add(float64(result.Succeeded))
	fanoutAppends.WithLabelValues("error").Add(float64(len(result.Failed)))

	span.SetAttributes(
		attribute.String("push.receipt", receipt),
		attribute.Int("fanout.succeeded", result.Succeeded),
		attribute.Int("fanout.failed", len(result.Failed)),
	)
	h.respondOK(w, routeBroadcast, receipt, start)
}

func (h *Handler) sendStatusUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), routeStatusUpdate)
	defer span.End()
	start := time.Now()

	var req notify.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondBadRequest(ctx, w, routeStatusUpdate, err)
		return
	}
	if err := notify.Validate(req); err != nil {
		h.respondBadRequest(ctx, w, routeStatusUpdate, err)
		return
	}

	receipt, err := h.dispatcher.DispatchStatusUpdate(ctx, req)
	if err != nil {
		h.respondDeliveryError(ctx, w, routeStatusUpdate, err)
		return
	}

	span.SetAttributes(attribute.String("push.receipt", receipt))
	h.respondOK(w, routeStatusUpdate, receipt, start)
}

func (h *Handler) respondOK(w http.ResponseWriter, route, receipt string, start time.Time) {
	reqCounter.WithLabelValues(route, "ok").Inc()
	requestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": receipt,
	})
}

// respondBadRequest reports rejected input. Field-level detail stays in the
// logs; callers get the generic message.
func (h *Handler) respondBadRequest(ctx context.Context, w http.ResponseWriter, route string, err error) {
	logger := common.WithContext(ctx, h.logger)
	var ve *notify.ValidationError
	if errors.As(err, &ve) {
		logger.Warn().Strs("missing_fields", ve.MissingFields).Str("route", route).Msg("request rejected")
	} else {
		logger.Warn().Err(err).Str("route", route).Msg("request body rejected")
	}
	reqCounter.WithLabelValues(route, "bad_request").Inc()
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   "Missing fields",
	})
}

// respondDeliveryError surfaces the provider's message as-is.
func (h *Handler) respondDeliveryError(ctx context.Context, w http.ResponseWriter, route string, err error) {
	logger := common.WithContext(ctx, h.logger)
	logger.Error().Err(err).Str("route", route).Msg("push delivery failed")
	reqCounter.WithLabelValues(route, "error").Inc()
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

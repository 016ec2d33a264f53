package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ifjames/kolekta-match/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	reqSvc *service.RequestService,
	matchSvc *service.MatchService,
	notifierSvc *service.NotifierService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	requestH := NewRequestHandler(reqSvc)
	matchH := NewMatchHandler(matchSvc)
	webhookH := NewWebhookHandler(notifierSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Exchange request routes.
	r.Post("/requests", requestH.PostRequest)
	r.Get("/requests/{request_id}", requestH.GetRequest)
	r.Delete("/requests/{request_id}", requestH.CancelRequest)
	r.Get("/requests/{request_id}/candidates", requestH.ListCandidates)

	// Match lifecycle routes.
	r.Post("/matches", matchH.Propose)
	r.Get("/matches/{match_id}", matchH.GetMatch)
	r.Post("/matches/{match_id}/accept", matchH.Accept)
	r.Post("/matches/{match_id}/decline", matchH.Decline)
	r.Post("/matches/{match_id}/complete", matchH.Complete)
	r.Post("/matches/{match_id}/cancel", matchH.Cancel)
	r.Post("/matches/{match_id}/no-show", matchH.ReportNoShow)

	// Owner routes.
	r.Get("/owners/{owner_id}/requests", requestH.ListByOwner)
	r.Get("/owners/{owner_id}/matches", matchH.ListByParticipant)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

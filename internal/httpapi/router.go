// Package httpapi exposes the chat bot over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"fjacquet/finchat/internal/chatbot"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/persistence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Bot is the message dispatcher.
type Bot interface {
	Handle(ctx context.Context, msg chatbot.Message) (chatbot.Response, error)
	Cancel(ctx context.Context, conversationID string) bool
	Lock(conversationID string) func()
}

// Snapshots serializes and restores pending flows.
type Snapshots interface {
	Serialize(conversationID string) (persistence.Snapshot, bool, error)
	Hydrate(ctx context.Context, conversationID string, payload []byte) error
	Checkpoint(ctx context.Context, conversationID string) error
}

// NewRouter builds the routes of the API.
func NewRouter(bot Bot, snapshots Snapshots, logger logging.Logger) *chi.Mux {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	h := &handlers{bot: bot, snapshots: snapshots, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.postMessage)
		r.Get("/conversations/{conversation_id}", h.getConversation)
		r.Put("/conversations/{conversation_id}", h.putConversation)
		r.Delete("/conversations/{conversation_id}", h.deleteConversation)
	})

	return r
}

// requestLogger logs every request once it has been served.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("Request served",
				logging.F(logging.FieldMethod, r.Method),
				logging.F(logging.FieldPath, r.URL.Path),
				logging.F(logging.FieldStatus, ww.Status()),
				logging.F(logging.FieldDuration, time.Since(start).Milliseconds()),
				logging.F("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

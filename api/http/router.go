package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter registers all REST and websocket routes.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Symbol and book admin.
	r.Post("/symbols", s.createSymbol)
	r.Get("/symbols", s.listSymbols)
	r.Delete("/symbols/{symbol_id}", s.deleteSymbol)
	r.Post("/symbols/{symbol_id}/book", s.createBook)
	r.Delete("/symbols/{symbol_id}/book", s.deleteBook)

	// Orders.
	r.Post("/orders", s.placeOrder)
	r.Delete("/orders/{order_id}", s.cancelOrder)
	r.Post("/orders/{order_id}/reduce", s.reduceOrder)
	r.Post("/orders/{order_id}/modify", s.modifyOrder)
	r.Post("/orders/{order_id}/replace", s.replaceOrder)
	r.Get("/symbols/{symbol_id}/orders/{order_id}", s.getOrder)

	// Market data.
	r.Get("/symbols/{symbol_id}/depth", s.getDepth)

	if s.feed != nil {
		r.Get("/ws/trades", s.feed.streamTrades)
		r.Get("/ws/book", s.feed.streamLevels)
	}

	return r
}

func requestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}

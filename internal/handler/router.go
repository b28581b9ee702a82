package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"edb-forensics/internal/middleware"
)

// NewRouter はルーターを生成する。tracingEnabled ならotelhttpで包む。
func NewRouter(h *DecryptHandler, tracingEnabled bool) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	// ルート定義
	r.Route("/v1", func(r chi.Router) {
		r.Get("/progress", h.GetProgress)
		r.Post("/decrypt", h.Decrypt)
		r.Post("/discover", h.Discover)
		r.Get("/artifacts", h.ListArtifacts)
	})

	if !tracingEnabled {
		return r
	}
	return otelhttp.NewHandler(r, "edb-forensics")
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	consultHandler "github.com/zhouzirui/consultant/internal/handler/consult"
	modeHandler "github.com/zhouzirui/consultant/internal/handler/mode"
	sessionHandler "github.com/zhouzirui/consultant/internal/handler/session"
	"github.com/zhouzirui/consultant/internal/handler/stream"
	"github.com/zhouzirui/consultant/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/consultant/internal/middleware"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/consult"
)

// NewRouter wires HTTP routes to the consultation engine.
func NewRouter(engine *consult.Engine, templates mode.Registry, exportDir string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(api chi.Router) {
		modeHandler.New(templates).RegisterRoutes(api)
		sessionHandler.New(engine, exportDir, logger).RegisterRoutes(api)
		consultHandler.New(engine, logger).RegisterRoutes(api)
		stream.New(engine, logger).RegisterRoutes(api)
		ws.New(engine, logger).RegisterRoutes(api)
	})

	return r
}

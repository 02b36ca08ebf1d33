package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"todobot/internal/auth"
	"todobot/internal/config"
	"todobot/internal/http/handler"
	mw "todobot/internal/http/middleware"
)

type Deps struct {
	DB     *gorm.DB
	JWT    *auth.JWT
	Log    handler.Conversation
	Bot    handler.Bot
	Logger *zap.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.AccessLog(d.Logger))
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT, Logger: d.Logger}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	ch := &handler.ChatHandler{Log: d.Log, Bot: d.Bot, Logger: d.Logger}

	r.Route("/chat", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))
		r.Use(mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		r.Post("/messages", ch.PostMessage)
		r.Get("/messages", ch.Messages)
		r.Post("/messages/{id}/press", ch.Press)

		r.Get("/memos", ch.Memos)
	})

	return r
}

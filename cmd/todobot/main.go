package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"todobot/internal/auth"
	"todobot/internal/bot"
	"todobot/internal/chat"
	"todobot/internal/config"
	"todobot/internal/db"
	httpx "todobot/internal/http"
	"todobot/internal/jobs"
	"todobot/internal/logger"
	"todobot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("connect database", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := &chat.Repo{DB: gdb}
	handlers := &jobs.Handlers{}

	var sched bot.Scheduler
	switch cfg.Scheduler {
	case config.SchedulerTimer:
		timers := jobs.NewTimers(handlers, lg.Named("timers"))
		defer timers.Close()
		sched = timers
	default:
		jobsRepo := &jobs.Repo{DB: gdb}
		worker := &jobs.Worker{
			ID:       cfg.WorkerID,
			Queue:    jobsRepo,
			Handlers: handlers,
			Poll:     cfg.WorkerPoll,
			Logger:   lg.Named("worker"),
		}
		go worker.Run(ctx)
		sched = jobsRepo
	}

	svc := bot.New(&store.Chats{DB: gdb}, sched, messages, lg.Named("bot"))
	svc.Register(handlers)

	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:     gdb,
		JWT:    auth.NewJWT(cfg.JWTSecret),
		Log:    messages,
		Bot:    svc,
		Logger: lg.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("scheduler", cfg.Scheduler))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("serve", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

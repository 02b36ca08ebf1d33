package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	SchedulerQueue = "queue" // Postgres jobs table, survives restarts
	SchedulerTimer = "timer" // in-process timers
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	RateLimitRPS   float64
	RateLimitBurst int

	Scheduler  string
	WorkerID   string
	WorkerPoll time.Duration

	LogLevel string
	LogJSON  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		Scheduler:            strings.ToLower(getenv("SCHEDULER", SchedulerQueue)),
		WorkerID:             getenv("WORKER_ID", "worker-"+uuid.NewString()[:8]),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogJSON:              getenv("LOG_JSON", "false") == "true",
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.DatabaseURL, err = mustGetenv("DATABASE_URL"); err != nil {
		return cfg, err
	}
	if cfg.JWTSecret, err = mustGetenv("JWT_SECRET"); err != nil {
		return cfg, err
	}

	if cfg.WorkerPoll, err = time.ParseDuration(getenv("WORKER_POLL", "800ms")); err != nil {
		return cfg, fmt.Errorf("invalid WORKER_POLL: %w", err)
	}
	if cfg.WorkerPoll <= 0 {
		return cfg, fmt.Errorf("invalid WORKER_POLL: must be positive")
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(getenv("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getenv("RATE_LIMIT_BURST", "10")); err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	switch cfg.Scheduler {
	case SchedulerQueue, SchedulerTimer:
	default:
		return cfg, fmt.Errorf("invalid SCHEDULER %q (want %q or %q)", cfg.Scheduler, SchedulerQueue, SchedulerTimer)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("missing env: %s", key)
	}
	return v, nil
}

package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/school-broadcast/internal/api"
	"github.com/LeventeLantos/school-broadcast/internal/cache"
	"github.com/LeventeLantos/school-broadcast/internal/config"
	"github.com/LeventeLantos/school-broadcast/internal/credential"
	"github.com/LeventeLantos/school-broadcast/internal/gateway"
	"github.com/LeventeLantos/school-broadcast/internal/job"
	"github.com/LeventeLantos/school-broadcast/internal/scheduler"
	"github.com/LeventeLantos/school-broadcast/internal/store"
)

// schedulerActor is the audit identity for batches advanced by the hosted
// polling loop rather than an admin request.
const schedulerActor = 0

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAll()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		logger.Error("postgres open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	broadcasts := store.NewPostgresBroadcastStore(db)
	logs := store.NewPostgresDeliveryLog(db)
	credStore := store.NewPostgresCredentialStore(db)

	client := gateway.NewClient(cfg.Gateway.Endpoint, gateway.Credentials{
		Username:  cfg.Gateway.Username,
		Password:  cfg.Gateway.Password,
		Shortcode: cfg.Gateway.Shortcode,
		SenderID:  cfg.Gateway.SenderID,
		APIKey:    cfg.Gateway.APIKey,
	}, cfg.Gateway.SendsPerSec, logger)

	var progressCache job.ProgressCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		progressCache = cache.NewRedisProgressCache(rdb, cfg.Redis.TTL)
	}

	opts := job.Options{
		BatchSize:   cfg.Broadcast.BatchSize,
		CountryCode: cfg.Gateway.CountryCode,
		CostPerSMS:  cfg.Broadcast.CostPerSMS,
		StallAfter:  cfg.Broadcast.StallAfter,
	}

	ctrl := job.NewController(broadcasts, logs, client, job.AllowAll{}, progressCache, opts, logger)

	issuer := credential.NewIssuer(credStore, cfg.Credential.Domain)
	creds := credential.NewService(issuer, credStore, logs, client, cfg.Gateway.CountryCode, logger)

	sched, err := scheduler.New(cfg.Scheduler.Interval, ctrl, schedulerActor)
	if err != nil {
		logger.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(sched, ctrl, creds)

	logger.Info("school-broadcast starting",
		"addr", cfg.Server.Address,
		"batch_size", cfg.Broadcast.BatchSize,
		"interval", cfg.Scheduler.Interval.String(),
		"redis", cfg.Redis.Enabled,
	)

	if err := http.ListenAndServe(cfg.Server.Address, loggingMiddleware(api.Router(handler))); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

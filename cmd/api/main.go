package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelvoice/internal/assistants"
	"hotelvoice/internal/audit"
	"hotelvoice/internal/auth"
	"hotelvoice/internal/config"
	"hotelvoice/internal/knowledge"
	"hotelvoice/internal/numbers"
	"hotelvoice/internal/pipeline"
	"hotelvoice/internal/providers"
	"hotelvoice/internal/session"
	"hotelvoice/internal/telephony"
	"hotelvoice/internal/tools"
	"hotelvoice/pkg/logger"
	"hotelvoice/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Persistence
	numberRepo := numbers.NewPostgresRepo(db)
	assistantRepo := assistants.NewPostgresRepo(db)
	toolRepo := tools.NewPostgresRepo(db)
	knowledgeRepo := knowledge.NewPostgresRepo(db)
	audits := audit.NewService(audit.NewMemoryRepo())

	// Call engine
	resolver := numbers.NewResolver(numberRepo, assistantRepo)
	registry := providers.NewRegistry(cfg.Providers, log)
	dispatcher := tools.NewDispatcher(toolRepo, log)
	injector := knowledge.NewInjector(knowledgeRepo)
	control := telephony.NewTwilioControl(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	assembler := pipeline.NewAssembler(registry, dispatcher, injector, control, log)
	sessions := session.NewRegistry()

	var slots telephony.SlotLimiter = telephony.UnlimitedSlots{}
	if cfg.Calls.MaxConcurrentPerHotel > 0 {
		// Slot TTL outlives the longest possible call so crashed workers
		// cannot pin a hotel at its cap forever.
		slots = telephony.NewRedisSlots(rdb, cfg.Calls.MaxConcurrentPerHotel, cfg.Calls.MaxDuration+time.Minute, log)
	}

	bridge := telephony.NewBridge(
		resolver, assembler, sessions, slots, audits,
		cfg.Calls.StartEventTimeout, cfg.Calls.MaxDuration, log,
	)
	webhook := telephony.NewWebhookHandler(resolver, slots, cfg.StreamURL, log)
	operator := telephony.NewOperatorHandler(sessions, control, audits)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		authMW:   auth.RequireAccessToken(authManager),
		webhook:  webhook,
		bridge:   bridge,
		operator: operator,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Live media streams are not covered by srv.Shutdown; drop them so
	// their pipelines release provider connections.
	for _, s := range sessions.Active("") {
		sessions.Close(s.StreamSID)
	}
}

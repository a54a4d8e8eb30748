package main

import (
	"context"
	"net/http"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/config"
	"spinhub/internal/logging"
	"spinhub/internal/pool"
	"spinhub/internal/ratelimit"
	"spinhub/internal/session"
	"spinhub/internal/spin"
	"spinhub/internal/store"
	"spinhub/internal/wallet"
	"spinhub/internal/webhook"

	"github.com/rs/zerolog/log"
)

// app bundles the wired components the handlers work against. The
// narrow interfaces keep handler tests off the database.
type app struct {
	cfg       config.ServerConfig
	sub       cache.Cache
	directory directory
	sessions  *session.Manager
	pools     *pool.Manager
	poolLog   poolLogReader
	engine    *spin.Engine
	wallets   spin.WalletResolver
	limiter   *ratelimit.Limiter
	ping      func(context.Context) error
}

type poolLogReader interface {
	ListPoolTransactions(ctx context.Context, poolID string, f store.PoolTransactionFilter) ([]store.PoolTransaction, int, error)
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.Bootstrap(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	var sub cache.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis init failed")
		}
		sub = rc
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis substrate")
	} else {
		sub = cache.NewMemory()
		log.Info().Msg("using in-memory substrate")
	}

	seedAgent(st, cfg.SeedAgentName, cfg.SeedAgentKey)

	client := webhook.NewClient(webhook.RetryPolicy{
		Timeout:    cfg.WebhookTimeout,
		MaxRetries: cfg.WebhookRetries,
		Backoff:    cfg.WebhookBackoff,
	})
	wallets := wallet.NewSelector(st, client)
	// One locker for everything touching an agent's pool: spins hold
	// it across the settlement, admin mutations take it per call.
	locker := cache.NewLocker(sub, cfg.LockTTL, cfg.LockWait)
	pools := pool.NewManager(st, locker)
	sessions := session.NewManager(st, sub, cfg.SessionTTL)
	engine := spin.NewEngine(
		st,
		pools,
		wallets,
		locker,
		cache.NewResults(sub, cfg.IdempotencyTTL),
		spin.NewSlotGenerator(time.Now().UnixNano()),
		spin.NewTracker(sub, cfg.FreeSpinTTL),
	)

	rec := spin.NewReconciler(st, wallets, cfg.ReconcileInterval)
	go rec.Run(context.Background())

	a := &app{
		cfg:       cfg,
		sub:       sub,
		directory: st,
		sessions:  sessions,
		pools:     pools,
		poolLog:   st,
		engine:    engine,
		wallets:   wallets,
		limiter:   ratelimit.New(sub, cfg.RateLimitMax, cfg.RateLimitWindow),
		ping:      st.Ping,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(httpServer.ListenAndServe()).Msg("server stopped")
}

func seedAgent(st *store.Store, name, key string) {
	if name == "" || key == "" {
		return
	}
	ctx := context.Background()
	if _, err := st.GetAgentByAPIKey(ctx, key); err == nil {
		return
	}
	id, err := st.CreateAgent(ctx, name, key, true, nil)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("seed agent failed")
		return
	}
	log.Info().Str("agent_id", id).Str("name", name).Msg("seed agent created")
}

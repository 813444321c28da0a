package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	go_redis "github.com/redis/go-redis/v9"

	_ "tera-rewards-backend/docs"
	rcache "tera-rewards-backend/internal/cache/redis"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/middleware"
	"tera-rewards-backend/internal/config"
	apphttp "tera-rewards-backend/internal/http"
	"tera-rewards-backend/internal/platform/db"
	redisp "tera-rewards-backend/internal/platform/redis"
	"tera-rewards-backend/internal/repository/memory"
	pgrepo "tera-rewards-backend/internal/repository/postgres"
	"tera-rewards-backend/internal/scheduler"
	"tera-rewards-backend/internal/service/events"
	"tera-rewards-backend/internal/service/notifications"
	"tera-rewards-backend/internal/service/rewards"
	"tera-rewards-backend/internal/workers"
)

// @title           TERA Rewards API
// @version         1.0
// @description     Balances, mining, deposits, withdrawals, swaps and referrals for the TERA Telegram Mini App.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init-data string

// @tag.name accounts
// @tag.description Account registration, history and referrals

// @tag.name mining
// @tag.description Mining sessions

// @tag.name requests
// @tag.description Deposit and withdrawal submission

// @tag.name swaps
// @tag.description TON/TERA exchange

// @tag.name admin
// @tag.description Operator moderation, adjustments and statistics

func main() {
	cfg := config.MustLoad()
	logger.Init("tera-rewards-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := cfg.Rewards
	var (
		store rewards.Store
		pg    *sql.DB
	)
	switch cfg.Storage {
	case "postgres":
		var err error
		pg, err = db.Open(ctx, cfg.Postgres.DSN, db.Options{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pg.Close()
		logger.Info().Msg("Database connection established")

		if cfg.Postgres.AutoMigrate {
			if err := pgrepo.Migrate(ctx, pg); err != nil {
				logger.Fatal().Err(err).Msg("Failed to migrate database")
			}
			logger.Info().Msg("Database schema applied")
		}

		overrides, err := pgrepo.NewSettingsRepository(pg).All(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load settings")
		}
		if settings, err = settings.ApplyOverrides(overrides); err != nil {
			logger.Fatal().Err(err).Msg("Invalid settings")
		}
		store = rewards.Store{
			Tx:          pgrepo.NewTxManager(pg),
			Accounts:    pgrepo.NewAccountRepository(pg),
			Sessions:    pgrepo.NewMiningRepository(pg),
			Deposits:    pgrepo.NewDepositRepository(pg),
			Withdrawals: pgrepo.NewWithdrawalRepository(pg),
			Swaps:       pgrepo.NewSwapRepository(pg),
			Referrals:   pgrepo.NewReferralRepository(pg),
			Ledger:      pgrepo.NewLedgerRepository(pg),
		}
	case "memory":
		logger.Warn().Msg("Using in-memory storage; state is lost on restart")
		mem := memory.NewStore()
		store = rewards.Store{
			Tx:          mem,
			Accounts:    mem.Accounts(),
			Sessions:    mem.Mining(),
			Deposits:    mem.Deposits(),
			Withdrawals: mem.Withdrawals(),
			Swaps:       mem.Swaps(),
			Referrals:   mem.Referrals(),
			Ledger:      mem.Ledger(),
		}
	}

	opts := rewards.Options{Events: events.Nop{}}
	var rdb go_redis.Cmdable
	if cfg.Redis.Addr != "" {
		client, err := redisp.Open(ctx, redisp.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			ReadTimeout: 10 * time.Second,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()
		rdb = client
		opts.Events = events.NewRedisPublisher(client)
		opts.StatsCache = rcache.NewStatsCache(client, cfg.Workers.StatsCacheTTL)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	}

	if cfg.Telegram.NotifyAdmins && cfg.Telegram.BotToken != "" && len(cfg.Telegram.AdminIDs) > 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("Admin notifications disabled")
		} else {
			opts.Events = notifications.NewAdminNotifier(opts.Events, bot, cfg.Telegram.AdminIDs)
			logger.Info().Str("bot", bot.Self.UserName).Int("admins", len(cfg.Telegram.AdminIDs)).Msg("Admin notifications enabled")
		}
	}

	api := rewards.New(store, settings, opts)

	if rdb != nil && cfg.Workers.CommandsEnabled {
		worker := workers.NewRedisStreamWorker(rdb, workers.APICommands(api), cfg.Workers.ConsumerName)
		go worker.Start(ctx)
	}

	sweep := scheduler.NewMiningSweep(api, cfg.Workers.MiningSweepSpec, cfg.Workers.MiningMaxSession)
	if err := sweep.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start mining sweep")
	}
	defer sweep.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := apphttp.NewRouter(apphttp.Deps{
		API:      api,
		Auth:     middleware.InitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL),
		IsAdmin:  cfg.IsAdmin,
		Origins:  cfg.Server.Origins,
		Ready:    readiness(pg, rdb),
		Cache:    rdb,
		CacheTTL: 2 * time.Second,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("storage", cfg.Storage).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}

func readiness(pg *sql.DB, rdb go_redis.Cmdable) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if pg != nil {
			if err := pg.PingContext(ctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}

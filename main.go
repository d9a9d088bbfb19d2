package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-sniper-bot/config"
	"solana-sniper-bot/internal/api"
	"solana-sniper-bot/internal/auth"
	"solana-sniper-bot/internal/bot"
	"solana-sniper-bot/internal/circuit"
	"solana-sniper-bot/internal/database"
	"solana-sniper-bot/internal/executor"
	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/notification"
	"solana-sniper-bot/internal/positions"
	"solana-sniper-bot/internal/predictor"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/safety"
	"solana-sniper-bot/internal/scoring"
	"solana-sniper-bot/internal/thresholds"
	"solana-sniper-bot/internal/vault"
)

func main() {
	generateConfig := flag.Bool("generate-config", false, "write a sample config.json and exit")
	flag.Parse()

	if *generateConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			os.Stderr.WriteString("failed to write sample config: " + err.Error() + "\n")
			os.Exit(1)
		}
		os.Stdout.WriteString("wrote config.json\n")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logging.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err.Error())
	}

	logger.Info("Starting Solana sniper bot",
		"dry_run", cfg.TradingConfig.DryRun,
		"capital_sol", cfg.TradingConfig.CapitalSOL,
		"max_open_positions", cfg.TradingConfig.MaxOpenPositions)

	// Notifications
	notifications := notification.NewManager(cfg.NotificationConfig.Enabled)
	if cfg.NotificationConfig.Telegram.Enabled {
		notifications.AddNotifier(notification.NewTelegramNotifier(
			cfg.NotificationConfig.Telegram.BotToken,
			cfg.NotificationConfig.Telegram.ChatID,
			true,
		))
	}
	if cfg.NotificationConfig.Discord.Enabled {
		notifications.AddNotifier(notification.NewDiscordNotifier(
			cfg.NotificationConfig.Discord.WebhookURL,
			true,
		))
	}

	// Market data: the websocket discovery feed plus the HTTP metrics API
	flow := market.NewFlowTracker(time.Duration(cfg.FeedConfig.FlowWindowSecs) * time.Second)
	feed := market.NewPumpFeed(
		cfg.FeedConfig.WebsocketURL,
		flow,
		time.Duration(cfg.FeedConfig.PriceMaxStaleSecs)*time.Second,
	)
	dataClient := market.NewDataClient(
		cfg.MarketDataConfig.BaseURL,
		time.Duration(cfg.MarketDataConfig.TimeoutSecs)*time.Second,
	)
	prices := market.NewLayeredPriceProvider(feed, dataClient)

	// Safety analysis with a shared cache in front of the HTTP checker
	httpChecker := safety.NewHTTPChecker(
		cfg.MarketDataConfig.BaseURL,
		time.Duration(cfg.MarketDataConfig.TimeoutSecs)*time.Second,
	)
	cachedChecker := safety.NewCachedChecker(
		httpChecker, httpChecker,
		time.Duration(cfg.MarketDataConfig.SafetyCacheTTL)*time.Second,
	)

	// Learned thresholds and the optimizer that adjusts them
	store := thresholds.NewStore(thresholds.DefaultThresholdSet())
	optimizerConfig := thresholds.DefaultOptimizerConfig()
	optimizerConfig.MinSampleSize = cfg.OptimizerConfig.MinSampleSize
	optimizerConfig.TargetWinRate = cfg.OptimizerConfig.TargetWinRate
	optimizerConfig.MaxChangePercent = cfg.OptimizerConfig.MaxChangePercent
	optimizer := thresholds.NewOptimizer(optimizerConfig, store, logger)

	kols := router.NewKOLRegistry(time.Duration(cfg.RouterConfig.KOLEndorsementTTLMinutes) * time.Minute)

	// Persistence: Postgres for history, Redis for crash recovery
	var db *database.DB
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			logger.Fatal("Database connection failed", "error", err.Error())
		}
		if err := db.RunMigrations(context.Background()); err != nil {
			logger.Fatal("Database migrations failed", "error", err.Error())
		}
		repo = database.NewRepository(db)
		logger.Info("Database connected", "host", cfg.DatabaseConfig.Host, "database", cfg.DatabaseConfig.Database)
	}

	var redisStore *database.RedisPositionStore
	stateStores := []positions.StateStore{}
	if cfg.RedisConfig.Enabled {
		redisStore = database.NewRedisPositionStore(
			cfg.RedisConfig.Address, cfg.RedisConfig.Password, cfg.RedisConfig.DB,
		)
		stateStores = append(stateStores, redisStore)
	}
	if repo != nil {
		stateStores = append(stateStores, database.NewPostgresPositionStore(repo))
	}
	var stateStore positions.StateStore
	if len(stateStores) > 0 {
		stateStore = positions.NewFanoutStateStore(stateStores...)
	}

	// Execution: simulated fills in dry-run, venue HTTP APIs with the vault
	// signing key otherwise
	var exec executor.Executor
	if cfg.TradingConfig.DryRun {
		exec = executor.NewDryRunExecutor(prices, logger)
		logger.Info("Dry-run mode: fills are simulated")
	} else {
		wallet, err := vault.NewClient(vault.Config{
			Enabled:    cfg.VaultConfig.Enabled,
			Address:    cfg.VaultConfig.Address,
			Token:      cfg.VaultConfig.Token,
			MountPath:  cfg.VaultConfig.MountPath,
			SecretPath: cfg.VaultConfig.SecretPath,
		})
		if err != nil {
			logger.Fatal("Vault client failed", "error", err.Error())
		}
		venueTimeout := 30 * time.Second
		primary := executor.NewVenueExecutor("primary", cfg.TradingConfig.PrimaryVenueURL, wallet, venueTimeout, logger)
		if cfg.TradingConfig.SecondaryVenueURL != "" {
			secondary := executor.NewVenueExecutor("secondary", cfg.TradingConfig.SecondaryVenueURL, wallet, venueTimeout, logger)
			exec = executor.NewFallbackExecutor(primary, secondary, logger)
		} else {
			exec = primary
		}
	}

	events, err := positions.NewFileEventLogger(cfg.TradingConfig.EventLogPath)
	if err != nil {
		logger.Fatal("Event log unavailable", "path", cfg.TradingConfig.EventLogPath, "error", err.Error())
	}

	manager := positions.NewManager(
		prices, flow, exec, nil,
		stateStore, nil, notification.NewPositionNotifier(notifications),
		events, logger,
	)

	routerConfig := router.DefaultConfig()
	routerConfig.ProvenRunnerMinAgeMinutes = cfg.RouterConfig.ProvenRunnerMinAgeMinutes
	routerConfig.EarlyQualityMaxAgeMinutes = cfg.RouterConfig.EarlyQualityMaxAgeMinutes
	routerConfig.DataCollectionMode = cfg.RouterConfig.DataCollectionMode
	routerConfig.MaxWarnings = cfg.RouterConfig.MaxWarnings

	composer, err := scoring.NewComposer(nil)
	if err != nil {
		logger.Fatal("Score composer failed", "error", err.Error())
	}

	signalRouter := router.NewRouter(
		routerConfig,
		composer,
		scoring.NewMomentumScorer(flow),
		scoring.NewMarketStructureScorer(),
		cachedChecker, cachedChecker,
		predictor.NewHeuristicPredictor(),
		store, kols, manager, router.NewSizer(nil), logger,
	)

	breakerConfig := &circuit.BreakerConfig{
		Enabled:              cfg.CircuitConfig.Enabled,
		MaxHourlyLossSOL:     cfg.CircuitConfig.MaxHourlyLossSOL,
		MaxDailyLossSOL:      cfg.CircuitConfig.MaxDailyLossSOL,
		MaxConsecutiveLosses: cfg.CircuitConfig.MaxConsecutiveLosses,
		CooldownMinutes:      cfg.CircuitConfig.CooldownMinutes,
		MaxEntriesPerMinute:  cfg.CircuitConfig.MaxEntriesPerMinute,
		MaxDailyEntries:      cfg.CircuitConfig.MaxDailyEntries,
	}
	breaker := circuit.NewBreaker(breakerConfig)

	sniper := bot.NewSniperBot(cfg, feed, dataClient, signalRouter, manager,
		breaker, optimizer, store, kols, repo, notifications, logger)

	// Completed positions feed the breaker and the optimizer through the bot
	manager.SetOutcomeSink(sniper)

	if redisStore != nil {
		recoverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sniper.RecoverPositions(recoverCtx, redisStore)
		cancel()
	}

	// Operator API
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		var authService *auth.Service
		var jwtManager *auth.JWTManager
		if cfg.AuthConfig.Enabled {
			jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
			authService = auth.NewService(jwtManager, cfg.AuthConfig.OperatorUsername, cfg.AuthConfig.OperatorPasswordHash)
		}
		server = api.NewServer(api.ServerConfig{
			Host:           cfg.ServerConfig.Host,
			Port:           cfg.ServerConfig.Port,
			AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
			ProductionMode: !cfg.TradingConfig.DryRun,
		}, sniper, authService, jwtManager)

		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("API server failed", "error", err.Error())
			}
		}()
		logger.Info("API server listening", "host", cfg.ServerConfig.Host, "port", cfg.ServerConfig.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sniper.Start(ctx); err != nil {
		logger.Fatal("Bot start failed", "error", err.Error())
	}
	notifications.SendSystem("Startup", "Sniper bot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err.Error())
		}
	}

	cancel()
	sniper.Stop()
	events.Close()

	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("Redis close error", "error", err.Error())
		}
	}
	if db != nil {
		db.Close()
	}

	logger.Info("Shutdown complete")
}

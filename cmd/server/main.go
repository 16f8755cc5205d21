package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/southwestptfs/flightdeck/internal/airport"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/config"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/handler"
	"github.com/southwestptfs/flightdeck/internal/identity"
	"github.com/southwestptfs/flightdeck/internal/logger"
	"github.com/southwestptfs/flightdeck/internal/middleware"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/queue"
	"github.com/southwestptfs/flightdeck/internal/repository"
	"github.com/southwestptfs/flightdeck/internal/router"
	"github.com/southwestptfs/flightdeck/internal/service"
	"github.com/southwestptfs/flightdeck/internal/ttlstore"
	"github.com/southwestptfs/flightdeck/internal/utils"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply the schema and exit")
	pflag.Parse()

	// A missing .env is fine; the environment may be set by the platform.
	_ = godotenv.Load(*envFile)

	cfg := config.Load() // Load environment config
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		Path:   cfg.SQLitePath,
	})
	if err != nil {
		log.Error("database open failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *migrateOnly {
		log.Info("schema applied", slog.String("driver", cfg.DBDriver))
		return
	}

	clk := clock.Real()
	airports := airport.Default()

	flights := repository.NewFlightRepo(db, log)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	bans := repository.NewBannedRepo(db)

	if err := bootstrapBot(ctx, cfg, users, clk); err != nil {
		log.Error("bot token bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	relayCfg := config.LoadRelayConfig()
	relay, closeRelay := startRelay(ctx, relayCfg, airports, clk, log)
	defer closeRelay()

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limit and response cache disabled, login state kept in memory")
	} else {
		defer rdb.Close()
	}
	states := newStateStore(rdb, clk)

	artifacts := boardingpass.NewFSStore(cfg.ArtifactDir)
	passes := &service.PassService{
		Flights:   flights,
		Bookings:  bookings,
		Artifacts: artifacts,
		Renderer:  boardingpass.NewRenderer(cfg.FontDir),
		Airports:  airports,
		Log:       log,
	}
	flightSvc := &service.FlightService{
		DB: db, Flights: flights, Bookings: bookings, Artifacts: artifacts,
		Relay: relay, Clock: clk, Log: log,
	}
	bookingSvc := &service.BookingService{
		DB: db, Flights: flights, Bookings: bookings, Codes: repository.DefaultCodes,
		Artifacts: artifacts, Relay: relay, Clock: clk, Log: log,
	}
	checkinSvc := &service.CheckinService{
		DB: db, Flights: flights, Bookings: bookings, Users: users, Passes: passes,
		Layout: boarding.DefaultLayout, Relay: relay, Clock: clk, Log: log,
		SkipWindow: cfg.CheckinSkipWindow,
	}
	if cfg.CheckinSkipWindow {
		log.Warn("CHECKIN_SKIP_WINDOW is set: check-in opens regardless of departure time")
	}
	upgradeSvc := &service.UpgradeService{Users: users, Price: cfg.EarlyBirdPrice, Log: log}

	sweeper := &service.Sweeper{
		Flights:  flightSvc,
		Interval: cfg.CleanupInterval,
		Grace:    cfg.CleanupGrace,
		Clock:    clk,
		Log:      log,
	}
	go sweeper.Run(ctx)

	discord := identity.NewDiscord(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI)
	if !discord.Configured() {
		log.Warn("discord oauth not configured; login will fail")
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, "If-None-Match"},
			ExposeHeaders: []string{"ETag", "X-Boarding-Position"},
		}))
	}

	authn := (&middleware.Authenticator{Secret: cfg.JWTSecret, Users: users, Bans: bans, Log: log}).Authenticate()
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	flightH := handler.NewFlightHandler(flightSvc, log)
	bookingH := handler.NewBookingHandler(bookingSvc, log)
	checkinH := handler.NewCheckinHandler(checkinSvc, passes, bookings, log)
	upgradeH := handler.NewUpgradeHandler(upgradeSvc, log)
	botH := handler.NewBotHandler(bans, users, log)
	authH := &handler.AuthHandler{
		Provider:     discord,
		States:       states,
		Users:        users,
		Bans:         bans,
		Clock:        clk,
		Log:          log,
		Secret:       cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
		BcryptCost:   cfg.BcryptCost,
		BaseRedirect: cfg.BaseRedirect,
	}

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, authH, authn)
	router.RegisterFlights(e, flightH, authn, cache)
	router.RegisterPassenger(e, bookingH, checkinH, upgradeH, authn, limit)
	router.RegisterStaff(e, flightH, bookingH, checkinH, botH, authn)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// startRelay builds the notification relay for the configured broker and
// starts its dispatch loop and, when enabled, the broker consumer. The
// returned func releases broker resources.
func startRelay(ctx context.Context, cfg config.RelayConfig, airports *airport.Table, clk clock.Clock, log *slog.Logger) (service.Relay, func()) {
	srs := queue.NewSRSClient(cfg.SRSURL, cfg.SRSPassword, cfg.Timeout, log)
	backoff := queue.Backoff{Attempts: cfg.MaxAttempts, Base: cfg.BaseBackoff, Max: 30 * time.Second}
	consumer := &queue.Consumer{Deliverer: srs, Backoff: backoff, Log: log}

	var pub queue.Publisher
	switch cfg.Broker {
	case "amqp":
		pub = &queue.AMQPPublisher{URL: cfg.RabbitMQURL, Queue: cfg.Queue, Log: log}
		if cfg.Consumer {
			go consumer.RunAMQP(ctx, cfg.RabbitMQURL, cfg.Queue)
		}
	case "nats":
		nc, err := queue.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			log.Error("nats connect failed; relay disabled", slog.String("error", err.Error()))
			return service.NopRelay{}, func() {}
		}
		pub = &queue.NATSPublisher{Conn: nc, Subject: cfg.Queue}
		if cfg.Consumer {
			go func() {
				if err := consumer.RunNATS(ctx, nc, cfg.Queue, "flightdeck-relay"); err != nil {
					log.Error("nats consumer failed", slog.String("error", err.Error()))
				}
			}()
		}
	default:
		if cfg.SRSURL == "" {
			log.Info("relay disabled")
			return service.NopRelay{}, func() {}
		}
		pub = &queue.DirectPublisher{Deliverer: srs, Backoff: backoff}
	}

	n := service.NewNotifier(pub, airports, clk, log, cfg.Timeout, cfg.Buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.Run(ctx)
	}()
	log.Info("relay started", slog.String("broker", cfg.Broker), slog.String("queue", cfg.Queue))
	return n, func() {
		<-done
		if err := pub.Close(); err != nil {
			log.Warn("relay close failed", slog.String("error", err.Error()))
		}
	}
}

func newStateStore(rdb *redis.Client, clk clock.Clock) ttlstore.Store {
	if rdb == nil {
		return ttlstore.NewMemory(clk)
	}
	return ttlstore.NewRedis(rdb, "flightdeck")
}

// bootstrapBot installs BOT_API_TOKEN as the bot user's API token so the
// Discord bot can call the API without a login round trip.
func bootstrapBot(ctx context.Context, cfg config.Config, users *repository.UserRepo, clk clock.Clock) error {
	if cfg.BotAPIToken == "" {
		return nil
	}
	userID, secret, ok := utils.SplitAPIToken(cfg.BotAPIToken)
	if !ok || userID != cfg.BotUserID {
		return errors.New("BOT_API_TOKEN must have the form <BOT_USER_ID>.<secret>")
	}
	if err := users.Upsert(ctx, model.User{ID: userID, Username: "flightdeck-bot"}, clk.Now()); err != nil {
		return err
	}
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := users.SetRoles(ctx, userID, u.IsAdmin, true, u.IsStaff, u.IsFlightStaff); err != nil {
		return err
	}
	hash, err := utils.HashSecret(secret, cfg.BcryptCost)
	if err != nil {
		return err
	}
	return users.SetAPITokenHash(ctx, userID, hash)
}

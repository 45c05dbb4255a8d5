package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/rafflywin-backend/api/routes"
	"github.com/ArowuTest/rafflywin-backend/internal/config"
	"github.com/ArowuTest/rafflywin-backend/internal/handlers"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/rafflywin-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/rafflywin-backend/internal/scheduler"
	"github.com/ArowuTest/rafflywin-backend/internal/services"
	"github.com/ArowuTest/rafflywin-backend/pkg/broker"
	"github.com/ArowuTest/rafflywin-backend/pkg/jwt"
	mongodb "github.com/ArowuTest/rafflywin-backend/pkg/mongodb"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	indexCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout)
	err = mongorepo.EnsureIndexes(indexCtx, db)
	cancel()
	if err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	var userRepo repositories.UserRepository = mongorepo.NewUserRepository(db)
	var raffleRepo repositories.RaffleRepository = mongorepo.NewRaffleRepository(db)
	var ticketRepo repositories.TicketRepository = mongorepo.NewTicketRepository(db)
	var notificationRepo repositories.NotificationRepository = mongorepo.NewNotificationRepository(db)
	var drawRunRepo repositories.DrawRunRepository = mongorepo.NewDrawRunRepository(db)

	var publisher services.Publisher
	if cfg.Broker.URL != "" {
		b, err := broker.NewBroker(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			// Notifications are still stored; only the fan-out is lost.
			slog.Warn("RabbitMQ unavailable, notification publishing disabled", "error", err)
		} else {
			publisher = b
			defer b.Close()
		}
	}

	hour, minute, loc, err := cfg.Draw.Schedule()
	if err != nil {
		slog.Error("Invalid draw schedule", "error", err, "time", cfg.Draw.Time, "timezone", cfg.Draw.Timezone)
		os.Exit(1)
	}
	schedule := services.DrawSchedule{Hour: hour, Minute: minute, Location: loc}
	rng, err := services.NewNumberSource()
	if err != nil {
		slog.Error("Failed to seed number source", "error", err)
		os.Exit(1)
	}
	clock := services.SystemClock{}
	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.TokenTTL())

	// One lock table so purchases, draws and cancellations of a raffle serialize.
	raffleLocks := services.NewRaffleLocks()

	notificationService := services.NewNotificationService(notificationRepo, publisher, clock)
	authService := services.NewAuthService(userRepo, tokens, clock)
	followService := services.NewFollowService(userRepo)
	raffleService := services.NewRaffleService(raffleRepo, ticketRepo, userRepo, notificationService, services.RafflePolicy{
		MaxPerDay: cfg.Raffles.MaxPerDay,
		MaxActive: cfg.Raffles.MaxActive,
		LeadTime:  cfg.Raffles.LeadTime,
	}, schedule, clock, raffleLocks)
	ticketService := services.NewTicketService(raffleRepo, ticketRepo, notificationService, rng, clock, raffleLocks)
	drawService := services.NewDrawService(raffleRepo, ticketRepo, drawRunRepo, notificationService, rng, clock, raffleLocks)

	drawScheduler, err := scheduler.New(drawService, hour, minute, loc, 10*time.Minute)
	if err != nil {
		slog.Error("Failed to create draw scheduler", "error", err)
		os.Exit(1)
	}
	if cfg.Draw.Enabled {
		drawScheduler.Start()
	}

	router := routes.SetupRouter(routes.HandlerDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService),
		RaffleHandler:       handlers.NewRaffleHandler(raffleService),
		TicketHandler:       handlers.NewTicketHandler(ticketService),
		NotificationHandler: handlers.NewNotificationHandler(notificationService),
		DrawHandler:         handlers.NewDrawHandler(drawScheduler, drawService),
		FollowHandler:       handlers.NewFollowHandler(followService),
		Tokens:              tokens,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	select {
	case <-drawScheduler.Stop().Done():
	case <-ctx.Done():
		slog.Warn("Draw still running at shutdown deadline")
	}

	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if lvl != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

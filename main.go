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

	"campus-cravings/config"
	"campus-cravings/controllers"
	"campus-cravings/database"
	"campus-cravings/routes"
	"campus-cravings/services/maintenance"
	"campus-cravings/services/notify"
	"campus-cravings/services/orders"
	"campus-cravings/services/payment"
	"campus-cravings/services/stock"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type menuBackend interface {
	stock.Store
	orders.MenuReader
	orders.RatingWriter
	controllers.MenuStore
}

// stores groups the persistence backends the services are built on.
type stores struct {
	menu     menuBackend
	orders   orders.OrderStore
	feedback orders.FeedbackStore
	users    controllers.UserStore
	close    func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	hub := notify.NewHub(cfg.AllowedOrigins, logger)
	go hub.Run(ctx)

	var events notify.Publisher = hub
	if cfg.NATSURL != "" {
		relay, err := notify.NewRelay(cfg.NATSURL, cfg.NATSSubject, hub, logger)
		if err != nil {
			return err
		}
		defer relay.Close()
		if err := relay.Start(); err != nil {
			return err
		}
		events = relay
		logger.Info("relaying order events over NATS", "subject", cfg.NATSSubject)
	}

	var gateway payment.Gateway
	var fakeGateway *payment.FakeGateway
	if cfg.PaymentGateway == config.GatewayRazorpay {
		gateway = payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpaySecret, cfg.PaymentCurrency, logger)
	} else {
		logger.Warn("using the fake payment gateway")
		fakeGateway = payment.NewFakeGateway(cfg.PaymentCurrency, cfg.PaymentSecret())
		gateway = fakeGateway
	}

	ledger := stock.NewLedger(st.menu, logger)
	orderService := orders.NewService(st.orders, st.menu, ledger, gateway,
		payment.NewVerifier(cfg.PaymentSecret()), events, logger)
	feedbackService := orders.NewFeedbackService(st.feedback, st.orders, st.menu, logger)

	var locker maintenance.Locker = maintenance.NewLocalLocker()
	if cfg.RedisURL != "" {
		redisLocker, err := maintenance.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisLocker.Close()
		locker = redisLocker
	}
	scheduler, err := maintenance.New(ledger, orderService, locker, maintenance.Schedules{
		StockReset:  cfg.StockResetSpec,
		LowStock:    cfg.LowStockSpec,
		AutoAdvance: cfg.AutoAdvanceSpec,
	}, cfg.Timezone, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.AdminEmail != "" {
		created, err := controllers.SeedAdmin(ctx, st.users, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account created", "email", cfg.AdminEmail)
		}
	}

	router := routes.NewRouter(routes.Dependencies{
		Orders:         orderService,
		Feedback:       feedbackService,
		Stock:          ledger,
		Menu:           st.menu,
		Users:          st.users,
		Hub:            hub,
		FakeGateway:    fakeGateway,
		Secret:         cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "store", cfg.Store, "gateway", cfg.PaymentGateway)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using the in-memory store, data is lost on restart")
		mem := database.NewMemory()
		return &stores{
			menu:     mem,
			orders:   mem,
			feedback: mem,
			users:    mem,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	mongo, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return nil, err
	}
	if err := mongo.EnsureIndexes(ctx); err != nil {
		_ = mongo.Close(ctx)
		return nil, err
	}
	return &stores{
		menu:     database.NewMenuItemStore(mongo),
		orders:   database.NewOrderStore(mongo),
		feedback: database.NewFeedbackStore(mongo),
		users:    database.NewUserStore(mongo),
		close:    mongo.Close,
	}, nil
}

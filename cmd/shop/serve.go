package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/cart"
	"github.com/Faraj-M/E-Commerce-Platform/internal/catalog"
	"github.com/Faraj-M/E-Commerce-Platform/internal/checkout"
	"github.com/Faraj-M/E-Commerce-Platform/internal/config"
	"github.com/Faraj-M/E-Commerce-Platform/internal/health"
	h "github.com/Faraj-M/E-Commerce-Platform/internal/http"
	"github.com/Faraj-M/E-Commerce-Platform/internal/orders"
	"github.com/Faraj-M/E-Commerce-Platform/internal/payment"
	"github.com/Faraj-M/E-Commerce-Platform/internal/publisher"
	"github.com/Faraj-M/E-Commerce-Platform/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API and the gRPC health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().String("http-port", "8080", "HTTP listen port")
	cmd.Flags().String("db-driver", "sqlite", "database driver (postgres|sqlite)")
	return cmd
}

func serve(cfg *config.Config) error {
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.WithField("driver", repo.Driver()).Info("database ready")

	checker := health.NewChecker(2*time.Second, log)
	checker.Add("database", repo)

	store, closeStore, err := openCartStore(ctx, cfg, checker, log)
	if err != nil {
		return err
	}
	defer closeStore()

	catalogService := catalog.NewService(repo)
	cartService := cart.NewService(store, catalogService, log)
	engine := checkout.NewEngine(repo, cartService, cfg.Stripe.Currency, log)

	if !cfg.Stripe.Configured() {
		log.Warn("stripe secret key missing or placeholder, payment creation is disabled")
	}
	gateway := payment.NewStripeGateway(cfg.Stripe.APIBaseURL, cfg.Stripe.SecretKey, cfg.Stripe.Timeout, log)
	verifier := payment.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
	paymentService := payment.NewService(repo, gateway, verifier, payment.Options{
		PublishableKey: cfg.Stripe.PublishableKey,
		Configured:     cfg.Stripe.Configured(),
	}, log)

	router := h.NewRouter(h.Deps{
		Catalog:  catalogService,
		Carts:    cartService,
		Checkout: engine,
		Orders:   orders.NewService(repo),
		Payments: paymentService,
		Health:   checker,
		Log:      log,
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SessionTTL:         cfg.Cart.SessionTTL,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "shop"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen on health port: %w", err)
	}
	grpcServer := health.NewGRPCServer(checker)
	go checker.Watch(ctx, 10*time.Second)
	go func() {
		log.Infof("gRPC health listening on :%s", cfg.GRPCHealthPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC health server stopped")
		}
	}()

	if len(cfg.Kafka.Brokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, cfg.Kafka.Topic, cfg.Kafka.PollInterval, log, cfg.Kafka.Brokers...)
		defer poller.Close()
		go poller.Run(ctx)
		log.WithField("topic", cfg.Kafka.Topic).Info("outbox relay started")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("shop API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server error")
		stop()
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// openCartStore builds the session cart store for the configured backend.
// The mongo backend is fronted by redis when redis answers at startup.
func openCartStore(ctx context.Context, cfg *config.Config, checker *health.Checker, log logrus.FieldLogger) (cart.SessionStore, func(), error) {
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Cart.RedisAddr})
	redisStore := cart.NewRedisStore(redisClient, cfg.Cart.SessionTTL)
	redisErr := redisClient.Ping(ctx).Err()

	if cfg.Cart.Backend == "redis" {
		if redisErr != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", redisErr)
		}
		checker.Add("redis", redisStore)
		log.WithField("addr", cfg.Cart.RedisAddr).Info("cart store: redis")
		return redisStore, func() { redisClient.Close() }, nil
	}

	db, err := cart.ConnectMongoDB(ctx, cfg.Cart.MongoURI, cfg.Cart.MongoDB)
	if err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	mongoStore := cart.NewMongoStore(db, cfg.Cart.SessionTTL)
	if err := mongoStore.CreateIndexes(ctx); err != nil {
		redisClient.Close()
		db.Client().Disconnect(context.Background())
		return nil, nil, err
	}
	checker.Add("mongo", mongoStore)
	closeFn := func() {
		redisClient.Close()
		db.Client().Disconnect(context.Background())
	}

	if redisErr != nil {
		log.WithError(redisErr).Warn("redis unavailable, serving carts from mongo only")
		return mongoStore, closeFn, nil
	}
	checker.Add("redis", redisStore)
	log.Info("cart store: mongo with redis cache")
	return cart.NewCachedStore(mongoStore, redisStore, log), closeFn, nil
}

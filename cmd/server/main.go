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

	"github.com/twmb/franz-go/pkg/kgo"

	"marketplace/internal/audit"
	"marketplace/internal/auth/jwt"
	authservice "marketplace/internal/auth/service"
	sessionstore "marketplace/internal/auth/store/session"
	userstore "marketplace/internal/auth/store/user"
	cartservice "marketplace/internal/cart/service"
	cartstore "marketplace/internal/cart/store"
	catalogservice "marketplace/internal/catalog/service"
	catalogstore "marketplace/internal/catalog/store"
	favoritesservice "marketplace/internal/favorites/service"
	favoritesstore "marketplace/internal/favorites/store"
	historyservice "marketplace/internal/history/service"
	historystore "marketplace/internal/history/store"
	orderservice "marketplace/internal/order/service"
	orderstore "marketplace/internal/order/store"
	"marketplace/internal/payment"
	"marketplace/internal/platform/config"
	"marketplace/internal/platform/httpserver"
	"marketplace/internal/platform/logger"
	"marketplace/internal/platform/metrics"
	"marketplace/internal/platform/postgres"
	platformredis "marketplace/internal/platform/redis"
	httptransport "marketplace/internal/transport/http"
	"marketplace/pkg/platform/tx"
)

const tokenIssuer = "marketplace"

// orderStore is the order persistence surface main wires: the order workflow
// reads and writes it, and history attachment is an order-side update.
type orderStore interface {
	orderservice.Store
	historyservice.OrderAttacher
}

// main wires stores, services, and background workers, then runs the HTTP
// server until a shutdown signal arrives. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Stores fall back to in-memory implementations when Postgres is not
	// configured, which keeps local development dependency-free.
	var (
		users     authservice.UserStore
		sessions  authservice.SessionStore
		catalogs  catalogservice.Store
		carts     cartservice.Store
		orders    orderStore
		histories historyservice.Store
		favorites favoritesservice.Store
		auditSink audit.Store
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		catalogs = catalogstore.NewPostgres(db)
		carts = cartstore.NewPostgres(db)
		orders = orderstore.NewPostgres(db)
		histories = historystore.NewPostgres(db)
		favorites = favoritesstore.NewPostgres(db)
		auditSink = audit.NewPostgresStore(db)
	} else {
		users = userstore.New()
		catalogs = catalogstore.New()
		carts = cartstore.New()
		orders = orderstore.New()
		histories = historystore.New()
		favorites = favoritesstore.New()
		auditSink = audit.NewInMemoryStore()
	}

	switch {
	case redisClient != nil:
		sessions = sessionstore.NewRedis(redisClient)
	case db != nil:
		sessions = sessionstore.NewPostgres(db)
	default:
		sessions = sessionstore.New()
	}

	auditor := audit.NewPublisher(auditSink)
	tokens := jwt.NewService(cfg.JWTSigningKey, tokenIssuer, cfg.SessionTTL)

	authSvc := authservice.NewService(users, sessions, tokens, auditor, m, log)
	catalogSvc := catalogservice.NewService(catalogs)
	cartSvc := cartservice.NewService(carts, catalogSvc)
	historySvc := historyservice.NewService(histories, orders)
	orderSvc := orderservice.NewService(orders, cartSvc, catalogSvc, historySvc, users, tx.NewRunner(db), auditor, m, log)
	favoritesSvc := favoritesservice.NewService(favorites, catalogSvc)

	provider := payment.NewStripeProvider(cfg.StripeSecretKey)
	paymentSvc := payment.NewService(provider, cartSvc, catalogSvc, cfg.StripePublishableKey, m, auditor, log)

	router := httptransport.NewRouter(httptransport.Deps{
		AuthService: authSvc,
		Auth:        httptransport.NewAuthHandler(authSvc, log),
		Catalog:     httptransport.NewCatalogHandler(catalogSvc, log),
		Cart:        httptransport.NewCartHandler(cartSvc, log),
		Orders:      httptransport.NewOrderHandler(orderSvc, log),
		Favorites:   httptransport.NewFavoritesHandler(favoritesSvc, log),
		Payments:    httptransport.NewPaymentHandler(paymentSvc, log),
	})

	if db != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		if err := audit.EnsureTopic(ctx, kafkaClient, cfg.AuditTopic); err != nil {
			log.Error("audit topic setup failed", "error", err)
			os.Exit(1)
		}

		relay := audit.NewRelay(auditSink.(*audit.PostgresStore), kafkaClient, cfg.AuditTopic, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	go runSessionJanitor(ctx, authSvc, log)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// runSessionJanitor sweeps expired sessions on an interval so the session
// table does not grow without bound. Redis deployments reap via TTL and the
// sweep simply returns zero.
func runSessionJanitor(ctx context.Context, auth *authservice.Service, log *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := auth.DeleteExpiredSessions(ctx)
			if err != nil {
				log.Error("session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("expired sessions removed", "count", deleted)
			}
		}
	}
}

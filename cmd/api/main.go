package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tanbroker/internal/auth"
	"tanbroker/internal/broker"
	"tanbroker/internal/config"
	"tanbroker/internal/db"
	"tanbroker/internal/events"
	"tanbroker/internal/health"
	"tanbroker/internal/httpserver"
	"tanbroker/internal/journal"
	"tanbroker/internal/logging"
	"tanbroker/internal/metrics"
	"tanbroker/internal/orders"
	"tanbroker/internal/session"
)

func main() {
	startedAt := time.Now()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	var transport broker.Transport = broker.NewDisabledTransport()
	if cfg.BrokerageToken != "" {
		client, err := session.NewClient(session.Options{
			BaseURL:     cfg.BrokerageURL,
			AccessToken: cfg.BrokerageToken,
			SessionID:   cfg.BrokerageSessionID,
			Timeout:     cfg.BrokerageTimeout,
		})
		if err != nil {
			log.Fatal(err)
		}
		transport = client
		log.Printf("brokerage session %s at %s", client.SessionID(), cfg.BrokerageURL)
	} else {
		log.Printf("no brokerage token configured, mutations are disabled")
	}

	var jr journal.Journal = journal.Noop{}
	var dbPing health.Pinger
	if cfg.DBDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		store := journal.NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal(err)
		}
		jr = store
		dbPing = pool
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	bus := events.NewBus()
	m := metrics.New()
	logger := logging.New("tanbroker", nil)

	authSvc := auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.OperatorPasswordHash)
	orderSvc := orders.NewService(broker.NewCoordinator(transport), orders.NewStore(), jr, bus, publisher, m, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:    auth.NewHandler(authSvc),
		HealthHandler:  health.NewHandler(dbPing, cfg.BrokerageToken != "", startedAt),
		OrderHandler:   orders.NewHandler(orderSvc),
		AuthService:    authSvc,
		WSHandler:      httpserver.NewWSHandler(bus, authSvc, cfg.WebSocketOrigin),
		MetricsHandler: m.Handler(),
		Limiter:        httpserver.NewRateLimiter(5, 20),
		Origin:         cfg.WebSocketOrigin,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	log.Printf("server listening on %s (%s)", cfg.HTTPAddr, cfg.AppMode)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

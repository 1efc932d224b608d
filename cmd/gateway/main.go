package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"sessiongate/internal/audit"
	"sessiongate/internal/authclient"
	"sessiongate/internal/gate"
	"sessiongate/internal/platform/config"
	"sessiongate/internal/platform/httpserver"
	"sessiongate/internal/platform/logger"
	"sessiongate/internal/platform/metrics"
	platformredis "sessiongate/internal/platform/redis"
	"sessiongate/internal/proxy"
	"sessiongate/internal/revocation"
	httptransport "sessiongate/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Decision logic lives in the internal packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		log.Error("UPSTREAM_URL is not an absolute URL", "url", cfg.UpstreamURL, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Denylist is optional: without Redis the gate trusts the backend alone.
	var denylist gate.RevocationChecker
	redisClient, err := platformredis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		denylist = revocation.NewRedis(redisClient.Client)
		log.Info("token denylist enabled", "addr", cfg.RedisAddr)
	}

	sinks := []audit.Sink{audit.NewLogSink(log)}

	if cfg.AuditDSN != "" {
		auditDB, err := sql.Open("postgres", cfg.AuditDSN)
		if err != nil {
			log.Error("audit database open failed", "error", err)
			os.Exit(1)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = auditDB.PingContext(pingCtx)
		cancel()
		if err != nil {
			log.Error("audit database unreachable", "error", err)
			os.Exit(1)
		}
		// The sink owns the handle; its Close closes the pool.
		pgSink := audit.NewPostgresSink(auditDB)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pgSink)
		log.Info("audit postgres sink enabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("audit kafka sink setup failed", "brokers", cfg.KafkaBrokers, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, kafkaSink)
		log.Info("audit kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	publisher := audit.NewPublisher(cfg.AuditBuffer)
	worker := audit.NewWorker(publisher, sinks, log)

	client := authclient.New(authclient.Config{
		BaseURL:       cfg.AuthBaseURL,
		AnonKey:       cfg.AuthAnonKey,
		AccessCookie:  cfg.AccessCookie,
		RefreshCookie: cfg.RefreshCookie,
		RefreshSkew:   cfg.RefreshSkew,
		CookieDomain:  cfg.CookieDomain,
		CookieSecure:  cfg.CookieSecure,
	}, nil, m, log)

	g := gate.New(gate.Config{
		ProtectedPrefixes: cfg.ProtectedPrefixes,
		LoginPath:         cfg.LoginPath,
	}, client, denylist, publisher, m, log)

	health := map[string]httptransport.HealthCheck{
		"auth_backend": client.Health,
	}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:            log,
		Gate:              g.Middleware,
		Upstream:          proxy.New(upstream, log),
		ProtectedPrefixes: cfg.ProtectedPrefixes,
		Health:            health,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("sessiongate listening",
		"addr", cfg.Addr,
		"upstream", upstream.Host,
		"protected_prefixes", cfg.ProtectedPrefixes,
		"login_path", cfg.LoginPath,
	)

	// Server, shutdown watcher and audit worker stop together: a signal, a
	// listener failure or a worker failure cancels the group context and the
	// others wind down. The worker flushes queued events before returning.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("gateway stopped with error", "error", err)
	}

	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			log.Warn("audit sink close failed", "sink", sink.Name(), "error", err)
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("sessiongate stopped")
}

package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/inbound/internal/config"
	"github.com/ignite/inbound/internal/dns"
	"github.com/ignite/inbound/internal/repository/postgres"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/ses"
	"github.com/ignite/inbound/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	defer db.Close()

	sesClient, err := ses.NewClient(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to create SES client: %v", err)
	}

	resolver := dns.NewClient(dns.Config{
		Nameservers: cfg.DNS.Nameservers,
		Timeout:     cfg.DNS.Timeout(),
		Retries:     cfg.DNS.Retries,
	})

	store := postgres.NewDomainRepo(db)
	svc := domains.NewService(
		store,
		dns.NewChecker(resolver, cfg.Inbound.MXHost),
		dns.NewVerifier(resolver),
		sesClient,
		domains.NewGenerator(cfg.Inbound.TokenSecret, cfg.Inbound.MXHost, cfg.Inbound.MXPriority),
	)

	checker := worker.NewDomainChecker(svc, store, db, cfg.Checker)
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: redis unreachable, using advisory locks: %v", err)
		} else {
			checker.SetRedisClient(rc)
		}
	}

	if err := checker.Start(); err != nil {
		log.Fatalf("Failed to start checker: %v", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	log.Println("Shutting down...")
	checker.Stop()
	log.Println("Checker stopped")
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/inbound/internal/api"
	"github.com/ignite/inbound/internal/config"
	"github.com/ignite/inbound/internal/dns"
	"github.com/ignite/inbound/internal/dnsprovider"
	"github.com/ignite/inbound/internal/repository/postgres"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/service/routing"
	"github.com/ignite/inbound/internal/ses"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Redis is optional; only the scheduled checker uses it, but the
	// connection is probed here so a typo'd address fails loudly.
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: redis unreachable at %s: %v", cfg.Redis.Addr, err)
		}
		rc.Close()
	}

	sesClient, err := ses.NewClient(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to create SES client: %v", err)
	}

	resolver := dns.NewClient(dns.Config{
		Nameservers: cfg.DNS.Nameservers,
		Timeout:     cfg.DNS.Timeout(),
		Retries:     cfg.DNS.Retries,
	})

	domainStore := postgres.NewDomainRepo(db)
	addressStore := postgres.NewAddressRepo(db)

	domainSvc := domains.NewService(
		domainStore,
		dns.NewChecker(resolver, cfg.Inbound.MXHost),
		dns.NewVerifier(resolver),
		sesClient,
		domains.NewGenerator(cfg.Inbound.TokenSecret, cfg.Inbound.MXHost, cfg.Inbound.MXPriority),
	)

	// Auto-publication is best effort; without AWS credentials users just
	// publish the records themselves.
	if publisher, err := dnsprovider.NewRoute53Publisher(ctx, cfg.SES, resolver); err != nil {
		log.Printf("Warning: route53 publisher unavailable: %v", err)
	} else {
		domainSvc.SetPublisher(publisher)
	}

	routingSvc := routing.NewService(addressStore, sesClient)

	handlers := api.NewHandlers(domainSvc, routingSvc)
	router := api.SetupRoutes(handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting inbound API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

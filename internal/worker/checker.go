// Package worker runs the scheduled re-verification loop: pending domains
// get polled until they settle, verified domains get re-checked once their
// last DNS check goes stale.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/inbound/internal/config"
	"github.com/ignite/inbound/internal/pkg/distlock"
	"github.com/ignite/inbound/internal/pkg/logger"
	"github.com/ignite/inbound/internal/service/domains"
)

// DomainChecker polls the store for domains due a verification pass and
// runs checks with bounded concurrency. Multiple checker instances may run
// at once: per-domain locks only shed duplicate work, they are not needed
// for correctness since every check is idempotent and transitions are
// guarded monotonically.
type DomainChecker struct {
	svc         *domains.Service
	store       domains.Store
	db          *sql.DB
	redisClient *redis.Client // optional; nil falls back to PG advisory locks
	cfg         config.CheckerConfig
	workerID    string

	checksRun    int64
	checksFailed int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewDomainChecker creates the scheduled checker.
func NewDomainChecker(svc *domains.Service, store domains.Store, db *sql.DB, cfg config.CheckerConfig) *DomainChecker {
	hostname, _ := os.Hostname()
	return &DomainChecker{
		svc:      svc,
		store:    store,
		db:       db,
		cfg:      cfg,
		workerID: fmt.Sprintf("checker-%s-%d", hostname, time.Now().UnixNano()%10000),
	}
}

// SetRedisClient switches the per-domain locks to Redis. Without it the
// checker uses PostgreSQL advisory locks.
func (c *DomainChecker) SetRedisClient(client *redis.Client) {
	c.redisClient = client
}

// Start begins the polling loop.
func (c *DomainChecker) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("checker already running")
	}
	c.running = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	logger.Info("domain checker starting", "worker_id", c.workerID, "interval", c.cfg.Interval().String())

	c.wg.Add(1)
	go c.loop()
	return nil
}

// Stop drains in-flight checks and stops the loop.
func (c *DomainChecker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	logger.Info("domain checker stopped",
		"checks_run", atomic.LoadInt64(&c.checksRun),
		"checks_failed", atomic.LoadInt64(&c.checksFailed))
}

func (c *DomainChecker) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(c.ctx)
		}
	}
}

// RunOnce performs a single polling pass. Exported so an operator can
// trigger an immediate sweep and so tests can drive the checker without
// the ticker.
func (c *DomainChecker) RunOnce(ctx context.Context) {
	staleBefore := time.Now().UTC().Add(-c.cfg.RecheckAfter())
	batch, err := c.store.ListDomainsForRecheck(ctx, staleBefore, c.cfg.BatchSize)
	if err != nil {
		logger.Error("listing domains for recheck failed", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}
	logger.Debug("recheck batch", "size", len(batch))

	sem := make(chan struct{}, c.cfg.MaxConcurrentChecks)
	var wg sync.WaitGroup
	for i := range batch {
		d := batch[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			c.checkOne(ctx, d.ID, d.Hostname)
		}()
	}
	wg.Wait()
}

func (c *DomainChecker) checkOne(ctx context.Context, domainID, hostname string) {
	lock := distlock.NewLock(c.redisClient, c.db, "domain-check:"+domainID, c.cfg.LockTTL())
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Warn("check lock error", "hostname", hostname, "error", err)
		return
	}
	if !acquired {
		// Another checker instance holds it; this pass is redundant.
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("check lock release failed", "hostname", hostname, "error", err)
		}
	}()

	atomic.AddInt64(&c.checksRun, 1)
	if _, err := c.svc.CheckByID(ctx, domainID); err != nil {
		atomic.AddInt64(&c.checksFailed, 1)
		logger.Warn("scheduled check failed", "hostname", hostname, "error", err)
	}
}

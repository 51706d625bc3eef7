package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the periodic update scheduler.
type SchedulerConfig struct {
	// Interval is how often a full update pass runs. Zero disables
	// the scheduler entirely; runs can still be started via the API.
	Interval time.Duration

	// RunTimeout bounds one full pass over products and markets.
	RunTimeout time.Duration
}

// UpdateScheduler periodically triggers a full update pass: product
// details first so fresh revenue feeds the market pass that follows.
type UpdateScheduler struct {
	products *ProductService
	markets  *MarketService
	registry *JobRegistry
	config   SchedulerConfig

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewUpdateScheduler creates a scheduler over the two update loops.
func NewUpdateScheduler(products *ProductService, markets *MarketService, registry *JobRegistry, config SchedulerConfig) *UpdateScheduler {
	if config.RunTimeout == 0 {
		config.RunTimeout = time.Hour
	}
	return &UpdateScheduler{
		products: products,
		markets:  markets,
		registry: registry,
		config:   config,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler. No-op when the interval is zero.
func (s *UpdateScheduler) Start() {
	if s.config.Interval <= 0 {
		log.Printf("[UpdateScheduler] Disabled (no interval configured)")
		return
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[UpdateScheduler] Started - Interval: %v", s.config.Interval)
	go s.run()
}

func (s *UpdateScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			log.Printf("[UpdateScheduler] Stopped")
			return
		}
	}
}

// RunNow performs one full update pass immediately, tracked in the
// job registry like an API-triggered run.
func (s *UpdateScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	job := s.registry.Start("scheduled")

	productRun, err := s.products.UpdateAll(ctx)
	if err != nil {
		log.Printf("[UpdateScheduler] Product pass failed: %v", err)
		s.registry.Fail(job.ID, err.Error())
		return
	}
	marketRun, err := s.markets.UpdateAll(ctx)
	if err != nil {
		log.Printf("[UpdateScheduler] Market pass failed: %v", err)
		s.registry.Fail(job.ID, err.Error())
		return
	}

	log.Printf("[UpdateScheduler] Pass complete: products %d/%d updated, markets %d/%d updated",
		productRun.Updated, len(productRun.Results), marketRun.Updated, len(marketRun.Results))
	s.registry.Complete(job.ID, marketRun)
}

// Stop stops the scheduler.
func (s *UpdateScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

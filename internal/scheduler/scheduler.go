// Package scheduler drives the registered scrapers on a fixed interval and
// reconciles their results into the pricing store and the vector index.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tokenscout/tokenscout/internal/models"
	"github.com/tokenscout/tokenscout/internal/pricing"
	"github.com/tokenscout/tokenscout/internal/scraper"
)

const (
	defaultInterval      = 30 * time.Minute
	defaultScrapeTimeout = 60 * time.Second
)

// State is the lifecycle phase of one scraper between ticks.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the last observed outcome for one scraper.
type Status struct {
	Scraper   string    `json:"scraper"`
	State     State     `json:"state"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Records   int       `json:"records"`
}

// Indexer receives freshly upserted records for incremental indexing.
type Indexer interface {
	UpsertRecords(ctx context.Context, records []models.PriceRecord) error
}

// Options tunes the scheduler. Zero values fall back to defaults.
type Options struct {
	Interval      time.Duration
	ScrapeTimeout time.Duration
	RunOnStartup  bool
}

// Scheduler runs every registered scraper on a ticker. Distinct scrapers run
// concurrently; a scraper still running when its next tick fires is skipped,
// not queued.
type Scheduler struct {
	descriptors []scraper.Descriptor
	store       *pricing.Store
	indexer     Indexer
	opts        Options

	mu     sync.Mutex
	status map[string]*Status
	wg     sync.WaitGroup
}

// New constructs a Scheduler over the given registry.
func New(descriptors []scraper.Descriptor, store *pricing.Store, indexer Indexer, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = defaultScrapeTimeout
	}
	status := make(map[string]*Status, len(descriptors))
	for _, d := range descriptors {
		status[d.Name] = &Status{Scraper: d.Name, State: StateIdle}
	}
	return &Scheduler{
		descriptors: descriptors,
		store:       store,
		indexer:     indexer,
		opts:        opts,
		status:      status,
	}
}

// Start runs the scrape loop in the background until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("scrape scheduler started (interval=%s, scrapers=%d)", s.opts.Interval, len(s.descriptors))
}

func (s *Scheduler) run(ctx context.Context) {
	if s.opts.RunOnStartup {
		s.RunAll(ctx)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.RunAll(ctx)
		}
	}
}

// RunAll triggers one scrape of every scraper. Scrapers already running keep
// running and the new trigger for them is dropped. RunAll returns without
// waiting for the scrapes to finish.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, d := range s.descriptors {
		if !s.markRunning(d.Name) {
			log.Warnf("scraper %s still running, skipping tick", d.Name)
			continue
		}
		s.wg.Add(1)
		go func(d scraper.Descriptor) {
			defer s.wg.Done()
			s.runOne(ctx, d)
		}(d)
	}
}

// Wait blocks until all in-flight scrapes finish. Used in shutdown and tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Statuses snapshots the per-scraper states, ordered as the registry is.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		out = append(out, *s.status[d.Name])
	}
	return out
}

func (s *Scheduler) runOne(ctx context.Context, d scraper.Descriptor) {
	scrapeCtx, cancel := context.WithTimeout(ctx, s.opts.ScrapeTimeout)
	defer cancel()

	count, err := s.scrapeAndStore(scrapeCtx, d)
	if err != nil {
		log.WithError(err).Warnf("scraper %s failed", d.Name)
		s.finish(d.Name, StateFailed, count, err)
		return
	}
	log.Infof("scraper %s upserted %d records", d.Name, count)
	s.finish(d.Name, StateSucceeded, count, nil)
}

func (s *Scheduler) scrapeAndStore(ctx context.Context, d scraper.Descriptor) (int, error) {
	entries, err := d.Scraper.Scrape(ctx)
	if err != nil {
		return 0, err
	}

	records := scraper.Normalize(d.Name, entries)
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store batch: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.UpsertRecords(ctx, records); err != nil {
			// Records are persisted; the index catches up on the next
			// rebuild or tick.
			log.WithError(err).Warnf("scraper %s: index update failed", d.Name)
		}
	}
	return len(records), nil
}

// markRunning flips a scraper to Running unless it already is.
func (s *Scheduler) markRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[name]
	if st == nil {
		st = &Status{Scraper: name}
		s.status[name] = st
	}
	if st.State == StateRunning {
		return false
	}
	st.State = StateRunning
	return true
}

func (s *Scheduler) finish(name string, state State, count int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[name]
	st.State = state
	st.LastRun = time.Now().UTC()
	st.Records = count
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
}

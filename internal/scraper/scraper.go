package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateScraper indicates two registered scrapers share a name.
// This is a configuration error and fails startup.
var ErrDuplicateScraper = errors.New("scraper: duplicate scraper name")

// Entry is the raw shape a scraper reports for one model offering. Prices are
// in USD per million tokens, matching how providers publish them; the
// normalizer converts to per-token.
type Entry struct {
	Provider          string
	ModelName         string
	Modalities        []string
	ContextWindow     int
	MaxOutputTokens   *int
	InputCostPerMTok  float64
	OutputCostPerMTok float64
	TokensPerSecond   *float64
	SupportsTools     bool
}

// Scraper fetches pricing entries from one external source. Implementations
// hold no shared mutable state and declare a stable name.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]Entry, error)
}

// ScrapeError wraps a source-data acquisition failure for one scraper.
type ScrapeError struct {
	Scraper string
	Err     error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.Scraper, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Descriptor is the immutable per-scraper handle the scheduler holds for the
// process lifetime.
type Descriptor struct {
	Name    string
	Scraper Scraper
}

var (
	registryMu sync.Mutex
	factories  []func() Scraper
)

// Register adds a scraper factory to the package registration table. Each
// implementation calls Register from its init(); no enumeration is baked into
// the scheduler.
func Register(factory func() Scraper) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories = append(factories, factory)
}

// BuildRegistry instantiates every registered scraper and validates it.
// Called once at startup; the result is held unchanged afterwards.
func BuildRegistry() ([]Descriptor, error) {
	registryMu.Lock()
	fs := make([]func() Scraper, len(factories))
	copy(fs, factories)
	registryMu.Unlock()

	scrapers := make([]Scraper, 0, len(fs))
	for _, factory := range fs {
		scrapers = append(scrapers, factory())
	}
	return NewRegistry(scrapers...)
}

// NewRegistry builds descriptors from explicit scraper instances, failing
// fast on blank or duplicate names. Descriptors are ordered by name so runs
// are deterministic regardless of registration order.
func NewRegistry(scrapers ...Scraper) ([]Descriptor, error) {
	seen := make(map[string]struct{}, len(scrapers))
	descriptors := make([]Descriptor, 0, len(scrapers))
	for _, s := range scrapers {
		name := strings.TrimSpace(s.Name())
		if name == "" {
			return nil, fmt.Errorf("scraper: empty scraper name (%T)", s)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScraper, name)
		}
		seen[name] = struct{}{}
		descriptors = append(descriptors, Descriptor{Name: name, Scraper: s})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors, nil
}

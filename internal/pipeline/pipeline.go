// Package pipeline drives the enrichment run: search for candidate
// websites, scrape each one, merge fields, and checkpoint after every
// roster row.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rosterfill/rosterfill/internal/cache"
	"github.com/rosterfill/rosterfill/internal/checkpoint"
	"github.com/rosterfill/rosterfill/internal/extract"
	"github.com/rosterfill/rosterfill/internal/model"
	"github.com/rosterfill/rosterfill/internal/util"
	"github.com/rosterfill/rosterfill/internal/worker"
)

// RowState is the outcome of processing one roster row.
type RowState int

const (
	RowSkipped   RowState = iota // identity key already checkpointed
	RowNoWebsite                 // search found nothing; empty record appended
	RowEnriched                  // merged record appended
)

type websiteSearcher interface {
	Search(ctx context.Context, schoolName, region string) []string
}

type pageScraper interface {
	Scrape(ctx context.Context, url, regionHint string) model.PageInfo
}

// rowSleepFunc is overridable for fast tests.
var rowSleepFunc = time.Sleep

// Pipeline orchestrates the complete enrichment run, one row at a time.
type Pipeline struct {
	searcher websiteSearcher
	scraper  pageScraper
	store    *checkpoint.Store
	config   *model.Config
}

// NewPipeline wires the search client, scraper, cache, limiter, and
// robots checker from config.
func NewPipeline(cfg *model.Config, store *checkpoint.Store) (*Pipeline, error) {
	districtPolicy, err := extract.ParseDistrictPolicy(cfg.Extract.DistrictPolicy)
	if err != nil {
		return nil, err
	}
	addressPolicy, err := extract.ParseAddressPolicy(cfg.Extract.AddressPolicy)
	if err != nil {
		return nil, err
	}

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		pageCache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	var robots *util.RobotsChecker
	if cfg.Robots.Enabled {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}

	fetcher := NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, pageCache, cfg.Cache.TTL)
	limiter := worker.NewLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	extractor := extract.NewFieldExtractor(cfg.Extract.PhoneRegion, districtPolicy)

	return &Pipeline{
		searcher: NewSearchClient(cfg.Search, cfg.HTTP.Timeout),
		scraper:  NewScraper(fetcher, extractor, limiter, robots, addressPolicy),
		store:    store,
		config:   cfg,
	}, nil
}

// Run processes the roster sequentially. Rows already checkpointed are
// skipped positionally; a cancelled context stops the loop at the next
// row boundary with all persisted progress retained. A failing row is
// logged and skipped, never aborting the run.
func (p *Pipeline) Run(ctx context.Context, rows []model.Record) {
	start := p.store.Len()
	if start > 0 {
		fmt.Printf("Resuming from record %d/%d\n", start+1, len(rows))
	}

	for i, row := range rows {
		if i < start {
			continue
		}

		select {
		case <-ctx.Done():
			fmt.Println("\nProcess interrupted. Data saved to checkpoint.")
			return
		default:
		}

		state, err := p.processRow(ctx, row, i, len(rows))
		if err != nil {
			if ctx.Err() != nil {
				// The loop-top select reports the interrupt.
				continue
			}
			fmt.Printf("Error processing row %d: %v\n", i, err)
			continue
		}

		// Respect external rate limits between processed rows
		if state != RowSkipped {
			rowSleepFunc(p.config.Rate.RowDelay)
		}
	}
}

// processRow runs the per-row state machine:
// PENDING -> SKIPPED | NO_WEBSITE | ENRICHED.
func (p *Pipeline) processRow(ctx context.Context, row model.Record, index, total int) (RowState, error) {
	name := row.School()
	region := row.State()
	if name == "" {
		return RowSkipped, fmt.Errorf("missing school name")
	}

	if p.store.Has(model.IdentityKey(name, region)) {
		fmt.Printf("%d/%d - %s: Already processed, skipping\n", index+1, total, name)
		return RowSkipped, nil
	}

	fmt.Printf("%d/%d - Processing: %s, %s\n", index+1, total, name, region)

	rec := row.Clone()

	websites := p.searcher.Search(ctx, name, region)
	if len(websites) == 0 {
		// A cancelled search looks like an empty result; persisting it
		// would make the row permanently NO_WEBSITE across resumes.
		if err := ctx.Err(); err != nil {
			return RowSkipped, err
		}
		if err := p.store.Append(rec); err != nil {
			fmt.Printf("Error saving checkpoint: %v\n", err)
		}
		return RowNoWebsite, nil
	}

	rec[model.ColWebsite] = websites[0]

	// URL list order is priority order: earlier candidates win per field
	var merged model.PageInfo
	for _, site := range websites {
		merged.Merge(p.scraper.Scrape(ctx, site, region))
	}
	rec.ApplyInfo(merged)

	fmt.Printf("Final merged info for %s: Email=%t, Tel=%t, District=%t, Address=%t\n",
		name, rec[model.ColEmail] != "", rec[model.ColTel] != "",
		rec[model.ColDistrict] != "", rec[model.ColAddress] != "")

	if err := ctx.Err(); err != nil {
		return RowSkipped, err
	}
	if err := p.store.Append(rec); err != nil {
		fmt.Printf("Error saving checkpoint: %v\n", err)
	}
	return RowEnriched, nil
}

package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rosterfill/rosterfill/internal/checkpoint"
	"github.com/rosterfill/rosterfill/internal/model"
)

type fakeSearcher struct {
	results map[string][]string
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, schoolName, region string) []string {
	f.queries = append(f.queries, schoolName)
	return f.results[schoolName]
}

type fakeScraper struct {
	pages map[string]model.PageInfo
}

func (f *fakeScraper) Scrape(ctx context.Context, url, regionHint string) model.PageInfo {
	return f.pages[url]
}

func newTestPipeline(t *testing.T, searcher websiteSearcher, scraper pageScraper) (*Pipeline, *checkpoint.Store) {
	t.Helper()

	orig := rowSleepFunc
	rowSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { rowSleepFunc = orig })

	store, err := checkpoint.Load(filepath.Join(t.TempDir(), "checkpoint.json"))
	if err != nil {
		t.Fatalf("Expected empty store, got %v", err)
	}

	return &Pipeline{
		searcher: searcher,
		scraper:  scraper,
		store:    store,
		config:   model.DefaultConfig(),
	}, store
}

func row(school, state string) model.Record {
	return model.Record{model.ColSchool: school, model.ColState: state}
}

func TestRun_MergesAcrossCandidateURLs(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{
		"DAV Public School": {"https://a.example", "https://b.example"},
	}}
	scraper := &fakeScraper{pages: map[string]model.PageInfo{
		"https://a.example": {Email: "office@a.example"},
		"https://b.example": {Tel: "+91 98765 43210", Address: "45 Ring Road, Delhi", Email: "other@b.example"},
	}}

	p, store := newTestPipeline(t, searcher, scraper)
	p.Run(context.Background(), []model.Record{row("DAV Public School", "Delhi")})

	if store.Len() != 1 {
		t.Fatalf("Expected 1 record, got %d", store.Len())
	}

	rec := store.Records()[0]
	if rec[model.ColWebsite] != "https://a.example" {
		t.Errorf("Expected first URL as Website, got %q", rec[model.ColWebsite])
	}
	if rec[model.ColEmail] != "office@a.example" {
		t.Errorf("Expected first URL's email to win, got %q", rec[model.ColEmail])
	}
	if rec[model.ColTel] != "+91 98765 43210" {
		t.Errorf("Expected second URL's phone, got %q", rec[model.ColTel])
	}
	if rec[model.ColAddress] != "45 Ring Road, Delhi" {
		t.Errorf("Expected second URL's address, got %q", rec[model.ColAddress])
	}
}

func TestRun_NoWebsiteStillAppendsRecord(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	p.Run(context.Background(), []model.Record{row("Unknown School", "Goa")})

	if store.Len() != 1 {
		t.Fatalf("Expected empty record appended, got %d records", store.Len())
	}
	rec := store.Records()[0]
	if rec[model.ColWebsite] != "" || rec[model.ColEmail] != "" {
		t.Errorf("Expected all enrichment fields empty, got %v", rec)
	}
}

func TestRun_IdempotentAcrossRuns(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	rows := []model.Record{row("A", "Goa"), row("B", "Goa")}
	p.Run(context.Background(), rows)
	p.Run(context.Background(), rows)

	if store.Len() != 2 {
		t.Fatalf("Expected no duplicates after second run, got %d records", store.Len())
	}

	seen := make(map[string]int)
	for _, rec := range store.Records() {
		seen[rec.Key()]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Errorf("Expected key %q once, got %d", key, n)
		}
	}
}

func TestRun_PositionalResumeSkipsSearch(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	// Two rows already checkpointed from a previous run
	if err := store.Append(row("A", "Goa").Clone()); err != nil {
		t.Fatalf("Expected append to persist, got %v", err)
	}
	if err := store.Append(row("B", "Goa").Clone()); err != nil {
		t.Fatalf("Expected append to persist, got %v", err)
	}

	rows := []model.Record{row("A", "Goa"), row("B", "Goa"), row("C", "Goa"), row("D", "Goa")}
	p.Run(context.Background(), rows)

	if len(searcher.queries) != 2 {
		t.Fatalf("Expected search only for resumed rows, got queries %v", searcher.queries)
	}
	if searcher.queries[0] != "C" || searcher.queries[1] != "D" {
		t.Errorf("Expected queries for C and D, got %v", searcher.queries)
	}
	if store.Len() != 4 {
		t.Errorf("Expected 4 records total, got %d", store.Len())
	}
}

func TestRun_FailSoftOnBadRow(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	rows := make([]model.Record, 0, 10)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		rows = append(rows, row(name, "Goa"))
	}
	// Row without a school name fails its row, not the run
	rows = append(rows[:3], append([]model.Record{row("", "Goa")}, rows[3:]...)...)

	p.Run(context.Background(), rows)

	if store.Len() != 9 {
		t.Errorf("Expected 9 records with the bad row skipped, got %d", store.Len())
	}
}

func TestRun_InterruptStopsAtRowBoundary(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.Run(ctx, []model.Record{row("A", "Goa"), row("B", "Goa")})

	if store.Len() != 0 {
		t.Errorf("Expected no rows processed under cancelled context, got %d", store.Len())
	}
}

type cancellingSearcher struct {
	cancel context.CancelFunc
}

func (c *cancellingSearcher) Search(ctx context.Context, schoolName, region string) []string {
	// An interrupt arriving mid-search surfaces as an empty result.
	c.cancel()
	return nil
}

func TestRun_InterruptDuringSearchAppendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &cancellingSearcher{cancel: cancel}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	p.Run(ctx, []model.Record{row("A", "Goa"), row("B", "Goa")})

	if store.Len() != 0 {
		t.Errorf("Expected no record persisted for the interrupted row, got %d", store.Len())
	}
}

func TestRun_SkipsDuplicateIdentityWithinRoster(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{}}
	p, store := newTestPipeline(t, searcher, &fakeScraper{})

	rows := []model.Record{
		row("St. Mary's School", "Kerala"),
		row("ST.  MARY'S   SCHOOL", "kerala"),
	}
	p.Run(context.Background(), rows)

	if store.Len() != 1 {
		t.Errorf("Expected duplicate identity suppressed, got %d records", store.Len())
	}
}

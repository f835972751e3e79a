package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rosterfill/rosterfill/internal/extract"
	"github.com/rosterfill/rosterfill/internal/model"
	"github.com/rosterfill/rosterfill/internal/util"
	"github.com/rosterfill/rosterfill/internal/worker"
)

// subpageKeywords mark hyperlinks worth following for contact details.
var subpageKeywords = []string{"contact", "about", "reach-us", "address"}

var (
	pipeRe       = regexp.MustCompile(`\s*\|\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Scraper extracts contact fields from one candidate website: the page
// itself plus any contact/about subpages it links to. Scrape never
// fails; every fetch or parse error degrades to an empty result for
// that page.
type Scraper struct {
	fetcher       *Fetcher
	extractor     *extract.FieldExtractor
	limiter       *worker.Limiter
	robots        *util.RobotsChecker
	addressPolicy extract.AddressPolicy
}

// NewScraper creates a scraper. robots may be nil to skip robots.txt
// checking.
func NewScraper(fetcher *Fetcher, extractor *extract.FieldExtractor, limiter *worker.Limiter, robots *util.RobotsChecker, addressPolicy extract.AddressPolicy) *Scraper {
	return &Scraper{
		fetcher:       fetcher,
		extractor:     extractor,
		limiter:       limiter,
		robots:        robots,
		addressPolicy: addressPolicy,
	}
}

// Scrape fetches rawURL, extracts fields from its text and from linked
// contact/about subpages, and merges everything first-non-empty-wins.
// Address candidates from all pages are merged per the address policy.
func (s *Scraper) Scrape(ctx context.Context, rawURL, regionHint string) model.PageInfo {
	var info model.PageInfo
	var addresses []string

	doc, err := s.fetchDocument(ctx, rawURL)
	if err != nil {
		fmt.Printf("Request failed for %s: %v\n", rawURL, err)
		return info
	}

	// Structured location element is the highest-confidence address hint
	if loc := doc.Find("p.loc-icon").First(); loc.Length() > 0 {
		if hint := extract.JoinText(loc.Nodes[0], ", "); hint != "" {
			addresses = append(addresses, hint)
		}
	}

	pageInfo := s.extractor.Extract(extract.VisibleText(doc.Nodes[0]), regionHint)
	if pageInfo.Address != "" {
		addresses = append(addresses, pageInfo.Address)
		pageInfo.Address = ""
	}
	info.Merge(pageInfo)

	for _, link := range s.contactLinks(doc, rawURL) {
		subDoc, err := s.fetchDocument(ctx, link)
		if err != nil {
			// Subpage failures just skip that subpage
			continue
		}

		subInfo := s.extractor.Extract(extract.VisibleText(subDoc.Nodes[0]), regionHint)
		if subInfo.Address != "" {
			addresses = append(addresses, subInfo.Address)
			subInfo.Address = ""
		}
		info.Merge(subInfo)
	}

	info.Address = s.mergeAddresses(addresses)
	return info
}

// fetchDocument applies the robots gate and rate limiter, then fetches
// and parses one page.
func (s *Scraper) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if s.robots != nil && !s.robots.IsAllowed(ctx, rawURL) {
		return nil, fmt.Errorf("blocked by robots.txt")
	}
	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// contactLinks returns the page's hyperlinks whose target contains a
// contact/about keyword, resolved to absolute URLs.
func (s *Scraper) contactLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		lower := strings.ToLower(href)
		matched := false
		for _, kw := range subpageKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		if !strings.HasPrefix(href, "http") {
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			href = base.ResolveReference(ref).String()
		}
		links = append(links, href)
	})

	return links
}

// mergeAddresses normalizes the collected address candidates and joins
// the distinct ones, or keeps only the first under the "first" policy.
func (s *Scraper) mergeAddresses(addresses []string) string {
	var clean []string
	seen := make(map[string]bool)
	for _, addr := range addresses {
		addr = pipeRe.ReplaceAllString(addr, ", ")
		addr = strings.TrimSpace(whitespaceRe.ReplaceAllString(addr, " "))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		clean = append(clean, addr)
	}

	if len(clean) == 0 {
		return ""
	}
	if s.addressPolicy == extract.AddressPolicyFirst {
		return clean[0]
	}
	return strings.Join(clean, " | ")
}

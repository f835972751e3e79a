package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rosterfill/rosterfill/internal/model"
)

// DistrictPolicy selects the district-extraction heuristic.
type DistrictPolicy string

const (
	// DistrictPolicySimple keeps the first short line containing the word
	// "district", stripped and title-cased.
	DistrictPolicySimple DistrictPolicy = "simple"

	// DistrictPolicyRich matches district/dist/dt lines, strips
	// government-site boilerplate, and falls back to the address line.
	// It recovers more districts from noisy pages and is the default.
	DistrictPolicyRich DistrictPolicy = "rich"
)

// ParseDistrictPolicy validates a policy name from config.
func ParseDistrictPolicy(s string) (DistrictPolicy, error) {
	switch DistrictPolicy(s) {
	case DistrictPolicySimple, DistrictPolicyRich:
		return DistrictPolicy(s), nil
	}
	return "", fmt.Errorf("unknown district policy: %q (want simple or rich)", s)
}

// AddressPolicy selects how address candidates across pages are merged.
type AddressPolicy string

const (
	// AddressPolicyFirst keeps only the first address found.
	AddressPolicyFirst AddressPolicy = "first"

	// AddressPolicyAccumulate joins all distinct candidates with " | ".
	AddressPolicyAccumulate AddressPolicy = "accumulate"
)

// ParseAddressPolicy validates a policy name from config.
func ParseAddressPolicy(s string) (AddressPolicy, error) {
	switch AddressPolicy(s) {
	case AddressPolicyFirst, AddressPolicyAccumulate:
		return AddressPolicy(s), nil
	}
	return "", fmt.Errorf("unknown address policy: %q (want first or accumulate)", s)
}

var (
	emailRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	emailDenylist = []string{"facebook.com", "twitter.com"}
	phoneSplitRe  = regexp.MustCompile(`[/,]`)
	// Candidates never span lines: a phone line is often followed by an
	// address or PIN line whose digits would poison the match.
	phoneCandidate  = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{5,}\d`)
	districtWordRe  = regexp.MustCompile(`(?i)\b(district|dist|dt\.?)\b`)
	districtNoiseRe = regexp.MustCompile(`(?i)district[:\s\-]*|opening of the new|reg|government of|india`)
	districtStripRe = regexp.MustCompile(`(?i)district[:\s\-]*`)
)

// FieldExtractor recovers a best-guess {district, address, phone, email}
// record from raw page text. Each field uses an independent heuristic;
// extraction is best-effort and never fails.
type FieldExtractor struct {
	phoneRegion    string
	districtPolicy DistrictPolicy
}

// NewFieldExtractor creates a field extractor for the given phone region
// (e.g. "IN") and district policy.
func NewFieldExtractor(phoneRegion string, policy DistrictPolicy) *FieldExtractor {
	return &FieldExtractor{
		phoneRegion:    phoneRegion,
		districtPolicy: policy,
	}
}

// Extract scans text for contact fields. regionHint is the roster row's
// state/UT label; it anchors address-candidate and district matching.
func (e *FieldExtractor) Extract(text, regionHint string) model.PageInfo {
	var info model.PageInfo

	info.Email = e.extractEmail(text)
	info.Tel = e.extractPhone(text)

	lines := splitLines(text)
	candidates := addressCandidates(lines, regionHint)
	if len(candidates) > 0 {
		info.Address = candidates[0]
	}

	switch e.districtPolicy {
	case DistrictPolicySimple:
		info.District = simpleDistrict(lines)
	default:
		info.District = richDistrict(lines, candidates, regionHint)
	}

	return info
}

// extractEmail returns the first email not belonging to a social domain.
func (e *FieldExtractor) extractEmail(text string) string {
	for _, match := range emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(match)
		social := false
		for _, d := range emailDenylist {
			if strings.Contains(lower, d) {
				social = true
				break
			}
		}
		if !social {
			return match
		}
	}
	return ""
}

// extractPhone splits the text on "/" and "," and returns the first
// fragment substring that validates as a phone number for the configured
// region, formatted internationally.
func (e *FieldExtractor) extractPhone(text string) string {
	for _, fragment := range phoneSplitRe.Split(text, -1) {
		for _, candidate := range phoneCandidate.FindAllString(fragment, -1) {
			num, err := phonenumbers.Parse(candidate, e.phoneRegion)
			if err != nil || !phonenumbers.IsValidNumber(num) {
				continue
			}
			return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
		}
	}
	return ""
}

// splitLines returns the trimmed non-empty lines of text.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// addressCandidates returns every line that contains 1-4 consecutive
// digits eventually followed by the region hint, case-insensitive.
func addressCandidates(lines []string, regionHint string) []string {
	if regionHint == "" {
		return nil
	}
	addrRe := regexp.MustCompile(`(?i)\d{1,4}.*(` + regexp.QuoteMeta(regionHint) + `)`)

	var candidates []string
	for _, line := range lines {
		if addrRe.MatchString(line) {
			candidates = append(candidates, line)
		}
	}
	return candidates
}

// simpleDistrict keeps the first line under 100 characters containing
// the word "district", with the word and surrounding punctuation removed.
func simpleDistrict(lines []string) string {
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "district") && len(line) < 100 {
			return titleCase(strings.TrimSpace(districtStripRe.ReplaceAllString(line, "")))
		}
	}
	return ""
}

// richDistrict takes the first district/dist/dt line, strips boilerplate
// tokens, and title-cases the last comma segment. When no such line
// exists it guesses from the first address candidate: everything before
// the region hint, last comma segment.
func richDistrict(lines, candidates []string, regionHint string) string {
	for _, line := range lines {
		if !districtWordRe.MatchString(line) {
			continue
		}
		cleaned := districtNoiseRe.ReplaceAllString(line, "")
		parts := splitSegments(cleaned)
		if len(parts) > 0 {
			return titleCase(parts[len(parts)-1])
		}
		return ""
	}

	if len(candidates) > 0 && regionHint != "" {
		prefixRe := regexp.MustCompile(`(?i)(.+?),?\s*` + regexp.QuoteMeta(regionHint))
		if m := prefixRe.FindStringSubmatch(candidates[0]); m != nil {
			parts := strings.Split(m[1], ",")
			return titleCase(strings.TrimSpace(parts[len(parts)-1]))
		}
	}
	return ""
}

// splitSegments splits on commas and drops empty segments.
func splitSegments(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

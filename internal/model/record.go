package model

import "strings"

// Column names the pipeline reads from the roster and the enrichment
// columns it adds. Any other roster columns pass through untouched.
const (
	ColSchool   = "School"
	ColState    = "State/UT"
	ColWebsite  = "Website"
	ColDistrict = "District"
	ColAddress  = "Address"
	ColTel      = "Tel"
	ColEmail    = "Email"
)

// EnrichmentColumns lists the columns the pipeline fills, in output order.
var EnrichmentColumns = []string{ColWebsite, ColDistrict, ColAddress, ColTel, ColEmail}

// Record is one roster row: the original columns plus, once processed,
// the enrichment columns. A record is fully populated in one pass and
// never mutated after it is appended to the checkpoint.
type Record map[string]string

// Clone returns a copy of the record with all enrichment columns
// initialized to empty strings.
func (r Record) Clone() Record {
	out := make(Record, len(r)+len(EnrichmentColumns))
	for k, v := range r {
		out[k] = v
	}
	for _, col := range EnrichmentColumns {
		if _, ok := out[col]; !ok {
			out[col] = ""
		}
	}
	return out
}

// School returns the normalized school name.
func (r Record) School() string {
	return NormalizeCell(r[ColSchool])
}

// State returns the normalized state/UT label.
func (r Record) State() string {
	return NormalizeCell(r[ColState])
}

// Key returns the identity key used for deduplication:
// (school, state), case-insensitive, whitespace-collapsed.
func (r Record) Key() string {
	return IdentityKey(r[ColSchool], r[ColState])
}

// ApplyInfo copies every non-empty field of info into the record's
// enrichment columns.
func (r Record) ApplyInfo(info PageInfo) {
	if info.District != "" {
		r[ColDistrict] = info.District
	}
	if info.Address != "" {
		r[ColAddress] = info.Address
	}
	if info.Tel != "" {
		r[ColTel] = info.Tel
	}
	if info.Email != "" {
		r[ColEmail] = info.Email
	}
}

// NormalizeCell strips a raw cell value and collapses embedded newlines
// and runs of whitespace into single spaces.
func NormalizeCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey builds the dedup key for a school name and state label.
func IdentityKey(school, state string) string {
	return strings.ToLower(NormalizeCell(school)) + "\x00" + strings.ToLower(NormalizeCell(state))
}

// PageInfo is a partial extraction result for one page or one candidate
// website. An empty string means the field was not found.
type PageInfo struct {
	District string
	Address  string
	Tel      string
	Email    string
}

// Merge fills each empty field of p from other. Fields already set are
// never overwritten (first-found-wins).
func (p *PageInfo) Merge(other PageInfo) {
	if p.District == "" {
		p.District = other.District
	}
	if p.Address == "" {
		p.Address = other.Address
	}
	if p.Tel == "" {
		p.Tel = other.Tel
	}
	if p.Email == "" {
		p.Email = other.Email
	}
}

// Empty reports whether no field was recovered.
func (p PageInfo) Empty() bool {
	return p.District == "" && p.Address == "" && p.Tel == "" && p.Email == ""
}

// Package checkpoint persists the enrichment run's result list as a JSON
// array, rewritten in full after every processed row so an interrupted
// run resumes where it stopped.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rosterfill/rosterfill/internal/model"
)

// Store is the append-only record list mirrored to a JSON file. Records
// are appended once per processed roster row and never mutated after.
type Store struct {
	path    string
	records []model.Record
	keys    map[string]bool
}

// Load reads an existing checkpoint file, or starts an empty store when
// the file does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{
		path: path,
		keys: make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}

	for _, rec := range s.records {
		s.keys[rec.Key()] = true
	}

	return s, nil
}

// Len returns the number of records already checkpointed. The pipeline
// uses it as the positional resume offset.
func (s *Store) Len() int {
	return len(s.records)
}

// Has reports whether a record with the given identity key exists.
func (s *Store) Has(key string) bool {
	return s.keys[key]
}

// Records returns the full record list in append order.
func (s *Store) Records() []model.Record {
	return s.records
}

// Append adds one record and rewrites the checkpoint file. The in-memory
// list grows even when the write fails; the caller logs and carries on
// with at-risk progress rather than aborting the run.
func (s *Store) Append(rec model.Record) error {
	s.records = append(s.records, rec)
	s.keys[rec.Key()] = true
	return s.save()
}

// save rewrites the whole file via a temp file and rename, so a crash
// mid-write cannot truncate the previous checkpoint.
func (s *Store) save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}

	return nil
}

// Package history owns the ordered list of generated reports and keeps it
// in sync with a durable backend.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

// StorageKey is the fixed key the serialised list is stored under.
const StorageKey = "intel_reports_history"

// Backend persists the serialised list as one opaque value.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store keeps reports newest-first. It is loaded once by New and written
// through to the backend after every mutation.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	log     logrus.FieldLogger
	items   []*report.IntelligenceReport
}

// New loads the stored list. Corrupt data is logged and replaced by an
// empty history; only backend I/O failures are returned.
func New(ctx context.Context, backend Backend, log logrus.FieldLogger) (*Store, error) {
	s := &Store{backend: backend, log: log}

	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	var items []*report.IntelligenceReport
	if err := json.Unmarshal(raw, &items); err != nil {
		log.WithError(err).Warn("stored history is corrupt, starting empty")
		return s, nil
	}
	for _, it := range items {
		if it != nil {
			s.items = append(s.items, it)
		}
	}
	return s, nil
}

// Append makes r the most recent entry.
func (s *Store) Append(ctx context.Context, r *report.IntelligenceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*report.IntelligenceReport, 0, len(s.items)+1)
	next = append(next, r.Clone())
	next = append(next, s.items...)
	return s.commit(ctx, next)
}

// Update replaces the entry with r.ID in place.
func (s *Store) Update(ctx context.Context, r *report.IntelligenceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(r.ID)
	if i < 0 {
		return report.ErrNotFound
	}
	next := append([]*report.IntelligenceReport(nil), s.items...)
	next[i] = r.Clone()
	return s.commit(ctx, next)
}

func (s *Store) Delete(ctx context.Context, id report.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return report.ErrNotFound
	}
	next := make([]*report.IntelligenceReport, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	return s.commit(ctx, next)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, nil)
}

func (s *Store) Get(id report.ReportID) (*report.IntelligenceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, report.ErrNotFound
	}
	return s.items[i].Clone(), nil
}

// List returns copies, newest first.
func (s *Store) List() []*report.IntelligenceReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*report.IntelligenceReport, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping checks the backend is reachable by reading it.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.backend.Load(ctx)
	return err
}

func (s *Store) indexOf(id report.ReportID) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// commit saves next and only then makes it the current list, so a failed
// save leaves memory and backend in agreement. Must be called with mu held.
func (s *Store) commit(ctx context.Context, next []*report.IntelligenceReport) error {
	out := next
	if out == nil {
		out = []*report.IntelligenceReport{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	s.items = next
	return nil
}

// Package memory is the in-process ledger used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"viaggi/internal/core"
	"viaggi/internal/ledger"
)

var _ ledger.Ledger = (*Store)(nil)

type Store struct {
	mu    sync.RWMutex
	cats  []string
	items []core.Expense
}

func New(cats []string) *Store {
	cats = dedupe(cats)
	if len(cats) == 0 {
		cats = append([]string(nil), ledger.DefaultCategories...)
	}
	return &Store{cats: cats}
}

// NewFromFiles reads categories from base/categories.txt, one per line.
// Blank lines and lines starting with '#' are skipped.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "categories.txt")))
}

// Append stores the expense and returns a synthetic reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = fmt.Sprintf("mem:%d", len(s.items)+1)
	e.SplitWith = append([]string(nil), e.SplitWith...)
	s.items = append(s.items, e)
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context, tripID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if e.TripID == tripID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ReadTripSummary(ctx context.Context, tripID string) (core.TripSummary, error) {
	expenses, err := s.ListExpenses(ctx, tripID)
	if err != nil {
		return core.TripSummary{}, err
	}
	return core.Summarize(tripID, expenses), nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cats...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe trims and drops repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/totegamma/works-uploader"
)

// WorksFetcher is the part of the API client the work store depends on.
type WorksFetcher interface {
	GetWorks(ctx context.Context) ([]works.Work, error)
}

// FetchMode selects how FetchWorks commits a fetched list.
type FetchMode int

const (
	// FetchReplace replaces the list with the result. Repeated fetches are idempotent.
	FetchReplace FetchMode = iota
	// FetchAppend appends the result. Repeated fetches accumulate duplicates.
	FetchAppend
)

// ParseFetchMode maps the configuration names "replace" and "append".
// An empty name selects FetchReplace.
func ParseFetchMode(name string) (FetchMode, error) {
	switch name {
	case "", "replace":
		return FetchReplace, nil
	case "append":
		return FetchAppend, nil
	default:
		return FetchReplace, fmt.Errorf("unknown fetch mode %q", name)
	}
}

// WorkStore holds the ordered list of works shown by the gallery.
type WorkStore struct {
	mu    sync.RWMutex
	works []works.Work
	api   WorksFetcher
	mode  FetchMode
}

type Option func(*WorkStore)

func WithFetchMode(mode FetchMode) Option {
	return func(s *WorkStore) {
		s.mode = mode
	}
}

// WithWorks seeds the initial state.
func WithWorks(list []works.Work) Option {
	return func(s *WorkStore) {
		s.works = append([]works.Work(nil), list...)
	}
}

func NewWorkStore(api WorksFetcher, opts ...Option) *WorkStore {
	s := &WorkStore{
		api:   api,
		works: []works.Work{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WorkStore) Mode() FetchMode {
	return s.mode
}

// Works returns a copy of the current list.
func (s *WorkStore) Works() []works.Work {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]works.Work{}, s.works...)
}

func (s *WorkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.works)
}

// SetWorks replaces the whole list.
func (s *WorkStore) SetWorks(list []works.Work) {
	replacement := append([]works.Work{}, list...)
	s.mu.Lock()
	s.works = replacement
	s.mu.Unlock()
}

// AddWorks appends items in order. Ids are not de-duplicated.
func (s *WorkStore) AddWorks(items ...works.Work) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	s.works = append(s.works, items...)
	s.mu.Unlock()
}

// FetchWorks loads the list from the API and commits it according to the
// store's mode. On error the state is left untouched.
func (s *WorkStore) FetchWorks(ctx context.Context) error {
	list, err := s.api.GetWorks(ctx)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to fetch works",
			slog.String("error", err.Error()),
			slog.String("module", "store"),
		)
		return err
	}

	switch s.mode {
	case FetchAppend:
		s.AddWorks(list...)
	default:
		s.SetWorks(list)
	}
	return nil
}

// GetWorkByID returns the first work with the given id.
func (s *WorkStore) GetWorkByID(id string) (works.Work, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.works {
		if w.ID == id {
			return w, true
		}
	}
	return works.Work{}, false
}

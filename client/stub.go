package client

import (
	"context"
	"sync"
	"time"

	"github.com/totegamma/works-uploader"
)

// Stub is an in-memory API serving a fixed list of works. It is used while
// developing the frontend without a backend.
type Stub struct {
	mu     sync.Mutex
	works  []works.Work
	posted []works.WorkForm
}

func NewStub() *Stub {
	return NewStubWith(DefaultWorks(time.Now()))
}

func NewStubWith(list []works.Work) *Stub {
	return &Stub{works: append([]works.Work(nil), list...)}
}

// DefaultWorks is the fixture list served by NewStub.
func DefaultWorks(now time.Time) []works.Work {
	authors := []string{"taro", "hanako", "taro", "taro", "taro"}
	ids := []string{"01", "02", "03", "04", "05"}

	list := make([]works.Work, 0, len(ids))
	for i, id := range ids {
		list = append(list, works.Work{
			ID:           id,
			Author:       authors[i],
			Title:        "hoge",
			Description:  "aaaaaaaaaaaaaaaa",
			ThumbnailURL: "http://example.com",
			ContentURL:   "https://example.com",
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return list
}

func (s *Stub) GetWorks(ctx context.Context) ([]works.Work, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]works.Work(nil), s.works...), nil
}

func (s *Stub) PostWork(ctx context.Context, form works.WorkForm) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted = append(s.posted, form)
	return nil
}

// Posted returns the forms received by PostWork, oldest first.
func (s *Stub) Posted() []works.WorkForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]works.WorkForm(nil), s.posted...)
}

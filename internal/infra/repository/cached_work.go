package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/infra/cache"
	"github.com/totegamma/works-uploader/internal/usecase"
)

const workCacheTTL = 5 * time.Minute

// CachedWorkRepository serves single-work lookups from a cache and invalidates
// entries on update and delete.
type CachedWorkRepository struct {
	usecase.WorkRepository
	cache cache.Cache
}

func NewCachedWorkRepository(inner usecase.WorkRepository, c cache.Cache) *CachedWorkRepository {
	return &CachedWorkRepository{WorkRepository: inner, cache: c}
}

func workCacheKey(id string) string {
	return "work:" + id
}

func (r *CachedWorkRepository) Get(ctx context.Context, id string) (works.Work, error) {
	key := workCacheKey(id)

	data, err := r.cache.Get(key)
	if err == nil {
		var work works.Work
		if err := json.Unmarshal(data, &work); err == nil {
			return work, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		r.warn(ctx, "cache get failed", key, err)
	}

	work, err := r.WorkRepository.Get(ctx, id)
	if err != nil {
		return works.Work{}, err
	}

	data, err = json.Marshal(work)
	if err == nil {
		if err := r.cache.Set(key, data, workCacheTTL); err != nil {
			r.warn(ctx, "cache set failed", key, err)
		}
	}

	return work, nil
}

func (r *CachedWorkRepository) Update(ctx context.Context, work works.Work) (works.Work, error) {
	updated, err := r.WorkRepository.Update(ctx, work)
	r.invalidate(ctx, work.ID)
	return updated, err
}

func (r *CachedWorkRepository) Delete(ctx context.Context, id string) error {
	err := r.WorkRepository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *CachedWorkRepository) invalidate(ctx context.Context, id string) {
	key := workCacheKey(id)
	if err := r.cache.Delete(key); err != nil {
		r.warn(ctx, "cache delete failed", key, err)
	}
}

func (r *CachedWorkRepository) warn(ctx context.Context, msg, key string, err error) {
	slog.WarnContext(
		ctx, msg,
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.String("module", "repository"),
	)
}

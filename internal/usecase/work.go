package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
)

var tracer = otel.Tracer("usecase")

type WorkUsecase struct {
	repo       WorkRepository
	storage    ObjectStorage
	activities *ActivityUsecase
	validator  FormValidator
	now        func() time.Time
}

func NewWorkUsecase(
	repo WorkRepository,
	storage ObjectStorage,
	activities *ActivityUsecase,
	validator FormValidator,
) *WorkUsecase {
	return &WorkUsecase{
		repo:       repo,
		storage:    storage,
		activities: activities,
		validator:  validator,
		now:        time.Now,
	}
}

// List returns a page of works, newest first, and the total count.
func (uc *WorkUsecase) List(ctx context.Context, offset, limit int) ([]works.Work, int64, error) {
	ctx, span := tracer.Start(ctx, "Work.Usecase.List")
	defer span.End()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	span.SetAttributes(attribute.Int("offset", offset), attribute.Int("limit", limit))

	list, err := uc.repo.List(ctx, offset, limit)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.List failed"))
		return nil, 0, err
	}

	total, err := uc.repo.Count(ctx)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Count failed"))
		return nil, 0, err
	}

	return list, total, nil
}

func (uc *WorkUsecase) Get(ctx context.Context, id string) (works.Work, error) {
	ctx, span := tracer.Start(ctx, "Work.Usecase.Get")
	defer span.End()

	return uc.repo.Get(ctx, id)
}

// Create validates the form, uploads any attached files and stores the work
// authored by the requester. A NEW activity is recorded on success.
func (uc *WorkUsecase) Create(ctx context.Context, author works.User, form works.WorkForm) (works.Work, error) {
	ctx, span := tracer.Start(ctx, "Work.Usecase.Create")
	defer span.End()

	if err := uc.validator.Validate(form); err != nil {
		return works.Work{}, err
	}

	now := uc.now()
	work := works.Work{
		ID:          uuid.NewString(),
		Author:      author.ID,
		Title:       form.Title,
		Description: form.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	uploaded, err := uc.applyFiles(ctx, &work, form)
	if err != nil {
		span.RecordError(errors.Wrap(err, "failed to upload files"))
		return works.Work{}, err
	}

	created, err := uc.repo.Create(ctx, work)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Create failed"))
		uc.discard(ctx, uploaded)
		return works.Work{}, err
	}
	span.SetAttributes(attribute.String("work", created.ID))

	uc.record(ctx, works.ActivityTypeNew, author, created)

	return created, nil
}

// Update applies the form to an existing work. Only its author may update it.
func (uc *WorkUsecase) Update(ctx context.Context, requester works.User, id string, form works.WorkForm) (works.Work, error) {
	ctx, span := tracer.Start(ctx, "Work.Usecase.Update")
	defer span.End()

	existing, err := uc.repo.Get(ctx, id)
	if err != nil {
		return works.Work{}, err
	}
	if existing.Author != requester.ID {
		return works.Work{}, domain.ErrForbidden
	}

	if err := uc.validator.Validate(form); err != nil {
		return works.Work{}, err
	}

	existing.Title = form.Title
	existing.Description = form.Description
	existing.UpdatedAt = uc.now()

	uploaded, err := uc.applyFiles(ctx, &existing, form)
	if err != nil {
		span.RecordError(errors.Wrap(err, "failed to upload files"))
		return works.Work{}, err
	}

	updated, err := uc.repo.Update(ctx, existing)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Update failed"))
		uc.discard(ctx, uploaded)
		return works.Work{}, err
	}

	uc.record(ctx, works.ActivityTypeUpdate, requester, updated)

	return updated, nil
}

// Delete removes a work. Only its author may delete it.
func (uc *WorkUsecase) Delete(ctx context.Context, requester works.User, id string) error {
	ctx, span := tracer.Start(ctx, "Work.Usecase.Delete")
	defer span.End()

	existing, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Author != requester.ID {
		return domain.ErrForbidden
	}

	err = uc.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Delete failed"))
		return err
	}
	return nil
}

func (uc *WorkUsecase) applyFiles(ctx context.Context, work *works.Work, form works.WorkForm) ([]string, error) {
	var uploaded []string

	if form.Thumbnail != nil {
		key := ObjectKey("thumbnails", form.Thumbnail)
		url, err := uc.storage.Put(ctx, key, form.Thumbnail.Data, form.Thumbnail.ContentType)
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, key)
		work.ThumbnailURL = url
	}

	switch form.Type {
	case works.WorkTypeURL:
		work.ContentURL = form.ContentURL
	case works.WorkTypeFile:
		key := ObjectKey("contents", form.Content)
		url, err := uc.storage.Put(ctx, key, form.Content.Data, form.Content.ContentType)
		if err != nil {
			uc.discard(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, key)
		work.ContentURL = url
	}

	return uploaded, nil
}

func (uc *WorkUsecase) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := uc.storage.Delete(ctx, key); err != nil {
			slog.WarnContext(
				ctx, "failed to discard uploaded object",
				slog.String("key", key),
				slog.String("error", err.Error()),
				slog.String("module", "usecase"),
			)
		}
	}
}

func (uc *WorkUsecase) record(ctx context.Context, typ works.ActivityType, user works.User, work works.Work) {
	if uc.activities == nil {
		return
	}
	_, err := uc.activities.Record(ctx, typ, user, work)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to record activity",
			slog.String("type", typ.String()),
			slog.String("work", work.ID),
			slog.String("error", err.Error()),
			slog.String("module", "usecase"),
		)
	}
}

// ObjectKey derives a content-addressed key for an uploaded file.
func ObjectKey(prefix string, file *works.FormFile) string {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	return fmt.Sprintf("%s/%016x%s", prefix, xxh3.Hash(file.Data), ext)
}

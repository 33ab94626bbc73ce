package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
)

type ActivityUsecase struct {
	repo      ActivityRepository
	publisher ActivityPublisher
	now       func() time.Time
}

// NewActivityUsecase creates the usecase. publisher may be nil.
func NewActivityUsecase(repo ActivityRepository, publisher ActivityPublisher) *ActivityUsecase {
	return &ActivityUsecase{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

func (uc *ActivityUsecase) Recent(ctx context.Context, limit int) ([]works.Activity, error) {
	ctx, span := tracer.Start(ctx, "Activity.Usecase.Recent")
	defer span.End()

	if limit <= 0 {
		limit = domain.DefaultActivityLimit
	}
	if limit > domain.MaxActivityLimit {
		limit = domain.MaxActivityLimit
	}

	list, err := uc.repo.Recent(ctx, limit)
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Recent failed"))
		return nil, err
	}
	return list, nil
}

// Record stores an activity and publishes it. Publish failures are logged only.
func (uc *ActivityUsecase) Record(ctx context.Context, typ works.ActivityType, user works.User, work works.Work) (works.Activity, error) {
	ctx, span := tracer.Start(ctx, "Activity.Usecase.Record")
	defer span.End()

	activity, err := uc.repo.Create(ctx, works.Activity{
		Type:      typ,
		User:      user,
		Work:      work,
		CreatedAt: uc.now(),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "repo.Create failed"))
		return works.Activity{}, err
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishActivity(ctx, activity); err != nil {
			span.RecordError(errors.Wrap(err, "publisher.PublishActivity failed"))
			slog.WarnContext(
				ctx, "failed to publish activity",
				slog.String("error", err.Error()),
				slog.String("module", "usecase"),
			)
		}
	}

	return activity, nil
}

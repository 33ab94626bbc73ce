package usecase

import (
	"context"

	"github.com/totegamma/works-uploader"
)

// WorkRepository defines persistence for works.
type WorkRepository interface {
	List(ctx context.Context, offset, limit int) ([]works.Work, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (works.Work, error)
	Create(ctx context.Context, work works.Work) (works.Work, error)
	Update(ctx context.Context, work works.Work) (works.Work, error)
	Delete(ctx context.Context, id string) error
}

// ActivityRepository defines persistence for the activity feed.
type ActivityRepository interface {
	Create(ctx context.Context, activity works.Activity) (works.Activity, error)
	Recent(ctx context.Context, limit int) ([]works.Activity, error)
}

// ObjectStorage stores uploaded thumbnails and contents and returns their public URL.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ActivityPublisher announces recorded activities to realtime listeners.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, activity works.Activity) error
}

// FormValidator checks a work form before it is applied.
type FormValidator interface {
	Validate(i any) error
}

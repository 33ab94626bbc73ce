package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"gorm.io/gorm"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/infra/database/models"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity works.Activity) (works.Activity, error) {
	snapshot, err := json.Marshal(activity.Work)
	if err != nil {
		return works.Activity{}, err
	}

	row := models.Activity{
		Type:   int(activity.Type),
		UserID: activity.User.ID,
		WorkID: activity.Work.ID,
		Work:   string(snapshot),
		CDate:  activity.CreatedAt,
	}

	err = r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return works.Activity{}, err
	}

	activity.ID = row.ID
	return activity, nil
}

// Recent returns the newest activities first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]works.Activity, error) {
	var rows []models.Activity
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("c_date DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]works.Activity, 0, len(rows))
	for _, row := range rows {
		var work works.Work
		if err := json.Unmarshal([]byte(row.Work), &work); err != nil {
			slog.WarnContext(
				ctx, "broken activity snapshot",
				slog.Int64("activity", row.ID),
				slog.String("error", err.Error()),
				slog.String("module", "repository"),
			)
			work = works.Work{ID: row.WorkID}
		}

		result = append(result, works.Activity{
			ID:        row.ID,
			Type:      works.ActivityType(row.Type),
			User:      userFromModel(row.User),
			Work:      work,
			CreatedAt: row.CDate,
		})
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
	"github.com/totegamma/works-uploader/internal/infra/database/models"
)

type WorkRepository struct {
	db *gorm.DB
}

func NewWorkRepository(db *gorm.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

func (r *WorkRepository) List(ctx context.Context, offset, limit int) ([]works.Work, error) {
	var rows []models.Work
	err := r.db.WithContext(ctx).
		Order("c_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]works.Work, 0, len(rows))
	for _, row := range rows {
		result = append(result, workFromModel(row))
	}
	return result, nil
}

func (r *WorkRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Work{}).Count(&count).Error
	return count, err
}

func (r *WorkRepository) Get(ctx context.Context, id string) (works.Work, error) {
	var row models.Work
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return works.Work{}, domain.NotFoundError{Resource: "work"}
		}
		return works.Work{}, err
	}
	return workFromModel(row), nil
}

func (r *WorkRepository) Create(ctx context.Context, work works.Work) (works.Work, error) {
	row := workToModel(work)
	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return works.Work{}, err
	}
	return workFromModel(row), nil
}

func (r *WorkRepository) Update(ctx context.Context, work works.Work) (works.Work, error) {
	row := workToModel(work)
	result := r.db.WithContext(ctx).
		Model(&models.Work{}).
		Where("id = ?", work.ID).
		Updates(map[string]any{
			"title":         row.Title,
			"description":   row.Description,
			"thumbnail_url": row.ThumbnailURL,
			"content_url":   row.ContentURL,
			"m_date":        row.MDate,
		})
	if result.Error != nil {
		return works.Work{}, result.Error
	}
	if result.RowsAffected == 0 {
		return works.Work{}, domain.NotFoundError{Resource: "work"}
	}
	return r.Get(ctx, work.ID)
}

func (r *WorkRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Work{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "work"}
	}
	return nil
}

func workFromModel(m models.Work) works.Work {
	return works.Work{
		ID:           m.ID,
		Author:       m.Author,
		Title:        m.Title,
		Description:  m.Description,
		ThumbnailURL: m.ThumbnailURL,
		ContentURL:   m.ContentURL,
		CreatedAt:    m.CDate,
		UpdatedAt:    m.MDate,
	}
}

func workToModel(w works.Work) models.Work {
	return models.Work{
		ID:           w.ID,
		Author:       w.Author,
		Title:        w.Title,
		Description:  w.Description,
		ThumbnailURL: w.ThumbnailURL,
		ContentURL:   w.ContentURL,
		CDate:        w.CreatedAt,
		MDate:        w.UpdatedAt,
	}
}

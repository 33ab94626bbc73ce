package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user or refreshes its profile fields.
func (r *UserRepository) Upsert(ctx context.Context, user works.User) (works.User, error) {
	row := models.User{
		ID:       user.ID,
		Name:     user.Name,
		Nickname: user.Nickname,
		Picture:  user.Picture,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "nickname", "picture", "m_date"}),
	}).Create(&row).Error
	if err != nil {
		return works.User{}, err
	}

	return userFromModel(row), nil
}

func userFromModel(m models.User) works.User {
	return works.User{
		ID:       m.ID,
		Name:     m.Name,
		Nickname: m.Nickname,
		Picture:  m.Picture,
	}
}

package models

import (
	"time"
)

type User struct {
	ID       string    `json:"id" gorm:"primaryKey;type:text"`
	Name     string    `json:"name" gorm:"type:text"`
	Nickname string    `json:"nickname" gorm:"type:text"`
	Picture  string    `json:"picture" gorm:"type:text"`
	CDate    time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate    time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type Work struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	Author       string    `json:"author" gorm:"type:text;index"`
	Title        string    `json:"title" gorm:"type:text;not null"`
	Description  string    `json:"description" gorm:"type:text"`
	ThumbnailURL string    `json:"thumbnailUrl" gorm:"type:text"`
	ContentURL   string    `json:"contentUrl" gorm:"type:text"`
	CDate        time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;index"`
	MDate        time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}

// Activity keeps a snapshot of the work so the feed survives deletion.
type Activity struct {
	ID     int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Type   int       `json:"type" gorm:"not null"`
	UserID string    `json:"userID" gorm:"type:text;index"`
	User   User      `json:"user" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;"`
	WorkID string    `json:"workID" gorm:"type:text;index"`
	Work   string    `json:"work" gorm:"type:jsonb"`
	CDate  time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;index"`
}

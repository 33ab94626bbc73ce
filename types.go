package works

import (
	"time"
)

type WorkType int

const (
	WorkTypeURL  WorkType = 1
	WorkTypeFile WorkType = 2
)

type ActivityType int

const (
	ActivityTypeNew    ActivityType = 1
	ActivityTypeUpdate ActivityType = 2
)

// Work is a gallery entry as served by GET /works.
type Work struct {
	ID           string    `json:"id"`
	Author       string    `json:"author"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	ContentURL   string    `json:"contentUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FormFile is an uploaded file carried by a WorkForm. It never appears in JSON.
type FormFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// WorkForm is the draft submitted to create or update a work.
type WorkForm struct {
	Type        WorkType  `json:"type" form:"type" validate:"required,oneof=1 2"`
	Title       string    `json:"title" form:"title" validate:"required,notblank,max=100"`
	ContentURL  string    `json:"contentUrl,omitempty" form:"contentUrl" validate:"required_if=Type 1,omitempty,url"`
	Description string    `json:"description" form:"description" validate:"max=200"`
	Thumbnail   *FormFile `json:"-" form:"-" validate:"required_if=Type 2"`
	Content     *FormFile `json:"-" form:"-" validate:"required_if=Type 2"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

type Activity struct {
	ID        int64        `json:"id"`
	Type      ActivityType `json:"type"`
	User      User         `json:"user"`
	Work      Work         `json:"work"`
	CreatedAt time.Time    `json:"createdAt"`
}

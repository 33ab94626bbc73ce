package store

import (
	"time"

	"github.com/totegamma/works-uploader"
)

const defaultPicture = "https://cdn.pixabay.com/photo/2021/05/02/08/33/jellyfish-6222849_960_720.jpg"

// ActivityStore is a read-only feed initialised once.
type ActivityStore struct {
	activities []works.Activity
}

func NewActivityStore(seed []works.Activity) *ActivityStore {
	return &ActivityStore{activities: append([]works.Activity{}, seed...)}
}

func (s *ActivityStore) Activities() []works.Activity {
	return append([]works.Activity{}, s.activities...)
}

// DefaultActivities is the feed shown until a real activity source is wired in.
func DefaultActivities(now time.Time) []works.Activity {
	user := works.User{
		ID:       "aaaaa",
		Name:     "XXX",
		Nickname: "XXX",
		Picture:  defaultPicture,
	}
	work := works.Work{
		ID:        "000",
		Author:    "abc",
		Title:     "YYY",
		CreatedAt: now,
		UpdatedAt: now,
	}

	return []works.Activity{
		{ID: 0, Type: works.ActivityTypeNew, User: user, Work: work, CreatedAt: now},
		{ID: 1, Type: works.ActivityTypeUpdate, User: user, Work: work, CreatedAt: now},
	}
}

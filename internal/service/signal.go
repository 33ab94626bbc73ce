package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, activity works.Activity) error {

	jsonstr, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

func (s *SignalService) PublishActivity(ctx context.Context, activity works.Activity) error {
	return s.Publish(ctx, domain.ActivityChannel, activity)
}

// Realtime forwards activities published on the activity channel to output
// until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, output chan<- works.Activity) {
	pubsub := s.rdb.Subscribe(ctx, domain.ActivityChannel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			activity, err := DecodeActivity(msg.Payload)
			if err != nil {
				slog.ErrorContext(
					ctx, "Failed to decode activity",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			select {
			case output <- activity:
			case <-ctx.Done():
				return
			}
		}
	}
}

func DecodeActivity(payload string) (works.Activity, error) {
	var activity works.Activity
	err := json.Unmarshal([]byte(payload), &activity)
	return activity, err
}

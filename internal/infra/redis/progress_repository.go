package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"cx-lms-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ProgressRepository stores one JSON progress document per learner at lms:progress:{learnerID}.
type ProgressRepository struct {
	client *redis.Client
}

func NewProgressRepository(client *redis.Client) *ProgressRepository {
	return &ProgressRepository{client: client}
}

func (r *ProgressRepository) Load(ctx context.Context, learnerID string) (domain.Progress, error) {
	data, err := r.client.Get(ctx, progressKey(learnerID)).Bytes()
	if isNil(err) {
		return domain.NewProgress(), nil
	}
	if err != nil {
		return domain.Progress{}, err
	}
	var p domain.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Progress{}, fmt.Errorf("decode progress %s: %w", learnerID, err)
	}
	p.Normalize()
	return p, nil
}

func (r *ProgressRepository) Save(ctx context.Context, learnerID string, progress domain.Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, progressKey(learnerID), data, 0).Err()
}

func progressKey(learnerID string) string {
	return "lms:progress:" + learnerID
}

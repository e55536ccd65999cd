package render

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Queue hands job ids to the external worker pool over a redis list.
// Delivery is at-least-once; the worker is responsible for idempotent
// processing.
type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Enqueue pushes one job id for the workers.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.name, jobID).Err()
}

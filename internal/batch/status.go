package batch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"bananalab/internal/infra"
)

const statusTTL = 24 * time.Hour

// StatusPublisher mirrors job progress into Redis hashes so dashboards can
// poll without touching Postgres. It is best effort; a nil client or a
// failed write never affects the run.
type StatusPublisher struct {
	rdb    *redis.Client
	logger infra.Logger
}

func NewStatusPublisher(rdb *redis.Client, logger infra.Logger) *StatusPublisher {
	return &StatusPublisher{rdb: rdb, logger: logger}
}

// Publish merges fields into the job's status hash and refreshes its TTL.
func (p *StatusPublisher) Publish(ctx context.Context, jobID string, fields map[string]any) {
	if p == nil || p.rdb == nil {
		return
	}
	key := "batchjob:" + jobID
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, statusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn().Err(err).Str("job_id", jobID).Msg("status: publish failed")
	}
}

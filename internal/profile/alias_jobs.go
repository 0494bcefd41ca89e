package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/vacstatus/vacstatus/internal/cache"
	"github.com/vacstatus/vacstatus/internal/queue"
	"github.com/vacstatus/vacstatus/pkg/log"
)

// AliasArgs identifies an alias processing batch. The id list itself lives
// in the cache under the token, not in the job row.
type AliasArgs struct {
	Token string `json:"token"`
}

func (args AliasArgs) Kind() string {
	return "profile_alias"
}

func (args AliasArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:    string(queue.Default),
		Priority: int(queue.Slow),
	}
}

func NewAliasWorker(repo Repository, cacheClient cache.Cache, coolDown time.Duration) *AliasWorker {
	return &AliasWorker{repo: repo, cache: cacheClient, coolDown: coolDown}
}

// AliasWorker replays alias history maintenance for a refreshed id batch
// out of band. The work is idempotent: names already recorded by the
// refresh pass are simply found in history and skipped.
type AliasWorker struct {
	river.WorkerDefaults[AliasArgs]
	repo     Repository
	cache    cache.Cache
	coolDown time.Duration
}

func (worker *AliasWorker) Work(ctx context.Context, job *river.Job[AliasArgs]) error {
	key := AliasTokenKey(job.Args.Token)

	var smallIDs []int64
	if errGet := worker.cache.Get(ctx, key, &smallIDs); errGet != nil {
		if errors.Is(errGet, cache.ErrMiss) {
			return river.JobCancel(errGet)
		}

		return errGet
	}

	now := time.Now()

	for _, smallID := range smallIDs {
		prof, errProfile := worker.repo.GetOrCreate(ctx, smallID)
		if errProfile != nil {
			return errProfile
		}

		if prof.DisplayName == "" {
			continue
		}

		if _, errAlias := MaintainAlias(ctx, worker.repo, prof.ProfileID, prof.DisplayName, now, worker.coolDown); errAlias != nil {
			return errAlias
		}
	}

	if errForget := worker.cache.Forget(ctx, key); errForget != nil {
		slog.Warn("Failed to drop alias batch token", log.ErrAttr(errForget),
			slog.String("token", job.Args.Token))
	}

	return nil
}

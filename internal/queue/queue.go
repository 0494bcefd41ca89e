// Package queue wraps the river job queue client used for background task
// handoff.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/vacstatus/vacstatus/pkg/log"
)

var (
	ErrMigrateQueue = errors.New("failed to migrate queue database tables")
	ErrSetupQueue   = errors.New("failed to setup queue client")
)

type JobPriority int

const (
	RealTime JobPriority = 1
	High     JobPriority = 2
	Normal   JobPriority = 3
	Slow     JobPriority = 4
)

type NamedQueue string

const Default NamedQueue = "default"

func Init(ctx context.Context, dbPool *pgxpool.Pool) error {
	migrator, errNew := rivermigrate.New[pgx.Tx](riverpgxv5.New(dbPool), nil)
	if errNew != nil {
		return errors.Join(errNew, ErrMigrateQueue)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return errors.Join(err, ErrMigrateQueue)
	}

	for _, ver := range res.Versions {
		slog.Info("Migrated river version", slog.Int("version", ver.Version))
	}

	return nil
}

func Client(dbPool *pgxpool.Pool, workers *river.Workers) (*river.Client[pgx.Tx], error) {
	newRiverClient, err := river.NewClient[pgx.Tx](riverpgxv5.New(dbPool), &river.Config{
		JobTimeout: time.Minute * 5,
		Queues: map[string]river.QueueConfig{
			string(Default): {MaxWorkers: 2},
		},
		Workers:      workers,
		ErrorHandler: &errorHandler{},
		MaxAttempts:  3,
	})
	if err != nil {
		return nil, errors.Join(err, ErrSetupQueue)
	}

	return newRiverClient, nil
}

// InsertOnlyClient returns a client that can enqueue jobs but never works
// them. One-shot commands use it so queued work is picked up by the running
// service instead.
func InsertOnlyClient(dbPool *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	newRiverClient, err := river.NewClient[pgx.Tx](riverpgxv5.New(dbPool), &river.Config{})
	if err != nil {
		return nil, errors.Join(err, ErrSetupQueue)
	}

	return newRiverClient, nil
}

type errorHandler struct{}

func (*errorHandler) HandleError(_ context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	slog.Error("Job returned error", log.ErrAttr(err),
		slog.String("queue", job.Queue), slog.String("kind", job.Kind),
		slog.String("args", string(job.EncodedArgs)))

	return nil
}

func (*errorHandler) HandlePanic(_ context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	slog.Error("Job panic",
		slog.String("trace", trace), slog.Any("value", panicVal),
		slog.String("queue", job.Queue), slog.String("kind", job.Kind),
		slog.String("args", string(job.EncodedArgs)))

	return nil
}

// Enqueuer abstracts job insertion so pipelines can be tested without a
// live queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, args river.JobArgs) error
}

type riverEnqueuer struct {
	client *river.Client[pgx.Tx]
}

func NewEnqueuer(client *river.Client[pgx.Tx]) Enqueuer {
	return &riverEnqueuer{client: client}
}

func (e *riverEnqueuer) Enqueue(ctx context.Context, args river.JobArgs) error {
	_, err := e.client.Insert(ctx, args, nil)

	return err //nolint:wrapcheck
}

// Package worker runs the background mirror that copies loan snapshots into
// the staff spreadsheet. The write path only enqueues; every Sheets call
// happens here, off the request path, with retries.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"paras/internal/domain"
	"paras/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	mirrorQueueKey      = "paras:mirror:queue"
	mirrorDeadLetterKey = "paras:mirror:deadletter"
)

// mirrorTask is the queue wire format. RetryCount travels with the task so a
// requeued task keeps its attempt history.
type mirrorTask struct {
	Loan       *models.Loan `json:"loan"`
	RetryCount int          `json:"retryCount"`
	EnqueuedAt time.Time    `json:"enqueuedAt"`
}

// MirrorWorker consumes loan snapshots and upserts them into the spreadsheet.
// Redis is the primary queue; a bounded in-memory channel covers the case
// where Redis is down or not configured.
type MirrorWorker struct {
	sheets      domain.SheetsWriter
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan mirrorTask
	logger      *zerolog.Logger
}

func NewMirrorWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *MirrorWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &MirrorWorker{
		sheets:      sheets,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan mirrorTask, 128),
		logger:      logger,
	}
}

// EnqueueLoan schedules a snapshot for mirroring. Never blocks the caller:
// if Redis is unavailable and the memory queue is full, the task is dropped
// with a log line.
func (w *MirrorWorker) EnqueueLoan(ctx context.Context, loan *models.Loan) error {
	if loan == nil || loan.ID == "" {
		return errors.New("loan id is required")
	}

	task := mirrorTask{Loan: loan, EnqueuedAt: time.Now()}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("mirror: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Error().Str("loan_id", loan.ID).Msg("mirror: memory queue full, task dropped")
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *MirrorWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mirror worker started")
	defer w.logger.Info().Msg("mirror worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
		case <-time.After(time.Second):
		}
	}
}

func (w *MirrorWorker) tryLocalQueue() (mirrorTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return mirrorTask{}, false
	}
}

func (w *MirrorWorker) tryRedis(ctx context.Context) (mirrorTask, bool) {
	if w.redis == nil {
		return mirrorTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, mirrorQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return mirrorTask{}, false
		}
		w.logger.Warn().Err(err).Msg("mirror: redis BRPOP error")
		return mirrorTask{}, false
	}
	if len(res) != 2 {
		return mirrorTask{}, false
	}
	var task mirrorTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("mirror: decode redis task")
		return mirrorTask{}, false
	}
	return task, true
}

func (w *MirrorWorker) processTask(ctx context.Context, task mirrorTask) {
	if task.Loan == nil {
		w.logger.Warn().Msg("mirror: task without loan, dropped")
		return
	}

	if err := w.sheets.UpsertLoan(ctx, task.Loan); err != nil {
		w.retryOrDrop(ctx, task, err)
		return
	}
	w.logger.Debug().Str("loan_id", task.Loan.ID).Msg("mirror: loan upserted")
}

// retryOrDrop requeues the task after a backoff delay, or pushes it to the
// dead-letter list once the attempt budget is spent.
func (w *MirrorWorker) retryOrDrop(ctx context.Context, task mirrorTask, cause error) {
	task.RetryCount++
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).
			Str("loan_id", task.Loan.ID).
			Int("attempts", task.RetryCount).
			Msg("mirror: task exhausted retries")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(cause).
		Str("loan_id", task.Loan.ID).
		Int("attempt", task.RetryCount).
		Dur("retry_in", delay).
		Msg("mirror: upsert failed, will retry")

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			if w.redis != nil {
				if err := w.pushRedis(ctx, task); err == nil {
					return
				}
			}
			select {
			case w.queue <- task:
			default:
				w.logger.Error().Str("loan_id", task.Loan.ID).Msg("mirror: requeue failed, task dropped")
			}
		}
	}()
}

func (w *MirrorWorker) pushRedis(ctx context.Context, task mirrorTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, mirrorQueueKey, data).Err()
}

func (w *MirrorWorker) pushDeadLetter(ctx context.Context, task mirrorTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("mirror: encode deadletter task")
		return
	}
	if err := w.redis.LPush(ctx, mirrorDeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("mirror: deadletter push failed")
	}
}

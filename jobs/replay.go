package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	jobmetrics "github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/jobs"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

const (
	replayLockKey = "jobs:channel_replay:lock"
	replayLockTTL = 2 * time.Minute
)

// JournalStore lists and settles journaled channel calls.
type JournalStore interface {
	ListPending(ctx context.Context, limit int) ([]integration.JournalEntry, error)
	MarkReplayed(ctx context.Context, id uuid.UUID) error
}

// IdempotencyGuard ensures each journal entry is applied at most once.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Replayer re-issues journaled channel calls against the storefront.
type Replayer struct {
	journal     JournalStore
	channel     integration.OrderChannel
	idempotency IdempotencyGuard
	locker      *redis.Client
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
	batchSize   int
}

// ReplayerConfig collects Replayer dependencies. Locker and Metrics may be
// nil; Idempotency may be nil when at-most-once is not required.
type ReplayerConfig struct {
	Journal     JournalStore
	Channel     integration.OrderChannel
	Idempotency IdempotencyGuard
	Locker      *redis.Client
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	BatchSize   int
}

// NewReplayer constructs a Replayer.
func NewReplayer(cfg ReplayerConfig) *Replayer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Replayer{
		journal:     cfg.Journal,
		channel:     cfg.Channel,
		idempotency: cfg.Idempotency,
		locker:      cfg.Locker,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		batchSize:   cfg.BatchSize,
	}
}

// HandleChannelReplay processes TaskTypeChannelReplay tasks. Only one
// replay run executes at a time across worker instances; overlapping runs
// bail out on the Redis lock.
func (r *Replayer) HandleChannelReplay(ctx context.Context, _ *asynq.Task) error {
	tracker := r.metrics.Track("channel_replay")
	return tracker.End(r.replayPending(ctx))
}

func (r *Replayer) replayPending(ctx context.Context) error {
	if r.locker != nil {
		locked, err := r.locker.SetNX(ctx, replayLockKey, "1", replayLockTTL).Result()
		if err != nil {
			return err
		}
		if !locked {
			r.logger.Debug("replay already running elsewhere, skipping")
			return nil
		}
		defer r.locker.Del(context.WithoutCancel(ctx), replayLockKey)
	}

	entries, err := r.journal.ListPending(ctx, r.batchSize)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := r.replayEntry(ctx, entry); err != nil {
			r.logger.Warn("replay failed, entry stays pending",
				slog.String("id", entry.ID.String()),
				slog.String("op", entry.Op),
				slog.Any("error", err))
		}
	}
	return nil
}

func (r *Replayer) replayEntry(ctx context.Context, entry integration.JournalEntry) error {
	key := "replay:" + entry.ID.String()
	if r.idempotency != nil {
		err := r.idempotency.CheckAndInsert(ctx, key, "integration")
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			// Applied by a previous run that died before settling.
			return r.journal.MarkReplayed(ctx, entry.ID)
		}
		if err != nil {
			return err
		}
	}
	if err := r.apply(ctx, entry); err != nil {
		if r.idempotency != nil {
			_ = r.idempotency.Delete(ctx, key)
		}
		return err
	}
	return r.journal.MarkReplayed(ctx, entry.ID)
}

func (r *Replayer) apply(ctx context.Context, entry integration.JournalEntry) error {
	switch entry.Op {
	case integration.OpIncreaseStock:
		return r.channel.IncreaseStock(ctx, stringField(entry.Payload, "product_ref"), intField(entry.Payload, "qty"))
	case integration.OpSetOrderStatus:
		return r.channel.SetOrderStatus(ctx, stringField(entry.Payload, "order_ref"), stringField(entry.Payload, "status"))
	case integration.OpAddOrderNote:
		return r.channel.AddOrderNote(ctx, stringField(entry.Payload, "order_ref"), stringField(entry.Payload, "text"), boolField(entry.Payload, "customer_visible"))
	}
	return errors.New("unknown journal op " + entry.Op)
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

// intField tolerates float64, the type JSON decoding produces for numbers.
func intField(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolField(payload map[string]any, key string) bool {
	v, _ := payload[key].(bool)
	return v
}

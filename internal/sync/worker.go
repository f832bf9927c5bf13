package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/websocket"
)

const (
	drainBatchSize = 50
	// maxAttempts is the total delivery budget per intent across drains.
	maxAttempts = 5
)

// Worker drains the sync outbox: for each pending intent it resolves the
// counterpart household's profile for the child, applies the point delta,
// and emits a notification scoped to that household. Failed deliveries
// are retried on later drains until the attempt budget runs out.
type Worker struct {
	outbox     *store.OutboxStore
	households *store.HouseholdStore
	notifier   Notifier
	logger     *slog.Logger
	interval   time.Duration
	nowFunc    func() time.Time
}

func NewWorker(outbox *store.OutboxStore, households *store.HouseholdStore, notifier Notifier, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		outbox:     outbox,
		households: households,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
		nowFunc:    time.Now,
	}
}

// Run drains the outbox on a ticker until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.DrainOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// DrainOnce processes one batch of pending intents. Delivery failures are
// logged and recorded against the intent, never propagated.
func (w *Worker) DrainOnce(ctx context.Context) {
	intents, err := w.outbox.ListPending(drainBatchSize)
	if err != nil {
		w.logger.Error("list pending sync intents", "error", err)
		return
	}

	for _, intent := range intents {
		if ctx.Err() != nil {
			return
		}
		if err := w.deliver(ctx, intent); err != nil {
			w.logger.Warn("sync delivery failed",
				"intent_key", intent.IntentKey,
				"link_id", intent.LinkID,
				"target_household_id", intent.TargetHouseholdID,
				"error", err)

			if recErr := w.outbox.RecordAttempt(intent.ID, err.Error()); recErr != nil {
				w.logger.Error("record sync attempt", "intent_key", intent.IntentKey, "error", recErr)
				continue
			}
			if intent.Attempts+1 >= maxAttempts {
				if failErr := w.outbox.MarkFailed(intent.ID, err.Error()); failErr != nil {
					w.logger.Error("mark sync intent failed", "intent_key", intent.IntentKey, "error", failErr)
				}
			}
			continue
		}

		if err := w.outbox.MarkDelivered(intent.ID, w.nowFunc()); err != nil {
			w.logger.Error("mark sync intent delivered", "intent_key", intent.IntentKey, "error", err)
		}
	}
}

// deliver applies the point delta to the counterpart profile. Concurrent
// writers are handled by re-reading and retrying on a stale version.
func (w *Worker) deliver(ctx context.Context, intent model.SyncIntent) error {
	var profileID int64

	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		profile, err := w.households.GetProfileByFamilyMember(intent.TargetHouseholdID, intent.ChildFamilyMemberID)
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("no profile for family member %d in household %d", intent.ChildFamilyMemberID, intent.TargetHouseholdID)
		}

		profile.PointsTotal += intent.PointsDelta
		if err := w.households.UpdateProfileProgress(profile); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				return retry.RetryableError(err)
			}
			return err
		}
		profileID = profile.ID
		return nil
	})
	if err != nil {
		return err
	}

	w.notifier.Broadcast(intent.TargetHouseholdID, websocket.NewMessage(
		websocket.EventMemberUpdated, profileID, map[string]any{
			"points_delta": intent.PointsDelta,
		}))
	w.notifier.Broadcast(intent.TargetHouseholdID, websocket.NewMessage(
		websocket.EventNotification, profileID, map[string]any{
			"kind":         "points_synced",
			"points_delta": intent.PointsDelta,
		}))
	return nil
}

// Package sync mirrors point awards to linked households. Mirroring is
// one-directional and best-effort: the originating award never waits on,
// or fails because of, anything in this package.
package sync

import (
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/websocket"
)

// Notifier is the slice of the event hub the synchronizer needs.
type Notifier interface {
	Broadcast(householdID int64, msg websocket.Message)
}

// Synchronizer fans point deltas out to the counterpart households of a
// child's active links, via the outbox.
type Synchronizer struct {
	links   *store.LinkStore
	outbox  *store.OutboxStore
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewSynchronizer(links *store.LinkStore, outbox *store.OutboxStore, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		links:   links,
		outbox:  outbox,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Enqueue records a sync intent for every active link of the child whose
// points category is shared, targeting the household on the other side of
// each link. Errors are collected, logged by the caller, and must never
// fail the originating award.
func (s *Synchronizer) Enqueue(childFamilyMemberID, originHouseholdID int64, pointsDelta int) error {
	if pointsDelta == 0 {
		return nil
	}

	links, err := s.links.ListActiveByChild(childFamilyMemberID)
	if err != nil {
		return err
	}

	var errs error
	for _, link := range links {
		target, ok := link.Counterpart(originHouseholdID)
		if !ok {
			// Link doesn't involve the awarding household.
			continue
		}
		if link.Settings.Points != model.SettingShared {
			continue
		}
		if _, err := s.outbox.Enqueue(link.ID, target, childFamilyMemberID, pointsDelta); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

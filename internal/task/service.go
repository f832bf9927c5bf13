// Package task owns the task completion and approval lifecycle, and the
// other flows that mutate a member's point total (routine completions and
// reward purchases). All point awards funnel through here so that
// cross-household mirroring sees every delta.
package task

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calebwray/tandem/internal/apperr"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/streak"
	"github.com/calebwray/tandem/internal/sync"
	"github.com/calebwray/tandem/internal/websocket"
)

// Notifier is the slice of the event hub the service needs.
type Notifier interface {
	Broadcast(householdID int64, msg websocket.Message)
}

type Service struct {
	tasks      *store.TaskStore
	routines   *store.RoutineStore
	rewards    *store.RewardStore
	households *store.HouseholdStore
	syncer     *sync.Synchronizer
	notifier   Notifier
	logger     *slog.Logger
	nowFunc    func() time.Time
}

func NewService(tasks *store.TaskStore, routines *store.RoutineStore, rewards *store.RewardStore, households *store.HouseholdStore, syncer *sync.Synchronizer, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		tasks:      tasks,
		routines:   routines,
		rewards:    rewards,
		households: households,
		syncer:     syncer,
		notifier:   notifier,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// Complete marks a task done by the acting member. A parent's completion
// is approved immediately and awards the base point value; a child's
// completion parks the task in pending approval with no points yet.
func (s *Service) Complete(ctx context.Context, taskID, actorProfileID int64) (*model.Task, error) {
	t, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task %d not found", taskID)
	}
	if t.Status != model.TaskPending {
		return nil, apperr.Conflict("task %d is %s, not pending", taskID, t.Status)
	}
	if !t.AssignedToMember(actorProfileID) {
		return nil, apperr.Forbidden("member %d is not assigned to task %d", actorProfileID, taskID)
	}

	actor, err := s.households.GetProfile(actorProfileID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperr.NotFound("member profile %d not found", actorProfileID)
	}

	if actor.Role == model.RoleParent {
		return s.completeAsParent(ctx, t, actor)
	}
	return s.completeAsChild(t, actor)
}

// completeAsParent approves in one step: base points, no multiplier, no
// streak movement.
func (s *Service) completeAsParent(ctx context.Context, t *model.Task, actor *model.MemberProfile) (*model.Task, error) {
	t.Status = model.TaskApproved
	t.CompletedBy = &actor.ID
	if err := s.tasks.UpdateLifecycle(t); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return nil, apperr.Conflict("task %d was updated concurrently", t.ID)
		}
		return nil, err
	}

	updated, err := s.mutateProfile(ctx, actor.ID, func(p *model.MemberProfile) error {
		p.PointsTotal += t.PointsValue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAward(updated, websocket.NewMessage(websocket.EventTaskUpdated, t.ID, map[string]any{
		"status":         string(t.Status),
		"points_awarded": t.PointsValue,
	}), t.PointsValue)

	return s.tasks.GetByID(t.ID)
}

func (s *Service) completeAsChild(t *model.Task, actor *model.MemberProfile) (*model.Task, error) {
	t.Status = model.TaskPendingApproval
	t.CompletedBy = &actor.ID
	if err := s.tasks.UpdateLifecycle(t); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return nil, apperr.Conflict("task %d was updated concurrently", t.ID)
		}
		return nil, err
	}

	s.notifier.Broadcast(actor.HouseholdID, websocket.NewMessage(websocket.EventTaskUpdated, t.ID, map[string]any{
		"status": string(t.Status),
	}))

	return s.tasks.GetByID(t.ID)
}

// Approve finalizes a child's completion. If this was the member's last
// outstanding assigned task, the streak engine runs and its multiplier
// scales the award; otherwise the existing multiplier state is left alone
// and base points are scaled by the current streak's multiplier.
func (s *Service) Approve(ctx context.Context, taskID int64) (*model.Task, error) {
	t, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task %d not found", taskID)
	}
	if t.Status != model.TaskPendingApproval {
		return nil, apperr.Conflict("task %d is %s, not pending approval", taskID, t.Status)
	}
	if t.CompletedBy == nil {
		return nil, apperr.Conflict("task %d has no recorded completer", taskID)
	}
	completerID := *t.CompletedBy

	// Claim the approval first. The version check makes sure exactly one
	// of two racing approvals proceeds to award points.
	t.Status = model.TaskApproved
	if err := s.tasks.UpdateLifecycle(t); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return nil, apperr.Conflict("task %d was updated concurrently", taskID)
		}
		return nil, err
	}

	var awarded int
	updated, err := s.mutateProfile(ctx, completerID, func(p *model.MemberProfile) error {
		open, err := s.tasks.CountOpenAssignedExcluding(p.ID, taskID)
		if err != nil {
			return err
		}
		allDone := open == 0

		tr := streak.Compute(p.CurrentStreak, p.LongestStreak, p.LastCompletionDate, allDone, s.nowFunc())
		awarded = int(math.Floor(float64(t.PointsValue) * tr.Multiplier))

		p.PointsTotal += awarded
		if allDone {
			p.CurrentStreak = tr.CurrentStreak
			p.LongestStreak = tr.LongestStreak
			p.StreakMultiplier = tr.Multiplier
			p.LastCompletionDate = tr.LastCompletion
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAward(updated, websocket.NewMessage(websocket.EventTaskUpdated, t.ID, map[string]any{
		"status":         string(t.Status),
		"points_awarded": awarded,
	}), awarded)

	return s.tasks.GetByID(t.ID)
}

// CompleteRoutine awards the routine's fixed point value to the acting
// member. Routines have no approval step and no multiplier.
func (s *Service) CompleteRoutine(ctx context.Context, routineID, actorProfileID int64) (*model.RoutineCompletion, error) {
	r, err := s.routines.GetByID(routineID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("routine %d not found", routineID)
	}

	actor, err := s.households.GetProfile(actorProfileID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperr.NotFound("member profile %d not found", actorProfileID)
	}
	if actor.HouseholdID != r.HouseholdID {
		return nil, apperr.Forbidden("member %d is not in household %d", actorProfileID, r.HouseholdID)
	}

	completion, err := s.routines.CreateCompletion(r.ID, actor.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutateProfile(ctx, actor.ID, func(p *model.MemberProfile) error {
		p.PointsTotal += r.PointsValue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAward(updated, websocket.NewMessage(websocket.EventRoutineUpdated, r.ID, map[string]any{
		"points_awarded": r.PointsValue,
	}), r.PointsValue)

	return completion, nil
}

// PurchaseReward spends points on a store reward. The balance check and
// deduction happen inside the version-guarded mutation, so two
// simultaneous purchases can't both spend the same points.
func (s *Service) PurchaseReward(ctx context.Context, rewardID, actorProfileID int64) (*model.RewardPurchase, error) {
	r, err := s.rewards.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.Active {
		return nil, apperr.NotFound("reward %d not found", rewardID)
	}

	actor, err := s.households.GetProfile(actorProfileID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, apperr.NotFound("member profile %d not found", actorProfileID)
	}
	if actor.HouseholdID != r.HouseholdID {
		return nil, apperr.Forbidden("member %d is not in household %d", actorProfileID, r.HouseholdID)
	}

	updated, err := s.mutateProfile(ctx, actor.ID, func(p *model.MemberProfile) error {
		if p.PointsTotal < r.PointCost {
			return apperr.Validation("insufficient points: have %d, need %d", p.PointsTotal, r.PointCost)
		}
		p.PointsTotal -= r.PointCost
		return nil
	})
	if err != nil {
		return nil, err
	}

	purchase, err := s.rewards.CreatePurchase(r.ID, actor.ID, r.PointCost)
	if err != nil {
		return nil, err
	}

	s.emitAward(updated, websocket.NewMessage(websocket.EventNotification, purchase.ID, map[string]any{
		"kind":   "reward_purchased",
		"reward": r.Title,
	}), -r.PointCost)

	return purchase, nil
}

// mutateProfile runs a read-mutate-write cycle against a member profile,
// re-reading and retrying when the version-guarded write loses a race.
func (s *Service) mutateProfile(ctx context.Context, profileID int64, mutate func(*model.MemberProfile) error) (*model.MemberProfile, error) {
	var result *model.MemberProfile

	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := s.households.GetProfile(profileID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound("member profile %d not found", profileID)
		}
		if err := mutate(p); err != nil {
			return err
		}
		if err := s.households.UpdateProfileProgress(p); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// emitAward broadcasts the given event plus a member update to the
// member's household, then hands the delta to the synchronizer. Sync
// failures are logged and swallowed: mirroring must never fail an award.
func (s *Service) emitAward(p *model.MemberProfile, msg websocket.Message, delta int) {
	s.notifier.Broadcast(p.HouseholdID, msg)
	s.notifier.Broadcast(p.HouseholdID, websocket.NewMessage(websocket.EventMemberUpdated, p.ID, map[string]any{
		"points_total": p.PointsTotal,
	}))

	if err := s.syncer.Enqueue(p.FamilyMemberID, p.HouseholdID, delta); err != nil {
		s.logger.Error("enqueue cross-household sync",
			"family_member_id", p.FamilyMemberID,
			"household_id", p.HouseholdID,
			"points_delta", delta,
			"error", err)
	}
}

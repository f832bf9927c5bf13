// Package link owns the lifecycle of household links: bootstrapping them
// from link codes, negotiating per-category sharing settings through the
// propose/approve/reject protocol, and unlinking.
package link

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calebwray/tandem/internal/apperr"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
	"github.com/calebwray/tandem/internal/websocket"
)

const (
	// proposalWindow is the rolling window for the per-setting proposal
	// quota, and also the cooldown after a rejection.
	proposalWindow = 7 * 24 * time.Hour
	// proposalQuota is the most proposals one household may make for one
	// setting inside the window.
	proposalQuota = 3
	// changeTTL is how long a proposal waits for a decision before it
	// auto-expires.
	changeTTL = 30 * 24 * time.Hour
)

// Notifier is the slice of the event hub the service needs.
type Notifier interface {
	Broadcast(householdID int64, msg websocket.Message)
}

type Service struct {
	links      *store.LinkStore
	codes      *store.LinkCodeStore
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	notifier   Notifier
	logger     *slog.Logger
	nowFunc    func() time.Time
}

func NewService(links *store.LinkStore, codes *store.LinkCodeStore, households *store.HouseholdStore, members *store.FamilyMemberStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		links:      links,
		codes:      codes,
		households: households,
		members:    members,
		notifier:   notifier,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// IssueCode creates a single-use, 7-day code another household can redeem
// to link the given child.
func (s *Service) IssueCode(householdID, childFamilyMemberID int64) (*model.LinkCode, error) {
	profile, err := s.households.GetProfileByFamilyMember(householdID, childFamilyMemberID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperr.NotFound("family member %d has no profile in household %d", childFamilyMemberID, householdID)
	}
	if profile.Role != model.RoleChild {
		return nil, apperr.Validation("only child profiles can be linked across households")
	}

	return s.codes.Create(householdID, childFamilyMemberID, s.nowFunc())
}

// RedeemCode accepts a link code on behalf of the redeeming household,
// creating the HouseholdLink with every category separate. The child gets
// a mirrored profile in the redeeming household if they don't have one.
func (s *Service) RedeemCode(code string, redeemingHouseholdID int64) (*model.HouseholdLink, error) {
	now := s.nowFunc()

	lc, err := s.codes.GetValid(code, now)
	if err != nil {
		return nil, err
	}
	if lc == nil {
		return nil, apperr.NotFound("link code is invalid, expired, or already used")
	}
	if lc.HouseholdID == redeemingHouseholdID {
		return nil, apperr.Validation("a household cannot redeem its own link code")
	}

	existing, err := s.links.FindActiveByChildAndHousehold(lc.ChildFamilyMemberID, redeemingHouseholdID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("an active link for this child already involves household %d", redeemingHouseholdID)
	}

	issuerProfile, err := s.households.GetProfileByFamilyMember(lc.HouseholdID, lc.ChildFamilyMemberID)
	if err != nil {
		return nil, err
	}
	if issuerProfile == nil {
		return nil, apperr.NotFound("child no longer has a profile in the issuing household")
	}

	l, err := s.links.Create(lc.ChildFamilyMemberID, lc.HouseholdID, redeemingHouseholdID)
	if err != nil {
		return nil, err
	}
	if err := s.codes.MarkUsed(lc.ID, now); err != nil {
		return nil, err
	}

	mirrored, err := s.households.GetProfileByFamilyMember(redeemingHouseholdID, lc.ChildFamilyMemberID)
	if err != nil {
		return nil, err
	}
	if mirrored == nil {
		if _, err := s.households.CreateProfile(redeemingHouseholdID, lc.ChildFamilyMemberID, issuerProfile.DisplayName, model.RoleChild); err != nil {
			return nil, err
		}
	}
	if err := s.members.AddHousehold(lc.ChildFamilyMemberID, redeemingHouseholdID); err != nil {
		return nil, err
	}

	s.notifyLink(l, "link_created")
	return l, nil
}

func (s *Service) GetLink(linkID int64) (*model.HouseholdLink, error) {
	l, err := s.links.GetByID(linkID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("link %d not found", linkID)
	}
	return l, nil
}

func (s *Service) ListChanges(linkID int64) ([]model.PendingChange, error) {
	if _, err := s.GetLink(linkID); err != nil {
		return nil, err
	}
	return s.links.ListChangesByLink(linkID)
}

func (s *Service) ListHistory(linkID int64) ([]model.ProposalEntry, error) {
	if _, err := s.GetLink(linkID); err != nil {
		return nil, err
	}
	return s.links.ListProposalHistory(linkID)
}

// ProposeChange records a proposal to flip one sharing category, subject
// to the rolling quota and the post-rejection cooldown.
func (s *Service) ProposeChange(linkID int64, setting, newValue string, proposerHouseholdID, proposerID int64) (*model.PendingChange, error) {
	if !model.ValidCategory(setting) {
		return nil, apperr.Validation("unknown sharing category %q", setting)
	}
	if !model.ValidSettingValue(newValue) {
		return nil, apperr.Validation("invalid setting value %q, want shared or separate", newValue)
	}
	category := model.Category(setting)
	value := model.SettingValue(newValue)

	l, err := s.GetLink(linkID)
	if err != nil {
		return nil, err
	}
	if l.Status != model.LinkActive {
		return nil, apperr.Conflict("link %d is unlinked", linkID)
	}
	if _, ok := l.Counterpart(proposerHouseholdID); !ok {
		return nil, apperr.Forbidden("household %d is not part of link %d", proposerHouseholdID, linkID)
	}

	current := l.Settings.Get(category)
	if current == value {
		return nil, apperr.Validation("%s is already %s", setting, newValue)
	}

	now := s.nowFunc()

	recent, err := s.links.CountProposalsSince(linkID, category, proposerHouseholdID, now.Add(-proposalWindow))
	if err != nil {
		return nil, err
	}
	if recent >= proposalQuota {
		return nil, apperr.RateLimit("at most %d proposals for %s per 7 days", proposalQuota, setting)
	}

	lastRejected, err := s.links.LatestRejectedChange(linkID, category, proposerHouseholdID)
	if err != nil {
		return nil, err
	}
	if lastRejected != nil && lastRejected.LastRejectedAt != nil &&
		now.Sub(*lastRejected.LastRejectedAt) < proposalWindow {
		return nil, apperr.Cooldown("%s was rejected recently; wait 7 days before re-proposing", setting)
	}

	rejections, err := s.links.CountRejections(linkID, category, proposerHouseholdID)
	if err != nil {
		return nil, err
	}

	change, err := s.links.CreateChange(&model.PendingChange{
		LinkID:              linkID,
		Setting:             category,
		CurrentValue:        current,
		ProposedValue:       value,
		ProposedBy:          proposerID,
		ProposedByHousehold: proposerHouseholdID,
		ProposedAt:          now,
		ExpiresAt:           now.Add(changeTTL),
		Status:              model.ChangePending,
		PreviousRejections:  rejections,
	})
	if err != nil {
		return nil, err
	}

	if counterpart, ok := l.Counterpart(proposerHouseholdID); ok {
		s.notifier.Broadcast(counterpart, websocket.NewMessage(websocket.EventNotification, change.ID, map[string]any{
			"kind":    "sharing_change_proposed",
			"setting": setting,
			"value":   newValue,
		}))
	}
	return change, nil
}

// ApproveChange applies a proposal. Only the household that did not
// author it may approve, and an expired proposal is marked expired
// instead of applied.
func (s *Service) ApproveChange(ctx context.Context, linkID, changeID, approverHouseholdID int64) (*model.HouseholdLink, error) {
	l, change, err := s.resolveDecision(linkID, changeID, approverHouseholdID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	if now.After(change.ExpiresAt) {
		change.Status = model.ChangeExpired
		if err := s.links.ResolveChange(change); err != nil && !errors.Is(err, store.ErrStaleVersion) {
			return nil, err
		}
		return nil, apperr.Conflict("proposal %d expired on %s", changeID, change.ExpiresAt.Format(time.RFC3339))
	}

	// Claim the change first; the pending-only guard in the store makes
	// sure a racing approve/reject resolves it exactly once.
	change.Status = model.ChangeApproved
	if err := s.links.ResolveChange(change); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return nil, apperr.Conflict("proposal %d was already resolved", changeID)
		}
		return nil, err
	}

	updated, err := s.mutateLink(ctx, l.ID, func(link *model.HouseholdLink) error {
		link.Settings.Set(change.Setting, change.ProposedValue)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyLink(updated, "sharing_change_approved")
	return updated, nil
}

// RejectChange declines a proposal and starts the re-proposal cooldown
// for the authoring household.
func (s *Service) RejectChange(linkID, changeID, approverHouseholdID int64) (*model.PendingChange, error) {
	_, change, err := s.resolveDecision(linkID, changeID, approverHouseholdID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	if now.After(change.ExpiresAt) {
		change.Status = model.ChangeExpired
		if err := s.links.ResolveChange(change); err != nil && !errors.Is(err, store.ErrStaleVersion) {
			return nil, err
		}
		return nil, apperr.Conflict("proposal %d expired on %s", changeID, change.ExpiresAt.Format(time.RFC3339))
	}

	change.Status = model.ChangeRejected
	change.LastRejectedAt = &now
	change.PreviousRejections++
	if err := s.links.ResolveChange(change); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return nil, apperr.Conflict("proposal %d was already resolved", changeID)
		}
		return nil, err
	}

	s.notifier.Broadcast(change.ProposedByHousehold, websocket.NewMessage(websocket.EventNotification, change.ID, map[string]any{
		"kind":    "sharing_change_rejected",
		"setting": string(change.Setting),
	}))
	return s.links.GetChange(changeID)
}

// resolveDecision runs the shared validation for approve and reject: the
// change must exist on the link, still be pending, and the decider must
// be the counterpart household, never the author.
func (s *Service) resolveDecision(linkID, changeID, deciderHouseholdID int64) (*model.HouseholdLink, *model.PendingChange, error) {
	l, err := s.GetLink(linkID)
	if err != nil {
		return nil, nil, err
	}

	change, err := s.links.GetChange(changeID)
	if err != nil {
		return nil, nil, err
	}
	if change == nil || change.LinkID != linkID {
		return nil, nil, apperr.NotFound("proposal %d not found on link %d", changeID, linkID)
	}
	if _, ok := l.Counterpart(deciderHouseholdID); !ok {
		return nil, nil, apperr.Forbidden("household %d is not part of link %d", deciderHouseholdID, linkID)
	}
	if change.ProposedByHousehold == deciderHouseholdID {
		return nil, nil, apperr.Forbidden("a household cannot decide its own proposal")
	}
	if change.Status != model.ChangePending {
		return nil, nil, apperr.Conflict("proposal %d is %s, not pending", changeID, change.Status)
	}
	return l, change, nil
}

// UnlinkChild dissolves the link between the household and the child:
// the link is kept with status unlinked, the child's profile in this
// household is removed, and the household leaves the child's linked set.
func (s *Service) UnlinkChild(ctx context.Context, childFamilyMemberID, householdID int64) error {
	l, err := s.links.FindActiveByChildAndHousehold(childFamilyMemberID, householdID)
	if err != nil {
		return err
	}
	if l == nil {
		return apperr.NotFound("no active link for child %d and household %d", childFamilyMemberID, householdID)
	}

	if _, err := s.mutateLink(ctx, l.ID, func(link *model.HouseholdLink) error {
		if link.Status != model.LinkActive {
			return apperr.NotFound("no active link for child %d and household %d", childFamilyMemberID, householdID)
		}
		link.Status = model.LinkUnlinked
		return nil
	}); err != nil {
		return err
	}

	profile, err := s.households.GetProfileByFamilyMember(householdID, childFamilyMemberID)
	if err != nil {
		return err
	}
	if profile != nil {
		if err := s.households.DeleteProfile(profile.ID); err != nil {
			return err
		}
		s.notifier.Broadcast(householdID, websocket.NewMessage(websocket.EventMemberUpdated, profile.ID, map[string]any{
			"removed": true,
		}))
	}

	if err := s.members.RemoveHousehold(childFamilyMemberID, householdID); err != nil {
		return err
	}

	s.notifyLink(l, "link_dissolved")
	return nil
}

// ExpireStaleChanges sweeps proposals past their 30-day expiry. Meant to
// run periodically alongside other cleanup work.
func (s *Service) ExpireStaleChanges() (int64, error) {
	return s.links.ExpireStaleChanges(s.nowFunc())
}

// mutateLink runs a read-mutate-write cycle against a link, re-reading
// and retrying when the version-guarded write loses a race.
func (s *Service) mutateLink(ctx context.Context, linkID int64, mutate func(*model.HouseholdLink) error) (*model.HouseholdLink, error) {
	var result *model.HouseholdLink

	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		l, err := s.links.GetByID(linkID)
		if err != nil {
			return err
		}
		if l == nil {
			return apperr.NotFound("link %d not found", linkID)
		}
		if err := mutate(l); err != nil {
			return err
		}
		if err := s.links.Update(l); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// notifyLink emits a notification to both sides of a link.
func (s *Service) notifyLink(l *model.HouseholdLink, kind string) {
	for _, householdID := range []int64{l.Household1ID, l.Household2ID} {
		s.notifier.Broadcast(householdID, websocket.NewMessage(websocket.EventNotification, l.ID, map[string]any{
			"kind": kind,
		}))
	}
}

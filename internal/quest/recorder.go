// Package quest records quest completions and enforces the verification
// status state machine at the write boundary.
package quest

import (
	"context"
	"log/slog"
	"time"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/store"
	"github.com/google/uuid"
)

// Recorder validates and persists quest completions. Recording emits no
// ranking recomputation: leaderboards are computed on read.
type Recorder struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a completion recorder over the given store.
func NewRecorder(st store.Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: st, logger: logger, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordCompletion upserts the (user, quest) completion row. A fresh
// completion starts verified for self-evident quest types and pending for
// types that need external proof. Re-submitting an already-recorded
// completion updates the row rather than duplicating it; re-submitting a
// rejected completion without new proof is a conflict, so a rejection
// cannot be silently re-accepted.
func (r *Recorder) RecordCompletion(ctx context.Context, userID, questID, proof string) (*domain.QuestCompletion, error) {
	now := r.now().UTC()

	q, err := r.store.QuestByID(ctx, questID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Ef(domain.KindNotFound, "quest %s not found", questID)
		}
		return nil, domain.Wrap(domain.KindOf(err), "loading quest", err)
	}
	if !q.Eligible(now) {
		return nil, domain.Ef(domain.KindNotFound, "quest %s is not active", questID)
	}

	existing, err := r.store.CompletionByUserQuest(ctx, userID, questID)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.Wrap(domain.KindOf(err), "loading completion", err)
	}

	if existing == nil {
		c := &domain.QuestCompletion{
			ID:          uuid.New().String(),
			UserID:      userID,
			QuestID:     questID,
			Status:      q.Type.InitialStatus(),
			Proof:       proof,
			CompletedAt: now,
			UpdatedAt:   now,
		}
		if err := r.store.UpsertCompletion(ctx, c); err != nil {
			return nil, domain.Wrap(domain.KindOf(err), "persisting completion", err)
		}
		r.logger.Info("completion recorded",
			"user_id", userID,
			"quest_id", questID,
			"status", c.Status,
		)
		return c, nil
	}

	switch existing.Status {
	case domain.StatusVerified:
		// Idempotent: the row and its status stay unchanged.
		return existing, nil

	case domain.StatusPending:
		// Resubmission while awaiting moderation refreshes the proof only.
		if proof != "" {
			existing.Proof = proof
			existing.UpdatedAt = now
			if err := r.store.UpsertCompletion(ctx, existing); err != nil {
				return nil, domain.Wrap(domain.KindOf(err), "updating completion", err)
			}
		}
		return existing, nil

	case domain.StatusRejected:
		if proof == "" {
			return nil, domain.E(domain.KindConflict, "completion was rejected; new proof required")
		}
		if !existing.Status.CanTransition(domain.StatusPending) {
			return nil, domain.Ef(domain.KindInternal, "illegal transition %s -> %s", existing.Status, domain.StatusPending)
		}
		existing.Status = domain.StatusPending
		existing.Proof = proof
		existing.CompletedAt = now
		existing.UpdatedAt = now
		if err := r.store.UpsertCompletion(ctx, existing); err != nil {
			return nil, domain.Wrap(domain.KindOf(err), "updating completion", err)
		}
		r.logger.Info("rejected completion resubmitted",
			"user_id", userID,
			"quest_id", questID,
		)
		return existing, nil

	default:
		return nil, domain.Ef(domain.KindInternal, "completion has unknown status %q", existing.Status)
	}
}

// Review applies a moderation verdict to a pending completion. Only the
// pending state accepts a verdict; reviewing a verified or rejected
// completion is a conflict. Moderators cannot review their own
// completions.
func (r *Recorder) Review(ctx context.Context, moderatorID, userID, questID string, verdict domain.VerificationStatus) (*domain.QuestCompletion, error) {
	if verdict != domain.StatusVerified && verdict != domain.StatusRejected {
		return nil, domain.Ef(domain.KindValidation, "verdict must be %q or %q", domain.StatusVerified, domain.StatusRejected)
	}
	if moderatorID == userID {
		return nil, domain.E(domain.KindForbidden, "cannot review own completion")
	}

	c, err := r.store.CompletionByUserQuest(ctx, userID, questID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.E(domain.KindNotFound, "completion not found")
		}
		return nil, domain.Wrap(domain.KindOf(err), "loading completion", err)
	}

	if !c.Status.CanTransition(verdict) {
		return nil, domain.Ef(domain.KindConflict, "cannot move completion from %s to %s", c.Status, verdict)
	}

	c.Status = verdict
	c.UpdatedAt = r.now().UTC()
	if err := r.store.UpsertCompletion(ctx, c); err != nil {
		return nil, domain.Wrap(domain.KindOf(err), "updating completion", err)
	}
	r.logger.Info("completion reviewed",
		"moderator_id", moderatorID,
		"user_id", userID,
		"quest_id", questID,
		"verdict", verdict,
	)
	return c, nil
}

// ListQuests returns the catalog quests eligible for display right now.
func (r *Recorder) ListQuests(ctx context.Context, category string, promoted *bool) ([]domain.Quest, error) {
	quests, err := r.store.ListQuests(ctx, store.QuestFilter{
		EligibleAt: r.now().UTC(),
		Category:   category,
		Promoted:   promoted,
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindOf(err), "listing quests", err)
	}
	return quests, nil
}

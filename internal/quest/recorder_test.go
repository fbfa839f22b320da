package quest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagement-engine/internal/domain"
	"github.com/engagement-engine/internal/store"
)

var testTime = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func newTestRecorder(mem *store.Memory) *Recorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecorder(mem, logger).WithClock(func() time.Time { return testTime })
}

func seedQuest(mem *store.Memory, id string, qtype domain.QuestType) {
	mem.PutQuest(domain.Quest{
		ID:     id,
		Title:  "Quest " + id,
		Type:   qtype,
		Active: true,
	})
}

func TestRecordCompletion_SelfEvidentStartsVerified(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypePlaySong)
	rec := newTestRecorder(mem)

	c, err := rec.RecordCompletion(context.Background(), "alice", "q1", "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusVerified, c.Status)
	assert.Equal(t, "alice", c.UserID)
	assert.Equal(t, "q1", c.QuestID)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, testTime, c.CompletedAt)
}

func TestRecordCompletion_ProofQuestStartsPending(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)

	c, err := rec.RecordCompletion(context.Background(), "alice", "q1", "https://example.com/post/1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, "https://example.com/post/1", c.Proof)
}

func TestRecordCompletion_UnknownQuest(t *testing.T) {
	rec := newTestRecorder(store.NewMemory())

	_, err := rec.RecordCompletion(context.Background(), "alice", "missing", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRecordCompletion_IneligibleQuest(t *testing.T) {
	mem := store.NewMemory()
	mem.PutQuest(domain.Quest{ID: "q1", Type: domain.QuestTypePlaySong, Active: false})
	rec := newTestRecorder(mem)

	_, err := rec.RecordCompletion(context.Background(), "alice", "q1", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRecordCompletion_ExpiredQuest(t *testing.T) {
	mem := store.NewMemory()
	until := testTime.Add(-time.Hour)
	mem.PutQuest(domain.Quest{ID: "q1", Type: domain.QuestTypePlaySong, Active: true, ValidUntil: &until})
	rec := newTestRecorder(mem)

	_, err := rec.RecordCompletion(context.Background(), "alice", "q1", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRecordCompletion_VerifiedIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypePlaySong)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	first, err := rec.RecordCompletion(ctx, "alice", "q1", "")
	require.NoError(t, err)

	second, err := rec.RecordCompletion(ctx, "alice", "q1", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resubmission must not duplicate the row")
	assert.Equal(t, domain.StatusVerified, second.Status)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestRecordCompletion_PendingResubmitRefreshesProof(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	first, err := rec.RecordCompletion(ctx, "alice", "q1", "proof-v1")
	require.NoError(t, err)

	second, err := rec.RecordCompletion(ctx, "alice", "q1", "proof-v2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.StatusPending, second.Status)
	assert.Equal(t, "proof-v2", second.Proof)
}

func TestRecordCompletion_RejectedWithoutProofConflicts(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	_, err := rec.RecordCompletion(ctx, "alice", "q1", "proof-v1")
	require.NoError(t, err)
	_, err = rec.Review(ctx, "mod", "alice", "q1", domain.StatusRejected)
	require.NoError(t, err)

	_, err = rec.RecordCompletion(ctx, "alice", "q1", "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestRecordCompletion_RejectedWithProofReturnsToPending(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	_, err := rec.RecordCompletion(ctx, "alice", "q1", "proof-v1")
	require.NoError(t, err)
	_, err = rec.Review(ctx, "mod", "alice", "q1", domain.StatusRejected)
	require.NoError(t, err)

	c, err := rec.RecordCompletion(ctx, "alice", "q1", "proof-v2")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, "proof-v2", c.Proof)
	assert.Equal(t, testTime, c.CompletedAt)
}

func TestReview_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		verdict domain.VerificationStatus
	}{
		{"verify pending", domain.StatusVerified},
		{"reject pending", domain.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
			rec := newTestRecorder(mem)
			ctx := context.Background()

			_, err := rec.RecordCompletion(ctx, "alice", "q1", "proof")
			require.NoError(t, err)

			c, err := rec.Review(ctx, "mod", "alice", "q1", tt.verdict)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, c.Status)
		})
	}
}

func TestReview_VerifiedIsTerminal(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypePlaySong)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	_, err := rec.RecordCompletion(ctx, "alice", "q1", "")
	require.NoError(t, err)

	_, err = rec.Review(ctx, "mod", "alice", "q1", domain.StatusRejected)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestReview_InvalidVerdict(t *testing.T) {
	rec := newTestRecorder(store.NewMemory())

	_, err := rec.Review(context.Background(), "mod", "alice", "q1", domain.StatusPending)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestReview_SelfReviewForbidden(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)
	ctx := context.Background()

	_, err := rec.RecordCompletion(ctx, "mod", "q1", "proof")
	require.NoError(t, err)

	_, err = rec.Review(ctx, "mod", "mod", "q1", domain.StatusVerified)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestReview_MissingCompletion(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "q1", domain.QuestTypeSocialFollow)
	rec := newTestRecorder(mem)

	_, err := rec.Review(context.Background(), "mod", "alice", "q1", domain.StatusVerified)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestListQuests_OnlyEligible(t *testing.T) {
	mem := store.NewMemory()
	seedQuest(mem, "active", domain.QuestTypePlaySong)
	mem.PutQuest(domain.Quest{ID: "inactive", Type: domain.QuestTypePlaySong, Active: false})
	mem.PutQuest(domain.Quest{ID: "hidden", Type: domain.QuestTypePlaySong, Active: true, Hidden: true})
	rec := newTestRecorder(mem)

	quests, err := rec.ListQuests(context.Background(), "", nil)
	require.NoError(t, err)

	require.Len(t, quests, 1)
	assert.Equal(t, "active", quests[0].ID)
}

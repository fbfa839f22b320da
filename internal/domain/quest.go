package domain

import (
	"time"
)

// QuestType enumerates the kinds of quests the platform runs. The type
// decides whether a completion is self-evident or needs external proof.
type QuestType string

const (
	QuestTypeSocialFollow  QuestType = "social-follow"
	QuestTypeSocialRepost  QuestType = "social-repost"
	QuestTypeSocialComment QuestType = "social-comment"
	QuestTypeChannelJoin   QuestType = "channel-join"
	QuestTypeMediaLike     QuestType = "media-like"
	QuestTypeURLVisit      QuestType = "url-visit"
	QuestTypePlaySong      QuestType = "play-song"
	QuestTypeAchieveScore  QuestType = "achieve-score"
	QuestTypeCompleteDaily QuestType = "complete-daily"
	QuestTypeCustom        QuestType = "custom"
)

// IsValid reports whether the quest type is one of the known variants.
func (t QuestType) IsValid() bool {
	switch t {
	case QuestTypeSocialFollow, QuestTypeSocialRepost, QuestTypeSocialComment,
		QuestTypeChannelJoin, QuestTypeMediaLike, QuestTypeURLVisit,
		QuestTypePlaySong, QuestTypeAchieveScore, QuestTypeCompleteDaily,
		QuestTypeCustom:
		return true
	}
	return false
}

// SelfEvident reports whether completions of this quest type can be
// verified by the platform itself. Self-evident completions start out
// verified; everything else waits for moderation.
func (t QuestType) SelfEvident() bool {
	switch t {
	case QuestTypeURLVisit, QuestTypePlaySong, QuestTypeAchieveScore, QuestTypeCompleteDaily:
		return true
	}
	return false
}

// InitialStatus returns the verification status a fresh completion of
// this quest type starts with.
func (t QuestType) InitialStatus() VerificationStatus {
	if t.SelfEvident() {
		return StatusVerified
	}
	return StatusPending
}

// Difficulty is the quest difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Quest is a catalog entry users can complete for reward points.
type Quest struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Type          QuestType  `json:"type"`
	Difficulty    Difficulty `json:"difficulty"`
	RequiredLevel int        `json:"required_level"`
	RewardPoints  int64      `json:"reward_points"`
	Active        bool       `json:"active"`
	Hidden        bool       `json:"hidden"`
	Promoted      bool       `json:"promoted"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	Category      string     `json:"category,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Eligible reports whether the quest may be shown and completed at the
// given instant: active, not hidden, and inside its validity period when
// one is set.
func (q *Quest) Eligible(now time.Time) bool {
	if !q.Active || q.Hidden {
		return false
	}
	if q.ValidFrom != nil && now.Before(*q.ValidFrom) {
		return false
	}
	if q.ValidUntil != nil && !now.Before(*q.ValidUntil) {
		return false
	}
	return true
}

package progression

import (
	"errors"
	"time"
)

// XP amounts granted per event type.
const (
	XpPerSet              = 5
	XpPerWorkout          = 50
	XpFirstWorkoutOfDay   = 25
	XpPersonalRecordBonus = 100
	XpPerStreakDay        = 10
	XpChallengeDefault    = 200
	XpAchievementUnlock   = 150
)

var (
	ErrInvalidAmount       = errors.New("invalid xp amount")
	ErrInvalidSource       = errors.New("invalid xp source")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

type XpSource string

const (
	SourceSetComplete       XpSource = "set_complete"
	SourcePersonalRecord    XpSource = "personal_record"
	SourceStreakBonus       XpSource = "streak_bonus"
	SourceChallengeComplete XpSource = "challenge_complete"
	SourceAchievementUnlock XpSource = "achievement_unlock"
	SourceManual            XpSource = "manual"
)

func (s XpSource) Valid() bool {
	switch s {
	case SourceSetComplete, SourcePersonalRecord, SourceStreakBonus,
		SourceChallengeComplete, SourceAchievementUnlock, SourceManual:
		return true
	}
	return false
}

type RecordType string

const (
	RecordOneRepMax RecordType = "one_rep_max"
	RecordMaxVolume RecordType = "max_volume"
	RecordMaxReps   RecordType = "max_reps"
)

// UserProgress is the per-user progression aggregate. Level is derived from
// Xp via the level curve but persisted for fast reads; the two are kept in
// sync by the repo on every mutation.
type UserProgress struct {
	UserID          string     `json:"userId"`
	Xp              int        `json:"xp"`
	Level           int        `json:"level"`
	CurrentStreak   int        `json:"currentStreak"`
	LongestStreak   int        `json:"longestStreak"`
	TotalXpEarned   int        `json:"totalXpEarned"`
	LastWorkoutDate *time.Time `json:"lastWorkoutDate,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// XpTransaction is one row of the append-only XP log.
type XpTransaction struct {
	ID        int       `json:"id"`
	UserID    string    `json:"userId"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Source    XpSource  `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// PersonalRecord is the best known value for a (user, exercise, record type)
// triple. Value only ever increases.
type PersonalRecord struct {
	ID         int        `json:"id"`
	UserID     string     `json:"userId"`
	ExerciseID int        `json:"exerciseId"`
	RecordType RecordType `json:"recordType"`
	Value      float64    `json:"value"`
	Date       time.Time  `json:"date"`
	Notes      string     `json:"notes,omitempty"`
}

// CompletedSet is the input event for a logged exercise set. Warmup sets and
// sets missing weight or reps never contribute to XP, streaks or records.
type CompletedSet struct {
	UserID     string
	ExerciseID int
	Weight     *float64
	Reps       *int
	IsWarmup   bool
}

type AwardResult struct {
	LeveledUp     bool `json:"leveledUp"`
	OldLevel      int  `json:"oldLevel"`
	NewLevel      int  `json:"newLevel"`
	Xp            int  `json:"xp"`
	TotalXpEarned int  `json:"totalXpEarned"`
}

type RecordFlags struct {
	OneRepMax bool `json:"oneRepMax"`
	MaxVolume bool `json:"maxVolume"`
	MaxReps   bool `json:"maxReps"`
}

func (f RecordFlags) Any() bool {
	return f.OneRepMax || f.MaxVolume || f.MaxReps
}

// SetResult describes everything that happened for one logged set.
type SetResult struct {
	Skipped   bool         `json:"skipped"`
	XpAwarded int          `json:"xpAwarded"`
	Records   *RecordFlags `json:"records,omitempty"`
	LeveledUp bool         `json:"leveledUp"`
	Level     int          `json:"level"`
	Xp        int          `json:"xp"`
}

type StreakResult struct {
	Streak        int  `json:"streak"`
	LongestStreak int  `json:"longestStreak"`
	Changed       bool `json:"changed"`
	BonusXp       int  `json:"bonusXp"`
}

type SessionResult struct {
	Streak        int  `json:"streak"`
	LongestStreak int  `json:"longestStreak"`
	StreakBonusXp int  `json:"streakBonusXp"`
	XpAwarded     int  `json:"xpAwarded"`
	LeveledUp     bool `json:"leveledUp"`
	Level         int  `json:"level"`
	Xp            int  `json:"xp"`
}

type ChallengeCompletion struct {
	UserID      string
	ChallengeID int
	Target      float64
	Progress    float64
	XpReward    int
}

type ChallengeResult struct {
	Completed bool         `json:"completed"`
	Award     *AwardResult `json:"award,omitempty"`
}

// SetCompletion is the atomic outcome of recording one working set: the
// record flags plus the base award and, when any record improved, the bonus
// award. All three come from the same store transaction.
type SetCompletion struct {
	Records *RecordFlags
	Base    *AwardResult
	Bonus   *AwardResult
}

// Snapshot is the read view of UserProgress plus the derived level-curve
// fields for the UI.
type Snapshot struct {
	UserProgress
	Badge            string  `json:"badge"`
	ProgressPercent  float64 `json:"progressPercent"`
	XpInCurrentLevel int     `json:"xpInCurrentLevel"`
	XpNeededForNext  int     `json:"xpNeededForNext"`
}

package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitforge/fitforge/internal/telemetry/metrics"
	"github.com/fitforge/fitforge/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type progressStore interface {
	Award(ctx context.Context, userID string, amount int, reason string, source XpSource) (*AwardResult, error)
	CompleteSet(ctx context.Context, userID string, exerciseID int, candidate SetMetrics, achievedAt time.Time) (*SetCompletion, error)
	RollStreak(ctx context.Context, userID string, today time.Time) (*StreakResult, error)
	GetProgress(ctx context.Context, userID string) (*UserProgress, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]XpTransaction, error)
	ListRecords(ctx context.Context, userID string) ([]PersonalRecord, error)
}

// challengeParticipants flips a participant to completed, reporting whether
// this call observed the transition. Implemented by the challenges repo.
type challengeParticipants interface {
	CompleteOnce(ctx context.Context, challengeID int, userID string) (bool, error)
}

const (
	defaultTransactionsLimit = 20
	maxTransactionsLimit     = 100
)

// Service is the progression orchestrator: it composes record detection,
// streak evaluation and XP awards into single logical operations per event.
type Service struct {
	store        progressStore
	participants challengeParticipants
	metrics      *metrics.Manager
	now          func() time.Time
}

func NewService(
	store progressStore,
	participants challengeParticipants,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		store:        store,
		participants: participants,
		metrics:      metricsManager,
		now:          time.Now,
	}
}

func (s *Service) countAward(source XpSource, res *AwardResult, amount int) {
	s.metrics.CounterXpAwarded.WithLabelValues(string(source)).Add(float64(amount))
	if res.LeveledUp {
		s.metrics.CounterLevelUps.Inc()
	}
}

// RecordCompletedSet is the per-set entry point. Warmup sets and sets missing
// weight or reps short-circuit with no effect. Otherwise the record check,
// the base XP and the PR bonus are applied by the store as one transaction:
// a failure leaves nothing behind, and the retry detects the records again
// and still pays the bonus. The bonus award's level info supersedes the base
// award's, since it reflects more recent state.
func (s *Service) RecordCompletedSet(ctx context.Context, set CompletedSet) (_ *SetResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.recordset")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if set.IsWarmup || set.Weight == nil || set.Reps == nil || *set.Weight <= 0 || *set.Reps <= 0 {
		return &SetResult{Skipped: true}, nil
	}

	candidate := EstimateSet(*set.Weight, *set.Reps)
	completion, err := s.store.CompleteSet(ctx, set.UserID, set.ExerciseID, candidate, s.now())
	if err != nil {
		return nil, fmt.Errorf("complete set: %w", err)
	}

	if completion.Records.Any() {
		s.metrics.CounterPersonalRecords.Inc()
	}
	s.countAward(SourceSetComplete, completion.Base, XpPerSet)

	result := &SetResult{
		XpAwarded: XpPerSet,
		Records:   completion.Records,
		LeveledUp: completion.Base.LeveledUp,
		Level:     completion.Base.NewLevel,
		Xp:        completion.Base.Xp,
	}

	if completion.Bonus != nil {
		s.countAward(SourcePersonalRecord, completion.Bonus, XpPersonalRecordBonus)

		result.XpAwarded += XpPersonalRecordBonus
		result.LeveledUp = result.LeveledUp || completion.Bonus.LeveledUp
		result.Level = completion.Bonus.NewLevel
		result.Xp = completion.Bonus.Xp
	}

	return result, nil
}

// CompleteSession drives the daily streak evaluation: it rolls the streak
// forward, awards the workout XP, and on the first completion of the day also
// awards the first-of-day bonus and the streak bonus.
func (s *Service) CompleteSession(ctx context.Context, userID string) (_ *SessionResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.completesession")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	streak, err := s.store.RollStreak(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("roll streak: %w", err)
	}

	workoutAward, err := s.store.Award(ctx, userID, XpPerWorkout, "completed a workout", SourceSetComplete)
	if err != nil {
		return nil, fmt.Errorf("award workout xp: %w", err)
	}
	s.countAward(SourceSetComplete, workoutAward, XpPerWorkout)

	result := &SessionResult{
		Streak:        streak.Streak,
		LongestStreak: streak.LongestStreak,
		XpAwarded:     XpPerWorkout,
		LeveledUp:     workoutAward.LeveledUp,
		Level:         workoutAward.NewLevel,
		Xp:            workoutAward.Xp,
	}

	if !streak.Changed {
		return result, nil
	}

	firstOfDayAward, err := s.store.Award(ctx, userID, XpFirstWorkoutOfDay, "first workout of the day", SourceSetComplete)
	if err != nil {
		return nil, fmt.Errorf("award first of day xp: %w", err)
	}
	s.countAward(SourceSetComplete, firstOfDayAward, XpFirstWorkoutOfDay)
	result.XpAwarded += XpFirstWorkoutOfDay
	result.LeveledUp = result.LeveledUp || firstOfDayAward.LeveledUp
	result.Level = firstOfDayAward.NewLevel
	result.Xp = firstOfDayAward.Xp

	if streak.BonusXp > 0 {
		bonusReason := fmt.Sprintf("%d day streak", streak.Streak)
		bonusAward, err := s.store.Award(ctx, userID, streak.BonusXp, bonusReason, SourceStreakBonus)
		if err != nil {
			return nil, fmt.Errorf("award streak bonus: %w", err)
		}
		s.countAward(SourceStreakBonus, bonusAward, streak.BonusXp)
		s.metrics.CounterStreakBonuses.Inc()

		result.StreakBonusXp = streak.BonusXp
		result.XpAwarded += streak.BonusXp
		result.LeveledUp = result.LeveledUp || bonusAward.LeveledUp
		result.Level = bonusAward.NewLevel
		result.Xp = bonusAward.Xp
	}

	log.Debugf("session completed for %s: streak %d, awarded %d xp", userID, result.Streak, result.XpAwarded)

	return result, nil
}

// CompleteChallenge awards the challenge XP exactly once, on the observed
// transition of the participant into completed. Calls with the target not yet
// reached, or with the participant already completed, award nothing.
func (s *Service) CompleteChallenge(ctx context.Context, completion ChallengeCompletion) (_ *ChallengeResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.completechallenge")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if completion.Progress < completion.Target {
		return &ChallengeResult{Completed: false}, nil
	}

	transitioned, err := s.participants.CompleteOnce(ctx, completion.ChallengeID, completion.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete participant: %w", err)
	}
	if !transitioned {
		// target was already reached before, payout happened then
		return &ChallengeResult{Completed: true}, nil
	}

	reward := completion.XpReward
	if reward <= 0 {
		reward = XpChallengeDefault
	}

	award, err := s.store.Award(ctx, completion.UserID, reward, "completed a challenge", SourceChallengeComplete)
	if err != nil {
		return nil, fmt.Errorf("award challenge xp: %w", err)
	}
	s.countAward(SourceChallengeComplete, award, reward)

	return &ChallengeResult{
		Completed: true,
		Award:     award,
	}, nil
}

// Award is the passthrough for collaborator-driven grants (achievements,
// manual admin grants).
func (s *Service) Award(ctx context.Context, userID string, amount int, reason string, source XpSource) (_ *AwardResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.award")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !source.Valid() {
		return nil, ErrInvalidSource
	}

	award, err := s.store.Award(ctx, userID, amount, reason, source)
	if err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}
	s.countAward(source, award, amount)

	return award, nil
}

// ProgressSnapshot is the read view: progress plus the derived level-curve
// fields. A user without a progress row gets the zero-state default, no row
// is created on read.
func (s *Service) ProgressSnapshot(ctx context.Context, userID string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.snapshot")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	progress, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get progress: %w", err)
		}
		progress = &UserProgress{
			UserID: userID,
			Xp:     0,
			Level:  1,
		}
	}

	return &Snapshot{
		UserProgress:     *progress,
		Badge:            BadgeForLevel(progress.Level),
		ProgressPercent:  ProgressPercent(progress.Xp),
		XpInCurrentLevel: XpInCurrentLevel(progress.Xp),
		XpNeededForNext:  XpNeededForNext(progress.Xp),
	}, nil
}

// RecentTransactions returns the user's XP log, newest first.
func (s *Service) RecentTransactions(ctx context.Context, userID string, limit int) (_ []XpTransaction, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.transactions")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}

	transactions, err := s.store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

func (s *Service) Records(ctx context.Context, userID string) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.records")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	records, err := s.store.ListRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

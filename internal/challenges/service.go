package challenges

import (
	"context"
	"fmt"

	"github.com/fitforge/fitforge/internal/progression"
	"github.com/fitforge/fitforge/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/codes"
)

type challengesRepo interface {
	Add(ctx context.Context, challenge Challenge) (*Challenge, error)
	Get(ctx context.Context, id int) (*Challenge, error)
	List(ctx context.Context) ([]Challenge, error)
	Join(ctx context.Context, challengeID int, userID string) (*Participant, error)
	GetParticipant(ctx context.Context, challengeID int, userID string) (*Participant, error)
	UpdateProgress(ctx context.Context, challengeID int, userID string, progress float64) (*Participant, error)
}

// progressionEngine is the payout path into the progression core.
type progressionEngine interface {
	CompleteChallenge(ctx context.Context, completion progression.ChallengeCompletion) (*progression.ChallengeResult, error)
}

// ProgressUpdate is what one progress call changed: the participant state
// after the update and, when the target was newly reached, the XP payout.
type ProgressUpdate struct {
	Participant Participant                  `json:"participant"`
	Completion  *progression.ChallengeResult `json:"completion,omitempty"`
}

type Service struct {
	repo        challengesRepo
	progression progressionEngine
}

func NewService(repo challengesRepo, progressionEngine progressionEngine) *Service {
	return &Service{
		repo:        repo,
		progression: progressionEngine,
	}
}

func (s *Service) Create(ctx context.Context, challenge Challenge) (_ *Challenge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.challenges.create")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	added, err := s.repo.Add(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("add challenge: %w", err)
	}
	return added, nil
}

func (s *Service) List(ctx context.Context) (_ []Challenge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.challenges.list")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	challenges, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return challenges, nil
}

func (s *Service) Join(ctx context.Context, challengeID int, userID string) (_ *Participant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.challenges.join")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, err := s.repo.Get(ctx, challengeID); err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	participant, err := s.repo.Join(ctx, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("join challenge: %w", err)
	}
	return participant, nil
}

// UpdateProgress stores the new progress and, when the challenge target is
// reached, routes the payout through the progression core. The core pays at
// most once per participant regardless of how often the target is re-reported.
func (s *Service) UpdateProgress(ctx context.Context, challengeID int, userID string, progress float64) (_ *ProgressUpdate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.challenges.updateprogress")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	challenge, err := s.repo.Get(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	participant, err := s.repo.UpdateProgress(ctx, challengeID, userID, progress)
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	update := &ProgressUpdate{Participant: *participant}
	if participant.Status == StatusCompleted || participant.Status == StatusFailed {
		// completed paid out on the completing call, failed never pays
		return update, nil
	}

	completion, err := s.progression.CompleteChallenge(ctx, progression.ChallengeCompletion{
		UserID:      userID,
		ChallengeID: challengeID,
		Target:      challenge.Target,
		Progress:    participant.Progress,
		XpReward:    challenge.XpReward,
	})
	if err != nil {
		return nil, fmt.Errorf("complete challenge: %w", err)
	}

	if completion.Completed {
		participant.Status = StatusCompleted
		update.Participant = *participant
		update.Completion = completion
	}

	return update, nil
}

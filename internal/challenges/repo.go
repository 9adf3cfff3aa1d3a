package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitforge/fitforge/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrParticipantNotFound = errors.New("challenge participant not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, challenge Challenge) (_ *Challenge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO challenge (title, description, target, xp_reward, starts_at, ends_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		challenge.Title, challenge.Description, challenge.Target,
		challenge.XpReward, challenge.StartsAt, challenge.EndsAt,
	).Scan(&challenge.ID); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("challenge.id", challenge.ID))
	return &challenge, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Challenge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var c Challenge
	if err := r.db.QueryRow(
		ctx,
		`SELECT id, title, COALESCE(description, ''), target, xp_reward, starts_at, ends_at
			FROM challenge WHERE id = $1;`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Target, &c.XpReward, &c.StartsAt, &c.EndsAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *Repo) List(ctx context.Context) (_ []Challenge, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, COALESCE(description, ''), target, xp_reward, starts_at, ends_at
			FROM challenge ORDER BY starts_at DESC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	challenges := make([]Challenge, 0)
	for rows.Next() {
		var c Challenge
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Target, &c.XpReward, &c.StartsAt, &c.EndsAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		challenges = append(challenges, c)
	}

	return challenges, nil
}

// Join adds a user to a challenge. Joining twice is a no-op that returns the
// existing participation.
func (r *Repo) Join(ctx context.Context, challengeID int, userID string) (_ *Participant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.join")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("challenge.id", challengeID))
	span.SetAttributes(attribute.String("user.id", userID))

	if _, err := r.db.Exec(
		ctx,
		`INSERT INTO challenge_participant (challenge_id, user_id, progress, status)
			VALUES ($1, $2, 0, $3)
			ON CONFLICT (challenge_id, user_id) DO NOTHING;`,
		challengeID, userID, string(StatusJoined),
	); err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}

	return r.GetParticipant(ctx, challengeID, userID)
}

func (r *Repo) GetParticipant(ctx context.Context, challengeID int, userID string) (_ *Participant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.getparticipant")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var p Participant
	var status string
	if err := r.db.QueryRow(
		ctx,
		`SELECT challenge_id, user_id, progress, status, completed_at
			FROM challenge_participant WHERE challenge_id = $1 AND user_id = $2;`,
		challengeID, userID,
	).Scan(&p.ChallengeID, &p.UserID, &p.Progress, &status, &p.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	p.Status = ParticipantStatus(status)

	return &p, nil
}

// UpdateProgress raises a participant's progress. Progress never goes down
// and completed or failed participations keep their status.
func (r *Repo) UpdateProgress(ctx context.Context, challengeID int, userID string, progress float64) (_ *Participant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.updateprogress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("challenge.id", challengeID))
	span.SetAttributes(attribute.String("user.id", userID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE challenge_participant
			SET progress = GREATEST(progress, $1),
				status = CASE WHEN status IN ($2, $3) THEN status ELSE $4 END
			WHERE challenge_id = $5 AND user_id = $6;`,
		progress, string(StatusCompleted), string(StatusFailed), string(StatusInProgress), challengeID, userID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrParticipantNotFound
	}

	return r.GetParticipant(ctx, challengeID, userID)
}

// CompleteOnce flips a participant to completed and reports whether this call
// observed the transition. The row is locked while the prior status is
// checked, so under concurrent progress updates exactly one caller sees true.
func (r *Repo) CompleteOnce(ctx context.Context, challengeID int, userID string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.challenges.completeonce")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("challenge.id", challengeID))
	span.SetAttributes(attribute.String("user.id", userID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var status string
	if err = tx.QueryRow(
		ctx,
		`SELECT status FROM challenge_participant
			WHERE challenge_id = $1 AND user_id = $2 FOR UPDATE;`,
		challengeID, userID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrParticipantNotFound
		}
		return false, err
	}

	if ParticipantStatus(status) == StatusCompleted {
		return false, nil
	}

	if _, err = tx.Exec(
		ctx,
		`UPDATE challenge_participant
			SET status = $1, completed_at = $2
			WHERE challenge_id = $3 AND user_id = $4;`,
		string(StatusCompleted), time.Now(), challengeID, userID,
	); err != nil {
		return false, fmt.Errorf("complete participant: %w", err)
	}

	return true, nil
}

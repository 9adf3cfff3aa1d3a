package workouts

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
	ErrSessionNotFound         = errors.New("workout session not found")
	ErrSessionAlreadyCompleted = errors.New("workout session already completed")
)

type SessionsRepo struct {
	db *pgxpool.Pool
}

func NewSessionsRepo(db *pgxpool.Pool) *SessionsRepo {
	return &SessionsRepo{
		db: db,
	}
}

func (r *SessionsRepo) Start(ctx context.Context, userID, notes string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	session := Session{
		UserID:    userID,
		StartedAt: time.Now(),
		Notes:     notes,
	}
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO workout_session (user_id, started_at, notes)
			VALUES ($1, $2, $3)
			RETURNING id;`,
		session.UserID, session.StartedAt, session.Notes,
	).Scan(&session.ID); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("session.id", session.ID))
	return &session, nil
}

func (r *SessionsRepo) Get(ctx context.Context, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var session Session
	if err := r.db.QueryRow(
		ctx,
		`SELECT id, user_id, started_at, completed_at, COALESCE(notes, '')
			FROM workout_session WHERE id = $1;`,
		id,
	).Scan(
		&session.ID, &session.UserID, &session.StartedAt,
		&session.CompletedAt, &session.Notes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// Complete marks a session as done. Completing an already completed session
// fails, so the daily progression flow runs at most once per session.
func (r *SessionsRepo) Complete(ctx context.Context, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	session, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.CompletedAt != nil {
		return nil, ErrSessionAlreadyCompleted
	}

	completedAt := time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_session SET completed_at = $1 WHERE id = $2 AND completed_at IS NULL;`,
		completedAt, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionAlreadyCompleted
	}

	session.CompletedAt = &completedAt
	return session, nil
}

// AddSet appends a set to a session, numbering it after the sets already
// logged there. The session row is locked while the number is assigned, so
// concurrent adds to one session never share a set number.
func (r *SessionsRepo) AddSet(ctx context.Context, set Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.addset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", set.SessionID))
	span.SetAttributes(attribute.Int("exercise.id", set.ExerciseID))

	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
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

	var sessionID int
	if err = tx.QueryRow(
		ctx,
		`SELECT id FROM workout_session WHERE id = $1 FOR UPDATE;`,
		set.SessionID,
	).Scan(&sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrSessionNotFound
		}
		return nil, err
	}

	if err = tx.QueryRow(
		ctx,
		`INSERT INTO exercise_set
				(session_id, exercise_id, set_number, weight, reps, is_warmup, created_at)
			SELECT $1, $2, COALESCE(MAX(set_number), 0) + 1, $3, $4, $5, $6
				FROM exercise_set WHERE session_id = $1
			RETURNING id, set_number;`,
		set.SessionID, set.ExerciseID, set.Weight, set.Reps, set.IsWarmup, set.CreatedAt,
	).Scan(&set.ID, &set.SetNumber); err != nil {
		return nil, err
	}

	return &set, nil
}

func (r *SessionsRepo) ListSets(ctx context.Context, sessionID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.listsets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, session_id, exercise_id, set_number, weight, reps, is_warmup, created_at
			FROM exercise_set WHERE session_id = $1 ORDER BY set_number;`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2sets(rows)
}

// ListSetsForExercise returns all of a user's sets for one exercise, oldest
// first, across all sessions. Used by the analyzer.
func (r *SessionsRepo) ListSetsForExercise(ctx context.Context, userID string, exerciseID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sessions.listsetsforexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	rows, err := r.db.Query(
		ctx,
		`SELECT es.id, es.session_id, es.exercise_id, es.set_number, es.weight, es.reps, es.is_warmup, es.created_at
			FROM exercise_set es
			JOIN workout_session ws ON es.session_id = ws.id
			WHERE ws.user_id = $1 AND es.exercise_id = $2
			ORDER BY es.created_at;`,
		userID, exerciseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2sets(rows)
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	sets := make([]Set, 0)
	for rows.Next() {
		var s Set
		if err := rows.Scan(
			&s.ID, &s.SessionID, &s.ExerciseID, &s.SetNumber,
			&s.Weight, &s.Reps, &s.IsWarmup, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, nil
}

package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitforge/fitforge/internal/telemetry/tracing"
	"github.com/fitforge/fitforge/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// querier is the subset of pool/tx the statements below run against, so the
// same statement can run standalone or inside a wrapping transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// mapConcurrencyErr turns a store-level serialization failure into the
// sentinel the caller retries on.
func mapConcurrencyErr(err error) error {
	if pkg.IsSerializationFailureError(err) {
		return fmt.Errorf("%w: %s", ErrConcurrencyConflict, err)
	}
	return err
}

// Award applies an XP delta to the user's aggregate and appends one
// transaction row, all in a single database transaction. The progress row is
// locked for the duration, so two concurrent awards are both reflected in the
// final xp. A zero-state row is created lazily on first award.
func (r *Repo) Award(
	ctx context.Context,
	userID string,
	amount int,
	reason string,
	source XpSource,
) (_ *AwardResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.award")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("amount", amount))
	span.SetAttributes(attribute.String("source", string(source)))

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	defer func() {
		err = mapConcurrencyErr(err)
	}()

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

	result, err := r.award(ctx, tx, userID, amount, reason, source)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("level.new", result.NewLevel))
	return result, nil
}

// award runs the aggregate update plus the transaction append against q. The
// caller owns the transaction boundary.
func (r *Repo) award(
	ctx context.Context,
	q querier,
	userID string,
	amount int,
	reason string,
	source XpSource,
) (*AwardResult, error) {
	if _, err := q.Exec(
		ctx,
		`INSERT INTO user_progress
				(user_id, xp, level, current_streak, longest_streak, total_xp_earned, updated_at)
			VALUES ($1, 0, 1, 0, 0, 0, NOW())
			ON CONFLICT (user_id) DO NOTHING;`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("ensure progress row: %w", err)
	}

	var xp, level, totalEarned int
	if err := q.QueryRow(
		ctx,
		`SELECT xp, level, total_xp_earned FROM user_progress WHERE user_id = $1 FOR UPDATE;`,
		userID,
	).Scan(&xp, &level, &totalEarned); err != nil {
		return nil, fmt.Errorf("lock progress row: %w", err)
	}

	newXp := xp + amount
	newLevel := LevelForXp(newXp)
	newTotal := totalEarned + amount

	if _, err := q.Exec(
		ctx,
		`UPDATE user_progress
			SET xp = $1, level = $2, total_xp_earned = $3, updated_at = NOW()
			WHERE user_id = $4;`,
		newXp, newLevel, newTotal, userID,
	); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	if _, err := q.Exec(
		ctx,
		`INSERT INTO xp_transaction (user_id, amount, reason, source, created_at)
			VALUES ($1, $2, $3, $4, NOW());`,
		userID, amount, reason, string(source),
	); err != nil {
		return nil, fmt.Errorf("append xp transaction: %w", err)
	}

	return &AwardResult{
		LeveledUp:     newLevel > level,
		OldLevel:      level,
		NewLevel:      newLevel,
		Xp:            newXp,
		TotalXpEarned: newTotal,
	}, nil
}

// CompleteSet persists one working set's whole progression outcome in a
// single transaction: the three record upserts, the base set XP and, when a
// record improved, the PR bonus. Either everything commits or nothing does,
// so a failed call is safely retried without double-paying the base XP or
// stranding the bonus behind already persisted records.
func (r *Repo) CompleteSet(
	ctx context.Context,
	userID string,
	exerciseID int,
	candidate SetMetrics,
	achievedAt time.Time,
) (_ *SetCompletion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.completeset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	defer func() {
		err = mapConcurrencyErr(err)
	}()

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

	flags := &RecordFlags{}
	for _, c := range []struct {
		kind  RecordType
		value float64
		flag  *bool
	}{
		{RecordOneRepMax, candidate.OneRepMax, &flags.OneRepMax},
		{RecordMaxVolume, candidate.Volume, &flags.MaxVolume},
		{RecordMaxReps, float64(candidate.Reps), &flags.MaxReps},
	} {
		improved, upsertErr := r.upsertRecord(ctx, tx, userID, exerciseID, c.kind, c.value, achievedAt)
		if upsertErr != nil {
			err = fmt.Errorf("upsert %s record: %w", c.kind, upsertErr)
			return nil, err
		}
		*c.flag = improved
	}

	completion := &SetCompletion{Records: flags}
	if completion.Base, err = r.award(ctx, tx, userID, XpPerSet, "completed a set", SourceSetComplete); err != nil {
		err = fmt.Errorf("award set xp: %w", err)
		return nil, err
	}
	if flags.Any() {
		if completion.Bonus, err = r.award(ctx, tx, userID, XpPersonalRecordBonus, "new personal record", SourcePersonalRecord); err != nil {
			err = fmt.Errorf("award pr bonus: %w", err)
			return nil, err
		}
	}

	return completion, nil
}

// upsertRecord reports true iff the record was created or its value strictly
// improved. On a tie or a worse candidate the statement affects no row.
func (r *Repo) upsertRecord(
	ctx context.Context,
	q querier,
	userID string,
	exerciseID int,
	kind RecordType,
	value float64,
	achievedAt time.Time,
) (bool, error) {
	tag, err := q.Exec(
		ctx,
		`INSERT INTO personal_record (user_id, exercise_id, record_type, value, date)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, exercise_id, record_type)
			DO UPDATE SET value = EXCLUDED.value, date = EXCLUDED.date
			WHERE personal_record.value < EXCLUDED.value;`,
		userID, exerciseID, string(kind), value, achievedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RollStreak evaluates the user's streak against the supplied "today" and
// persists the outcome. The progress row is locked so concurrent session
// completions on the same day grant the daily bonus at most once.
func (r *Repo) RollStreak(ctx context.Context, userID string, today time.Time) (_ *StreakResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.rollstreak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	defer func() {
		err = mapConcurrencyErr(err)
	}()

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

	if _, err = tx.Exec(
		ctx,
		`INSERT INTO user_progress
				(user_id, xp, level, current_streak, longest_streak, total_xp_earned, updated_at)
			VALUES ($1, 0, 1, 0, 0, 0, NOW())
			ON CONFLICT (user_id) DO NOTHING;`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("ensure progress row: %w", err)
	}

	var currentStreak, longestStreak int
	var lastWorkoutDate *time.Time
	if err = tx.QueryRow(
		ctx,
		`SELECT current_streak, longest_streak, last_workout_date
			FROM user_progress WHERE user_id = $1 FOR UPDATE;`,
		userID,
	).Scan(&currentStreak, &longestStreak, &lastWorkoutDate); err != nil {
		return nil, fmt.Errorf("lock progress row: %w", err)
	}

	decision := NextStreak(currentStreak, lastWorkoutDate, today)
	if !decision.Changed {
		return &StreakResult{
			Streak:        currentStreak,
			LongestStreak: longestStreak,
			Changed:       false,
		}, nil
	}

	newLongest := longestStreak
	if decision.Streak > newLongest {
		newLongest = decision.Streak
	}

	if _, err = tx.Exec(
		ctx,
		`UPDATE user_progress
			SET current_streak = $1, longest_streak = $2, last_workout_date = $3, updated_at = NOW()
			WHERE user_id = $4;`,
		decision.Streak, newLongest, DateOnly(today), userID,
	); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	span.SetAttributes(attribute.Int("streak", decision.Streak))

	return &StreakResult{
		Streak:        decision.Streak,
		LongestStreak: newLongest,
		Changed:       true,
		BonusXp:       decision.BonusXp,
	}, nil
}

func (r *Repo) GetProgress(ctx context.Context, userID string) (_ *UserProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.getprogress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	var progress UserProgress
	if err = r.db.QueryRow(
		ctx,
		`SELECT user_id, xp, level, current_streak, longest_streak, total_xp_earned, last_workout_date, updated_at
			FROM user_progress WHERE user_id = $1;`,
		userID,
	).Scan(
		&progress.UserID, &progress.Xp, &progress.Level,
		&progress.CurrentStreak, &progress.LongestStreak, &progress.TotalXpEarned,
		&progress.LastWorkoutDate, &progress.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// ListTransactions returns the user's XP transactions, newest first.
func (r *Repo) ListTransactions(ctx context.Context, userID string, limit int) (_ []XpTransaction, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.listtransactions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, amount, reason, source, created_at
			FROM xp_transaction
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2;`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	transactions := make([]XpTransaction, 0)
	for rows.Next() {
		var t XpTransaction
		var source string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Reason, &source, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		t.Source = XpSource(source)
		transactions = append(transactions, t)
	}

	return transactions, nil
}

func (r *Repo) ListRecords(ctx context.Context, userID string) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progression.listrecords")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, exercise_id, record_type, value, date, COALESCE(notes, '')
			FROM personal_record
			WHERE user_id = $1
			ORDER BY exercise_id, record_type;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	records := make([]PersonalRecord, 0)
	for rows.Next() {
		var record PersonalRecord
		var kind string
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.ExerciseID,
			&kind, &record.Value, &record.Date, &record.Notes,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		record.RecordType = RecordType(kind)
		records = append(records, record)
	}

	return records, nil
}

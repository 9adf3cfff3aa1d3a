package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fitforge/fitforge/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseNotFound = errors.New("exercise not found")

const (
	catalogCacheKey    = "exercises::all"
	catalogCacheExpire = 5 * 60 // seconds
)

// CatalogRepo holds the exercise catalog. The full list is read-mostly and
// served from an in-process cache, invalidated on every mutation.
type CatalogRepo struct {
	db    *pgxpool.Pool
	cache *freecache.Cache
}

func NewCatalogRepo(db *pgxpool.Pool) *CatalogRepo {
	megabyte := 1024 * 1024
	return &CatalogRepo{
		db:    db,
		cache: freecache.NewCache(10 * megabyte),
	}
}

func (r *CatalogRepo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.catalog.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO exercise (name, muscle_group, description, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		exercise.Name, exercise.MuscleGroup, exercise.Description, exercise.CreatedAt,
	).Scan(&exercise.ID); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	r.cache.Del([]byte(catalogCacheKey))

	return &exercise, nil
}

func (r *CatalogRepo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.catalog.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var e Exercise
	if err := r.db.QueryRow(
		ctx,
		`SELECT id, name, muscle_group, COALESCE(description, ''), created_at
			FROM exercise WHERE id = $1;`,
		id,
	).Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Description, &e.CreatedAt); err != nil {
		return nil, ErrExerciseNotFound
	}

	return &e, nil
}

func (r *CatalogRepo) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.catalog.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if cachedBytes, err := r.cache.Get([]byte(catalogCacheKey)); err == nil {
		var exercises []Exercise
		if err = json.Unmarshal(cachedBytes, &exercises); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return exercises, nil
		}
		log.Errorf("failed to unmarshal cached exercise catalog: %s", err)
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, muscle_group, COALESCE(description, ''), created_at
			FROM exercise ORDER BY muscle_group, name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, e)
	}

	if exercisesJson, err := json.Marshal(exercises); err == nil {
		if err := r.cache.Set([]byte(catalogCacheKey), exercisesJson, catalogCacheExpire); err != nil {
			log.Errorf("failed to cache exercise catalog: %s", err)
		}
	}

	return exercises, nil
}

func (r *CatalogRepo) Update(ctx context.Context, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.catalog.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET name = $1, muscle_group = $2, description = $3 WHERE id = $4;`,
		exercise.Name, exercise.MuscleGroup, exercise.Description, exercise.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	r.cache.Del([]byte(catalogCacheKey))
	return nil
}

func (r *CatalogRepo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.catalog.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	r.cache.Del([]byte(catalogCacheKey))
	return nil
}

package workouts

import (
	"context"
	"sort"
	"time"

	"github.com/fitforge/fitforge/internal/progression"
	"github.com/fitforge/fitforge/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// maxDisplayReps caps the rep range when ranking heavy sets. The Epley
// estimate gets unreliable for high-rep sets, so those are excluded from the
// display ranking only. Record detection itself accepts any rep count.
const maxDisplayReps = 12

// ExerciseHistory gives, for each day, the average weight and reps per
// working set of one exercise.
type ExerciseHistory struct {
	ExerciseID int                    `json:"exerciseId"`
	Stats      map[time.Time]DayStats `json:"stats"`
}

type DayStats struct {
	AvgWeight float64 `json:"avgWeight"`
	AvgReps   int     `json:"avgReps"`
	Sets      int     `json:"sets"`
}

// HeavySet is a logged set ranked by its estimated one-rep max.
type HeavySet struct {
	Set
	Estimated1RM float64 `json:"estimated1RM"`
}

type Analyzer struct {
	repo sessionsRepo
}

func NewAnalyzer(repo sessionsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// History aggregates a user's working sets for one exercise per day.
// Warmup sets and sets without weight or reps are skipped.
func (a *Analyzer) History(ctx context.Context, userID string, exerciseID int) (_ *ExerciseHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	sets, err := a.repo.ListSetsForExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}

	day2sets := make(map[time.Time][]Set)
	for _, s := range sets {
		if s.IsWarmup || s.Weight == nil || s.Reps == nil {
			continue
		}
		day := s.CreatedAt.Truncate(24 * time.Hour)
		day2sets[day] = append(day2sets[day], s)
	}

	history := &ExerciseHistory{
		ExerciseID: exerciseID,
		Stats:      make(map[time.Time]DayStats),
	}
	for day, daySets := range day2sets {
		var sumWeight float64
		var sumReps int
		for _, s := range daySets {
			sumWeight += *s.Weight
			sumReps += *s.Reps
		}
		history.Stats[day] = DayStats{
			AvgWeight: sumWeight / float64(len(daySets)),
			AvgReps:   sumReps / len(daySets),
			Sets:      len(daySets),
		}
	}

	return history, nil
}

// HeaviestSets ranks a user's working sets for one exercise by estimated
// one-rep max, heaviest first. High-rep sets (reps > 12) are excluded from
// the ranking.
func (a *Analyzer) HeaviestSets(ctx context.Context, userID string, exerciseID, limit int) (_ []HeavySet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.heaviestsets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	sets, err := a.repo.ListSetsForExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}

	heavySets := make([]HeavySet, 0)
	for _, s := range sets {
		if s.IsWarmup || s.Weight == nil || s.Reps == nil {
			continue
		}
		if *s.Reps > maxDisplayReps {
			continue
		}
		heavySets = append(heavySets, HeavySet{
			Set:          s,
			Estimated1RM: progression.EstimateOneRepMax(*s.Weight, *s.Reps),
		})
	}

	sort.Slice(heavySets, func(i, j int) bool {
		return heavySets[i].Estimated1RM > heavySets[j].Estimated1RM
	})

	if limit > 0 && len(heavySets) > limit {
		heavySets = heavySets[:limit]
	}

	return heavySets, nil
}

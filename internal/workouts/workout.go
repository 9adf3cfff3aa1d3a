package workouts

import "time"

// Exercise is a catalog entry, not a logged set.
type Exercise struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Session struct {
	ID          int        `json:"id"`
	UserID      string     `json:"userId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type Set struct {
	ID         int       `json:"id"`
	SessionID  int       `json:"sessionId"`
	ExerciseID int       `json:"exerciseId"`
	SetNumber  int       `json:"setNumber"`
	Weight     *float64  `json:"weight,omitempty"`
	Reps       *int      `json:"reps,omitempty"`
	IsWarmup   bool      `json:"isWarmup"`
	CreatedAt  time.Time `json:"createdAt"`
}

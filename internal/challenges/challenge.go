package challenges

import "time"

type Challenge struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Target      float64   `json:"target"`
	XpReward    int       `json:"xpReward"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

type ParticipantStatus string

const (
	StatusJoined     ParticipantStatus = "joined"
	StatusInProgress ParticipantStatus = "in_progress"
	StatusCompleted  ParticipantStatus = "completed"
	StatusFailed     ParticipantStatus = "failed"
)

type Participant struct {
	ChallengeID int               `json:"challengeId"`
	UserID      string            `json:"userId"`
	Progress    float64           `json:"progress"`
	Status      ParticipantStatus `json:"status"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fitforge/fitforge/internal/progression"
	"github.com/fitforge/fitforge/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
)

func (s *IntegrationTestSuite) addExerciseRequest(ctx context.Context, exercise workouts.Exercise) workouts.Exercise {
	exerciseJson, err := json.Marshal(exercise)
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/exercises", serverEndpoint),
		bytes.NewReader(exerciseJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var addedExercise workouts.Exercise
	s.Require().NoError(json.Unmarshal(respBytes, &addedExercise))
	return addedExercise
}

func (s *IntegrationTestSuite) startSessionRequest(ctx context.Context, userID, notes string) workouts.Session {
	sessionReqJson, err := json.Marshal(workouts.StartSessionRequest{
		UserID: userID,
		Notes:  notes,
	})
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/sessions", serverEndpoint),
		bytes.NewReader(sessionReqJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var session workouts.Session
	s.Require().NoError(json.Unmarshal(respBytes, &session))
	return session
}

func (s *IntegrationTestSuite) addSetRequest(ctx context.Context, sessionID int, setReq workouts.AddSetRequest) workouts.AddSetResponse {
	setReqJson, err := json.Marshal(setReq)
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/sessions/%d/sets", serverEndpoint, sessionID),
		bytes.NewReader(setReqJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var addSetResp workouts.AddSetResponse
	s.Require().NoError(json.Unmarshal(respBytes, &addSetResp))
	return addSetResp
}

func (s *IntegrationTestSuite) completeSessionRequest(ctx context.Context, sessionID, expectedStatus int) *workouts.CompleteSessionResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/sessions/%d/complete", serverEndpoint, sessionID),
		nil,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(expectedStatus, resp.StatusCode)

	if expectedStatus != http.StatusOK {
		return nil
	}

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var completeResp workouts.CompleteSessionResponse
	s.Require().NoError(json.Unmarshal(respBytes, &completeResp))
	return &completeResp
}

func (s *IntegrationTestSuite) getRecords(ctx context.Context, userID string) progression.RecordsResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/progression/%s/records", serverEndpoint, userID),
		nil,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var records progression.RecordsResponse
	s.Require().NoError(json.Unmarshal(respBytes, &records))
	return records
}

func float64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int             { return &i }

// The whole workout flow: log sets, earn XP and records, complete the
// session, roll the streak.
func (s *IntegrationTestSuite) TestWorkoutFlow() {
	ctx := context.Background()
	userID := gofakeit.Username()

	exercise := s.addExerciseRequest(ctx, workouts.Exercise{
		Name:        gofakeit.HipsterWord(),
		MuscleGroup: "chest",
		Description: "flat barbell bench press",
		CreatedAt:   time.Now(),
	})
	s.Require().NotZero(exercise.ID)

	session := s.startSessionRequest(ctx, userID, "push day")
	s.Require().NotZero(session.ID)
	s.Equal(userID, session.UserID)

	// warmup sets do not touch progression
	warmupResp := s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(40),
		Reps:       intPtr(12),
		IsWarmup:   true,
	})
	s.Require().NotNil(warmupResp.Progression)
	s.True(warmupResp.Progression.Skipped)
	s.Zero(warmupResp.Progression.XpAwarded)

	// first working set, all three records are new: 5 + 100 bonus
	firstSetResp := s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(100),
		Reps:       intPtr(5),
	})
	s.Require().NotNil(firstSetResp.Progression)
	s.False(firstSetResp.Progression.Skipped)
	s.Equal(105, firstSetResp.Progression.XpAwarded)
	s.Require().NotNil(firstSetResp.Progression.Records)
	s.True(firstSetResp.Progression.Records.OneRepMax)
	s.True(firstSetResp.Progression.Records.MaxVolume)
	s.True(firstSetResp.Progression.Records.MaxReps)

	// the same set again improves nothing, base XP only
	repeatSetResp := s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(100),
		Reps:       intPtr(5),
	})
	s.Equal(5, repeatSetResp.Progression.XpAwarded)
	s.False(repeatSetResp.Progression.Records.Any())

	// heavier set beats the one rep max and volume records
	heavySetResp := s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(110),
		Reps:       intPtr(5),
	})
	s.Equal(105, heavySetResp.Progression.XpAwarded)
	s.True(heavySetResp.Progression.Records.OneRepMax)
	s.True(heavySetResp.Progression.Records.MaxVolume)
	s.False(heavySetResp.Progression.Records.MaxReps)

	// complete: workout 50 + first of day 25 + streak bonus 10
	completeResp := s.completeSessionRequest(ctx, session.ID, http.StatusOK)
	s.Require().NotNil(completeResp.Progression)
	s.Equal(1, completeResp.Progression.Streak)
	s.Equal(1, completeResp.Progression.LongestStreak)
	s.Equal(10, completeResp.Progression.StreakBonusXp)
	s.Equal(85, completeResp.Progression.XpAwarded)

	// completing twice conflicts
	s.completeSessionRequest(ctx, session.ID, http.StatusConflict)

	snapshot := s.getSnapshot(ctx, userID)
	s.Equal(300, snapshot.Xp)
	s.Equal(300, snapshot.TotalXpEarned)
	s.Equal(2, snapshot.Level)
	s.Equal(1, snapshot.CurrentStreak)
	s.Equal("Beginner", snapshot.Badge)

	records := s.getRecords(ctx, userID)
	s.Require().Equal(3, records.Total)
	for _, record := range records.Records {
		s.Equal(exercise.ID, record.ExerciseID)
		switch record.RecordType {
		case progression.RecordOneRepMax:
			// epley: 110 * (1 + 5/30)
			s.InDelta(128.33, record.Value, 0.01)
		case progression.RecordMaxVolume:
			s.InDelta(550, record.Value, 0.001)
		case progression.RecordMaxReps:
			s.InDelta(5, record.Value, 0.001)
		}
	}
}

// A second completed session on the same day holds the streak and awards
// the workout XP only.
func (s *IntegrationTestSuite) TestWorkoutFlow_SecondSessionSameDay() {
	ctx := context.Background()
	userID := gofakeit.Username()

	firstSession := s.startSessionRequest(ctx, userID, "morning")
	firstResp := s.completeSessionRequest(ctx, firstSession.ID, http.StatusOK)
	s.Equal(1, firstResp.Progression.Streak)
	s.Equal(85, firstResp.Progression.XpAwarded)

	secondSession := s.startSessionRequest(ctx, userID, "evening")
	secondResp := s.completeSessionRequest(ctx, secondSession.ID, http.StatusOK)
	s.Equal(1, secondResp.Progression.Streak)
	s.Zero(secondResp.Progression.StreakBonusXp)
	s.Equal(50, secondResp.Progression.XpAwarded)
}

func (s *IntegrationTestSuite) TestExerciseHistory() {
	ctx := context.Background()
	userID := gofakeit.Username()

	exercise := s.addExerciseRequest(ctx, workouts.Exercise{
		Name:        gofakeit.HipsterWord(),
		MuscleGroup: "back",
		CreatedAt:   time.Now(),
	})

	session := s.startSessionRequest(ctx, userID, "")
	s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(80),
		Reps:       intPtr(10),
	})
	s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
		ExerciseID: exercise.ID,
		Weight:     float64Ptr(90),
		Reps:       intPtr(8),
	})

	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf(
			"%s/exercises/%d/history?user_id=%s",
			serverEndpoint, exercise.ID, userID,
		),
		nil,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var history workouts.ExerciseHistory
	s.Require().NoError(json.Unmarshal(respBytes, &history))
	s.Equal(exercise.ID, history.ExerciseID)
	s.Require().Len(history.Stats, 1)
	for _, dayStats := range history.Stats {
		s.InDelta(85, dayStats.AvgWeight, 0.001)
		s.Equal(9, dayStats.AvgReps)
		s.Equal(2, dayStats.Sets)
	}
}

// Concurrent set adds to one session must get distinct set numbers.
func (s *IntegrationTestSuite) TestAddSet_ConcurrentNumbering() {
	ctx := context.Background()
	userID := gofakeit.Username()

	exercise := s.addExerciseRequest(ctx, workouts.Exercise{
		Name:        "Leg Press",
		MuscleGroup: "legs",
	})
	session := s.startSessionRequest(ctx, userID, "leg day")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.addSetRequest(ctx, session.ID, workouts.AddSetRequest{
				ExerciseID: exercise.ID,
				IsWarmup:   true,
			})
		}()
	}
	wg.Wait()

	rows, err := s.dbPool.Query(
		ctx,
		`SELECT set_number FROM exercise_set WHERE session_id = $1 ORDER BY set_number;`,
		session.ID,
	)
	s.Require().NoError(err)
	defer rows.Close()

	setNumbers := make([]int, 0, workers)
	for rows.Next() {
		var n int
		s.Require().NoError(rows.Scan(&n))
		setNumbers = append(setNumbers, n)
	}
	s.Require().Len(setNumbers, workers)
	for i, n := range setNumbers {
		s.Equal(i+1, n)
	}
}

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/fitforge/fitforge/internal/progression"

	"github.com/brianvoe/gofakeit/v6"
)

func (s *IntegrationTestSuite) awardXpRequest(
	ctx context.Context,
	awardReq progression.AwardRequest,
	expectedStatus int,
) *progression.AwardResult {
	awardReqJson, err := json.Marshal(awardReq)
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/progression/award", serverEndpoint),
		bytes.NewReader(awardReqJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(expectedStatus, resp.StatusCode)

	if expectedStatus != http.StatusCreated {
		return nil
	}

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var award progression.AwardResult
	s.Require().NoError(json.Unmarshal(respBytes, &award))
	return &award
}

func (s *IntegrationTestSuite) getSnapshot(ctx context.Context, userID string) *progression.Snapshot {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/progression/%s", serverEndpoint, userID),
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

	var snapshot progression.Snapshot
	s.Require().NoError(json.Unmarshal(respBytes, &snapshot))
	return &snapshot
}

func (s *IntegrationTestSuite) getTransactions(ctx context.Context, userID string, limit int) progression.TransactionsResponse {
	url := fmt.Sprintf("%s/progression/%s/transactions", serverEndpoint, userID)
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-FITFORGE-TOKEN", testMobileAppSecret)

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var transactions progression.TransactionsResponse
	s.Require().NoError(json.Unmarshal(respBytes, &transactions))
	return transactions
}

// N concurrent awards of the same amount must add up exactly, regardless of
// interleaving.
func (s *IntegrationTestSuite) TestAwardXp_ConcurrentAwardsAddUp() {
	ctx := context.Background()
	userID := gofakeit.Username()

	const (
		workers     = 20
		awardAmount = 10
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.awardXpRequest(ctx, progression.AwardRequest{
				UserID: userID,
				Amount: awardAmount,
				Reason: "concurrent grant",
				Source: progression.SourceManual,
			}, http.StatusCreated)
		}()
	}
	wg.Wait()

	snapshot := s.getSnapshot(ctx, userID)
	s.Equal(workers*awardAmount, snapshot.Xp)
	s.Equal(workers*awardAmount, snapshot.TotalXpEarned)
	// 200 XP puts the user in level 2 [100, 400)
	s.Equal(2, snapshot.Level)

	transactions := s.getTransactions(ctx, userID, 100)
	s.Equal(workers, transactions.Total)
	for _, tx := range transactions.Transactions {
		s.Equal(awardAmount, tx.Amount)
		s.Equal(progression.SourceManual, tx.Source)
	}
}

func (s *IntegrationTestSuite) TestAwardXp_Validation() {
	ctx := context.Background()
	userID := gofakeit.Username()

	// non-positive amount
	s.awardXpRequest(ctx, progression.AwardRequest{
		UserID: userID,
		Amount: 0,
		Reason: "nothing",
		Source: progression.SourceManual,
	}, http.StatusBadRequest)

	// unknown source
	s.awardXpRequest(ctx, progression.AwardRequest{
		UserID: userID,
		Amount: 10,
		Reason: "suspicious",
		Source: progression.XpSource("lottery"),
	}, http.StatusBadRequest)

	// nothing got through
	snapshot := s.getSnapshot(ctx, userID)
	s.Equal(0, snapshot.Xp)
	s.Equal(1, snapshot.Level)
}

func (s *IntegrationTestSuite) TestProgression_SnapshotDefaults() {
	ctx := context.Background()

	// a user that never did anything has the zero-state defaults
	snapshot := s.getSnapshot(ctx, gofakeit.Username())
	s.Equal(0, snapshot.Xp)
	s.Equal(1, snapshot.Level)
	s.Equal(0, snapshot.CurrentStreak)
	s.Equal("Beginner", snapshot.Badge)
	s.Equal(100, snapshot.XpNeededForNext)
}

func (s *IntegrationTestSuite) TestProgression_TransactionsLimit() {
	ctx := context.Background()
	userID := gofakeit.Username()

	for i := 0; i < 5; i++ {
		s.awardXpRequest(ctx, progression.AwardRequest{
			UserID: userID,
			Amount: 10 + i,
			Reason: fmt.Sprintf("grant %d", i),
			Source: progression.SourceAchievementUnlock,
		}, http.StatusCreated)
	}

	transactions := s.getTransactions(ctx, userID, 3)
	s.Equal(3, transactions.Total)
	// newest first
	s.Equal(14, transactions.Transactions[0].Amount)
}

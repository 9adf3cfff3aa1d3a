package progression

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fitforge/fitforge/internal/telemetry/tracing"
	"github.com/fitforge/fitforge/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=progression_mocks_test.go -package=progression_test

type progressionService interface {
	ProgressSnapshot(ctx context.Context, userID string) (*Snapshot, error)
	RecentTransactions(ctx context.Context, userID string, limit int) ([]XpTransaction, error)
	Records(ctx context.Context, userID string) ([]PersonalRecord, error)
	Award(ctx context.Context, userID string, amount int, reason string, source XpSource) (*AwardResult, error)
}

type AwardRequest struct {
	UserID string   `json:"userId"`
	Amount int      `json:"amount"`
	Reason string   `json:"reason"`
	Source XpSource `json:"source"`
}

type TransactionsResponse struct {
	Transactions []XpTransaction `json:"transactions"`
	Total        int             `json:"total"`
}

type RecordsResponse struct {
	Records []PersonalRecord `json:"records"`
	Total   int              `json:"total"`
}

type Handler struct {
	service progressionService
}

func NewHandler(service progressionService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.snapshot")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	snapshot, err := handler.service.ProgressSnapshot(ctx, userID)
	if err != nil {
		log.Errorf("failed to get progress snapshot for %s: %s", userID, err)
		http.Error(w, "failed to get progress", http.StatusInternalServerError)
		return
	}

	snapshotJson, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("failed to marshal progress snapshot: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, snapshotJson, http.StatusOK)
}

func (handler *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.transactions")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "error, limit NaN", http.StatusBadRequest)
			return
		}
	}

	transactions, err := handler.service.RecentTransactions(ctx, userID, limit)
	if err != nil {
		log.Errorf("failed to list xp transactions for %s: %s", userID, err)
		http.Error(w, "failed to get transactions", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(TransactionsResponse{
		Transactions: transactions,
		Total:        len(transactions),
	})
	if err != nil {
		log.Errorf("failed to marshal transactions response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.records")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	records, err := handler.service.Records(ctx, userID)
	if err != nil {
		log.Errorf("failed to list personal records for %s: %s", userID, err)
		http.Error(w, "failed to get personal records", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(RecordsResponse{
		Records: records,
		Total:   len(records),
	})
	if err != nil {
		log.Errorf("failed to marshal records response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// HandleAward is the manual XP grant endpoint, admin only.
func (handler *Handler) HandleAward(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.award")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("award xp, unmarshal json params: %s", err)
		http.Error(w, "award xp failed", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = SourceManual
	}

	award, err := handler.service.Award(ctx, req.UserID, req.Amount, req.Reason, req.Source)
	switch {
	case errors.Is(err, ErrInvalidAmount):
		http.Error(w, "error, invalid amount", http.StatusBadRequest)
		return
	case errors.Is(err, ErrInvalidSource):
		http.Error(w, "error, invalid source", http.StatusBadRequest)
		return
	case errors.Is(err, ErrConcurrencyConflict):
		http.Error(w, "conflict, retry the request", http.StatusConflict)
		return
	case err != nil:
		log.Errorf("failed to award xp to %s: %s", req.UserID, err)
		http.Error(w, "error, failed to award xp", http.StatusInternalServerError)
		return
	}

	awardJson, err := json.Marshal(award)
	if err != nil {
		log.Errorf("failed to marshal award response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("awarded %d xp to %s [%s]", req.Amount, req.UserID, req.Source)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, awardJson, http.StatusCreated)
}

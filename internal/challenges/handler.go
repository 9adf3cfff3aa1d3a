package challenges

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

//go:generate mockgen -source=$GOFILE -destination=challenges_mocks_test.go -package=challenges_test

type challengesService interface {
	Create(ctx context.Context, challenge Challenge) (*Challenge, error)
	List(ctx context.Context) ([]Challenge, error)
	Join(ctx context.Context, challengeID int, userID string) (*Participant, error)
	UpdateProgress(ctx context.Context, challengeID int, userID string, progress float64) (*ProgressUpdate, error)
}

type JoinRequest struct {
	UserID string `json:"userId"`
}

type ProgressRequest struct {
	UserID   string  `json:"userId"`
	Progress float64 `json:"progress"`
}

type ChallengesResponse struct {
	Challenges []Challenge `json:"challenges"`
	Total      int         `json:"total"`
}

type Handler struct {
	service challengesService
}

func NewHandler(service challengesService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.challenges.list")
	defer span.End()

	challenges, err := handler.service.List(ctx)
	if err != nil {
		log.Errorf("failed to list challenges: %s", err)
		http.Error(w, "failed to get challenges", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ChallengesResponse{
		Challenges: challenges,
		Total:      len(challenges),
	})
	if err != nil {
		log.Errorf("failed to marshal challenges: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.challenges.create")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var challenge Challenge
	if err := json.NewDecoder(r.Body).Decode(&challenge); err != nil {
		log.Tracef("new challenge, unmarshal json params: %s", err)
		http.Error(w, "add challenge failed", http.StatusBadRequest)
		return
	}
	if challenge.Title == "" {
		http.Error(w, "error, challenge title empty", http.StatusBadRequest)
		return
	}
	if challenge.Target <= 0 {
		http.Error(w, "error, challenge target invalid", http.StatusBadRequest)
		return
	}

	added, err := handler.service.Create(ctx, challenge)
	if err != nil {
		log.Errorf("failed to add challenge [%s]: %s", challenge.Title, err)
		http.Error(w, "error, failed to add challenge", http.StatusInternalServerError)
		return
	}

	challengeJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal challenge: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("new challenge added: %s", challengeJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, challengeJson, http.StatusCreated)
}

func (handler *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.challenges.join")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("join challenge, unmarshal json params: %s", err)
		http.Error(w, "join challenge failed", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	participant, err := handler.service.Join(ctx, id, req.UserID)
	if errors.Is(err, ErrChallengeNotFound) {
		http.Error(w, "challenge not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to join challenge %d for %s: %s", id, req.UserID, err)
		http.Error(w, "error, failed to join challenge", http.StatusInternalServerError)
		return
	}

	participantJson, err := json.Marshal(participant)
	if err != nil {
		log.Errorf("failed to marshal participant: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("user %s joined challenge %d", req.UserID, id)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, participantJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.challenges.progress")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("challenge progress, unmarshal json params: %s", err)
		http.Error(w, "update progress failed", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}
	if req.Progress < 0 {
		http.Error(w, "error, progress negative", http.StatusBadRequest)
		return
	}

	update, err := handler.service.UpdateProgress(ctx, id, req.UserID, req.Progress)
	if errors.Is(err, ErrChallengeNotFound) {
		http.Error(w, "challenge not found", http.StatusNotFound)
		return
	} else if errors.Is(err, ErrParticipantNotFound) {
		http.Error(w, "challenge participant not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to update challenge %d progress for %s: %s", id, req.UserID, err)
		http.Error(w, "error, failed to update progress", http.StatusInternalServerError)
		return
	}

	updateJson, err := json.Marshal(update)
	if err != nil {
		log.Errorf("failed to marshal progress update: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updateJson, http.StatusOK)
}

func challengeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, challenge id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, challenge id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

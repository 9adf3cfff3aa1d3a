package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fitforge/fitforge/internal/progression"
	"github.com/fitforge/fitforge/internal/telemetry/metrics"
	"github.com/fitforge/fitforge/internal/telemetry/tracing"
	"github.com/fitforge/fitforge/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type catalogRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, id int) (*Exercise, error)
	List(ctx context.Context) ([]Exercise, error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, id int) error
}

type sessionsRepo interface {
	Start(ctx context.Context, userID, notes string) (*Session, error)
	Get(ctx context.Context, id int) (*Session, error)
	Complete(ctx context.Context, id int) (*Session, error)
	AddSet(ctx context.Context, set Set) (*Set, error)
	ListSets(ctx context.Context, sessionID int) ([]Set, error)
	ListSetsForExercise(ctx context.Context, userID string, exerciseID int) ([]Set, error)
}

// orchestrator is the progression engine entry points the workout flow
// drives.
type orchestrator interface {
	RecordCompletedSet(ctx context.Context, set progression.CompletedSet) (*progression.SetResult, error)
	CompleteSession(ctx context.Context, userID string) (*progression.SessionResult, error)
}

type StartSessionRequest struct {
	UserID string `json:"userId"`
	Notes  string `json:"notes,omitempty"`
}

type AddSetRequest struct {
	ExerciseID int      `json:"exerciseId"`
	Weight     *float64 `json:"weight,omitempty"`
	Reps       *int     `json:"reps,omitempty"`
	IsWarmup   bool     `json:"isWarmup"`
}

type AddSetResponse struct {
	Set         Set                    `json:"set"`
	Progression *progression.SetResult `json:"progression"`
}

type SessionResponse struct {
	Session Session `json:"session"`
	Sets    []Set   `json:"sets"`
}

type CompleteSessionResponse struct {
	Session     Session                    `json:"session"`
	Progression *progression.SessionResult `json:"progression"`
}

type ExercisesResponse struct {
	Exercises []Exercise `json:"exercises"`
	Total     int        `json:"total"`
}

type DeleteExerciseResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	catalog     catalogRepo
	sessions    sessionsRepo
	progression orchestrator
	analyzer    *Analyzer
	metrics     *metrics.Manager
}

func NewHandler(
	catalog catalogRepo,
	sessions sessionsRepo,
	progressionService orchestrator,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		catalog:     catalog,
		sessions:    sessions,
		progression: progressionService,
		analyzer:    NewAnalyzer(sessions),
		metrics:     metricsManager,
	}
}

func (handler *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.session.start")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("start session, unmarshal json params: %s", err)
		http.Error(w, "start session failed", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	session, err := handler.sessions.Start(ctx, req.UserID, req.Notes)
	if err != nil {
		log.Errorf("failed to start session for %s: %s", req.UserID, err)
		http.Error(w, "error, failed to start session", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal session: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("session %d started for %s", session.ID, session.UserID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusCreated)
}

func (handler *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.session.get")
	defer span.End()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := handler.sessions.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to get session %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sets, err := handler.sessions.ListSets(ctx, id)
	if err != nil {
		log.Errorf("failed to list sets for session %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(SessionResponse{
		Session: *session,
		Sets:    sets,
	})
	if err != nil {
		log.Errorf("failed to marshal session response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// HandleAddSet logs one set and runs it through the progression engine.
// The response carries the stored set plus what the set changed (XP, records,
// level), with a skipped progression result for warmups and incomplete sets.
func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.session.addset")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req AddSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add set, unmarshal json params: %s", err)
		http.Error(w, "add set failed", http.StatusBadRequest)
		return
	}
	if req.ExerciseID == 0 {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	session, err := handler.sessions.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to get session %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	set, err := handler.sessions.AddSet(ctx, Set{
		SessionID:  id,
		ExerciseID: req.ExerciseID,
		Weight:     req.Weight,
		Reps:       req.Reps,
		IsWarmup:   req.IsWarmup,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Errorf("failed to add set to session %d: %s", id, err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}
	handler.metrics.CounterSetsLogged.Inc()

	setResult, err := handler.progression.RecordCompletedSet(ctx, progression.CompletedSet{
		UserID:     session.UserID,
		ExerciseID: set.ExerciseID,
		Weight:     set.Weight,
		Reps:       set.Reps,
		IsWarmup:   set.IsWarmup,
	})
	if err != nil {
		log.Errorf("failed to record completed set %d: %s", set.ID, err)
		http.Error(w, "error, set stored but progression failed, retry", http.StatusConflict)
		return
	}

	respJson, err := json.Marshal(AddSetResponse{
		Set:         *set,
		Progression: setResult,
	})
	if err != nil {
		log.Errorf("failed to marshal add set response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("set %d added to session %d", set.ID, id)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleCompleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.session.complete")
	defer span.End()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := handler.sessions.Complete(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	} else if errors.Is(err, ErrSessionAlreadyCompleted) {
		http.Error(w, "session already completed", http.StatusConflict)
		return
	} else if err != nil {
		log.Errorf("failed to complete session %d: %s", id, err)
		http.Error(w, "error, failed to complete session", http.StatusInternalServerError)
		return
	}

	sessionResult, err := handler.progression.CompleteSession(ctx, session.UserID)
	if err != nil {
		log.Errorf("failed to run session %d completion through progression: %s", id, err)
		http.Error(w, "error, session completed but progression failed, retry", http.StatusConflict)
		return
	}

	respJson, err := json.Marshal(CompleteSessionResponse{
		Session:     *session,
		Progression: sessionResult,
	})
	if err != nil {
		log.Errorf("failed to marshal complete session response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("session %d completed for %s", session.ID, session.UserID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.list")
	defer span.End()

	exercises, err := handler.catalog.List(ctx)
	if err != nil {
		log.Errorf("failed to list exercises: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ExercisesResponse{
		Exercises: exercises,
		Total:     len(exercises),
	})
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleGetExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.get")
	defer span.End()

	id, ok := exerciseID(w, r)
	if !ok {
		return
	}

	exercise, err := handler.catalog.Get(ctx, id)
	if err != nil {
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusOK)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}
	if exercise.Name == "" || exercise.MuscleGroup == "" {
		http.Error(w, "error, exercise name or muscle group empty", http.StatusBadRequest)
		return
	}
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = time.Now()
	}

	addedExercise, err := handler.catalog.Add(ctx, exercise)
	if err != nil {
		log.Errorf("failed to add exercise [%s] [%s]: %s", exercise.MuscleGroup, exercise.Name, err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %s", exerciseJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id, ok := exerciseID(w, r)
	if !ok {
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Errorf("update exercise, unmarshal json params: %s", err)
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}
	exercise.ID = id
	if exercise.Name == "" || exercise.MuscleGroup == "" {
		http.Error(w, "error, exercise name or muscle group empty", http.StatusBadRequest)
		return
	}

	if err := handler.catalog.Update(ctx, &exercise); errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to update exercise %d: %s", exercise.ID, err)
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusOK)
}

func (handler *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.delete")
	defer span.End()

	id, ok := exerciseID(w, r)
	if !ok {
		return
	}

	if err := handler.catalog.Delete(ctx, id); errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to delete exercise %d: %s", id, err)
		http.Error(w, "exercise not deleted", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteExerciseResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(respJson))
}

func (handler *Handler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.history")
	defer span.End()

	id, ok := exerciseID(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	history, err := handler.analyzer.History(ctx, userID, id)
	if err != nil {
		log.Errorf("failed to get exercise %d history: %s", id, err)
		http.Error(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	historyJson, err := json.Marshal(history)
	if err != nil {
		log.Errorf("failed to marshal exercise history: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, historyJson, http.StatusOK)
}

func (handler *Handler) HandleHeaviestSets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.heaviest")
	defer span.End()

	id, ok := exerciseID(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "error, limit NaN", http.StatusBadRequest)
			return
		}
	}

	heavySets, err := handler.analyzer.HeaviestSets(ctx, userID, id, limit)
	if err != nil {
		log.Errorf("failed to get heaviest sets for exercise %d: %s", id, err)
		http.Error(w, "failed to get heaviest sets", http.StatusInternalServerError)
		return
	}

	heavySetsJson, err := json.Marshal(heavySets)
	if err != nil {
		log.Errorf("failed to marshal heaviest sets: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, heavySetsJson, http.StatusOK)
}

func sessionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, session id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, session id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func exerciseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, exercise id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/response"
)

// SessionStore persists sessions and their question membership.
type SessionStore interface {
	CreateWithQuestions(ctx context.Context, s *model.Session, filter model.QuestionFilter, arrange func(ids []int) []int) (int, error)
	GetByID(ctx context.Context, id int) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id int) error
	ListByCreator(ctx context.Context, creatorID, limit, offset int) ([]model.Session, int, error)
	ListQuestions(ctx context.Context, sessionID int) ([]model.SessionQuestion, error)
	GetQuestion(ctx context.Context, sessionID, localID int) (*model.SessionQuestion, error)
	CountQuestions(ctx context.Context, sessionID int) (int, error)
	SetTime(ctx context.Context, sessionID, localID, seconds int) error
	SubmitQuestion(ctx context.Context, sessionID, localID int) error
	Submit(ctx context.Context, sessionID int) error
	Reset(ctx context.Context, sessionID int) error
}

// QuestionViewer is the part of the question service sessions depend on.
type QuestionViewer interface {
	Get(ctx context.Context, id int) (*model.QuestionView, error)
	ListBySession(ctx context.Context, sessionID int) ([]model.Question, error)
	CountMatching(ctx context.Context, f model.QuestionFilter) (int, error)
}

// SessionService runs the session lifecycle: creation with question
// assignment, progress tracking, submission, reset and scoring.
type SessionService struct {
	sessions  SessionStore
	questions QuestionViewer
	registry  *Registry
	scoring   *ScoringEngine
	shuffle   shuffleFunc
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	questions QuestionViewer,
	registry *Registry,
	scoring *ScoringEngine,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		questions: questions,
		registry:  registry,
		scoring:   scoring,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// loadOwnedSession fetches a session and checks that caller may act on it.
func loadOwnedSession(ctx context.Context, store SessionStore, caller model.Caller, id int) (*model.Session, error) {
	s, err := store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("session.not_found").With("id", id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.CreatorID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.Forbidden("session.forbidden")
	}
	return s, nil
}

func (s *SessionService) validateFilter(f model.QuestionFilter) error {
	for _, t := range f.QuestionTypes {
		if _, ok := s.registry.Dispatch(t); !ok {
			return apperror.Conflict("session.filter.type.unknown").With("type", t)
		}
	}
	return nil
}

// Create stores a session and assigns every approved question matching the
// filter, in one transaction. Returns the number of assigned questions.
func (s *SessionService) Create(ctx context.Context, caller model.Caller, req model.CreateSessionRequest) (*model.Session, int, error) {
	if err := s.validateFilter(req.Filter); err != nil {
		return nil, 0, err
	}

	session := &model.Session{
		CreatorID: caller.UserID,
		Name:      req.Name,
		Notes:     req.Notes,
		Type:      req.Type,
		IsRandom:  req.IsRandom,
	}
	assigned, err := s.sessions.CreateWithQuestions(ctx, session, req.Filter, func(ids []int) []int {
		return arrangeQuestions(ids, req.IsRandom, s.shuffle)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Int("session_id", session.ID).
		Int("creator_id", caller.UserID).
		Int("questions", assigned).
		Bool("random", req.IsRandom).
		Msg("Session created")
	return session, assigned, nil
}

// Get returns a session the caller may access.
func (s *SessionService) Get(ctx context.Context, caller model.Caller, id int) (*model.Session, error) {
	return loadOwnedSession(ctx, s.sessions, caller, id)
}

// Update changes session metadata. Question assignment is never re-run, so
// toggling is_random only affects the stored flag.
func (s *SessionService) Update(ctx context.Context, caller model.Caller, id int, req model.UpdateSessionRequest) (*model.Session, error) {
	session, err := loadOwnedSession(ctx, s.sessions, caller, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		session.Name = *req.Name
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}
	if req.Type != nil {
		session.Type = *req.Type
	}
	if req.IsRandom != nil {
		session.IsRandom = *req.IsRandom
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// Delete removes a session with its membership and selections.
func (s *SessionService) Delete(ctx context.Context, caller model.Caller, id int) error {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListByUser lists a user's sessions, newest first.
func (s *SessionService) ListByUser(ctx context.Context, caller model.Caller, userID, page, perPage int) ([]model.Session, *response.Pagination, error) {
	if userID != caller.UserID && !caller.IsAdmin() {
		return nil, nil, apperror.Forbidden("session.forbidden")
	}
	page, perPage = normalizePage(page, perPage)

	sessions, total, err := s.sessions.ListByCreator(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, response.NewPagination(page, perPage, total), nil
}

// CountMatching previews how many questions a session with filter f would get.
func (s *SessionService) CountMatching(ctx context.Context, f model.QuestionFilter) (int, error) {
	if err := s.validateFilter(f); err != nil {
		return 0, err
	}
	return s.questions.CountMatching(ctx, f)
}

// CountQuestions returns the number of questions bound to a session.
func (s *SessionService) CountQuestions(ctx context.Context, caller model.Caller, id int) (int, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return 0, err
	}
	return s.sessions.CountQuestions(ctx, id)
}

// Questions lists the base records of a session's questions in local id order.
func (s *SessionService) Questions(ctx context.Context, caller model.Caller, id int) ([]model.Question, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return nil, err
	}
	return s.questions.ListBySession(ctx, id)
}

func (s *SessionService) sessionQuestion(ctx context.Context, sessionID, localID int) (*model.SessionQuestion, error) {
	sq, err := s.sessions.GetQuestion(ctx, sessionID, localID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("session.question.not_found").With("local_id", localID)
		}
		return nil, fmt.Errorf("get session question: %w", err)
	}
	return sq, nil
}

// QuestionAt returns the materialized question bound at localID.
func (s *SessionService) QuestionAt(ctx context.Context, caller model.Caller, id, localID int) (*model.QuestionView, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return nil, err
	}
	sq, err := s.sessionQuestion(ctx, id, localID)
	if err != nil {
		return nil, err
	}
	return s.questions.Get(ctx, sq.QuestionID)
}

// QuestionStatus returns the progress of the question bound at localID.
func (s *SessionService) QuestionStatus(ctx context.Context, caller model.Caller, id, localID int) (*model.QuestionStatus, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return nil, err
	}
	sq, err := s.sessionQuestion(ctx, id, localID)
	if err != nil {
		return nil, err
	}
	return &model.QuestionStatus{
		LocalID:     sq.LocalID,
		QuestionID:  sq.QuestionID,
		Time:        sq.Time,
		IsSubmitted: sq.IsSubmitted,
	}, nil
}

func notFoundIfNoRows(err error, rule string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(rule)
	}
	return err
}

// SubmitQuestion marks one question as submitted. Repeating it is harmless.
func (s *SessionService) SubmitQuestion(ctx context.Context, caller model.Caller, id, localID int) error {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return err
	}
	if err := s.sessions.SubmitQuestion(ctx, id, localID); err != nil {
		return notFoundIfNoRows(err, "session.question.not_found")
	}
	return nil
}

// AddTime overwrites the time spent on a question.
func (s *SessionService) AddTime(ctx context.Context, caller model.Caller, id, localID, seconds int) error {
	if seconds < 0 {
		return apperror.Conflict("session.time.negative")
	}
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return err
	}
	if err := s.sessions.SetTime(ctx, id, localID, seconds); err != nil {
		return notFoundIfNoRows(err, "session.question.not_found")
	}
	return nil
}

// Submit finishes the session and submits all of its questions.
func (s *SessionService) Submit(ctx context.Context, caller model.Caller, id int) error {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return err
	}
	if err := s.sessions.Submit(ctx, id); err != nil {
		return fmt.Errorf("submit session: %w", notFoundIfNoRows(err, "session.not_found"))
	}
	s.log.Info().Int("session_id", id).Msg("Session submitted")
	return nil
}

// Reset reopens the session and wipes per-question state and selections.
// The assigned questions and their local ids are kept.
func (s *SessionService) Reset(ctx context.Context, caller model.Caller, id int) error {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, id); err != nil {
		return err
	}
	if err := s.sessions.Reset(ctx, id); err != nil {
		return fmt.Errorf("reset session: %w", notFoundIfNoRows(err, "session.not_found"))
	}
	s.log.Info().Int("session_id", id).Msg("Session reset")
	return nil
}

// Results scores every question of the session.
func (s *SessionService) Results(ctx context.Context, caller model.Caller, id int) (*model.SessionResult, error) {
	session, err := loadOwnedSession(ctx, s.sessions, caller, id)
	if err != nil {
		return nil, err
	}
	result, err := s.scoring.ScoreSession(ctx, id)
	if err != nil {
		return nil, err
	}
	result.IsFinished = session.IsFinished
	return result, nil
}

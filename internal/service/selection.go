package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/apperror"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// SelectionStore persists per-answer selections of choice questions.
type SelectionStore interface {
	CountAnswers(ctx context.Context, qType model.QuestionType, questionID int) (int, error)
	Upsert(ctx context.Context, qType model.QuestionType, sessionID, questionID int, states []model.SelectionState) error
	List(ctx context.Context, qType model.QuestionType, sessionID, localID int) ([]model.Selection, error)
}

// SelectionService records which answers a user checked or crossed out.
type SelectionService struct {
	sessions   SessionStore
	selections SelectionStore
	registry   *Registry
	log        zerolog.Logger
}

// NewSelectionService creates a new SelectionService.
func NewSelectionService(sessions SessionStore, selections SelectionStore, registry *Registry, log zerolog.Logger) *SelectionService {
	return &SelectionService{
		sessions:   sessions,
		selections: selections,
		registry:   registry,
		log:        log.With().Str("component", "selection_service").Logger(),
	}
}

// buildSelectionStates expands the checked and crossed ids into one state per
// answer position 1..count. A position that is both checked and crossed, or
// an id outside 1..count, rejects the whole request.
func buildSelectionStates(count int, checked, crossed []int) ([]model.SelectionState, error) {
	states := make([]model.SelectionState, count)
	for i := range states {
		states[i].LocalAnswerID = i + 1
	}

	for _, id := range checked {
		if err := checkLocalID("selection.answer.out_of_range", id, count); err != nil {
			return nil, err
		}
		states[id-1].IsChecked = true
	}
	for _, id := range crossed {
		if err := checkLocalID("selection.answer.out_of_range", id, count); err != nil {
			return nil, err
		}
		states[id-1].IsCrossed = true
	}

	for _, s := range states {
		if s.IsChecked && s.IsCrossed {
			return nil, apperror.Conflict("selection.checked_and_crossed").With("local_answer_id", s.LocalAnswerID)
		}
	}
	return states, nil
}

func countDistinct(ids []int) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// selectable resolves the session question at localID and checks that its
// type accepts selections.
func (s *SelectionService) selectable(ctx context.Context, caller model.Caller, sessionID, localID int) (*model.SessionQuestion, Selectable, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, caller, sessionID); err != nil {
		return nil, nil, err
	}
	sq, err := s.sessions.GetQuestion(ctx, sessionID, localID)
	if err != nil {
		return nil, nil, notFoundIfNoRows(err, "session.question.not_found")
	}

	handler, ok := s.registry.Dispatch(sq.Type)
	if !ok {
		return nil, nil, apperror.Conflict("selection.type.unsupported").With("type", sq.Type)
	}
	sel, ok := handler.(Selectable)
	if !ok {
		return nil, nil, apperror.Conflict("selection.type.unsupported").With("type", sq.Type)
	}
	return sq, sel, nil
}

// SetSelection rewrites the state of every answer position of the question
// at localID. Repeating the same request leaves the same stored state.
func (s *SelectionService) SetSelection(ctx context.Context, caller model.Caller, sessionID, localID int, req model.SetSelectionRequest) ([]model.Selection, error) {
	sq, sel, err := s.selectable(ctx, caller, sessionID, localID)
	if err != nil {
		return nil, err
	}

	if limit := sel.MaxChecked(); limit > 0 && countDistinct(req.CheckedIDs) > limit {
		return nil, apperror.Conflict("selection.too_many_checked").With("max", limit)
	}

	count, err := s.selections.CountAnswers(ctx, sq.Type, sq.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	states, err := buildSelectionStates(count, req.CheckedIDs, req.CrossedIDs)
	if err != nil {
		return nil, err
	}

	if err := s.selections.Upsert(ctx, sq.Type, sessionID, sq.QuestionID, states); err != nil {
		return nil, fmt.Errorf("store selections: %w", err)
	}
	s.log.Debug().
		Int("session_id", sessionID).
		Int("local_id", localID).
		Ints("checked", req.CheckedIDs).
		Ints("crossed", req.CrossedIDs).
		Msg("Selections stored")
	return s.list(ctx, sq.Type, sessionID, localID)
}

// GetSelections returns the stored selections of the question at localID.
func (s *SelectionService) GetSelections(ctx context.Context, caller model.Caller, sessionID, localID int) ([]model.Selection, error) {
	sq, _, err := s.selectable(ctx, caller, sessionID, localID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, sq.Type, sessionID, localID)
}

func (s *SelectionService) list(ctx context.Context, qType model.QuestionType, sessionID, localID int) ([]model.Selection, error) {
	selections, err := s.selections.List(ctx, qType, sessionID, localID)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	if selections == nil {
		selections = []model.Selection{}
	}
	return selections, nil
}

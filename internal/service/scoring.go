package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-qbank/internal/model"
)

// ScoringEngine turns stored selections into points.
type ScoringEngine struct {
	registry   *Registry
	sessions   SessionStore
	selections SelectionStore
	questions  QuestionViewer
}

// NewScoringEngine creates a new ScoringEngine.
func NewScoringEngine(registry *Registry, sessions SessionStore, selections SelectionStore, questions QuestionViewer) *ScoringEngine {
	return &ScoringEngine{
		registry:   registry,
		sessions:   sessions,
		selections: selections,
		questions:  questions,
	}
}

// Score returns the points earned for the question bound at localID.
// Types without a scoring rule and questions without a variant score 0.
func (e *ScoringEngine) Score(ctx context.Context, sessionID int, q *model.QuestionView, localID int) (int, error) {
	if q.Variant == nil {
		return 0, nil
	}
	handler, ok := e.registry.Dispatch(q.Type)
	if !ok {
		return 0, nil
	}
	scorer, ok := handler.(Scorer)
	if !ok {
		return 0, nil
	}

	selections, err := e.selections.List(ctx, q.Type, sessionID, localID)
	if err != nil {
		return 0, fmt.Errorf("list selections: %w", err)
	}
	return scorer.Score(q.Points, q.Variant, selections), nil
}

// ScoreSession scores every question of a session in local id order.
func (e *ScoringEngine) ScoreSession(ctx context.Context, sessionID int) (*model.SessionResult, error) {
	members, err := e.sessions.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}

	result := &model.SessionResult{
		SessionID: sessionID,
		Questions: make([]model.QuestionScore, 0, len(members)),
	}
	for _, m := range members {
		view, err := e.questions.Get(ctx, m.QuestionID)
		if err != nil {
			return nil, err
		}
		points, err := e.Score(ctx, sessionID, view, m.LocalID)
		if err != nil {
			return nil, err
		}
		result.Questions = append(result.Questions, model.QuestionScore{
			SessionID:  sessionID,
			QuestionID: m.QuestionID,
			LocalID:    m.LocalID,
			Points:     points,
			MaxPoints:  view.Points,
		})
		result.TotalPoints += points
		result.MaxPoints += view.Points
	}
	return result, nil
}
